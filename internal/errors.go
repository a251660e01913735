package internal

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotReady is returned when an operation needs an active conversation
	ErrNotReady = errors.New("no active conversation")
	// ErrBusy is returned when a response is still streaming
	ErrBusy = errors.New("a response is still streaming")
	// ErrEmptyTurn is returned for a submission with neither text nor audio
	ErrEmptyTurn = errors.New("turn has no text and no audio")
	// ErrUnknownPersona is returned for persona ids or keys not in the registry
	ErrUnknownPersona = errors.New("unknown persona")
	// ErrUnknownTheme is returned for theme ids not in the registry
	ErrUnknownTheme = errors.New("unknown theme")
	// ErrSessionNotFound is returned when an archived session id does not match
	ErrSessionNotFound = errors.New("archived session not found")
	// ErrNoCredential is returned when the gateway has no API key configured
	ErrNoCredential = errors.New("no API credential configured")
)

// StorageError represents errors accessing the key/value store
type StorageError struct {
	Backend string // "sqlite", "bolt", "memory"
	Op      string // "open", "get", "set", "delete", "keys"
	Key     string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage error: %s %s: %v", e.Backend, e.Op, e.Err)
	}
	return fmt.Sprintf("storage error: %s %s %s: %v", e.Backend, e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ParseError represents errors decoding a persisted record
type ParseError struct {
	Source string // "active_session", "chat_history", "config"
	Key    string // record key, entry id or file path
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// GatewayErrorKind classifies AI gateway failures
type GatewayErrorKind int

const (
	// GatewayTransport covers network failures, timeouts and anything unclassified
	GatewayTransport GatewayErrorKind = iota
	// GatewayConfiguration means no usable credential or backend is configured
	GatewayConfiguration
	// GatewayAuthorization means the provider rejected or revoked the credential
	GatewayAuthorization
)

func (k GatewayErrorKind) String() string {
	switch k {
	case GatewayConfiguration:
		return "configuration"
	case GatewayAuthorization:
		return "authorization"
	default:
		return "transport"
	}
}

// GatewayError represents a failure reported by the AI gateway
type GatewayError struct {
	Kind GatewayErrorKind
	Op   string // "open", "send", "reflect"
	Err  error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s error [%s]: %v", e.Kind, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// GatewayKind reports the kind of a gateway error. Errors that are not a
// *GatewayError are treated as transport failures.
func GatewayKind(err error) GatewayErrorKind {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	if errors.Is(err, ErrNoCredential) {
		return GatewayConfiguration
	}
	return GatewayTransport
}

// IsLeakedCredential reports whether err carries the provider signature of a
// blocked (reported as leaked) or permission-denied API key.
func IsLeakedCredential(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "leaked") || strings.Contains(msg, "permission_denied")
}

// User-facing failure notices written into the conversation as error turns.
const (
	MessageConfiguration = "Não foi possível conectar ao servidor. Verifique se a Chave de API está configurada corretamente."
	MessageLeakedKey     = "Acesso negado: Sua Chave de API foi bloqueada por segurança (relatada como vazada) ou é inválida. Por favor, gere uma nova chave no painel do seu provedor."
	MessageDisconnected  = "Desculpe, houve uma desconexão espiritual momentânea. Por favor, tente novamente."
	MessageCancelled     = "A resposta foi interrompida antes de terminar. Por favor, tente novamente."
)

// FailureMessage picks the notice shown for a failed turn
func FailureMessage(err error) string {
	switch {
	case IsLeakedCredential(err), GatewayKind(err) == GatewayAuthorization:
		return MessageLeakedKey
	case GatewayKind(err) == GatewayConfiguration:
		return MessageConfiguration
	default:
		return MessageDisconnected
	}
}
