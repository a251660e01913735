package gateway

import (
	"errors"
	"net/http"
	"strings"

	oai "github.com/openai/openai-go"

	"github.com/iksnae/fale-com-deus/internal"
)

// Substrings providers use when rejecting a credential
var authSignatures = []string{
	"leaked",
	"permission_denied",
	"api_key_invalid",
	"api key not valid",
	"invalid api key",
	"invalid_api_key",
	"incorrect api key",
	"unauthenticated",
	"unauthorized",
}

// Classify wraps err in an *internal.GatewayError of the matching kind.
// Context errors stay reachable through errors.Is.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var gwErr *internal.GatewayError
	if errors.As(err, &gwErr) {
		return err
	}
	return &internal.GatewayError{Kind: kindOf(err), Op: op, Err: err}
}

func kindOf(err error) internal.GatewayErrorKind {
	if errors.Is(err, internal.ErrNoCredential) {
		return internal.GatewayConfiguration
	}

	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return internal.GatewayAuthorization
		}
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range authSignatures {
		if strings.Contains(msg, sig) {
			return internal.GatewayAuthorization
		}
	}
	return internal.GatewayTransport
}
