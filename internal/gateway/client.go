// Package gateway implements the AI gateway on top of hosted LLM providers.
//
// A Client owns the per-conversation history and turns a Backend's streamed
// completions into internal.Stream values. Backends are thin adapters over
// github.com/mozilla-ai/any-llm-go and github.com/openai/openai-go.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/iksnae/fale-com-deus/internal"
)

// Request is everything a backend needs for one streamed reply
type Request struct {
	SystemPrompt string
	History      []internal.ContextTurn
	Text         string
	Audio        *internal.Audio
}

// Backend is a provider adapter
type Backend interface {
	// Name identifies the provider and model, e.g. "gemini/gemini-2.5-flash"
	Name() string
	// Stream produces the reply to req, calling emit once per fragment.
	// It stops early when emit returns false.
	Stream(ctx context.Context, req Request, emit func(string) bool) error
	// Complete runs a single prompt with no history
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client implements internal.Gateway
type Client struct {
	backend Backend
	err     error
}

var _ internal.Gateway = (*Client)(nil)

// New creates a Client over backend
func New(backend Backend) *Client {
	return &Client{backend: backend}
}

// Unconfigured creates a Client whose contexts cannot be opened. Every
// OpenContext call fails with a configuration error wrapping cause.
func Unconfigured(cause error) *Client {
	return &Client{err: cause}
}

// Describe names the backend, or why there is none
func (c *Client) Describe() string {
	if c.backend == nil {
		return fmt.Sprintf("unconfigured (%v)", c.err)
	}
	return c.backend.Name()
}

// Configured reports whether the client has a backend
func (c *Client) Configured() bool {
	return c.backend != nil
}

// OpenContext starts a chat context seeded with systemPrompt and history
func (c *Client) OpenContext(ctx context.Context, systemPrompt string, history []internal.ContextTurn) (internal.ChatContext, error) {
	if c.backend == nil {
		cause := c.err
		if cause == nil {
			cause = internal.ErrNoCredential
		}
		return nil, &internal.GatewayError{Kind: internal.GatewayConfiguration, Op: "open", Err: cause}
	}
	if err := ctx.Err(); err != nil {
		return nil, Classify("open", err)
	}
	internal.LogDebug("Opening chat context on %s with %d prior turns", c.backend.Name(), len(history))
	return &chatContext{
		backend:      c.backend,
		systemPrompt: systemPrompt,
		history:      append([]internal.ContextTurn(nil), history...),
	}, nil
}

// GenerateReflection asks for a two-sentence reflection. Errors and empty
// replies produce fixed fallback texts.
func (c *Client) GenerateReflection(ctx context.Context, persona internal.Persona) string {
	if c.backend == nil {
		return internal.ReflectionErrorFallback
	}
	text, err := c.backend.Complete(ctx, internal.ReflectionPrompt(persona))
	if err != nil {
		internal.LogWarn("Reflection failed: %v", Classify("reflect", err))
		return internal.ReflectionErrorFallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return internal.ReflectionEmptyFallback
	}
	return text
}

type chatContext struct {
	backend      Backend
	systemPrompt string

	mu      sync.Mutex
	history []internal.ContextTurn
}

// Send streams the reply to one user turn. The exchange joins the history
// only once the reply completes.
func (cc *chatContext) Send(ctx context.Context, text string, audio *internal.Audio) *internal.Stream {
	cc.mu.Lock()
	req := Request{
		SystemPrompt: cc.systemPrompt,
		History:      append([]internal.ContextTurn(nil), cc.history...),
		Text:         text,
		Audio:        audio,
	}
	cc.mu.Unlock()

	return internal.NewStream(ctx, func(ctx context.Context, emit func(string) bool) error {
		var reply strings.Builder
		err := cc.backend.Stream(ctx, req, func(fragment string) bool {
			reply.WriteString(fragment)
			return emit(fragment)
		})
		if err != nil {
			return Classify("send", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		cc.record(req, reply.String())
		return nil
	})
}

func (cc *chatContext) record(req Request, reply string) {
	user := internal.ContextTurn{Role: internal.RoleUser, Parts: requestParts(req)}
	if reply == "" {
		reply = "..."
	}
	model := internal.ContextTurn{
		Role:  internal.RoleModel,
		Parts: []internal.Part{{Text: reply}},
	}

	cc.mu.Lock()
	cc.history = append(cc.history, user, model)
	cc.mu.Unlock()
}

// History returns a copy of the context's history
func (cc *chatContext) History() []internal.ContextTurn {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return append([]internal.ContextTurn(nil), cc.history...)
}

// audioNote describes an audio part for providers that only carry text
func audioNote(a *internal.Audio) string {
	mime := a.MimeType
	if mime == "" {
		mime = internal.DefaultAudioMimeType
	}
	return fmt.Sprintf("[Mensagem de voz anexada (%s, %d bytes); o áudio não pôde ser transcrito por este provedor]", mime, len(a.Data))
}

// partsText flattens a turn's parts into a single text message
func partsText(parts []internal.Part) string {
	var b strings.Builder
	for _, p := range parts {
		var s string
		if p.Audio != nil {
			s = audioNote(p.Audio)
		} else {
			s = p.Text
		}
		if s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(s)
	}
	if b.Len() == 0 {
		return "..."
	}
	return b.String()
}

// requestParts returns the parts of the new user turn, audio first
func requestParts(req Request) []internal.Part {
	var parts []internal.Part
	if req.Audio != nil {
		parts = append(parts, internal.Part{Audio: req.Audio})
	}
	if req.Text != "" {
		parts = append(parts, internal.Part{Text: req.Text})
	}
	return parts
}
