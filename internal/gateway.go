package internal

import (
	"context"
	"strings"
)

// Part is one piece of a context turn: either text or inline audio
type Part struct {
	Text  string
	Audio *Audio
}

// ContextTurn is a prior turn in the shape handed to the model
type ContextTurn struct {
	Role  Role
	Parts []Part
}

// Text joins the text parts of the turn
func (t ContextTurn) Text() string {
	var b strings.Builder
	for _, p := range t.Parts {
		if p.Audio == nil {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// ChatContext is an open conversation with the model
type ChatContext interface {
	// Send submits one user turn and streams the model's reply
	Send(ctx context.Context, text string, audio *Audio) *Stream
}

// Gateway is the AI service the controller talks to
type Gateway interface {
	// OpenContext starts a chat seeded with a system prompt and prior turns.
	// It fails with a configuration GatewayError when no credential is set.
	OpenContext(ctx context.Context, systemPrompt string, history []ContextTurn) (ChatContext, error)
	// GenerateReflection returns a short message for persona. It never fails;
	// errors produce a fixed fallback text.
	GenerateReflection(ctx context.Context, persona Persona) string
}

// BuildHistory converts turns to model context. Error turns are left out so
// the model never sees failure notices as real history.
func BuildHistory(turns []Turn) []ContextTurn {
	history := make([]ContextTurn, 0, len(turns))
	for _, t := range turns {
		if t.IsError {
			continue
		}
		var parts []Part
		if t.Audio != nil {
			a := *t.Audio
			if a.MimeType == "" {
				a.MimeType = DefaultAudioMimeType
			}
			parts = append(parts, Part{Audio: &a})
		}
		if t.Text != "" {
			parts = append(parts, Part{Text: t.Text})
		}
		if len(parts) == 0 {
			parts = append(parts, Part{Text: "..."})
		}
		history = append(history, ContextTurn{Role: t.Role, Parts: parts})
	}
	return history
}
