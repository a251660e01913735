package gateway

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"

	"github.com/iksnae/fale-com-deus/internal"
)

// AnyLLM is a Backend over github.com/mozilla-ai/any-llm-go. Messages there
// carry string content only, so audio parts are sent as a text note.
type AnyLLM struct {
	provider    anyllmlib.Provider
	name        string
	model       string
	temperature float64
}

var _ Backend = (*AnyLLM)(nil)

// NewAnyLLM creates a backend for providerName ("gemini", "anthropic",
// "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile").
func NewAnyLLM(providerName, model string, temperature float64, opts ...anyllmlib.Option) (*AnyLLM, error) {
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}
	provider, err := createProvider(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}
	return &AnyLLM{
		provider:    provider,
		name:        strings.ToLower(providerName),
		model:       model,
		temperature: temperature,
	}, nil
}

func createProvider(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "gemini":
		return gemini.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: gemini, anthropic, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// Name implements Backend
func (a *AnyLLM) Name() string {
	return a.name + "/" + a.model
}

// Stream implements Backend
func (a *AnyLLM) Stream(ctx context.Context, req Request, emit func(string) bool) error {
	chunks, errs := a.provider.CompletionStream(ctx, a.params(buildMessages(req)))

	for chunk := range chunks {
		if len(chunk.Choices) == 0 {
			continue
		}
		text := chunk.Choices[0].Delta.Content
		if text == "" {
			continue
		}
		if !emit(text) {
			return ctx.Err()
		}
	}

	if err := <-errs; err != nil {
		return fmt.Errorf("anyllm: stream: %w", err)
	}
	return nil
}

// Complete implements Backend
func (a *AnyLLM) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.provider.Completion(ctx, a.params([]anyllmlib.Message{
		{Role: anyllmlib.RoleUser, Content: prompt},
	}))
	if err != nil {
		return "", fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.ContentString(), nil
}

func (a *AnyLLM) params(messages []anyllmlib.Message) anyllmlib.CompletionParams {
	params := anyllmlib.CompletionParams{
		Model:    a.model,
		Messages: messages,
	}
	t := a.temperature
	params.Temperature = &t
	return params
}

// buildMessages flattens the system prompt, history and new turn into
// any-llm messages
func buildMessages(req Request) []anyllmlib.Message {
	messages := make([]anyllmlib.Message, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, anyllmlib.Message{
			Role:    anyllmlib.RoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, turn := range req.History {
		messages = append(messages, anyllmlib.Message{
			Role:    anyllmRole(turn.Role),
			Content: partsText(turn.Parts),
		})
	}
	messages = append(messages, anyllmlib.Message{
		Role:    anyllmlib.RoleUser,
		Content: partsText(requestParts(req)),
	})
	return messages
}

func anyllmRole(r internal.Role) string {
	if r == internal.RoleModel {
		return anyllmlib.RoleAssistant
	}
	return anyllmlib.RoleUser
}
