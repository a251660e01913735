package gateway

import (
	"errors"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/iksnae/fale-com-deus/internal"
)

// Default model per provider when gateway.model is empty
var defaultModels = map[string]string{
	"gemini":    internal.DefaultModel,
	"openai":    "gpt-4o-mini",
	"anthropic": "claude-3-5-haiku-latest",
	"ollama":    "llama3.2",
	"deepseek":  "deepseek-chat",
	"mistral":   "mistral-small-latest",
	"groq":      "llama-3.3-70b-versatile",
	"llamacpp":  "default",
	"llamafile": "default",
}

// DefaultModel returns the model used for provider when none is configured
func DefaultModel(provider string) string {
	return defaultModels[strings.ToLower(provider)]
}

// NewFromConfig builds the client described by cfg. A missing credential is
// not an error here: the returned client is unconfigured and reports it on
// every OpenContext, so the chat can show the configuration notice.
func NewFromConfig(cfg internal.GatewayConfig) (*Client, error) {
	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = internal.DefaultProvider
	}

	apiKey, err := cfg.ResolveAPIKey()
	if err != nil {
		if errors.Is(err, internal.ErrNoCredential) {
			internal.LogWarn("Gateway unconfigured: %v", err)
			return Unconfigured(err), nil
		}
		return nil, err
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel(provider)
	}
	temperature := cfg.TemperatureValue()

	var backend Backend
	switch provider {
	case "openai":
		backend, err = NewOpenAI(apiKey, model, cfg.BaseURL, temperature)
	default:
		var opts []anyllmlib.Option
		if apiKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(apiKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(cfg.BaseURL))
		}
		backend, err = NewAnyLLM(provider, model, temperature, opts...)
	}
	if err != nil {
		return nil, &internal.GatewayError{Kind: internal.GatewayConfiguration, Op: "open", Err: err}
	}

	internal.LogDebug("Gateway backend %s", backend.Name())
	return New(backend), nil
}
