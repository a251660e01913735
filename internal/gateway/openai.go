package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/iksnae/fale-com-deus/internal"
)

// OpenAI is a Backend over github.com/openai/openai-go. User audio in wav or
// mp3 goes out as an input_audio content part.
type OpenAI struct {
	client      oai.Client
	model       string
	temperature float64
}

var _ Backend = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI backend. baseURL may point at any compatible
// server.
func NewOpenAI(apiKey, model, baseURL string, temperature float64) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w", internal.ErrNoCredential)
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}

	return &OpenAI{
		client:      oai.NewClient(reqOpts...),
		model:       model,
		temperature: temperature,
	}, nil
}

// Name implements Backend
func (o *OpenAI) Name() string {
	return "openai/" + o.model
}

// Stream implements Backend
func (o *OpenAI) Stream(ctx context.Context, req Request, emit func(string) bool) error {
	stream := o.client.Chat.Completions.NewStreaming(ctx, o.params(buildOpenAIMessages(req)))
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
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

	if err := stream.Err(); err != nil {
		return fmt.Errorf("openai: stream: %w", err)
	}
	return nil
}

// Complete implements Backend
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, o.params([]oai.ChatCompletionMessageParamUnion{
		oai.UserMessage(prompt),
	}))
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) params(messages []oai.ChatCompletionMessageParamUnion) oai.ChatCompletionNewParams {
	return oai.ChatCompletionNewParams{
		Model:       shared.ChatModel(o.model),
		Messages:    messages,
		Temperature: param.NewOpt(o.temperature),
	}
}

func buildOpenAIMessages(req Request) []oai.ChatCompletionMessageParamUnion {
	messages := make([]oai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, oai.SystemMessage(req.SystemPrompt))
	}
	for _, turn := range req.History {
		if turn.Role == internal.RoleModel {
			messages = append(messages, oai.AssistantMessage(partsText(turn.Parts)))
			continue
		}
		messages = append(messages, userMessage(turn.Parts))
	}
	return append(messages, userMessage(requestParts(req)))
}

func userMessage(parts []internal.Part) oai.ChatCompletionMessageParamUnion {
	content := make([]oai.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, p := range parts {
		switch {
		case p.Audio != nil:
			if format, ok := audioFormat(p.Audio.MimeType); ok {
				content = append(content, oai.InputAudioContentPart(oai.ChatCompletionContentPartInputAudioInputAudioParam{
					Data:   base64.StdEncoding.EncodeToString(p.Audio.Data),
					Format: format,
				}))
			} else {
				content = append(content, oai.TextContentPart(audioNote(p.Audio)))
			}
		case p.Text != "":
			content = append(content, oai.TextContentPart(p.Text))
		}
	}
	if len(content) == 0 {
		content = append(content, oai.TextContentPart("..."))
	}
	return oai.UserMessage(content)
}

// audioFormat maps a media type to an input_audio format
func audioFormat(mimeType string) (string, bool) {
	mt := strings.ToLower(mimeType)
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	switch strings.TrimSpace(mt) {
	case "audio/wav", "audio/wave", "audio/x-wav":
		return "wav", true
	case "audio/mpeg", "audio/mp3":
		return "mp3", true
	default:
		return "", false
	}
}
