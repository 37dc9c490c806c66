package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 8192

// implements Model using Anthropic Claude; text only
type AnthropicModel struct {
	client  anthropic.Client
	model   anthropic.Model
	options Options
}

func NewAnthropicModel(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*AnthropicModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	model := anthropic.Model(opts.Model)
	if opts.Model == "" {
		model = anthropic.ModelClaudeHaiku4_5
	}

	return &AnthropicModel{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (m *AnthropicModel) SupportsAudio() bool { return false }

func (m *AnthropicModel) Generate(ctx context.Context, req Request) (string, error) {
	if req.AudioPath != "" {
		return "", ErrAudioUnsupported
	}

	maxTokens := m.options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     m.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if t := m.options.Temperature; t != nil {
		params.Temperature = anthropic.Float(*t)
	}

	message, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	if message == nil || len(message.Content) == 0 {
		return "", fmt.Errorf("empty response from Anthropic")
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text in Anthropic response")
	}
	return text, nil
}
