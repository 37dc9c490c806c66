package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// returned when a request carries audio the model cannot take
var ErrAudioUnsupported = errors.New("model does not accept audio input")

// a single generation call
type Request struct {
	System string
	Prompt string
	// optional audio file sent alongside the prompt
	AudioPath string
	// ask the vendor for a JSON-only response where it supports that
	JSON bool
}

// interface for text generation
type Model interface {
	Generate(ctx context.Context, req Request) (string, error)
	SupportsAudio() bool
}

// optional interface for models with a dedicated speech-to-text endpoint
type AudioTranscriber interface {
	TranscribeAudio(ctx context.Context, audioPath, language string) (string, error)
}

// generation service provider
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported provider: %s", s)
	}
}

// whether the provider's generate call accepts audio
func (p Provider) SupportsAudio() bool {
	return p == ProviderGemini
}

type Options struct {
	Model       string
	Temperature *float64
	MaxTokens   int64 // anthropic only (default 8192)
}

// creates Model based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Model, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiModel(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAIModel(ctx, apiKey, opts)
	case ProviderAnthropic:
		return NewAnthropicModel(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

var codeFence = regexp.MustCompile("```(?:json|JSON)?\\s*")

// CleanJSON strips markdown code fences models like to wrap JSON in.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = codeFence.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
