package llm

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/mgpai22/verbatim/internal/retry"
)

func TestFactoryReturnsVendorModels(t *testing.T) {
	ctx := context.Background()

	gemini, err := Factory(ctx, ProviderGemini, "fake-key", Options{})
	if err != nil {
		t.Fatalf("Factory(ProviderGemini) returned error: %v", err)
	}
	if _, ok := gemini.(*GeminiModel); !ok {
		t.Errorf("expected *GeminiModel, got %T", gemini)
	}
	if !gemini.SupportsAudio() {
		t.Error("gemini should accept audio")
	}

	oa, err := Factory(ctx, ProviderOpenAI, "fake-key", Options{})
	if err != nil {
		t.Fatalf("Factory(ProviderOpenAI) returned error: %v", err)
	}
	if _, ok := oa.(AudioTranscriber); !ok {
		t.Error("OpenAIModel should implement AudioTranscriber")
	}

	claude, err := Factory(ctx, ProviderAnthropic, "fake-key", Options{})
	if err != nil {
		t.Fatalf("Factory(ProviderAnthropic) returned error: %v", err)
	}
	if claude.SupportsAudio() {
		t.Error("anthropic models are text-only here")
	}
}

func TestFactoryRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	if _, err := Factory(ctx, Provider("unknown"), "fake-key", Options{}); err == nil {
		t.Error("expected error for unknown provider")
	}
	for _, p := range []Provider{ProviderGemini, ProviderOpenAI, ProviderAnthropic} {
		if _, err := Factory(ctx, p, "", Options{}); err == nil {
			t.Errorf("%s: expected error for missing API key", p)
		}
	}
}

func TestAnthropicRejectsAudio(t *testing.T) {
	m, err := NewAnthropicModel(context.Background(), "fake-key", Options{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.Generate(context.Background(), Request{Prompt: "hi", AudioPath: "talk.mp3"})
	if !errors.Is(err, ErrAudioUnsupported) {
		t.Fatalf("expected ErrAudioUnsupported, got %v", err)
	}
	if Classify(err) != retry.KindFatal {
		t.Errorf("audio on a text model should not be retried, got %s", Classify(err))
	}
}

// Integration test: only runs if OPENAI_API_KEY is set
func TestOpenAIGenerateIntegration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set; skipping integration test")
	}

	ctx := context.Background()
	m, err := NewOpenAIModel(ctx, apiKey, Options{})
	if err != nil {
		t.Fatalf("NewOpenAIModel error: %v", err)
	}

	out, err := m.Generate(ctx, Request{
		System: "Reply with JSON only.",
		Prompt: `Return {"ok": true}`,
		JSON:   true,
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if !strings.Contains(CleanJSON(out), "ok") {
		t.Errorf("unexpected reply: %q", out)
	}
}
