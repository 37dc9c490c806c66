package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/mgpai22/verbatim/internal/retry"
	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func openaiError(status int) error {
	return &openai.Error{
		StatusCode: status,
		Request:    httptest.NewRequest(http.MethodPost, "https://api.openai.com/v1/chat/completions", nil),
		Response:   &http.Response{StatusCode: status},
	}
}

func anthropicError(status int) error {
	return &anthropic.Error{
		StatusCode: status,
		Request:    httptest.NewRequest(http.MethodPost, "https://api.anthropic.com/v1/messages", nil),
		Response:   &http.Response{StatusCode: status},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want retry.Kind
	}{
		{"gemini rate limit", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, retry.KindRateLimit},
		{"gemini unavailable", genai.APIError{Code: 503}, retry.KindTransient},
		{"gemini bad request", genai.APIError{Code: 400}, retry.KindFatal},
		{"wrapped gemini", fmt.Errorf("generation failed: %w", genai.APIError{Code: 429}), retry.KindRateLimit},
		{"openai rate limit", fmt.Errorf("generation failed: %w", openaiError(429)), retry.KindRateLimit},
		{"openai server error", openaiError(500), retry.KindTransient},
		{"openai unauthorized", openaiError(401), retry.KindFatal},
		{"anthropic overloaded", anthropicError(529), retry.KindTransient},
		{"anthropic timeout", anthropicError(408), retry.KindTransient},
		{"anthropic conflict", anthropicError(409), retry.KindTransient},
		{"anthropic not found", anthropicError(404), retry.KindFatal},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, retry.KindTransient},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), retry.KindTransient},
		{"canceled", fmt.Errorf("call: %w", context.Canceled), retry.KindFatal},
		{"audio unsupported", ErrAudioUnsupported, retry.KindFatal},
		{"quota text is not enough", errors.New("quota exceeded"), retry.KindFatal},
		{"nil", nil, retry.KindFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
