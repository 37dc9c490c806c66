package llm

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/mgpai22/verbatim/internal/retry"
	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

// Classify maps an error from any vendor client onto a retry.Kind using the
// HTTP status the SDK reports, falling back to network error types.
func Classify(err error) retry.Kind {
	if err == nil || errors.Is(err, context.Canceled) {
		return retry.KindFatal
	}
	if errors.Is(err, ErrAudioUnsupported) {
		return retry.KindFatal
	}

	if status, ok := statusCode(err); ok {
		return classifyStatus(status)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return retry.KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return retry.KindTransient
	}

	return retry.KindFatal
}

func statusCode(err error) (int, bool) {
	var geminiErr genai.APIError
	if errors.As(err, &geminiErr) {
		return geminiErr.Code, true
	}

	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode, true
	}

	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode, true
	}

	return 0, false
}

func classifyStatus(status int) retry.Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return retry.KindRateLimit
	case status == http.StatusRequestTimeout,
		status == http.StatusConflict,
		status >= 500:
		return retry.KindTransient
	default:
		return retry.KindFatal
	}
}
