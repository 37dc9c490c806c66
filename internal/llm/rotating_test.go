package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mgpai22/verbatim/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// fakeModel answers from a script of errors, then succeeds with its key
type fakeModel struct {
	key string

	mu    sync.Mutex
	fails []error
	calls int
}

func (f *fakeModel) SupportsAudio() bool { return false }

func (f *fakeModel) Generate(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.fails) > 0 {
		err := f.fails[0]
		f.fails = f.fails[1:]
		return "", err
	}
	return "answer from " + f.key, nil
}

func newTestRotating(t *testing.T, keys []string, models map[string]*fakeModel) *Rotating {
	t.Helper()
	policy := retry.Policy{
		MaxRetries:     3,
		BaseDelay:      time.Millisecond,
		MaxDelay:       time.Millisecond,
		RateLimitDelay: time.Millisecond,
	}
	r, err := NewRotating(ProviderGemini, keys, Options{}, policy, nil)
	require.NoError(t, err)

	r.factory = func(ctx context.Context, p Provider, key string, opts Options) (Model, error) {
		m, ok := models[key]
		if !ok {
			return nil, errors.New("unknown key")
		}
		return m, nil
	}
	return r
}

func TestRotatingSwitchesKeyOnRateLimit(t *testing.T) {
	first := &fakeModel{key: "k1", fails: []error{genai.APIError{Code: 429}}}
	second := &fakeModel{key: "k2"}
	r := newTestRotating(t, []string{"k1", "k2"}, map[string]*fakeModel{"k1": first, "k2": second})

	got, err := r.Generate(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "answer from k2", got)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)

	idx, _ := r.keys.Current()
	assert.Equal(t, 1, idx)
}

func TestRotatingKeepsKeyOnTransient(t *testing.T) {
	first := &fakeModel{key: "k1", fails: []error{genai.APIError{Code: 503}, genai.APIError{Code: 500}}}
	second := &fakeModel{key: "k2"}
	r := newTestRotating(t, []string{"k1", "k2"}, map[string]*fakeModel{"k1": first, "k2": second})

	got, err := r.Generate(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "answer from k1", got)
	assert.Equal(t, 3, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestRotatingStopsOnFatal(t *testing.T) {
	bad := genai.APIError{Code: 400, Message: "bad request"}
	first := &fakeModel{key: "k1", fails: []error{bad}}
	r := newTestRotating(t, []string{"k1"}, map[string]*fakeModel{"k1": first})

	_, err := r.Generate(context.Background(), Request{Prompt: "hi"})
	var apiErr genai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Code)
	assert.Equal(t, 1, first.calls)
}

func TestRotatingTranscribeUnsupported(t *testing.T) {
	r := newTestRotating(t, []string{"k1"}, map[string]*fakeModel{"k1": {key: "k1"}})

	_, err := r.TranscribeAudio(context.Background(), "a.mp3", "")
	assert.ErrorIs(t, err, ErrAudioUnsupported)
	assert.False(t, r.CanTranscribe())
	assert.True(t, r.SupportsAudio())
}

func TestNewRotatingNeedsKeys(t *testing.T) {
	_, err := NewRotating(ProviderOpenAI, nil, Options{}, retry.DefaultPolicy(), nil)
	assert.ErrorIs(t, err, ErrNoKeys)
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" Anthropic ")
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, p)
	assert.False(t, p.SupportsAudio())

	_, err = ParseProvider("whisper")
	assert.Error(t, err)
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n[1, 2]\n```", "[1, 2]"},
		{"```\n{\"a\": 1}\n```  ", "{\"a\": 1}"},
		{"  [] ", "[]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanJSON(tt.in))
	}
}
