package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/mgpai22/verbatim/internal/logging"
	"github.com/mgpai22/verbatim/internal/retry"
)

type factoryFunc func(ctx context.Context, provider Provider, apiKey string, opts Options) (Model, error)

// Rotating is a Model that spreads calls over a provider's API keys. Every
// call runs under the retry policy; a rate-limited key is swapped for the
// next one before the retry. Clients are built lazily, one per key.
type Rotating struct {
	provider Provider
	opts     Options
	keys     *Keyring
	policy   retry.Policy
	logger   *logging.Logger
	factory  factoryFunc

	mu      sync.Mutex
	clients map[int]Model
}

func NewRotating(
	provider Provider,
	keys []string,
	opts Options,
	policy retry.Policy,
	logger *logging.Logger,
) (*Rotating, error) {
	ring, err := NewKeyring(keys)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", provider, err)
	}
	if logger == nil {
		logger = logging.Nop()
	}

	return &Rotating{
		provider: provider,
		opts:     opts,
		keys:     ring,
		policy:   policy,
		logger:   logger.With("provider", string(provider)),
		factory:  Factory,
		clients:  make(map[int]Model),
	}, nil
}

func (r *Rotating) Provider() Provider { return r.provider }

func (r *Rotating) SupportsAudio() bool { return r.provider.SupportsAudio() }

func (r *Rotating) Generate(ctx context.Context, req Request) (string, error) {
	return r.do(ctx, "generate", func(ctx context.Context, m Model) (string, error) {
		return m.Generate(ctx, req)
	})
}

// TranscribeAudio forwards to the underlying client's speech-to-text endpoint.
// Providers without one return ErrAudioUnsupported.
func (r *Rotating) TranscribeAudio(ctx context.Context, audioPath, language string) (string, error) {
	return r.do(ctx, "transcribe", func(ctx context.Context, m Model) (string, error) {
		t, ok := m.(AudioTranscriber)
		if !ok {
			return "", ErrAudioUnsupported
		}
		return t.TranscribeAudio(ctx, audioPath, language)
	})
}

// whether the provider has a speech-to-text endpoint
func (r *Rotating) CanTranscribe() bool {
	return r.provider == ProviderOpenAI
}

func (r *Rotating) do(
	ctx context.Context,
	op string,
	call func(ctx context.Context, m Model) (string, error),
) (string, error) {
	var used int

	attempt := func(ctx context.Context) (string, error) {
		idx, key := r.keys.Current()
		used = idx

		m, err := r.client(ctx, idx, key)
		if err != nil {
			return "", err
		}
		return call(ctx, m)
	}

	hook := func(n int, kind retry.Kind, err error) {
		next := r.keys.Advance(used, kind)
		r.logger.Warnw("call failed",
			"op", op,
			"attempt", n,
			"kind", kind.String(),
			"key", used,
			"next_key", next,
			"error", err,
		)
	}

	return retry.Do(ctx, r.policy, Classify, attempt, hook)
}

func (r *Rotating) client(ctx context.Context, idx int, key string) (Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.clients[idx]; ok {
		return m, nil
	}

	m, err := r.factory(ctx, r.provider, key, r.opts)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", r.provider, err)
	}
	r.clients[idx] = m
	return m, nil
}
