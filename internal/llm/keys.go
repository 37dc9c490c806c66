package llm

import (
	"errors"
	"sync"

	"github.com/mgpai22/verbatim/internal/retry"
)

var ErrNoKeys = errors.New("no API keys configured")

// NextKeyIndex returns the key to use after a failure of the given kind.
// Only rate limits move to the next key; the index wraps around and an
// out-of-range current index resets to 0.
func NextKeyIndex(keys []string, current int, kind retry.Kind) int {
	if len(keys) == 0 {
		return 0
	}
	if current < 0 || current >= len(keys) {
		current = 0
	}
	if kind != retry.KindRateLimit {
		return current
	}
	return (current + 1) % len(keys)
}

// Keyring holds an ordered key list and the index currently in use. It is
// shared by concurrent callers.
type Keyring struct {
	mu      sync.Mutex
	keys    []string
	current int
}

func NewKeyring(keys []string) (*Keyring, error) {
	var clean []string
	for _, k := range keys {
		if k != "" {
			clean = append(clean, k)
		}
	}
	if len(clean) == 0 {
		return nil, ErrNoKeys
	}
	return &Keyring{keys: clean}, nil
}

func (k *Keyring) Len() int {
	return len(k.keys)
}

func (k *Keyring) Current() (int, string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current, k.keys[k.current]
}

// Advance moves past index from after a failure of the given kind. When
// another caller already rotated away from from, the ring is left alone so
// a burst of rate limits on one key advances it only once.
func (k *Keyring) Advance(from int, kind retry.Kind) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if from == k.current {
		k.current = NextKeyIndex(k.keys, k.current, kind)
	}
	return k.current
}
