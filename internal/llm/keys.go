package llm

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyManager rotates API keys round-robin, with a per-key client-side rate
// limiter and a cooldown window after the provider reports throttling. A nil
// manager never yields a key.
type KeyManager struct {
	mu       sync.Mutex
	keys     []*managedKey
	next     int
	cooldown time.Duration
}

type managedKey struct {
	key       string
	limiter   *rate.Limiter
	coolUntil time.Time
}

// NewKeyManager builds a manager over the given keys. perMin is the client
// side request budget per key per minute; cooldown is how long a key rests
// after the provider returns a throttle response.
func NewKeyManager(keys []string, perMin int, cooldown time.Duration) *KeyManager {
	if perMin <= 0 {
		perMin = 50
	}
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	m := &KeyManager{cooldown: cooldown}
	for _, k := range keys {
		if k == "" {
			continue
		}
		m.keys = append(m.keys, &managedKey{
			key:     k,
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
		})
	}
	return m
}

// Acquire returns the next usable key, consuming one token from its
// limiter. It returns false when every key is cooling down or limited.
func (m *KeyManager) Acquire(now time.Time) (string, bool) {
	if m == nil {
		return "", false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < len(m.keys); i++ {
		k := m.keys[m.next]
		m.next = (m.next + 1) % len(m.keys)
		if now.Before(k.coolUntil) {
			continue
		}
		if k.limiter.AllowN(now, 1) {
			return k.key, true
		}
	}
	return "", false
}

// Cooldown rests the given key for the configured window.
func (m *KeyManager) Cooldown(key string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.keys {
		if k.key == key {
			k.coolUntil = time.Now().Add(m.cooldown)
			return
		}
	}
}

// Len reports how many keys are managed.
func (m *KeyManager) Len() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}
