package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NonceStore issues single-use login nonces per wallet. A nonce expires after
// the TTL and is deleted on first consumption, so a captured signature cannot
// be replayed.
type NonceStore struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]nonceEntry
}

type nonceEntry struct {
	nonce   string
	expires time.Time
}

func NewNonceStore(ttl time.Duration) *NonceStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &NonceStore{
		ttl:     ttl,
		entries: map[string]nonceEntry{},
	}
}

// Issue creates a fresh nonce for a wallet, replacing any outstanding one.
func (s *NonceStore) Issue(wallet string) string {
	wallet = strings.ToLower(strings.TrimSpace(wallet))
	nonce := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(time.Now())
	s.entries[wallet] = nonceEntry{
		nonce:   nonce,
		expires: time.Now().Add(s.ttl),
	}
	return nonce
}

// Consume returns the wallet's outstanding nonce and removes it. The second
// return is false when no live nonce exists.
func (s *NonceStore) Consume(wallet string) (string, bool) {
	wallet = strings.ToLower(strings.TrimSpace(wallet))

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[wallet]
	if !ok {
		return "", false
	}
	delete(s.entries, wallet)
	if time.Now().After(entry.expires) {
		return "", false
	}
	return entry.nonce, true
}

// prune drops expired entries; called under the lock.
func (s *NonceStore) prune(now time.Time) {
	for wallet, entry := range s.entries {
		if now.After(entry.expires) {
			delete(s.entries, wallet)
		}
	}
}

// LoginMessage is the exact text a wallet must sign to authenticate.
func LoginMessage(nonce string) string {
	return "Sign this message to log in to PointStake.\nNonce: " + nonce
}
