package utils

import (
	"sync"
	"time"
)

// TokenBlacklist holds revoked admin tokens until they would have expired anyway.
type TokenBlacklist struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
	now    func() time.Time
}

func NewTokenBlacklist() *TokenBlacklist {
	return &TokenBlacklist{
		tokens: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (b *TokenBlacklist) Add(token string, until time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[token] = until
}

func (b *TokenBlacklist) Contains(token string) bool {
	b.mu.RLock()
	until, ok := b.tokens[token]
	b.mu.RUnlock()
	if !ok {
		return false
	}
	if b.now().Before(until) {
		return true
	}

	b.mu.Lock()
	delete(b.tokens, token)
	b.mu.Unlock()
	return false
}

// Prune drops entries past their expiry and returns how many were removed.
func (b *TokenBlacklist) Prune() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	removed := 0
	for token, until := range b.tokens {
		if !now.Before(until) {
			delete(b.tokens, token)
			removed++
		}
	}
	return removed
}
