package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachingVerifier memoizes successful verifications. Failures are never
// cached, and a cached identity is dropped once its token expires.
type CachingVerifier struct {
	next  Verifier
	cache *expirable.LRU[string, *Identity]
	now   func() time.Time
}

// NewCachingVerifier wraps next with an LRU of size entries held for at most ttl
func NewCachingVerifier(next Verifier, size int, ttl time.Duration) *CachingVerifier {
	if size <= 0 {
		size = 1024
	}
	return &CachingVerifier{
		next:  next,
		cache: expirable.NewLRU[string, *Identity](size, nil, ttl),
		now:   time.Now,
	}
}

// Verify returns the cached identity for token or delegates to the wrapped verifier
func (c *CachingVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	key := tokenKey(token)

	if identity, ok := c.cache.Get(key); ok {
		if identity.ExpiresAt.IsZero() || c.now().Before(identity.ExpiresAt) {
			copied := *identity
			return &copied, nil
		}
		c.cache.Remove(key)
	}

	identity, err := c.next.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	copied := *identity
	c.cache.Add(key, &copied)
	return identity, nil
}

// Len reports the number of cached identities
func (c *CachingVerifier) Len() int {
	return c.cache.Len()
}

// tokenKey avoids keeping raw bearer tokens in memory
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
