package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnauthenticated is wrapped by every token rejection
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the verified caller
type Identity struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"-"`
}

// Verifier turns a bearer token into an Identity
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// VerifierFunc adapts a function to Verifier
type VerifierFunc func(ctx context.Context, token string) (*Identity, error)

// Verify calls f
func (f VerifierFunc) Verify(ctx context.Context, token string) (*Identity, error) {
	return f(ctx, token)
}

func unauthenticated(reason string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnauthenticated, reason, err)
	}
	return fmt.Errorf("%w: %s", ErrUnauthenticated, reason)
}
