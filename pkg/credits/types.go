package credits

import (
	"context"
	"time"
)

// DefaultAllowance is the number of credits granted per day
const DefaultAllowance = 3

// Account is the persisted credit record for one user
type Account struct {
	UserID           string    `json:"user_id"`
	Email            string    `json:"email,omitempty"`
	CreditsRemaining int       `json:"credits_remaining"`
	IsUnlimited      bool      `json:"is_unlimited"`
	LastResetAt      time.Time `json:"last_reset_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// Owner identifies the caller an account belongs to. Email is optional and
// lets payment grants made by email find the account.
type Owner struct {
	UserID string
	Email  string
}

// UseResult is the outcome of spending one credit. Success=false is a
// normal business outcome meaning the balance is exhausted.
type UseResult struct {
	Success          bool `json:"success"`
	CreditsRemaining int  `json:"credits_remaining"`
	IsUnlimited      bool `json:"is_unlimited"`
}

// Stats summarizes the account table
type Stats struct {
	Accounts  int64
	Unlimited int64
}

// Store persists credit accounts. Every mutating method is a single
// conditional statement; implementations must not split them into
// read-modify-write round trips.
type Store interface {
	// Get returns ErrAccountNotFound when the user has no account
	Get(ctx context.Context, userID string) (*Account, error)

	// Create inserts the account unless one exists for the same user id.
	// It reports false on conflict.
	Create(ctx context.Context, account *Account) (bool, error)

	// ClaimPlaceholder moves an account created by an email grant to the
	// verified user id. It reports false when there is nothing to claim.
	ClaimPlaceholder(ctx context.Context, userID, email string, now time.Time) (bool, error)

	// SetEmail records the email on an account that has none and absorbs
	// the placeholder a grant created for that email. It reports whether a
	// placeholder was absorbed.
	SetEmail(ctx context.Context, userID, email string, now time.Time) (bool, error)

	// ResetIfBefore refills the balance when last_reset_at < dayStart and
	// reports whether a refill happened
	ResetIfBefore(ctx context.Context, userID string, allowance int, dayStart, now time.Time) (bool, error)

	// Decrement spends one credit when the account is limited and has a
	// positive balance. ok is false when no credit was spent.
	Decrement(ctx context.Context, userID string, now time.Time) (remaining int, ok bool, err error)

	// GrantUnlimited flags every account whose user id or email equals key
	// and returns how many matched
	GrantUnlimited(ctx context.Context, key string, now time.Time) (int64, error)

	// CreateUnlimited inserts an unlimited account keyed by key, or flags
	// the existing one
	CreateUnlimited(ctx context.Context, key, email string, allowance int, now time.Time) error

	// Stats counts accounts
	Stats(ctx context.Context) (Stats, error)
}
