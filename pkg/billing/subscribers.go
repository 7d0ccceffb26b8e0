package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSubscriberNotFound is returned by SubscriberStore.Get
var ErrSubscriberNotFound = errors.New("subscriber not found")

// SubscriberStore persists subscriber records in the subscribers table
type SubscriberStore struct {
	db *sql.DB
}

// NewSubscriberStore creates a new SubscriberStore
func NewSubscriberStore(db *sql.DB) *SubscriberStore {
	return &SubscriberStore{db: db}
}

// MarkSubscribed records a premium subscription for email. An empty
// customerID keeps the stored one.
func (s *SubscriberStore) MarkSubscribed(ctx context.Context, email, customerID string, now time.Time) error {
	query := `
		INSERT INTO subscribers (email, subscribed, subscription_tier, stripe_customer_id, updated_at)
		VALUES ($1, TRUE, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET subscribed = TRUE,
		    subscription_tier = excluded.subscription_tier,
		    stripe_customer_id = COALESCE(excluded.stripe_customer_id, subscribers.stripe_customer_id),
		    updated_at = excluded.updated_at`

	customer := sql.NullString{String: customerID, Valid: customerID != ""}
	if _, err := s.db.ExecContext(ctx, query, email, TierPremium, customer, now.UTC()); err != nil {
		return fmt.Errorf("failed to update subscriber: %w", err)
	}
	return nil
}

// Get returns the subscriber record for email
func (s *SubscriberStore) Get(ctx context.Context, email string) (*Subscriber, error) {
	query := `
		SELECT email, subscribed, subscription_tier, stripe_customer_id, updated_at
		FROM subscribers WHERE email = $1`

	var (
		sub      Subscriber
		tier     sql.NullString
		customer sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, email).
		Scan(&sub.Email, &sub.Subscribed, &tier, &customer, &sub.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}

	sub.SubscriptionTier = tier.String
	sub.StripeCustomerID = customer.String
	return &sub, nil
}
