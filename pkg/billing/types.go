package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
)

// EventCheckoutSessionCompleted is the only Stripe event the handler acts on
const EventCheckoutSessionCompleted = stripe.EventTypeCheckoutSessionCompleted

// Subscription tiers
const (
	TierPremium = "premium"
)

var (
	// ErrMalformedEvent is returned when the webhook body is not a Stripe event
	ErrMalformedEvent = errors.New("malformed webhook event")

	// ErrInvalidSignature is returned when the Stripe-Signature header does not verify
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// payerEmail returns the normalized payer email, preferring customer_details
func payerEmail(session *stripe.CheckoutSession) string {
	email := session.CustomerEmail
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		email = session.CustomerDetails.Email
	}
	return strings.ToLower(strings.TrimSpace(email))
}

// customerID accepts both the id and the expanded customer form
func customerID(session *stripe.CheckoutSession) string {
	if session.Customer == nil {
		return ""
	}
	return session.Customer.ID
}

// Subscriber is the billing record for one payer
type Subscriber struct {
	Email            string    `json:"email"`
	Subscribed       bool      `json:"subscribed"`
	SubscriptionTier string    `json:"subscription_tier,omitempty"`
	StripeCustomerID string    `json:"stripe_customer_id,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Granter upgrades an account to unlimited credits
type Granter interface {
	GrantUnlimited(ctx context.Context, key string) error
}

// SubscriberUpdater records a paid subscription
type SubscriberUpdater interface {
	MarkSubscribed(ctx context.Context, email, customerID string, now time.Time) error
}

// Result is the outcome of one webhook delivery, used as a metrics label
type Result string

const (
	ResultProcessed Result = "processed"
	ResultIgnored   Result = "ignored"
	ResultDuplicate Result = "duplicate"
	ResultNoEmail   Result = "no_email"
	ResultFailed    Result = "failed"
)
