package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/solvenote/solvenote/pkg/observability"
)

// WebhookConfig configures WebhookProcessor
type WebhookConfig struct {
	// Secret is the Stripe endpoint secret. Empty disables signature checks.
	Secret             string
	SignatureTolerance time.Duration
}

// WebhookOption customizes a WebhookProcessor
type WebhookOption func(*WebhookProcessor)

// WithLedger sets the duplicate-delivery ledger
func WithLedger(ledger EventLedger) WebhookOption {
	return func(p *WebhookProcessor) { p.ledger = ledger }
}

// WithLogger sets the processor logger
func WithLogger(logger *observability.Logger) WebhookOption {
	return func(p *WebhookProcessor) { p.logger = logger.WithComponent("stripe-webhook") }
}

// WithMetrics sets the metrics sink
func WithMetrics(metrics *observability.Metrics) WebhookOption {
	return func(p *WebhookProcessor) { p.metrics = metrics }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) WebhookOption {
	return func(p *WebhookProcessor) { p.now = now }
}

// WebhookProcessor turns Stripe deliveries into credit grants
type WebhookProcessor struct {
	cfg         WebhookConfig
	granter     Granter
	subscribers SubscriberUpdater
	ledger      EventLedger
	logger      *observability.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

// NewWebhookProcessor creates a processor
func NewWebhookProcessor(cfg WebhookConfig, granter Granter, subscribers SubscriberUpdater, opts ...WebhookOption) *WebhookProcessor {
	p := &WebhookProcessor{
		cfg:         cfg,
		granter:     granter,
		subscribers: subscribers,
		ledger:      NopEventLedger{},
		logger:      observability.NewNopLogger(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// VerifiesSignatures reports whether a webhook secret is configured
func (p *WebhookProcessor) VerifiesSignatures() bool {
	return p.cfg.Secret != ""
}

// Process handles one delivery. ErrInvalidSignature and ErrMalformedEvent
// mean the body was rejected without side effects; any other error means
// the grant did not happen and the delivery should be retried.
func (p *WebhookProcessor) Process(ctx context.Context, payload []byte, signature string) (Result, error) {
	ctx, span := observability.StartSpan(ctx, "billing.ProcessWebhook")
	defer span.End()

	event, err := constructEvent(payload, signature, p.cfg.Secret, p.cfg.SignatureTolerance)
	if err != nil {
		p.logger.WithError(err).Warn("rejected webhook delivery")
		p.metrics.RecordWebhookEvent("unknown", string(ResultFailed))
		return ResultFailed, err
	}

	logger := p.logger.WithFields(map[string]interface{}{"event_id": event.ID, "type": event.Type})
	logger.Debug("webhook.received")

	result, err := p.dispatch(ctx, logger, &event)
	p.metrics.RecordWebhookEvent(string(event.Type), string(result))
	return result, err
}

func (p *WebhookProcessor) dispatch(ctx context.Context, logger *observability.Logger, event *stripe.Event) (Result, error) {
	if event.Type != EventCheckoutSessionCompleted {
		logger.Debug("unhandled event type")
		return ResultIgnored, nil
	}

	if event.ID != "" {
		seen, err := p.ledger.Seen(ctx, event.ID)
		if err != nil {
			logger.WithError(err).Warn("event ledger unavailable, processing anyway")
		} else if seen {
			logger.Info("duplicate webhook delivery")
			return ResultDuplicate, nil
		}
	}

	var session stripe.CheckoutSession
	if event.Data != nil && len(event.Data.Raw) > 0 {
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return ResultFailed, fmt.Errorf("%w: checkout session: %v", ErrMalformedEvent, err)
		}
	}

	email := payerEmail(&session)
	if email == "" {
		logger.WithField("session_id", session.ID).Warn("checkout completed without payer email")
		return ResultNoEmail, nil
	}
	logger = logger.WithFields(map[string]interface{}{"session_id": session.ID, "email": email})

	if err := p.granter.GrantUnlimited(ctx, email); err != nil {
		logger.WithError(err).Error("failed to grant unlimited credits")
		return ResultFailed, fmt.Errorf("failed to grant unlimited credits: %w", err)
	}
	logger.Info("granted unlimited credits")

	if err := p.subscribers.MarkSubscribed(ctx, email, customerID(&session), p.now()); err != nil {
		logger.WithError(err).Error("failed to update subscriber")
	}

	if event.ID != "" {
		if err := p.ledger.MarkProcessed(ctx, event.ID); err != nil {
			logger.WithError(err).Warn("failed to record processed event")
		}
	}
	return ResultProcessed, nil
}
