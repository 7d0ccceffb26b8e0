package credits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/solvenote/solvenote/pkg/observability"
)

// ServiceConfig holds the credit policy
type ServiceConfig struct {
	DefaultAllowance int
	Policy           ResetPolicy
	StoreTimeout     time.Duration
}

// Option customizes a Service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(logger *observability.Logger) Option {
	return func(s *Service) { s.logger = logger.WithComponent("credits") }
}

// WithMetrics sets the metrics sink
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Service) { s.metrics = metrics }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service holds the credit business rules. It keeps no per-user state; the
// Store is the single arbiter of consistency.
type Service struct {
	store   Store
	cfg     ServiceConfig
	logger  *observability.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewService creates a credit service over store
func NewService(store Store, cfg ServiceConfig, opts ...Option) *Service {
	if cfg.DefaultAllowance <= 0 {
		cfg.DefaultAllowance = DefaultAllowance
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}

	s := &Service{
		store:  store,
		cfg:    cfg,
		logger: observability.NewNopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// withTimeout bounds a single store call
func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// GetCredits refreshes the daily allowance and returns the caller's account,
// creating it on first access
func (s *Service) GetCredits(ctx context.Context, owner Owner) (*Account, error) {
	ctx, span := observability.StartSpan(ctx, "credits.GetCredits")
	defer span.End()

	if _, err := s.ResetIfDue(ctx, owner.UserID); err != nil {
		return nil, spanErr(span, err)
	}
	acct, err := s.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, spanErr(span, err)
	}
	return acct, nil
}

// GetOrCreate returns the owner's account, creating it with the default
// allowance if absent. A placeholder created by an earlier email grant is
// claimed instead of creating a fresh account.
func (s *Service) GetOrCreate(ctx context.Context, owner Owner) (*Account, error) {
	if strings.TrimSpace(owner.UserID) == "" {
		return nil, ErrEmptyUserID
	}

	acct, err := s.get(ctx, owner.UserID)
	if err == nil {
		s.backfillEmail(ctx, acct, owner.Email)
		return acct, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	now := s.clock()

	if owner.Email != "" {
		claimed, err := s.claim(ctx, owner, now)
		if err != nil {
			return nil, err
		}
		if claimed {
			s.logger.WithField("user_id", owner.UserID).Info("claimed account created by payment grant")
			return s.get(ctx, owner.UserID)
		}
	}

	created, err := s.create(ctx, &Account{
		UserID:           owner.UserID,
		Email:            owner.Email,
		CreditsRemaining: s.cfg.DefaultAllowance,
		LastResetAt:      now,
		UpdatedAt:        now,
		CreatedAt:        now,
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.WithField("user_id", owner.UserID).Debug("credits.account_created")
	}

	// a lost insert race means another request created it first
	return s.get(ctx, owner.UserID)
}

// ResetIfDue refills the balance when the last reset predates today. It
// reports whether a refill happened; a missing account is not an error.
func (s *Service) ResetIfDue(ctx context.Context, userID string) (bool, error) {
	acct, err := s.get(ctx, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	now := s.clock()
	if !s.cfg.Policy.Due(acct.LastResetAt, now) {
		return false, nil
	}

	sctx, cancel := s.withTimeout(ctx)
	defer cancel()

	reset, err := s.store.ResetIfBefore(sctx, userID, s.cfg.DefaultAllowance, s.cfg.Policy.DayStart(now), now)
	if err != nil {
		return false, err
	}
	if reset {
		s.metrics.RecordReset()
		s.logger.WithField("user_id", userID).Debug("credits.reset")
	}
	return reset, nil
}

// UseCredit spends one credit. Exhaustion is reported through
// UseResult.Success, never as an error.
func (s *Service) UseCredit(ctx context.Context, owner Owner) (*UseResult, error) {
	ctx, span := observability.StartSpan(ctx, "credits.UseCredit",
		trace.WithAttributes(attribute.String("user.id", owner.UserID)))
	defer span.End()

	result, err := s.useCredit(ctx, owner)
	if err != nil {
		s.metrics.RecordCreditUse(observability.CreditResultError)
		return nil, spanErr(span, err)
	}

	switch {
	case result.IsUnlimited:
		s.metrics.RecordCreditUse(observability.CreditResultUnlimited)
	case result.Success:
		s.metrics.RecordCreditUse(observability.CreditResultSuccess)
	default:
		s.metrics.RecordCreditUse(observability.CreditResultExhausted)
		s.logger.WithField("user_id", owner.UserID).Info("no credits remaining")
	}
	span.SetAttributes(attribute.Bool("credits.success", result.Success))
	return result, nil
}

func (s *Service) useCredit(ctx context.Context, owner Owner) (*UseResult, error) {
	if _, err := s.ResetIfDue(ctx, owner.UserID); err != nil {
		return nil, err
	}

	acct, err := s.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	if acct.IsUnlimited {
		return &UseResult{Success: true, CreditsRemaining: acct.CreditsRemaining, IsUnlimited: true}, nil
	}
	if acct.CreditsRemaining <= 0 {
		return exhausted(), nil
	}

	sctx, cancel := s.withTimeout(ctx)
	defer cancel()

	remaining, ok, err := s.store.Decrement(sctx, owner.UserID, s.clock())
	if err != nil {
		return nil, err
	}
	if ok {
		return &UseResult{Success: true, CreditsRemaining: remaining}, nil
	}

	// The guard rejected the update: a concurrent request spent the last
	// credit or the account became unlimited in between.
	acct, err = s.get(ctx, owner.UserID)
	if err != nil {
		return nil, err
	}
	if acct.IsUnlimited {
		return &UseResult{Success: true, CreditsRemaining: acct.CreditsRemaining, IsUnlimited: true}, nil
	}
	return exhausted(), nil
}

// GrantUnlimited marks the account matching key (user id or email) as
// unlimited, creating it when absent. Granting twice equals granting once.
func (s *Service) GrantUnlimited(ctx context.Context, key string) error {
	ctx, span := observability.StartSpan(ctx, "credits.GrantUnlimited")
	defer span.End()

	key = strings.TrimSpace(key)
	if key == "" {
		return spanErr(span, ErrEmptyGrantKey)
	}

	now := s.clock()
	sctx, cancel := s.withTimeout(ctx)
	defer cancel()

	matched, err := s.store.GrantUnlimited(sctx, key, now)
	if err != nil {
		return spanErr(span, err)
	}

	if matched == 0 {
		email := ""
		if strings.Contains(key, "@") {
			email = key
		}
		if err := s.store.CreateUnlimited(sctx, key, email, s.cfg.DefaultAllowance, now); err != nil {
			return spanErr(span, err)
		}
		s.logger.WithField("key", key).Info("created unlimited account for unknown payer")
	}

	s.metrics.RecordGrant()
	s.logger.WithFields(map[string]interface{}{"key": key, "matched": matched}).Info("unlimited credits granted")
	return nil
}

// Stats returns account counts for the metrics gauges
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	sctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.Stats(sctx)
}

func (s *Service) get(ctx context.Context, userID string) (*Account, error) {
	sctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.Get(sctx, userID)
}

func (s *Service) create(ctx context.Context, acct *Account) (bool, error) {
	sctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.Create(sctx, acct)
}

func (s *Service) claim(ctx context.Context, owner Owner, now time.Time) (bool, error) {
	sctx, cancel := s.withTimeout(ctx)
	defer cancel()
	claimed, err := s.store.ClaimPlaceholder(sctx, owner.UserID, owner.Email, now)
	if err != nil {
		// a concurrent first request may have created the account meanwhile
		if _, getErr := s.get(ctx, owner.UserID); getErr == nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim account: %w", err)
	}
	return claimed, nil
}

// backfillEmail records a newly known email; failure only costs grant matching
func (s *Service) backfillEmail(ctx context.Context, acct *Account, email string) {
	if acct.Email != "" || email == "" {
		return
	}

	sctx, cancel := s.withTimeout(ctx)
	defer cancel()

	merged, err := s.store.SetEmail(sctx, acct.UserID, email, s.clock())
	if err != nil {
		s.logger.WithError(err).WithField("user_id", acct.UserID).Warn("failed to record account email")
		return
	}
	acct.Email = email
	if !merged {
		return
	}

	s.logger.WithField("user_id", acct.UserID).Info("merged account created by payment grant")
	fresh, err := s.store.Get(sctx, acct.UserID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", acct.UserID).Warn("failed to reload merged account")
		return
	}
	*acct = *fresh
}

func exhausted() *UseResult {
	return &UseResult{Success: false, CreditsRemaining: 0, IsUnlimited: false}
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
