package credits

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/solvenote/solvenote/pkg/observability"
)

// SQLStore implements Store on database/sql. The statements run unchanged on
// PostgreSQL (lib/pq) and SQLite: placeholders are numbered in order of first
// use and timestamps are always bound as UTC values.
type SQLStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewSQLStore creates a store over db. metrics may be nil.
func NewSQLStore(db *sql.DB, metrics *observability.Metrics) *SQLStore {
	return &SQLStore{db: db, metrics: metrics}
}

const accountColumns = `user_id, email, credits_remaining, is_unlimited, last_reset_at, updated_at, created_at`

// Get loads one account
func (s *SQLStore) Get(ctx context.Context, userID string) (*Account, error) {
	defer s.metrics.ObserveStoreOperation("get", time.Now())

	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM credit_accounts WHERE user_id = $1`, userID)

	var (
		acct  Account
		email sql.NullString
	)
	err := row.Scan(&acct.UserID, &email, &acct.CreditsRemaining, &acct.IsUnlimited,
		&acct.LastResetAt, &acct.UpdatedAt, &acct.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, storeErr("get", err)
	}

	acct.Email = email.String
	return &acct, nil
}

// Create inserts a new account, doing nothing if the user already has one
func (s *SQLStore) Create(ctx context.Context, account *Account) (bool, error) {
	defer s.metrics.ObserveStoreOperation("create", time.Now())

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO credit_accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO NOTHING`,
		account.UserID,
		nullString(account.Email),
		account.CreditsRemaining,
		account.IsUnlimited,
		account.LastResetAt.UTC(),
		account.UpdatedAt.UTC(),
		account.CreatedAt.UTC(),
	)
	if err != nil {
		return false, storeErr("create", err)
	}
	return affected(res, "create")
}

// ClaimPlaceholder re-keys an email-keyed placeholder to the verified user id
func (s *SQLStore) ClaimPlaceholder(ctx context.Context, userID, email string, now time.Time) (bool, error) {
	defer s.metrics.ObserveStoreOperation("claim", time.Now())

	res, err := s.db.ExecContext(ctx, `
		UPDATE credit_accounts
		SET user_id = $1, updated_at = $2
		WHERE user_id = $3 AND email = $3`,
		userID, now.UTC(), email)
	if err != nil {
		return false, storeErr("claim", err)
	}
	return affected(res, "claim")
}

// SetEmail fills in a missing email. In the same transaction it folds in the
// placeholder an earlier grant keyed by that email, so a payment made before
// the email was known still reaches this account.
func (s *SQLStore) SetEmail(ctx context.Context, userID, email string, now time.Time) (bool, error) {
	defer s.metrics.ObserveStoreOperation("set_email", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, storeErr("set_email", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE credit_accounts
		SET email = $1, updated_at = $2
		WHERE user_id = $3 AND email IS NULL`,
		email, now.UTC(), userID)
	if err != nil {
		return false, storeErr("set_email", err)
	}
	set, err := affected(res, "set_email")
	if err != nil || !set {
		return false, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE credit_accounts
		SET is_unlimited = TRUE, updated_at = $1
		WHERE user_id = $2 AND EXISTS (
			SELECT 1 FROM credit_accounts p
			WHERE p.user_id = $3 AND p.email = $3 AND p.is_unlimited = TRUE
		)`,
		now.UTC(), userID, email); err != nil {
		return false, storeErr("set_email", err)
	}

	res, err = tx.ExecContext(ctx, `
		DELETE FROM credit_accounts
		WHERE user_id = $1 AND email = $1 AND user_id <> $2`,
		email, userID)
	if err != nil {
		return false, storeErr("set_email", err)
	}
	merged, err := affected(res, "set_email")
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, storeErr("set_email", err)
	}
	return merged, nil
}

// ResetIfBefore refills the balance when the last reset predates dayStart
func (s *SQLStore) ResetIfBefore(ctx context.Context, userID string, allowance int, dayStart, now time.Time) (bool, error) {
	defer s.metrics.ObserveStoreOperation("reset", time.Now())

	res, err := s.db.ExecContext(ctx, `
		UPDATE credit_accounts
		SET credits_remaining = $1, last_reset_at = $2, updated_at = $2
		WHERE user_id = $3 AND last_reset_at < $4`,
		allowance, now.UTC(), userID, dayStart.UTC())
	if err != nil {
		return false, storeErr("reset", err)
	}
	return affected(res, "reset")
}

// Decrement spends one credit in a single guarded statement
func (s *SQLStore) Decrement(ctx context.Context, userID string, now time.Time) (int, bool, error) {
	defer s.metrics.ObserveStoreOperation("decrement", time.Now())

	var remaining int
	err := s.db.QueryRowContext(ctx, `
		UPDATE credit_accounts
		SET credits_remaining = credits_remaining - 1, updated_at = $1
		WHERE user_id = $2 AND is_unlimited = FALSE AND credits_remaining > 0
		RETURNING credits_remaining`,
		now.UTC(), userID).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storeErr("decrement", err)
	}
	return remaining, true, nil
}

// GrantUnlimited flags accounts matching key by user id or email
func (s *SQLStore) GrantUnlimited(ctx context.Context, key string, now time.Time) (int64, error) {
	defer s.metrics.ObserveStoreOperation("grant", time.Now())

	res, err := s.db.ExecContext(ctx, `
		UPDATE credit_accounts
		SET is_unlimited = TRUE, updated_at = $1
		WHERE user_id = $2 OR email = $2`,
		now.UTC(), key)
	if err != nil {
		return 0, storeErr("grant", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("grant", err)
	}
	return n, nil
}

// CreateUnlimited inserts an unlimited account keyed by key or flags the existing one
func (s *SQLStore) CreateUnlimited(ctx context.Context, key, email string, allowance int, now time.Time) error {
	defer s.metrics.ObserveStoreOperation("create_unlimited", time.Now())

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credit_accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, TRUE, $4, $4, $4)
		ON CONFLICT (user_id) DO UPDATE SET is_unlimited = TRUE, updated_at = excluded.updated_at`,
		key, nullString(email), allowance, now.UTC())
	if err != nil {
		return storeErr("create_unlimited", err)
	}
	return nil
}

// Stats counts all and unlimited accounts
func (s *SQLStore) Stats(ctx context.Context) (Stats, error) {
	defer s.metrics.ObserveStoreOperation("stats", time.Now())

	var stats Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_unlimited THEN 1 ELSE 0 END), 0)
		FROM credit_accounts`).Scan(&stats.Accounts, &stats.Unlimited)
	if err != nil {
		return Stats{}, storeErr("stats", err)
	}
	return stats, nil
}

func affected(res sql.Result, op string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr(op, err)
	}
	return n > 0, nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
