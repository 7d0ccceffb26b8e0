package main

import (
	"context"
	"time"

	"github.com/solvenote/solvenote/pkg/credits"
	"github.com/solvenote/solvenote/pkg/observability"
)

type statsSource interface {
	Stats(ctx context.Context) (credits.Stats, error)
}

// refreshAccountStats copies account counts into the gauges. Balances are
// never reset here; resets happen lazily on access.
func refreshAccountStats(ctx context.Context, source statsSource, metrics *observability.Metrics, logger *observability.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	stats, err := source.Stats(ctx)
	if err != nil {
		logger.WithError(err).Warn("failed to refresh account stats")
		return
	}
	metrics.SetAccountStats(stats.Accounts, stats.Unlimited)
	logger.WithFields(map[string]interface{}{
		"accounts":  stats.Accounts,
		"unlimited": stats.Unlimited,
	}).Debug("account stats refreshed")
}
