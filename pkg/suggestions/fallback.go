package suggestions

import (
	"context"

	"github.com/solvenote/solvenote/pkg/observability"
)

// FallbackGenerator tries primary and answers from fallback when primary is
// nil, fails, or returns nothing. It records which generator served.
type FallbackGenerator struct {
	primary  Generator
	fallback Generator
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewFallbackGenerator creates a fallback chain. primary may be nil.
func NewFallbackGenerator(primary, fallback Generator, logger *observability.Logger, metrics *observability.Metrics) *FallbackGenerator {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &FallbackGenerator{
		primary:  primary,
		fallback: fallback,
		logger:   logger.WithComponent("suggestions"),
		metrics:  metrics,
	}
}

// Name implements Generator
func (g *FallbackGenerator) Name() string {
	if g.primary == nil {
		return g.fallback.Name()
	}
	return g.primary.Name() + "+" + g.fallback.Name()
}

// Generate implements Generator
func (g *FallbackGenerator) Generate(ctx context.Context, problem string) ([]Suggestion, error) {
	if g.primary != nil {
		out, err := g.primary.Generate(ctx, problem)
		if err == nil && len(out) > 0 {
			g.metrics.RecordSuggestions(g.primary.Name())
			return out, nil
		}
		if err != nil {
			g.logger.WithError(err).WithField("generator", g.primary.Name()).Warn("suggestion generator failed, using fallback")
		}
	}

	out, err := g.fallback.Generate(ctx, problem)
	if err != nil {
		return nil, err
	}
	g.metrics.RecordSuggestions(g.fallback.Name())
	return out, nil
}
