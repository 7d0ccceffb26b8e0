package suggestions

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/solvenote/solvenote/pkg/credits"
	"github.com/solvenote/solvenote/pkg/observability"
)

// CreditSpender is the slice of the credit service the orchestrator needs
type CreditSpender interface {
	UseCredit(ctx context.Context, owner credits.Owner) (*credits.UseResult, error)
}

// Outcome is the result of one Solve call. When UpgradeRequired is set no
// suggestions were generated.
type Outcome struct {
	Suggestions      []Suggestion `json:"suggestions"`
	CreditsRemaining int          `json:"credits_remaining"`
	IsUnlimited      bool         `json:"is_unlimited"`
	UpgradeRequired  bool         `json:"upgrade_required,omitempty"`
}

// Orchestrator spends a credit before asking the generator for suggestions
type Orchestrator struct {
	credits   CreditSpender
	generator Generator
	logger    *observability.Logger
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(spender CreditSpender, generator Generator, logger *observability.Logger) *Orchestrator {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Orchestrator{
		credits:   spender,
		generator: generator,
		logger:    logger.WithComponent("orchestrator"),
	}
}

// Solve validates problem, spends one credit and generates suggestions.
// Exhaustion is reported through Outcome.UpgradeRequired, not as an error.
func (o *Orchestrator) Solve(ctx context.Context, owner credits.Owner, problem string) (*Outcome, error) {
	ctx, span := observability.StartSpan(ctx, "suggestions.Solve")
	defer span.End()

	problem = strings.TrimSpace(problem)
	if problem == "" {
		return nil, ErrEmptyProblem
	}
	if utf8.RuneCountInString(problem) > MaxProblemLength {
		return nil, ErrProblemTooLong
	}

	spent, err := o.credits.UseCredit(ctx, owner)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !spent.Success {
		span.SetAttributes(attribute.Bool("suggestions.upgrade_required", true))
		return &Outcome{
			Suggestions:      []Suggestion{},
			CreditsRemaining: spent.CreditsRemaining,
			IsUnlimited:      spent.IsUnlimited,
			UpgradeRequired:  true,
		}, nil
	}

	items, err := o.generator.Generate(ctx, problem)
	if err != nil {
		// the credit stays spent; generators with a template fallback do not fail
		o.logger.WithError(err).WithField("user_id", owner.UserID).Error("suggestion generation failed after credit use")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to generate suggestions: %w", err)
	}

	span.SetAttributes(attribute.Int("suggestions.count", len(items)))
	return &Outcome{
		Suggestions:      items,
		CreditsRemaining: spent.CreditsRemaining,
		IsUnlimited:      spent.IsUnlimited,
	}, nil
}
