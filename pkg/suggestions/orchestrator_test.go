package suggestions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvenote/solvenote/pkg/credits"
	"github.com/solvenote/solvenote/pkg/observability"
	"github.com/solvenote/solvenote/pkg/storage/storagetest"
)

type countingGenerator struct {
	name  string
	calls int
	out   []Suggestion
	err   error
}

func (g *countingGenerator) Name() string { return g.name }

func (g *countingGenerator) Generate(context.Context, string) ([]Suggestion, error) {
	g.calls++
	return g.out, g.err
}

func newCreditService(t *testing.T) *credits.Service {
	t.Helper()
	store := credits.NewSQLStore(storagetest.NewSQLiteDB(t), nil)
	return credits.NewService(store, credits.ServiceConfig{
		DefaultAllowance: 2,
		Policy:           credits.ResetPolicy{Location: time.UTC},
	})
}

func TestOrchestrator_SpendsCreditThenBlocks(t *testing.T) {
	gen := &countingGenerator{name: "fake", out: []Suggestion{{ID: "1", Type: TypeAction, Content: "go"}}}
	o := NewOrchestrator(newCreditService(t), gen, nil)
	owner := credits.Owner{UserID: "user-1"}
	ctx := context.Background()

	first, err := o.Solve(ctx, owner, "what now")
	require.NoError(t, err)
	assert.False(t, first.UpgradeRequired)
	assert.Equal(t, 1, first.CreditsRemaining)
	assert.Len(t, first.Suggestions, 1)

	second, err := o.Solve(ctx, owner, "what now")
	require.NoError(t, err)
	assert.Equal(t, 0, second.CreditsRemaining)

	third, err := o.Solve(ctx, owner, "what now")
	require.NoError(t, err)
	assert.True(t, third.UpgradeRequired)
	assert.Empty(t, third.Suggestions)
	assert.Equal(t, 2, gen.calls, "generator must not run without a credit")
}

func TestOrchestrator_UnlimitedNeverBlocks(t *testing.T) {
	svc := newCreditService(t)
	gen := &countingGenerator{name: "fake", out: []Suggestion{{ID: "1"}}}
	o := NewOrchestrator(svc, gen, nil)
	ctx := context.Background()

	require.NoError(t, svc.GrantUnlimited(ctx, "user-1"))
	for i := 0; i < 5; i++ {
		out, err := o.Solve(ctx, credits.Owner{UserID: "user-1"}, "help")
		require.NoError(t, err)
		assert.True(t, out.IsUnlimited)
	}
	assert.Equal(t, 5, gen.calls)
}

func TestOrchestrator_RejectsBadProblem(t *testing.T) {
	svc := newCreditService(t)
	gen := &countingGenerator{name: "fake"}
	o := NewOrchestrator(svc, gen, nil)
	owner := credits.Owner{UserID: "user-1"}

	_, err := o.Solve(context.Background(), owner, "   ")
	assert.ErrorIs(t, err, ErrEmptyProblem)

	long := make([]byte, MaxProblemLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = o.Solve(context.Background(), owner, string(long))
	assert.ErrorIs(t, err, ErrProblemTooLong)

	// no credit was spent on rejected input
	acct, err := svc.GetCredits(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 2, acct.CreditsRemaining)
	assert.Zero(t, gen.calls)
}

type failingSpender struct{}

func (failingSpender) UseCredit(context.Context, credits.Owner) (*credits.UseResult, error) {
	return nil, &credits.StoreError{Op: "decrement", Err: errors.New("connection reset")}
}

func TestOrchestrator_CreditFailure(t *testing.T) {
	gen := &countingGenerator{name: "fake"}
	o := NewOrchestrator(failingSpender{}, gen, nil)

	_, err := o.Solve(context.Background(), credits.Owner{UserID: "user-1"}, "help")
	require.Error(t, err)
	assert.True(t, credits.IsInfrastructure(err))
	assert.Zero(t, gen.calls)
}

func TestFallbackGenerator(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	template := NewTemplateGenerator()

	t.Run("primary succeeds", func(t *testing.T) {
		primary := &countingGenerator{name: "openai", out: []Suggestion{{Content: "x"}}}
		g := NewFallbackGenerator(primary, template, nil, metrics)

		out, err := g.Generate(context.Background(), "money")
		require.NoError(t, err)
		assert.Equal(t, "x", out[0].Content)
	})

	t.Run("primary fails", func(t *testing.T) {
		primary := &countingGenerator{name: "openai", err: errors.New("timeout")}
		g := NewFallbackGenerator(primary, template, nil, metrics)

		out, err := g.Generate(context.Background(), "money")
		require.NoError(t, err)
		assert.Len(t, out, 3)
		assert.Equal(t, 1, primary.calls)
	})

	t.Run("primary empty", func(t *testing.T) {
		primary := &countingGenerator{name: "openai"}
		g := NewFallbackGenerator(primary, template, nil, metrics)

		out, err := g.Generate(context.Background(), "money")
		require.NoError(t, err)
		assert.Len(t, out, 3)
	})

	t.Run("no primary", func(t *testing.T) {
		g := NewFallbackGenerator(nil, template, nil, metrics)
		assert.Equal(t, "template", g.Name())

		out, err := g.Generate(context.Background(), "money")
		require.NoError(t, err)
		assert.Len(t, out, 3)
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SuggestionsTotal.WithLabelValues("openai")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.SuggestionsTotal.WithLabelValues("template")))
}
