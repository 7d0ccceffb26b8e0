package suggestions

import (
	"context"
	"errors"
	"time"
)

// Suggestion kinds
const (
	TypeSolution = "solution"
	TypeInsight  = "insight"
	TypeAction   = "action"
)

// MaxProblemLength bounds the problem text sent to a generator
const MaxProblemLength = 4000

var (
	// ErrEmptyProblem is returned when the problem text is blank
	ErrEmptyProblem = errors.New("problem description is required")

	// ErrProblemTooLong is returned when the problem text exceeds MaxProblemLength
	ErrProblemTooLong = errors.New("problem description is too long")
)

// Suggestion is one generated piece of advice
type Suggestion struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

// Generator produces suggestions for a problem description
type Generator interface {
	// Name labels the generator in logs and metrics
	Name() string
	Generate(ctx context.Context, problem string) ([]Suggestion, error)
}

// normalizeType maps unknown kinds to TypeSolution
func normalizeType(t string) string {
	switch t {
	case TypeSolution, TypeInsight, TypeAction:
		return t
	default:
		return TypeSolution
	}
}
