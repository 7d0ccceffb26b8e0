package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/solvenote/solvenote/pkg/credits"
	"github.com/solvenote/solvenote/pkg/httputil"
	"github.com/solvenote/solvenote/pkg/suggestions"
)

// Solver spends a credit and produces suggestions
type Solver interface {
	Solve(ctx context.Context, owner credits.Owner, problem string) (*suggestions.Outcome, error)
}

// SuggestionRequest is the body of POST /suggestions
type SuggestionRequest struct {
	Problem string `json:"problem"`
}

// SuggestionResponse is the body of POST /suggestions
type SuggestionResponse struct {
	Success          bool                     `json:"success"`
	Error            string                   `json:"error,omitempty"`
	Suggestions      []suggestions.Suggestion `json:"suggestions"`
	CreditsRemaining int                      `json:"credits_remaining"`
	IsUnlimited      bool                     `json:"is_unlimited"`
	UpgradeRequired  bool                     `json:"upgrade_required,omitempty"`
}

// SuggestionHandlers serves suggestion generation
type SuggestionHandlers struct {
	solver Solver
}

// NewSuggestionHandlers creates suggestion handlers
func NewSuggestionHandlers(solver Solver) *SuggestionHandlers {
	return &SuggestionHandlers{solver: solver}
}

// RegisterRoutes registers suggestion routes on an authenticated router
func (h *SuggestionHandlers) RegisterRoutes(router *mux.Router, limit func(http.Handler) http.Handler) {
	var solve http.Handler = http.HandlerFunc(h.Suggest)
	if limit != nil {
		solve = limit(solve)
	}
	router.Handle("/suggestions", solve).Methods("POST")
	router.Handle("/chatgpt-solution", solve).Methods("POST")
}

// Suggest spends one credit and returns suggestions for the problem
func (h *SuggestionHandlers) Suggest(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	var req SuggestionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	outcome, err := h.solver.Solve(r.Context(), owner, req.Problem)
	switch {
	case errors.Is(err, suggestions.ErrEmptyProblem):
		httputil.WriteBadRequest(w, "Problem description is required")
		return
	case errors.Is(err, suggestions.ErrProblemTooLong):
		httputil.WriteBadRequest(w, "Problem description is too long")
		return
	case err != nil:
		writeServiceError(w, r, "suggest", err)
		return
	}

	if outcome.UpgradeRequired {
		httputil.WriteJSON(w, http.StatusBadRequest, SuggestionResponse{
			Success:         false,
			Error:           noCreditsMessage,
			Suggestions:     []suggestions.Suggestion{},
			UpgradeRequired: true,
		})
		return
	}

	httputil.WriteSuccess(w, SuggestionResponse{
		Success:          true,
		Suggestions:      outcome.Suggestions,
		CreditsRemaining: outcome.CreditsRemaining,
		IsUnlimited:      outcome.IsUnlimited,
	})
}
