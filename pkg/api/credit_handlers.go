package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/solvenote/solvenote/pkg/credits"
	"github.com/solvenote/solvenote/pkg/httputil"
	"github.com/solvenote/solvenote/pkg/middleware"
	"github.com/solvenote/solvenote/pkg/observability"
)

// CreditService is the credit surface the gateway exposes
type CreditService interface {
	GetCredits(ctx context.Context, owner credits.Owner) (*credits.Account, error)
	UseCredit(ctx context.Context, owner credits.Owner) (*credits.UseResult, error)
}

// CreditsResponse is the body of GET /credits
type CreditsResponse struct {
	UserID           string    `json:"user_id"`
	CreditsRemaining int       `json:"credits_remaining"`
	IsUnlimited      bool      `json:"is_unlimited"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// UseCreditResponse is the body of POST /use-credit
type UseCreditResponse struct {
	Success          bool   `json:"success"`
	Error            string `json:"error,omitempty"`
	CreditsRemaining int    `json:"credits_remaining"`
	IsUnlimited      bool   `json:"is_unlimited"`
}

// CreditHandlers serves the entitlement endpoints
type CreditHandlers struct {
	service CreditService
}

// NewCreditHandlers creates credit handlers
func NewCreditHandlers(service CreditService) *CreditHandlers {
	return &CreditHandlers{service: service}
}

// RegisterRoutes registers credit routes on an authenticated router. The
// use-credit route gets limit applied when non-nil.
func (h *CreditHandlers) RegisterRoutes(router *mux.Router, limit func(http.Handler) http.Handler) {
	router.HandleFunc("/credits", h.GetCredits).Methods("GET")
	router.HandleFunc("/get-user-credits", h.GetCredits).Methods("GET", "POST")

	var use http.Handler = http.HandlerFunc(h.UseCredit)
	if limit != nil {
		use = limit(use)
	}
	router.Handle("/use-credit", use).Methods("POST")
}

// GetCredits returns the caller's balance, refreshing it first
func (h *CreditHandlers) GetCredits(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	acct, err := h.service.GetCredits(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, "get_credits", err)
		return
	}

	httputil.WriteSuccess(w, CreditsResponse{
		UserID:           acct.UserID,
		CreditsRemaining: acct.CreditsRemaining,
		IsUnlimited:      acct.IsUnlimited,
		UpdatedAt:        acct.UpdatedAt,
	})
}

// UseCredit spends one credit. Exhaustion answers 400 with a structured body.
func (h *CreditHandlers) UseCredit(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.UseCredit(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, "use_credit", err)
		return
	}

	if !result.Success {
		httputil.WriteJSON(w, http.StatusBadRequest, UseCreditResponse{
			Success: false,
			Error:   noCreditsMessage,
		})
		return
	}

	observability.FromContext(r.Context()).WithField("credits_remaining", result.CreditsRemaining).Debug("credits.use")
	httputil.WriteSuccess(w, UseCreditResponse{
		Success:          true,
		CreditsRemaining: result.CreditsRemaining,
		IsUnlimited:      result.IsUnlimited,
	})
}

// ownerFromRequest reads the identity set by the auth middleware
func ownerFromRequest(w http.ResponseWriter, r *http.Request) (credits.Owner, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Unauthorized")
		return credits.Owner{}, false
	}
	return credits.Owner{UserID: identity.UserID, Email: identity.Email}, true
}
