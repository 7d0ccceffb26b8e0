package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/solvenote/solvenote/pkg/auth"
	"github.com/solvenote/solvenote/pkg/httputil"
	"github.com/solvenote/solvenote/pkg/middleware"
	"github.com/solvenote/solvenote/pkg/observability"
)

// DefaultMaxBodyBytes bounds request bodies, webhooks included
const DefaultMaxBodyBytes = 1 << 20

// RouterConfig wires the handlers and cross-cutting middleware
type RouterConfig struct {
	Credits  CreditService
	Webhooks WebhookProcessor
	Solver   Solver
	Verifier auth.Verifier

	// Limiter throttles credit-spending routes; nil disables it
	Limiter middleware.Limiter

	Logger       *observability.Logger
	Metrics      *observability.Metrics
	CORS         httputil.CORSConfig
	MaxBodyBytes int64
}

// NewRouter builds the API handler. Webhook routes are public; every other
// route requires a bearer token.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = observability.NewNopLogger()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS = httputil.DefaultCORSConfig()
	}

	router := mux.NewRouter()
	if cfg.Metrics != nil {
		router.Use(observability.HTTPMetricsMiddleware(cfg.Metrics))
	}
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusNotFound, "not found")
	})

	if cfg.Webhooks != nil {
		NewWebhookHandlers(cfg.Webhooks).RegisterRoutes(router)
	}

	var limit func(http.Handler) http.Handler
	if cfg.Limiter != nil {
		limit = middleware.RateLimit(cfg.Limiter)
	}

	authed := router.NewRoute().Subrouter()
	authed.Use(middleware.Authenticate(cfg.Verifier))
	if cfg.Credits != nil {
		NewCreditHandlers(cfg.Credits).RegisterRoutes(authed, limit)
	}
	if cfg.Solver != nil {
		NewSuggestionHandlers(cfg.Solver).RegisterRoutes(authed, limit)
	}

	return httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(cfg.Logger),
		httputil.RecoveryMiddleware(cfg.Logger),
		httputil.CORSMiddleware(cfg.CORS),
		httputil.MaxBytesMiddleware(cfg.MaxBodyBytes),
	)(router)
}
