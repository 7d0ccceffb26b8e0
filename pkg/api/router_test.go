package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvenote/solvenote/pkg/auth"
	"github.com/solvenote/solvenote/pkg/billing"
	"github.com/solvenote/solvenote/pkg/credits"
	"github.com/solvenote/solvenote/pkg/middleware"
	"github.com/solvenote/solvenote/pkg/observability"
	"github.com/solvenote/solvenote/pkg/storage/storagetest"
	"github.com/solvenote/solvenote/pkg/suggestions"
)

// tokenVerifier accepts "token-<user>" and derives the email from the user
var tokenVerifier = auth.VerifierFunc(func(_ context.Context, token string) (*auth.Identity, error) {
	user, ok := strings.CutPrefix(token, "token-")
	if !ok || user == "" {
		return nil, auth.ErrUnauthenticated
	}
	return &auth.Identity{UserID: user, Email: user + "@example.com"}, nil
})

type testEnv struct {
	handler http.Handler
	service *credits.Service
	subs    *billing.SubscriberStore
	metrics *observability.Metrics
}

func newTestEnv(t *testing.T, limiter middleware.Limiter) *testEnv {
	t.Helper()
	db := storagetest.NewSQLiteDB(t)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	service := credits.NewService(credits.NewSQLStore(db, metrics), credits.ServiceConfig{
		Policy: credits.ResetPolicy{Location: time.UTC},
	}, credits.WithMetrics(metrics))
	subs := billing.NewSubscriberStore(db)
	processor := billing.NewWebhookProcessor(billing.WebhookConfig{}, service, subs, billing.WithMetrics(metrics))
	generator := suggestions.NewFallbackGenerator(nil, suggestions.NewTemplateGenerator(), nil, metrics)

	handler := NewRouter(RouterConfig{
		Credits:  service,
		Webhooks: processor,
		Solver:   suggestions.NewOrchestrator(service, generator, nil),
		Verifier: tokenVerifier,
		Limiter:  limiter,
		Metrics:  metrics,
	})
	return &testEnv{handler: handler, service: service, subs: subs, metrics: metrics}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	}
	return rec, decoded
}

func TestRouter_CreditLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, body := env.do(t, "GET", "/credits", "token-alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", body["user_id"])
	assert.Equal(t, 3.0, body["credits_remaining"])
	assert.Equal(t, false, body["is_unlimited"])
	assert.NotEmpty(t, body["updated_at"])

	for want := 2.0; want >= 0; want-- {
		rec, body = env.do(t, "POST", "/use-credit", "token-alice", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, want, body["credits_remaining"])
	}

	rec, body = env.do(t, "POST", "/use-credit", "token-alice", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]interface{}{
		"success":           false,
		"error":             "No credits remaining",
		"credits_remaining": 0.0,
		"is_unlimited":      false,
	}, body)

	// legacy path serves the same account
	rec, body = env.do(t, "GET", "/get-user-credits", "token-alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, body["credits_remaining"])
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		method, path, token string
	}{
		{"GET", "/credits", ""},
		{"POST", "/use-credit", ""},
		{"POST", "/use-credit", "garbage"},
		{"POST", "/suggestions", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec, body := env.do(t, tt.method, tt.path, tt.token, `{"problem":"x"}`)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Unauthorized", body["error"])
		})
	}

	stats, err := env.service.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Accounts, "unauthenticated calls must not create accounts")
}

func TestRouter_PaymentWebhookGrantsUnlimited(t *testing.T) {
	env := newTestEnv(t, nil)

	// exhaust bob first
	for i := 0; i < 3; i++ {
		rec, _ := env.do(t, "POST", "/use-credit", "token-bob", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	event := `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"customer":"cus_7","customer_details":{"email":"bob@example.com"}}}}`
	rec, body := env.do(t, "POST", "/payment-webhook", "", event)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"received": true}, body)

	rec, body = env.do(t, "POST", "/use-credit", "token-bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["is_unlimited"])

	sub, err := env.subs.Get(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cus_7", sub.StripeCustomerID)
}

func TestRouter_PaymentBeforeFirstLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	event := `{"id":"evt_2","type":"checkout.session.completed","data":{"object":{"customer_email":"carol@example.com"}}}`
	rec, _ := env.do(t, "POST", "/stripe-webhook", "", event)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := env.do(t, "GET", "/credits", "token-carol", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "carol", body["user_id"])
	assert.Equal(t, true, body["is_unlimited"])
}

func TestRouter_WebhookResponses(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"malformed", `{"type":`, http.StatusBadRequest},
		{"ignored kind", `{"id":"evt_3","type":"customer.created","data":{"object":{}}}`, http.StatusOK},
		{"no email", `{"id":"evt_4","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := env.do(t, "POST", "/payment-webhook", "", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}

	stats, err := env.service.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Unlimited)
}

func TestRouter_Suggestions(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, body := env.do(t, "POST", "/suggestions", "token-dave", `{"problem":"I keep missing deadlines"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 2.0, body["credits_remaining"])
	items, ok := body["suggestions"].([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 3)

	rec, body = env.do(t, "POST", "/suggestions", "token-dave", `{"problem":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Problem description is required", body["error"])

	rec, _ = env.do(t, "POST", "/suggestions", "token-dave", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for i := 0; i < 2; i++ {
		rec, _ = env.do(t, "POST", "/chatgpt-solution", "token-dave", `{"problem":"help"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, body = env.do(t, "POST", "/suggestions", "token-dave", `{"problem":"help"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, true, body["upgrade_required"])
	assert.Equal(t, "No credits remaining", body["error"])
	assert.Empty(t, body["suggestions"])

	assert.Equal(t, 3.0, testutil.ToFloat64(env.metrics.SuggestionsTotal.WithLabelValues("template")))
}

func TestRouter_RateLimitsCreditRoutes(t *testing.T) {
	limiter := middleware.NewRateLimiter(&middleware.RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Hour})
	env := newTestEnv(t, limiter)

	rec, _ := env.do(t, "POST", "/use-credit", "token-erin", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, "POST", "/use-credit", "token-erin", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// limits are per user and reads are not throttled
	rec, _ = env.do(t, "POST", "/use-credit", "token-frank", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.do(t, "GET", "/credits", "token-erin", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CORSAndRequestID(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest("OPTIONS", "/use-credit", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "authorization")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, body := env.do(t, "GET", "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", body["error"])
}

type brokenCredits struct{}

func (brokenCredits) GetCredits(context.Context, credits.Owner) (*credits.Account, error) {
	return nil, &credits.StoreError{Op: "get", Err: errors.New("dial tcp: connection refused")}
}

func (brokenCredits) UseCredit(context.Context, credits.Owner) (*credits.UseResult, error) {
	return nil, &credits.StoreError{Op: "decrement", Err: errors.New("dial tcp: connection refused")}
}

type brokenWebhooks struct{}

func (brokenWebhooks) Process(context.Context, []byte, string) (billing.Result, error) {
	return billing.ResultFailed, &credits.StoreError{Op: "grant", Err: errors.New("timeout")}
}

func TestRouter_InfrastructureFailures(t *testing.T) {
	handler := NewRouter(RouterConfig{
		Credits:  brokenCredits{},
		Webhooks: brokenWebhooks{},
		Verifier: tokenVerifier,
	})
	env := &testEnv{handler: handler}

	tests := []struct {
		method, path, token string
	}{
		{"GET", "/credits", "token-gina"},
		{"POST", "/use-credit", "token-gina"},
		{"POST", "/payment-webhook", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec, body := env.do(t, tt.method, tt.path, tt.token, `{}`)
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, "internal server error", body["error"])
		})
	}
}
