package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvenote/solvenote/pkg/auth"
	"github.com/solvenote/solvenote/pkg/contextkeys"
)

func staticVerifier(valid string, identity *auth.Identity) auth.Verifier {
	return auth.VerifierFunc(func(_ context.Context, token string) (*auth.Identity, error) {
		if token != valid {
			return nil, auth.ErrUnauthenticated
		}
		return identity, nil
	})
}

func TestAuthenticate(t *testing.T) {
	verifier := staticVerifier("good-token", &auth.Identity{UserID: "user-1", Email: "a@example.com"})

	var seen *auth.Identity
	handler := Authenticate(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		seen = identity
		assert.Equal(t, "user-1", contextkeys.GetUserID(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer good-token", http.StatusNoContent},
		{"lowercase scheme", "bearer good-token", http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"bad token", "Bearer forged", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/credits", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Nil(t, seen)
				assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
			} else {
				assert.Equal(t, "user-1", seen.UserID)
			}
		})
	}
}

func TestAuthenticate_VerifierFailure(t *testing.T) {
	verifier := auth.VerifierFunc(func(context.Context, string) (*auth.Identity, error) {
		return nil, errors.New("jwks fetch failed")
	})

	handler := Authenticate(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/credits", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIdentityFromContext_Missing(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)
}
