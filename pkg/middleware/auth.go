package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/solvenote/solvenote/pkg/auth"
	"github.com/solvenote/solvenote/pkg/contextkeys"
	"github.com/solvenote/solvenote/pkg/httputil"
	"github.com/solvenote/solvenote/pkg/observability"
)

// Authenticate rejects requests without a valid bearer token and stores the
// verified identity in the request context
func Authenticate(verifier auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := observability.FromContext(r.Context())

			token, err := httputil.BearerToken(r)
			if err != nil {
				httputil.WriteUnauthorized(w, "Unauthorized")
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if !errors.Is(err, auth.ErrUnauthenticated) {
					logger.WithError(err).Warn("token verification failed")
				}
				httputil.WriteUnauthorized(w, "Unauthorized")
				return
			}

			ctx := contextkeys.WithIdentity(r.Context(), identity)
			ctx = contextkeys.WithUserID(ctx, identity.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the identity set by Authenticate
func IdentityFromContext(ctx context.Context) (*auth.Identity, bool) {
	identity, ok := ctx.Value(contextkeys.IdentityKey).(*auth.Identity)
	return identity, ok && identity != nil
}
