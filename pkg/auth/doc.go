// Package auth verifies bearer tokens issued by the identity provider and
// turns them into an Identity.
//
// # Verifiers
//
// Two verifiers are available, selected by SOLVENOTE_AUTH_MODE:
//
// JWTVerifier checks HS256 access tokens signed with a shared secret, the
// format Supabase-style auth services issue:
//
//	verifier, err := auth.NewJWTVerifier(auth.JWTConfig{
//		Secret:   []byte(os.Getenv("SOLVENOTE_AUTH_JWT_SECRET")),
//		Audience: "authenticated",
//	})
//
// OIDCVerifier discovers the issuer's signing keys and checks RS256/ES256
// ID tokens:
//
//	verifier, err := auth.NewOIDCVerifier(ctx, auth.OIDCConfig{
//		IssuerURL: "https://accounts.example.com",
//		ClientID:  "solvenote",
//	})
//
// # Caching
//
// CachingVerifier wraps any Verifier with a bounded LRU keyed by the token
// hash. Entries never outlive the token's own expiry.
//
//	verifier = auth.NewCachingVerifier(verifier, 4096, time.Minute)
//
// # Errors
//
// Every rejection wraps ErrUnauthenticated so HTTP layers can map it to 401
// without inspecting the cause.
package auth
