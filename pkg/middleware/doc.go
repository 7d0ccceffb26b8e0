// Package middleware provides HTTP middleware for bearer authentication and
// per-user rate limiting.
//
// # Authentication
//
//	router.Use(middleware.Authenticate(verifier))
//	// Rejects with 401 JSON, otherwise stores *auth.Identity in the context
//
//	identity, ok := middleware.IdentityFromContext(r.Context())
//
// # Rate Limiting
//
// RateLimit keys requests by verified user id (client address when
// anonymous) and answers 429 with Retry-After once the window is spent.
// Two Limiter implementations exist:
//
//	limiter := middleware.NewRateLimiter(cfg)                                  // in-process token bucket
//	limiter := middleware.NewDistributedRateLimiter(redisClient, cfg, "")      // shared fixed window
//	router.Use(middleware.RateLimit(limiter))
//
// Limiter errors fail open: the request proceeds and a warning is logged.
package middleware
