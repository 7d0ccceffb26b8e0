// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteBadRequest(w, "problem is required")
//	httputil.WriteUnauthorized(w, "invalid token")
//
// Error bodies are always {"error": "..."}.
//
// # Middleware
//
//	handler := httputil.Chain(
//	    httputil.RequestIDMiddleware,
//	    httputil.LoggingMiddleware(logger),
//	    httputil.RecoveryMiddleware(logger),
//	    httputil.CORSMiddleware(httputil.DefaultCORSConfig()),
//	)(router)
//
// LoggingMiddleware places a request-scoped logger in the context; handlers
// retrieve it with observability.FromContext.
package httputil
