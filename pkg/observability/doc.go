// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, health probes and graceful shutdown.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("user_id", id).Info("credits.use")
//
// Request handlers retrieve the request-scoped logger with FromContext.
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordCreditUse(observability.CreditResultSuccess)
//
// Record methods accept a nil *Metrics so components can run without metrics in tests.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	observability.RegisterHealthRoutes(mux, checker)
//
// The database is a hard dependency; Redis being unreachable only degrades readiness.
package observability
