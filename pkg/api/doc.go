// Package api provides the HTTP surface of the credit and suggestion service.
//
// # Routes
//
// Authenticated with a bearer token:
//
//	GET  /credits          balance for the caller, created on first call
//	POST /use-credit       spend one credit
//	POST /suggestions      spend one credit and generate suggestions
//
// Public, verified by the provider signature instead:
//
//	POST /payment-webhook  checkout events that grant unlimited credits
//
// The legacy function names (/get-user-credits, /chatgpt-solution and
// /stripe-webhook) are routed to the same handlers.
//
// # Error Mapping
//
// Running out of credits is a business outcome: /use-credit and
// /suggestions answer 400 with {"success": false, "error": "No credits
// remaining"} so clients can show an upgrade prompt. A missing or invalid
// token answers 401. Store failures answer a generic 500 and are logged
// with the request id.
//
// # Usage
//
//	handler := api.NewRouter(api.RouterConfig{
//		Credits:  creditService,
//		Webhooks: webhookProcessor,
//		Solver:   orchestrator,
//		Verifier: verifier,
//		Limiter:  limiter,
//		Logger:   logger,
//		Metrics:  metrics,
//	})
package api
