// Package billing handles Stripe payment webhooks.
//
// # Overview
//
// A completed checkout upgrades the payer to unlimited credits and marks
// them as a premium subscriber. Everything else Stripe sends is
// acknowledged and ignored.
//
// # Event Flow
//
//	POST /payment-webhook
//	  -> webhook.ConstructEventWithOptions (when a webhook secret is configured,
//	                                      ErrInvalidSignature -> 400)
//	  -> decode stripe.Event              (ErrMalformedEvent -> 400)
//	  -> EventLedger.Seen                 (duplicate delivery -> 200, no side effects)
//	  -> checkout.session.completed:
//	       Granter.GrantUnlimited(email)  (failure -> 500, Stripe retries)
//	       SubscriberStore.MarkSubscribed (failure logged only)
//	  -> EventLedger.MarkProcessed
//	  -> 200 {"received": true}
//
// A checkout without a payer email is acknowledged without touching any
// store.
//
// # Signature Verification
//
// The Stripe-Signature header carries a timestamp and one or more v1
// HMAC-SHA256 signatures over "<timestamp>.<body>":
//
//	Stripe-Signature: t=1712345678,v1=5257a869e7...
//
// Verification is delegated to stripe-go's webhook package. Events older
// than the configured tolerance are rejected, and the event's API version
// is not compared against the SDK's.
//
// # Duplicate Deliveries
//
// Stripe delivers at least once. RedisEventLedger remembers processed event
// ids for a TTL; the grant is idempotent so a ledger outage only costs a
// repeated, harmless write.
package billing
