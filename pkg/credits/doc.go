// Package credits implements per-user daily credit accounting and the
// unlimited entitlement granted on payment.
//
// # Model
//
// Each user owns exactly one Account, created lazily with the default
// allowance. The balance never goes below zero. Unlimited accounts report
// success on every use without touching the balance.
//
// # Daily reset
//
// Resets are pull-based: every read and write path first calls ResetIfDue,
// which refills the balance when the last reset predates the start of the
// current calendar day in the configured timezone. The refill is a
// conditional update on last_reset_at, so concurrent or repeated calls
// within a day refill at most once.
//
// # Concurrency
//
// All state lives in the Store. Decrement is a single conditional UPDATE
// with a floor check, so two concurrent uses of the last credit yield
// exactly one success.
//
// # Errors
//
// Store failures are returned as *StoreError (see IsInfrastructure).
// Running out of credits is not an error: UseCredit returns a UseResult
// with Success=false.
package credits
