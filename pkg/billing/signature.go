package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// SignatureHeader is the header Stripe signs deliveries with
const SignatureHeader = "Stripe-Signature"

// errors the SDK returns when the header does not verify
var signatureErrors = []error{
	webhook.ErrNotSigned,
	webhook.ErrInvalidHeader,
	webhook.ErrTooOld,
	webhook.ErrNoValidSignature,
}

// constructEvent decodes a delivery. With a secret the Stripe-Signature
// header must verify within tolerance before the body is trusted.
func constructEvent(payload []byte, header, secret string, tolerance time.Duration) (stripe.Event, error) {
	if secret == "" {
		var event stripe.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return stripe.Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		return event, nil
	}

	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	event, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		Tolerance: tolerance,
		// the endpoint's API version is pinned in the Stripe dashboard
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		for _, sigErr := range signatureErrors {
			if errors.Is(err, sigErr) {
				return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
			}
		}
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return event, nil
}
