package domain

import "errors"

var (
	// ErrSignatureInvalid means the webhook signature did not match the
	// payload under the provider's verification scheme.
	ErrSignatureInvalid = errors.New("webhook signature invalid")

	// ErrMalformedPayload means the payload could not be parsed as the
	// provider's event envelope.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrUnhandledEvent marks a verified event that carries no work for us:
	// an unrecognized kind, or a recognized kind missing required fields.
	// Callers acknowledge these instead of erroring so the provider does
	// not retry.
	ErrUnhandledEvent = errors.New("unhandled provider event")

	// ErrPublishFailure wraps a synchronous bus transport failure.
	ErrPublishFailure = errors.New("event publish failed")

	ErrOrderNotFound = errors.New("order not found")
)
