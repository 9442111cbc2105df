package application

import (
	"context"

	"github.com/stripe/stripe-go/v79"

	"github.com/nest-deiber/payments-management-microservice/internal/payments/domain"
)

// EventPublisher delivers a domain event to the bus. Delivery is
// fire-and-forget: a nil return means the event was handed to the transport's
// send buffer, not that a broker acknowledged it.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// ProviderGateway is the payment provider capability the core depends on.
// ConstructWebhookEvent verifies the signature and parses the raw payload
// into the provider's event envelope; it fails with
// domain.ErrSignatureInvalid or domain.ErrMalformedPayload.
type ProviderGateway interface {
	CreateCheckoutSession(ctx context.Context, req domain.CheckoutSessionRequest) (domain.PaymentSession, error)
	ConstructWebhookEvent(payload []byte, signature string) (*stripe.Event, error)
}

// OrderLookup resolves an order from the orders service. Returns
// domain.ErrOrderNotFound when the order does not exist.
type OrderLookup interface {
	FindOrder(ctx context.Context, orderID string) (domain.Order, error)
}
