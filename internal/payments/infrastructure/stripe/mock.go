package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"

	"github.com/nest-deiber/payments-management-microservice/internal/payments/domain"
)

const mockBaseURL = "http://mock-stripe.test.local"

// MockGateway simulates the Stripe API for local development. It fabricates
// checkout sessions and parses webhook payloads WITHOUT verifying the
// signature; never run it against real provider traffic.
type MockGateway struct {
	log *slog.Logger
}

func NewMockGateway(log *slog.Logger) *MockGateway {
	return &MockGateway{log: log}
}

func (g *MockGateway) CreateCheckoutSession(ctx context.Context, req domain.CheckoutSessionRequest) (domain.PaymentSession, error) {
	id := "sess_mock_" + uuid.NewString()
	g.log.Info("[mock] creating fake checkout session", "order_id", req.OrderID, "session_id", id)
	return domain.PaymentSession{
		ID:         id,
		URL:        fmt.Sprintf("%s/checkout/%s", mockBaseURL, id),
		CancelURL:  fmt.Sprintf("%s/cancel?session_id=%s", mockBaseURL, id),
		SuccessURL: fmt.Sprintf("%s/success?session_id=%s", mockBaseURL, id),
	}, nil
}

func (g *MockGateway) ConstructWebhookEvent(payload []byte, signature string) (*stripe.Event, error) {
	g.log.Warn("[mock] skipping webhook signature verification")
	var ev stripe.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	return &ev, nil
}
