package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79"

	"github.com/nest-deiber/payments-management-microservice/internal/payments/domain"
)

// --- port fakes ---

type fakeGateway struct {
	event    *stripe.Event
	eventErr error

	session    domain.PaymentSession
	sessionErr error
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, req domain.CheckoutSessionRequest) (domain.PaymentSession, error) {
	return f.session, f.sessionErr
}

func (f *fakeGateway) ConstructWebhookEvent(payload []byte, signature string) (*stripe.Event, error) {
	return f.event, f.eventErr
}

type fakePublisher struct {
	published []domain.Event
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, event domain.Event) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, event)
	return nil
}

type fakeOrders struct {
	order domain.Order
	err   error
}

func (f *fakeOrders) FindOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return f.order, f.err
}

func newWebhookService(gateway *fakeGateway, publisher *fakePublisher) *WebhookService {
	return NewWebhookService(testLogger(), gateway, NewClassifier(testLogger()), publisher)
}

// --- tests ---

func TestProcessRejectsInvalidSignature(t *testing.T) {
	gateway := &fakeGateway{eventErr: domain.ErrSignatureInvalid}
	publisher := &fakePublisher{}
	svc := newWebhookService(gateway, publisher)

	err := svc.Process(context.Background(), []byte(`{}`), "t=1,v1=bad")
	if !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("Process = %v, want ErrSignatureInvalid", err)
	}
	if len(publisher.published) != 0 {
		t.Errorf("published %d events after rejected signature, want 0", len(publisher.published))
	}
}

func TestProcessRejectsMalformedPayload(t *testing.T) {
	gateway := &fakeGateway{eventErr: domain.ErrMalformedPayload}
	svc := newWebhookService(gateway, &fakePublisher{})

	if err := svc.Process(context.Background(), []byte(`not json`), "sig"); !errors.Is(err, domain.ErrMalformedPayload) {
		t.Fatalf("Process = %v, want ErrMalformedPayload", err)
	}
}

func TestProcessIgnoresUnhandledKind(t *testing.T) {
	gateway := &fakeGateway{event: providerEvent(t, "evt_1", "invoice.created", map[string]any{"id": "in_1"})}
	publisher := &fakePublisher{}
	svc := newWebhookService(gateway, publisher)

	if err := svc.Process(context.Background(), []byte(`{}`), "sig"); err != nil {
		t.Fatalf("Process = %v, want nil for unhandled kind", err)
	}
	if len(publisher.published) != 0 {
		t.Errorf("published %d events for unhandled kind, want 0", len(publisher.published))
	}
}

func TestProcessPublishesFailedPayment(t *testing.T) {
	gateway := &fakeGateway{event: providerEvent(t, "evt_1", "payment_intent.payment_failed", map[string]any{
		"id":                 "pi_1",
		"metadata":           map[string]string{"orderId": "o1"},
		"last_payment_error": map[string]any{"message": "card_declined"},
	})}
	publisher := &fakePublisher{}
	svc := newWebhookService(gateway, publisher)

	if err := svc.Process(context.Background(), []byte(`{}`), "sig"); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("published %d events, want 1", len(publisher.published))
	}
	failed, ok := publisher.published[0].(domain.PaymentFailed)
	if !ok {
		t.Fatalf("published %T, want PaymentFailed", publisher.published[0])
	}
	if failed.OrderID != "o1" || failed.PaymentID != "pi_1" || failed.FailureReason != "card_declined" {
		t.Errorf("unexpected event: %+v", failed)
	}
}

func TestProcessSwallowsPublishFailure(t *testing.T) {
	gateway := &fakeGateway{event: providerEvent(t, "evt_1", "payment_intent.succeeded", map[string]any{
		"id":              "pi_1",
		"amount_received": 2500,
		"metadata":        map[string]string{"orderId": "abc123"},
	})}
	publisher := &fakePublisher{err: domain.ErrPublishFailure}
	svc := newWebhookService(gateway, publisher)

	// The provider must still be acknowledged when the bus is down.
	if err := svc.Process(context.Background(), []byte(`{}`), "sig"); err != nil {
		t.Fatalf("Process = %v, want nil despite publish failure", err)
	}
}

func TestProcessDuplicateDeliveryIsNotDeduplicated(t *testing.T) {
	gateway := &fakeGateway{event: providerEvent(t, "evt_1", "charge.refunded", map[string]any{
		"id":              "ch_1",
		"amount_refunded": 5000,
		"metadata":        map[string]string{"orderId": "order-abc-123"},
	})}
	publisher := &fakePublisher{}
	classifier := fixedClassifier(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC))
	svc := NewWebhookService(testLogger(), gateway, classifier, publisher)

	payload := []byte(`{}`)
	if err := svc.Process(context.Background(), payload, "sig"); err != nil {
		t.Fatalf("first Process: %v", err)
	}
	classifier.now = func() time.Time { return time.Date(2025, 5, 1, 10, 0, 1, 0, time.UTC) }
	if err := svc.Process(context.Background(), payload, "sig"); err != nil {
		t.Fatalf("second Process: %v", err)
	}

	if len(publisher.published) != 2 {
		t.Fatalf("published %d events, want 2 (no dedup)", len(publisher.published))
	}
	a := publisher.published[0].(domain.PaymentRefunded)
	b := publisher.published[1].(domain.PaymentRefunded)
	if a.RefundID == b.RefundID {
		t.Errorf("duplicate deliveries produced equal refund ids %q", a.RefundID)
	}
	if a.Amount != 50.00 || b.Amount != 50.00 {
		t.Errorf("amounts = %v/%v, want 50.00 in major units", a.Amount, b.Amount)
	}
}
