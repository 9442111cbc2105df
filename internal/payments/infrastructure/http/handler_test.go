package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stripe/stripe-go/v79"

	"github.com/nest-deiber/payments-management-microservice/internal/payments/application"
	"github.com/nest-deiber/payments-management-microservice/internal/payments/domain"
)

type stubGateway struct {
	event    *stripe.Event
	eventErr error
	session  domain.PaymentSession
}

func (s *stubGateway) CreateCheckoutSession(ctx context.Context, req domain.CheckoutSessionRequest) (domain.PaymentSession, error) {
	return s.session, nil
}

func (s *stubGateway) ConstructWebhookEvent(payload []byte, signature string) (*stripe.Event, error) {
	return s.event, s.eventErr
}

type stubPublisher struct {
	published []domain.Event
	err       error
}

func (s *stubPublisher) Publish(ctx context.Context, event domain.Event) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, event)
	return nil
}

type stubOrders struct {
	order domain.Order
	err   error
}

func (s *stubOrders) FindOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return s.order, s.err
}

func newTestHandler(gateway application.ProviderGateway, publisher application.EventPublisher, orders application.OrderLookup) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	webhooks := application.NewWebhookService(log, gateway, application.NewClassifier(log), publisher)
	payments := application.NewService(log, gateway, publisher, orders)
	return NewHandler(log, webhooks, payments).Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, decoded
}

func providerEvent(t *testing.T, id, kind string, object map[string]any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &stripe.Event{ID: id, Type: stripe.EventType(kind), Data: &stripe.EventData{Raw: raw}}
}

func TestWebhookInvalidSignature(t *testing.T) {
	h := newTestHandler(&stubGateway{eventErr: domain.ErrSignatureInvalid}, &stubPublisher{}, &stubOrders{})

	rec, body := doJSON(t, h, http.MethodPost, "/v1/payments/webhook", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg, _ := body["error"].(string); msg == "" {
		t.Errorf("missing error in body: %v", body)
	}
}

func TestWebhookAcknowledged(t *testing.T) {
	gateway := &stubGateway{event: providerEvent(t, "evt_1", "payment_intent.payment_failed", map[string]any{
		"id":                 "pi_1",
		"metadata":           map[string]string{"orderId": "o1"},
		"last_payment_error": map[string]any{"message": "card_declined"},
	})}
	publisher := &stubPublisher{}
	h := newTestHandler(gateway, publisher, &stubOrders{})

	rec, body := doJSON(t, h, http.MethodPost, "/v1/payments/webhook", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["received"] != true {
		t.Errorf("body = %v, want received:true", body)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("published %d events, want 1", len(publisher.published))
	}
	if got := publisher.published[0].Subject(); got != domain.SubjectPaymentFailed {
		t.Errorf("Subject = %q", got)
	}
}

func TestWebhookUnhandledKindStillAcknowledged(t *testing.T) {
	gateway := &stubGateway{event: providerEvent(t, "evt_1", "invoice.created", map[string]any{"id": "in_1"})}
	publisher := &stubPublisher{}
	h := newTestHandler(gateway, publisher, &stubOrders{})

	rec, body := doJSON(t, h, http.MethodPost, "/v1/payments/webhook", `{}`)
	if rec.Code != http.StatusOK || body["received"] != true {
		t.Fatalf("status = %d body = %v, want 200 received:true", rec.Code, body)
	}
	if len(publisher.published) != 0 {
		t.Errorf("published %d events for unhandled kind", len(publisher.published))
	}
}

func TestWebhookPublishFailureStillAcknowledged(t *testing.T) {
	gateway := &stubGateway{event: providerEvent(t, "evt_1", "payment_intent.succeeded", map[string]any{
		"id":              "pi_1",
		"amount_received": 2500,
		"metadata":        map[string]string{"orderId": "abc123"},
	})}
	h := newTestHandler(gateway, &stubPublisher{err: domain.ErrPublishFailure}, &stubOrders{})

	rec, body := doJSON(t, h, http.MethodPost, "/v1/payments/webhook", `{}`)
	if rec.Code != http.StatusOK || body["received"] != true {
		t.Fatalf("status = %d body = %v, want 200 received:true despite publish failure", rec.Code, body)
	}
}

func TestCompletePayment(t *testing.T) {
	orders := &stubOrders{order: domain.Order{ID: "123e4567-e89b-12d3-a456-426614174000", TotalAmount: 75.50}}
	h := newTestHandler(&stubGateway{}, &stubPublisher{}, orders)

	rec, body := doJSON(t, h, http.MethodPost, "/v1/payments/complete/order/123e4567-e89b-12d3-a456-426614174000", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%v)", rec.Code, body)
	}
	if body["paymentId"] != "payment_123e4567" || body["amount"] != 75.50 {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestCompletePaymentUnknownOrder(t *testing.T) {
	h := newTestHandler(&stubGateway{}, &stubPublisher{}, &stubOrders{err: domain.ErrOrderNotFound})

	rec, _ := doJSON(t, h, http.MethodPost, "/v1/payments/complete/order/123e4567-e89b-12d3-a456-426614174000", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCompletePaymentRejectsNonUUID(t *testing.T) {
	h := newTestHandler(&stubGateway{}, &stubPublisher{}, &stubOrders{})

	rec, _ := doJSON(t, h, http.MethodPost, "/v1/payments/complete/order/not-a-uuid", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCancelPayment(t *testing.T) {
	publisher := &stubPublisher{}
	h := newTestHandler(&stubGateway{}, publisher, &stubOrders{})

	rec, body := doJSON(t, h, http.MethodPost, "/v1/payments/cancel/order/123e4567-e89b-12d3-a456-426614174000", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["cancelled"] != true || body["reason"] != "user_requested" {
		t.Errorf("unexpected body: %v", body)
	}
	if len(publisher.published) != 1 {
		t.Errorf("published %d events, want 1", len(publisher.published))
	}
}

func TestRefundPayment(t *testing.T) {
	h := newTestHandler(&stubGateway{}, &stubPublisher{}, &stubOrders{})

	rec, body := doJSON(t, h, http.MethodPost, "/v1/payments/refund/order",
		`{"orderId":"123e4567-e89b-12d3-a456-426614174000","amount":50.0,"reason":"customer_request"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%v)", rec.Code, body)
	}
	if body["amount"] != 50.0 || body["status"] != "succeeded" {
		t.Errorf("unexpected body: %v", body)
	}
	refundID, _ := body["refundId"].(string)
	if !strings.HasPrefix(refundID, "refund_123e4567_") {
		t.Errorf("refundId = %q", refundID)
	}
}

func TestRefundPaymentRequiresOrderID(t *testing.T) {
	h := newTestHandler(&stubGateway{}, &stubPublisher{}, &stubOrders{})

	rec, _ := doJSON(t, h, http.MethodPost, "/v1/payments/refund/order", `{"amount":10}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateSession(t *testing.T) {
	gateway := &stubGateway{session: domain.PaymentSession{ID: "sess_1", URL: "http://pay/sess_1"}}
	h := newTestHandler(gateway, &stubPublisher{}, &stubOrders{})

	rec, body := doJSON(t, h, http.MethodPost, "/v1/payments/session",
		`{"orderId":"o1","currency":"usd","items":[{"name":"T-shirt","price":25.99,"quantity":2}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%v)", rec.Code, body)
	}
	if body["id"] != "sess_1" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	h := newTestHandler(&stubGateway{}, &stubPublisher{}, &stubOrders{})

	rec, _ := doJSON(t, h, http.MethodPost, "/v1/payments/session", `{"orderId":"o1","currency":"usd","items":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRedirectAndHealthEndpoints(t *testing.T) {
	h := newTestHandler(&stubGateway{}, &stubPublisher{}, &stubOrders{})

	rec, body := doJSON(t, h, http.MethodGet, "/v1/payments/success", "")
	if rec.Code != http.StatusOK || body["ok"] != true {
		t.Errorf("success: status %d body %v", rec.Code, body)
	}

	rec, body = doJSON(t, h, http.MethodGet, "/v1/payments/cancel", "")
	if rec.Code != http.StatusOK || body["ok"] != false {
		t.Errorf("cancel: status %d body %v", rec.Code, body)
	}

	rec, body = doJSON(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz: status %d body %v", rec.Code, body)
	}
}
