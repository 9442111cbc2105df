package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/nest-deiber/payments-management-microservice/internal/payments/application"
	"github.com/nest-deiber/payments-management-microservice/internal/payments/domain"
)

const maxWebhookBody = 1 << 20 // provider payloads are small; cap abuse

type Handler struct {
	log      *slog.Logger
	webhooks *application.WebhookService
	payments *application.Service
	tracer   trace.Tracer
}

func NewHandler(log *slog.Logger, webhooks *application.WebhookService, payments *application.Service) *Handler {
	return &Handler{
		log:      log,
		webhooks: webhooks,
		payments: payments,
		tracer:   otel.Tracer("payments-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/v1/payments", func(r chi.Router) {
		r.Post("/webhook", h.webhook)
		r.Post("/session", h.createSession)
		r.Post("/complete/order/{orderID}", h.completePayment)
		r.Post("/cancel/order/{orderID}", h.cancelPayment)
		r.Post("/refund/order", h.refundPayment)
		r.Get("/success", h.successRedirect)
		r.Get("/cancel", h.cancelRedirect)
	})
	r.Get("/healthz", h.health)
	return r
}

// webhook receives signed provider deliveries. 400 only when the payload
// fails verification or parsing; everything past that boundary is
// acknowledged with 200 so the provider does not retry.
func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Webhook")
	defer span.End()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	err = h.webhooks.Process(ctx, body, r.Header.Get("Stripe-Signature"))
	switch {
	case errors.Is(err, domain.ErrSignatureInvalid), errors.Is(err, domain.ErrMalformedPayload):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case err != nil:
		writeJSON(w, http.StatusOK, map[string]any{"received": true, "warning": "internal processing error occurred"})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"received": true})
	}
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateSession")
	defer span.End()

	var req domain.CheckoutSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if req.OrderID == "" || req.Currency == "" || len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "orderId, currency and items are required"})
		return
	}

	session, err := h.payments.CreateSession(ctx, req)
	if err != nil {
		h.log.Error("create session failed", "order_id", req.OrderID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create payment session"})
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *Handler) completePayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompletePayment")
	defer span.End()

	orderID, ok := h.orderIDParam(w, r)
	if !ok {
		return
	}

	completion, err := h.payments.CompletePayment(ctx, orderID)
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order " + orderID + " not found"})
	case err != nil:
		h.log.Error("complete payment failed", "order_id", orderID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to complete payment"})
	default:
		writeJSON(w, http.StatusOK, completion)
	}
}

func (h *Handler) cancelPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CancelPayment")
	defer span.End()

	orderID, ok := h.orderIDParam(w, r)
	if !ok {
		return
	}

	cancellation, err := h.payments.CancelPayment(ctx, orderID, "user_requested")
	if err != nil {
		h.log.Error("cancel payment failed", "order_id", orderID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to cancel payment"})
		return
	}
	writeJSON(w, http.StatusOK, cancellation)
}

type refundRequest struct {
	OrderID string  `json:"orderId"`
	Amount  float64 `json:"amount"`
	Reason  string  `json:"reason"`
}

func (h *Handler) refundPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RefundPayment")
	defer span.End()

	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "orderId is required"})
		return
	}

	refund, err := h.payments.RefundPayment(ctx, req.OrderID, req.Amount, req.Reason)
	if err != nil {
		h.log.Error("refund failed", "order_id", req.OrderID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to process refund"})
		return
	}
	writeJSON(w, http.StatusCreated, refund)
}

func (h *Handler) successRedirect(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Payment successful redirection endpoint."})
}

func (h *Handler) cancelRedirect(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": false, "message": "Payment cancelled redirection endpoint."})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) orderIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	orderID := chi.URLParam(r, "orderID")
	if _, err := uuid.Parse(orderID); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "orderID must be a UUID"})
		return "", false
	}
	return orderID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
