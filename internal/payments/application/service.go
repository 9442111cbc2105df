package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nest-deiber/payments-management-microservice/internal/payments/domain"
)

// Service handles the internal payment operations: checkout session
// creation, completion, cancellation and refunds. Like the webhook pipeline
// it holds no durable state; each operation synthesizes identifiers from the
// order id and emits a domain event for the orders service.
//
// Unlike webhook processing, publish failures here surface to the caller:
// these are internal requests, so there is no provider retry to avoid.
type Service struct {
	log       *slog.Logger
	gateway   ProviderGateway
	publisher EventPublisher
	orders    OrderLookup
	now       func() time.Time
}

func NewService(log *slog.Logger, gateway ProviderGateway, publisher EventPublisher, orders OrderLookup) *Service {
	return &Service{
		log:       log,
		gateway:   gateway,
		publisher: publisher,
		orders:    orders,
		now:       time.Now,
	}
}

func (s *Service) CreateSession(ctx context.Context, req domain.CheckoutSessionRequest) (domain.PaymentSession, error) {
	session, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		return domain.PaymentSession{}, fmt.Errorf("create checkout session for order %s: %w", req.OrderID, err)
	}
	s.log.Info("checkout session created", "order_id", req.OrderID, "session_id", session.ID)
	return session, nil
}

// CompletePayment marks an order as paid out of band. The amount comes from
// the orders service, not the caller.
func (s *Service) CompletePayment(ctx context.Context, orderID string) (domain.PaymentCompletion, error) {
	order, err := s.orders.FindOrder(ctx, orderID)
	if err != nil {
		return domain.PaymentCompletion{}, err
	}

	paymentID := domain.DerivePaymentID(orderID)
	completedAt := s.now().UTC().Format(time.RFC3339)

	event := domain.PaymentSucceeded{
		OrderID:          orderID,
		PaymentID:        paymentID,
		Amount:           order.TotalAmount,
		PaidAt:           completedAt,
		ProviderChargeID: paymentID,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		return domain.PaymentCompletion{}, err
	}
	s.log.Info("payment completion published", "order_id", orderID, "amount", order.TotalAmount)

	return domain.PaymentCompletion{
		OrderID:     orderID,
		PaymentID:   paymentID,
		Status:      "completed",
		CompletedAt: completedAt,
		Amount:      order.TotalAmount,
		Currency:    "usd",
	}, nil
}

func (s *Service) CancelPayment(ctx context.Context, orderID, reason string) (domain.PaymentCancellation, error) {
	paymentID := domain.DerivePaymentID(orderID)
	cancelledAt := s.now().UTC().Format(time.RFC3339)

	event := domain.PaymentCancelled{
		OrderID:     orderID,
		PaymentID:   paymentID,
		CancelledAt: cancelledAt,
		Reason:      reason,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		return domain.PaymentCancellation{}, err
	}
	s.log.Info("payment cancellation published", "order_id", orderID, "reason", reason)

	return domain.PaymentCancellation{
		OrderID:     orderID,
		PaymentID:   paymentID,
		Cancelled:   true,
		CancelledAt: cancelledAt,
		Reason:      reason,
	}, nil
}

// RefundPayment emits a refund event for an order. Amount defaults to 100.00
// and reason to "requested_by_customer" when the caller omits them.
func (s *Service) RefundPayment(ctx context.Context, orderID string, amount float64, reason string) (domain.RefundDetails, error) {
	if amount <= 0 {
		amount = 100.00
	}
	if reason == "" {
		reason = "requested_by_customer"
	}

	now := s.now()
	paymentID := domain.DerivePaymentID(orderID)
	refundID := domain.NewRefundID(orderID, now)
	refundedAt := now.UTC().Format(time.RFC3339)

	event := domain.PaymentRefunded{
		OrderID:    orderID,
		PaymentID:  paymentID,
		RefundID:   refundID,
		Amount:     amount,
		RefundedAt: refundedAt,
		Reason:     reason,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		return domain.RefundDetails{}, err
	}
	s.log.Info("payment refund published", "order_id", orderID, "refund_id", refundID)

	return domain.RefundDetails{
		OrderID:   orderID,
		PaymentID: paymentID,
		RefundID:  refundID,
		Amount:    amount,
		Currency:  "usd",
		Status:    "succeeded",
		CreatedAt: refundedAt,
		Reason:    reason,
	}, nil
}
