package application

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v79"

	"github.com/nest-deiber/payments-management-microservice/internal/payments/domain"
)

const (
	defaultFailureReason = "Unknown error"
	defaultCancelReason  = "cancelled_by_user"
	defaultRefundReason  = "customer_requested"
)

// Classifier maps a verified provider event onto a domain event. Events of a
// kind we do not handle, and recognized kinds missing required fields, yield
// domain.ErrUnhandledEvent rather than a hard error: the delivery is already
// signature-verified, and failing it would only trigger provider retries.
type Classifier struct {
	log *slog.Logger
	now func() time.Time
}

func NewClassifier(log *slog.Logger) *Classifier {
	return &Classifier{log: log, now: time.Now}
}

func (c *Classifier) Classify(ev *stripe.Event) (domain.Event, error) {
	switch string(ev.Type) {
	case "charge.succeeded":
		return c.chargeSucceeded(ev)
	case "payment_intent.succeeded":
		return c.intentSucceeded(ev)
	case "payment_intent.payment_failed":
		return c.intentFailed(ev)
	case "payment_intent.canceled":
		return c.intentCanceled(ev)
	case "charge.refunded":
		return c.chargeRefunded(ev)
	default:
		c.log.Info("ignoring provider event", "event_id", ev.ID, "type", ev.Type)
		return nil, domain.ErrUnhandledEvent
	}
}

func (c *Classifier) chargeSucceeded(ev *stripe.Event) (domain.Event, error) {
	ch, err := c.charge(ev)
	if err != nil {
		return nil, err
	}
	orderID, ok := c.orderID(ev, ch.Metadata)
	if !ok {
		return nil, domain.ErrUnhandledEvent
	}
	if ch.ID == "" {
		c.dataQuality(ev, "charge id missing")
		return nil, domain.ErrUnhandledEvent
	}
	return domain.PaymentSucceeded{
		OrderID:          orderID,
		PaymentID:        ch.ID,
		Amount:           domain.MajorUnits(ch.Amount),
		PaidAt:           c.now().UTC().Format(time.RFC3339),
		ProviderChargeID: ch.ID,
	}, nil
}

func (c *Classifier) intentSucceeded(ev *stripe.Event) (domain.Event, error) {
	pi, err := c.intent(ev)
	if err != nil {
		return nil, err
	}
	orderID, ok := c.orderID(ev, pi.Metadata)
	if !ok {
		return nil, domain.ErrUnhandledEvent
	}
	if pi.ID == "" {
		c.dataQuality(ev, "payment intent id missing")
		return nil, domain.ErrUnhandledEvent
	}
	out := domain.PaymentSucceeded{
		OrderID:   orderID,
		PaymentID: pi.ID,
		Amount:    domain.MajorUnits(pi.AmountReceived),
		PaidAt:    c.now().UTC().Format(time.RFC3339),
	}
	if pi.LatestCharge != nil {
		out.ProviderChargeID = pi.LatestCharge.ID
	}
	return out, nil
}

func (c *Classifier) intentFailed(ev *stripe.Event) (domain.Event, error) {
	pi, err := c.intent(ev)
	if err != nil {
		return nil, err
	}
	orderID, ok := c.orderID(ev, pi.Metadata)
	if !ok {
		return nil, domain.ErrUnhandledEvent
	}
	reason := defaultFailureReason
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		reason = pi.LastPaymentError.Msg
	}
	return domain.PaymentFailed{
		OrderID:       orderID,
		PaymentID:     c.paymentID(pi.ID, orderID),
		FailureReason: reason,
	}, nil
}

func (c *Classifier) intentCanceled(ev *stripe.Event) (domain.Event, error) {
	pi, err := c.intent(ev)
	if err != nil {
		return nil, err
	}
	orderID, ok := c.orderID(ev, pi.Metadata)
	if !ok {
		return nil, domain.ErrUnhandledEvent
	}
	reason := defaultCancelReason
	if pi.CancellationReason != "" {
		reason = string(pi.CancellationReason)
	}
	return domain.PaymentCancelled{
		OrderID:     orderID,
		PaymentID:   c.paymentID(pi.ID, orderID),
		CancelledAt: c.now().UTC().Format(time.RFC3339),
		Reason:      reason,
	}, nil
}

func (c *Classifier) chargeRefunded(ev *stripe.Event) (domain.Event, error) {
	ch, err := c.charge(ev)
	if err != nil {
		return nil, err
	}
	orderID, ok := c.orderID(ev, ch.Metadata)
	if !ok {
		return nil, domain.ErrUnhandledEvent
	}
	now := c.now()

	paymentID := ch.ID
	if ch.PaymentIntent != nil && ch.PaymentIntent.ID != "" {
		paymentID = ch.PaymentIntent.ID
	}

	refundID := ""
	if ch.Refunds != nil && len(ch.Refunds.Data) > 0 {
		refundID = ch.Refunds.Data[0].ID
	}
	if refundID == "" {
		refundID = domain.NewRefundID(orderID, now)
	}

	return domain.PaymentRefunded{
		OrderID:    orderID,
		PaymentID:  c.paymentID(paymentID, orderID),
		RefundID:   refundID,
		Amount:     domain.MajorUnits(ch.AmountRefunded),
		RefundedAt: now.UTC().Format(time.RFC3339),
		Reason:     defaultRefundReason,
	}, nil
}

func (c *Classifier) charge(ev *stripe.Event) (*stripe.Charge, error) {
	if ev.Data == nil {
		c.dataQuality(ev, "event data missing")
		return nil, domain.ErrUnhandledEvent
	}
	var ch stripe.Charge
	if err := json.Unmarshal(ev.Data.Raw, &ch); err != nil {
		c.dataQuality(ev, "charge object not parseable")
		return nil, domain.ErrUnhandledEvent
	}
	return &ch, nil
}

func (c *Classifier) intent(ev *stripe.Event) (*stripe.PaymentIntent, error) {
	if ev.Data == nil {
		c.dataQuality(ev, "event data missing")
		return nil, domain.ErrUnhandledEvent
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
		c.dataQuality(ev, "payment intent object not parseable")
		return nil, domain.ErrUnhandledEvent
	}
	return &pi, nil
}

func (c *Classifier) orderID(ev *stripe.Event, metadata map[string]string) (string, bool) {
	id := metadata["orderId"]
	if id == "" {
		c.dataQuality(ev, "metadata.orderId missing")
		return "", false
	}
	return id, true
}

func (c *Classifier) paymentID(providerID, orderID string) string {
	if providerID != "" {
		return providerID
	}
	return domain.DerivePaymentID(orderID)
}

func (c *Classifier) dataQuality(ev *stripe.Event, detail string) {
	c.log.Warn("dropping provider event", "event_id", ev.ID, "type", ev.Type, "detail", detail)
}
