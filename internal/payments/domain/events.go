package domain

import (
	"fmt"
	"time"
)

// Bus subjects the orders service subscribes to.
const (
	SubjectPaymentSucceeded = "payment.succeeded"
	SubjectPaymentFailed    = "payment.failed"
	SubjectPaymentCancelled = "payment.cancelled"
	SubjectPaymentRefunded  = "payment.refunded"
)

// Event is one of the four payment domain events published to the bus.
// Subject selects the bus topic, Key the partition key (always the order id).
type Event interface {
	Subject() string
	Key() string
}

// PaymentSucceeded is emitted when a payment has been captured.
// Amount is in major currency units.
type PaymentSucceeded struct {
	OrderID          string  `json:"orderId"`
	PaymentID        string  `json:"paymentId"`
	Amount           float64 `json:"amount"`
	PaidAt           string  `json:"paidAt"`
	ProviderChargeID string  `json:"providerChargeId,omitempty"`
}

func (PaymentSucceeded) Subject() string { return SubjectPaymentSucceeded }
func (e PaymentSucceeded) Key() string   { return e.OrderID }

type PaymentFailed struct {
	OrderID       string `json:"orderId"`
	PaymentID     string `json:"paymentId"`
	FailureReason string `json:"failureReason"`
}

func (PaymentFailed) Subject() string { return SubjectPaymentFailed }
func (e PaymentFailed) Key() string   { return e.OrderID }

type PaymentCancelled struct {
	OrderID     string `json:"orderId"`
	PaymentID   string `json:"paymentId"`
	CancelledAt string `json:"cancelledAt"`
	Reason      string `json:"reason"`
}

func (PaymentCancelled) Subject() string { return SubjectPaymentCancelled }
func (e PaymentCancelled) Key() string   { return e.OrderID }

type PaymentRefunded struct {
	OrderID    string  `json:"orderId"`
	PaymentID  string  `json:"paymentId"`
	RefundID   string  `json:"refundId"`
	Amount     float64 `json:"amount"`
	RefundedAt string  `json:"refundedAt"`
	Reason     string  `json:"reason,omitempty"`
}

func (PaymentRefunded) Subject() string { return SubjectPaymentRefunded }
func (e PaymentRefunded) Key() string   { return e.OrderID }

// DerivePaymentID synthesizes a payment id from the order id when the
// provider does not supply one. The orders service relies on this exact
// shape, so the provider id is preferred wherever it is available.
func DerivePaymentID(orderID string) string {
	return "payment_" + prefix(orderID, 8)
}

// NewRefundID synthesizes a refund id for providers that report a refunded
// charge without a refund object. Not idempotent: replayed deliveries get
// distinct ids.
func NewRefundID(orderID string, at time.Time) string {
	return fmt.Sprintf("refund_%s_%d", prefix(orderID, 8), at.UnixMilli())
}

// MajorUnits converts a provider amount in minor units (cents) to major
// currency units. Amounts must never cross into a domain event undivided.
func MajorUnits(minor int64) float64 {
	return float64(minor) / 100
}

func prefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
