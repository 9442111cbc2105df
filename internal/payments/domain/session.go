package domain

// CheckoutItem is one line of a checkout session request. Price is in major
// currency units; adapters convert to the provider's minor units.
type CheckoutItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

type CheckoutSessionRequest struct {
	OrderID  string         `json:"orderId"`
	Currency string         `json:"currency"`
	Items    []CheckoutItem `json:"items"`
}

// PaymentSession is the provider-created checkout session handed back to the
// caller so the buyer can be redirected.
type PaymentSession struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	CancelURL  string `json:"cancelUrl"`
	SuccessURL string `json:"successUrl"`
}

// Order is the slice of the orders service's order we need for completion.
type Order struct {
	ID          string  `json:"id"`
	TotalAmount float64 `json:"totalAmount"`
	Status      string  `json:"status"`
}

type PaymentCompletion struct {
	OrderID     string  `json:"orderId"`
	PaymentID   string  `json:"paymentId"`
	Status      string  `json:"status"`
	CompletedAt string  `json:"completedAt"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
}

type PaymentCancellation struct {
	OrderID     string `json:"orderId"`
	PaymentID   string `json:"paymentId"`
	Cancelled   bool   `json:"cancelled"`
	CancelledAt string `json:"cancelledAt"`
	Reason      string `json:"reason"`
}

type RefundDetails struct {
	OrderID   string  `json:"orderId"`
	PaymentID string  `json:"paymentId"`
	RefundID  string  `json:"refundId"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"createdAt"`
	Reason    string  `json:"reason"`
}
