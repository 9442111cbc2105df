package stripe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/nest-deiber/payments-management-microservice/internal/payments/domain"
)

// Gateway implements the provider gateway port against the Stripe API.
// The webhook secret and API key are injected configuration.
type Gateway struct {
	log           *slog.Logger
	client        *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
}

func NewGateway(log *slog.Logger, apiKey, webhookSecret, successURL, cancelURL string) *Gateway {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &Gateway{
		log:           log,
		client:        sc,
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
	}
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, req domain.CheckoutSessionRequest) (domain.PaymentSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, it := range req.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(it.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(req.Currency),
				UnitAmount: stripe.Int64(int64(math.Round(it.Price * 100))),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(it.Name),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
		LineItems:  lineItems,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			// The webhook pipeline depends on this key to correlate
			// provider events back to the order.
			Metadata: map[string]string{"orderId": req.OrderID},
		},
	}
	params.Context = ctx

	sess, err := g.client.CheckoutSessions.New(params)
	if err != nil {
		return domain.PaymentSession{}, fmt.Errorf("stripe checkout session: %w", err)
	}
	return domain.PaymentSession{
		ID:         sess.ID,
		URL:        sess.URL,
		CancelURL:  g.cancelURL,
		SuccessURL: g.successURL,
	}, nil
}

// ConstructWebhookEvent verifies the Stripe-Signature header against the raw
// payload and parses the event envelope. Pure verification: the payload is
// neither mutated nor retained.
func (g *Gateway) ConstructWebhookEvent(payload []byte, signature string) (*stripe.Event, error) {
	ev, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		if isSignatureErr(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrSignatureInvalid, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	return &ev, nil
}

func isSignatureErr(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}
