package payment

import (
	"encoding/json"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

// Stripe enforces a minimum checkout session lifetime; shorter
// reservation TTLs are clamped up and the expiry webhook reconciles
// the difference.
const minSessionLifetime = 30 * time.Minute

// StripeGateway implements Gateway on top of the Stripe API.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

// NewStripeGateway builds a gateway from the account's secret key and
// the endpoint's webhook signing secret.
func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api, webhookSecret: webhookSecret}
}

// CreateSession opens a hosted checkout session for a single line item.
func (g *StripeGateway) CreateSession(p SessionParams) (*Session, error) {
	expiresAt := p.ExpiresAt
	if min := time.Now().Add(minSessionLifetime); expiresAt.Before(min) {
		expiresAt = min.Add(time.Minute)
	}
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		ExpiresAt:  stripe.Int64(expiresAt.Unix()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(p.Currency),
					UnitAmount: stripe.Int64(p.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(p.ProductName),
					},
				},
			},
		},
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.FeeSplit != nil {
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(p.FeeSplit.FeeCents),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(p.FeeSplit.AccountID),
			},
		}
	}
	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

// CreateRefund refunds the payment behind the given payment intent.
func (g *StripeGateway) CreateRefund(paymentRef string, amountCents int64, reason string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentRef),
	}
	if amountCents > 0 {
		params.Amount = stripe.Int64(amountCents)
	}
	if reason != "" {
		params.Reason = stripe.String(reason)
	}
	if _, err := g.api.Refunds.New(params); err != nil {
		return fmt.Errorf("create refund: %w", err)
	}
	return nil
}

// VerifyWebhook checks the delivery signature and normalizes the event
// payload.  Deliveries that fail signature verification or carry a
// known event type with an unparseable object are rejected.
func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*Event, error) {
	ev, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}
	out := &Event{ID: ev.ID, Kind: string(ev.Type)}
	switch out.Kind {
	case EventCheckoutCompleted, EventCheckoutExpired:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session payload: %w", err)
		}
		out.SessionRef = s.ID
		out.AmountCents = s.AmountTotal
		out.Metadata = s.Metadata
		if s.PaymentIntent != nil {
			out.PaymentRef = s.PaymentIntent.ID
		}
	case EventChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(ev.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("decode charge payload: %w", err)
		}
		out.PaymentRef = ch.ID
		if ch.PaymentIntent != nil {
			out.PaymentRef = ch.PaymentIntent.ID
		}
		out.AmountCents = ch.AmountRefunded
		out.Metadata = ch.Metadata
	}
	return out, nil
}
