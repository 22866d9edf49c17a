// Package payments creates and verifies Stripe Checkout sessions for the VIP
// subscription.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

// VIP monthly price
const (
	VIPAmount        int64 = 999 // pence
	VIPCurrency            = "gbp"
	VIPProductName         = "VIP Monthly Subscription"
	SubscriptionType       = "vip_monthly"
)

// ErrNotConfigured is returned when no Stripe key is set
var ErrNotConfigured = errors.New("payments not configured")

// ErrIgnoredEvent is returned for webhook events that carry no checkout result
var ErrIgnoredEvent = errors.New("ignored webhook event")

// SessionRequest describes who is checking out and where to send them back
type SessionRequest struct {
	UserID string
	Email  string
	Origin string // scheme://host of the frontend
}

// Session is the provider-neutral view of a checkout session
type Session struct {
	ID            string            `json:"session_id"`
	URL           string            `json:"url,omitempty"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Paid reports whether the session's payment has completed
func (s *Session) Paid() bool {
	return s.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusPaid)
}

// StripeCheckout talks to the Stripe API
type StripeCheckout struct {
	api           *client.API
	webhookSecret string
}

// NewStripeCheckout creates a Stripe client. An empty key yields a client whose
// calls return ErrNotConfigured.
func NewStripeCheckout(apiKey, webhookSecret string) *StripeCheckout {
	sc := &StripeCheckout{webhookSecret: webhookSecret}
	if apiKey != "" {
		sc.api = client.New(apiKey, nil)
	}
	return sc
}

// SuccessURL is where Stripe redirects after payment
func SuccessURL(origin string) string {
	return strings.TrimRight(origin, "/") + "/account?session_id={CHECKOUT_SESSION_ID}"
}

// CancelURL is where Stripe redirects when the user backs out
func CancelURL(origin string) string {
	return strings.TrimRight(origin, "/") + "/vip"
}

// CreateSession opens a one-off checkout for the VIP price
func (s *StripeCheckout) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if s.api == nil {
		return nil, ErrNotConfigured
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(SuccessURL(req.Origin)),
		CancelURL:     stripe.String(CancelURL(req.Origin)),
		CustomerEmail: stripe.String(req.Email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(VIPCurrency),
				UnitAmount: stripe.Int64(VIPAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(VIPProductName),
				},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	params.Context = ctx
	params.AddMetadata("user_id", req.UserID)
	params.AddMetadata("user_email", req.Email)
	params.AddMetadata("subscription_type", SubscriptionType)

	cs, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}
	return fromStripe(cs), nil
}

// GetSession fetches the current state of a checkout session
func (s *StripeCheckout) GetSession(ctx context.Context, id string) (*Session, error) {
	if s.api == nil {
		return nil, ErrNotConfigured
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := s.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("fetching checkout session: %w", err)
	}
	return fromStripe(cs), nil
}

// ParseWebhook verifies the Stripe signature and extracts the checkout session
// from checkout.session.* events. Other events yield ErrIgnoredEvent.
func (s *StripeCheckout) ParseWebhook(payload []byte, signature string) (*Session, error) {
	if s.webhookSecret == "" {
		return nil, ErrNotConfigured
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("verifying webhook: %w", err)
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
	default:
		return nil, fmt.Errorf("%w: %s", ErrIgnoredEvent, event.Type)
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("decoding checkout session: %w", err)
	}
	return fromStripe(&cs), nil
}

func fromStripe(cs *stripe.CheckoutSession) *Session {
	return &Session{
		ID:            cs.ID,
		URL:           cs.URL,
		Status:        string(cs.Status),
		PaymentStatus: string(cs.PaymentStatus),
		AmountTotal:   cs.AmountTotal,
		Currency:      string(cs.Currency),
		Metadata:      cs.Metadata,
	}
}
