package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"

	"mulchBack/internal/models"
)

// Correlation metadata keys attached at session creation and echoed back
// by Stripe on completion. The type discriminator routes the confirmation;
// orderId ties an order confirmation to the record it was created for.
const (
	MetaKeyType      = "type"
	MetaKeyOrderID   = "orderId"
	MetaKeyGivenName = "donorGivenName"
	MetaKeySurname   = "donorSurname"
	MetaKeyEmail     = "donorEmail"

	MetaTypeOrder    = "order"
	MetaTypeDonation = "donation"
)

var ErrInvalidSignature = errors.New("stripe: invalid webhook signature")

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string

	Client *http.Client
	Logger *slog.Logger
}

// StripeService wraps the hosted-checkout provider. It is constructed once
// at startup with the account credentials and holds no mutable state.
type StripeService struct {
	api           *client.API
	webhookSecret string
	logger        *slog.Logger
}

func NewStripeService(cfg StripeConfig) (*StripeService, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("stripe: secret key is required")
	}
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, fmt.Errorf("stripe: webhook secret is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var backends *stripe.Backends
	if cfg.Client != nil {
		backends = stripe.NewBackends(cfg.Client)
	}
	api := &client.API{}
	api.Init(cfg.SecretKey, backends)

	return &StripeService{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}, nil
}

// CheckoutSession is the handle returned when a hosted checkout is
// created. The URL is where the buyer's browser gets sent.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// SessionDetails is the provider's view of a checkout session after
// retrieval or webhook delivery.
type SessionDetails struct {
	ID              string
	Paid            bool
	AmountTotal     int64 // cents
	Currency        string
	PaymentIntentID string
	CustomerID      string
	CustomerEmail   string
	CustomerName    string
	Metadata        map[string]string
}

// Ref builds the provider reference persisted onto the paid record.
func (d *SessionDetails) Ref() models.PaymentRef {
	return models.NewStripeRef(d.ID, d.PaymentIntentID, d.CustomerID)
}

type DonationCheckoutParams struct {
	Amount         int64 // cents
	DonorEmail     string
	DonorGivenName string
	DonorSurname   string
	SuccessURL     string
	CancelURL      string
}

// CreateOrderCheckoutSession creates a hosted checkout for a mulch order.
// The line item mirrors exactly what the buyer agreed to on the form:
// per-bag price, bag count and the color/spreading wording.
func (s *StripeService) CreateOrderCheckoutSession(ctx context.Context, order models.MulchOrder, successURL, cancelURL string) (*CheckoutSession, error) {
	email := ""
	if order.Customer != nil {
		email = order.Customer.Email
	}
	params := buildCheckoutParams(checkoutItem{
		Name:          "Bag o' Mulch",
		Description:   orderLineDescription(order.Color, order.OrderType),
		UnitAmount:    order.PricePerUnit,
		Quantity:      int64(order.Quantity),
		CustomerEmail: email,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
		Metadata: map[string]string{
			MetaKeyType:    MetaTypeOrder,
			MetaKeyOrderID: order.ID,
		},
	})
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create order checkout: %w", err)
	}
	s.logger.Info("checkout session created", "op", "CreateOrderCheckoutSession", "session_id", sess.ID, "order_id", order.ID)
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// CreateDonationCheckoutSession creates a hosted checkout for a one-off
// donation. Donor identity travels in the correlation metadata because no
// record exists yet; the webhook creates it.
func (s *StripeService) CreateDonationCheckoutSession(ctx context.Context, p DonationCheckoutParams) (*CheckoutSession, error) {
	params := buildCheckoutParams(checkoutItem{
		Name:          "Crossroads Youth Fundraiser Donation",
		Description:   "Thank you for supporting our youth program!",
		UnitAmount:    p.Amount,
		Quantity:      1,
		CustomerEmail: p.DonorEmail,
		SuccessURL:    p.SuccessURL,
		CancelURL:     p.CancelURL,
		Metadata: map[string]string{
			MetaKeyType:      MetaTypeDonation,
			MetaKeyEmail:     p.DonorEmail,
			MetaKeyGivenName: p.DonorGivenName,
			MetaKeySurname:   p.DonorSurname,
		},
	})
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create donation checkout: %w", err)
	}
	s.logger.Info("checkout session created", "op", "CreateDonationCheckoutSession", "session_id", sess.ID, "amount", p.Amount)
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// RetrieveSession fetches the current state of a checkout session.
func (s *StripeService) RetrieveSession(ctx context.Context, sessionID string) (*SessionDetails, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: retrieve session: %w", err)
	}
	return sessionDetails(sess), nil
}

// VerifySessionPaid returns the session details only when the provider
// reports it paid. Any other status, including an unknown session id,
// yields ErrSessionUnpaid: unpaid is an expected state on the
// browser-return path, not a transport failure.
func (s *StripeService) VerifySessionPaid(ctx context.Context, sessionID string) (*SessionDetails, error) {
	details, err := s.RetrieveSession(ctx, sessionID)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return nil, fmt.Errorf("%w: unknown session %s", models.ErrSessionUnpaid, sessionID)
		}
		return nil, err
	}
	if !details.Paid {
		return nil, fmt.Errorf("%w: session %s", models.ErrSessionUnpaid, sessionID)
	}
	return details, nil
}

// WebhookEvent is a provider notification that passed signature
// verification. Session is populated for checkout session events.
type WebhookEvent struct {
	ID      string
	Type    string
	Session *SessionDetails
}

// ParseWebhookEvent verifies the payload signature before anything in it
// is trusted. A bad signature is permanent: the caller must reject the
// delivery with no side effects. The event API version is not checked:
// a webhook endpoint provisioned at a different Stripe API version must
// not be turned into a signature failure.
func (s *StripeService) ParseWebhookEvent(payload []byte, sigHeader string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
		Tolerance:                webhook.DefaultTolerance,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(out.Type, "checkout.session.") {
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("stripe: decode checkout session: %w", err)
		}
		out.Session = sessionDetails(&sess)
	}
	return out, nil
}

type checkoutItem struct {
	Name          string
	Description   string
	UnitAmount    int64
	Quantity      int64
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

func buildCheckoutParams(item checkoutItem) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(item.SuccessURL),
		CancelURL:          stripe.String(item.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(item.UnitAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(item.Name),
						Description: stripe.String(item.Description),
					},
				},
				Quantity: stripe.Int64(item.Quantity),
			},
		},
	}
	if item.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(item.CustomerEmail)
	}
	for k, v := range item.Metadata {
		if v != "" {
			params.AddMetadata(k, v)
		}
	}
	return params
}

func orderLineDescription(color, orderType string) string {
	label := color
	if len(label) > 1 {
		label = strings.ToUpper(label[:1]) + strings.ToLower(label[1:])
	}
	service := "delivered to your house, no spreading service"
	if orderType == models.OrderTypeSpread {
		service = "plus mulch spreading service"
	}
	return fmt.Sprintf("%s mulch %s", label, service)
}

func sessionDetails(sess *stripe.CheckoutSession) *SessionDetails {
	d := &SessionDetails{
		ID:          sess.ID,
		Paid:        sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal: sess.AmountTotal,
		Currency:    string(sess.Currency),
		Metadata:    sess.Metadata,
	}
	if sess.PaymentIntent != nil {
		d.PaymentIntentID = sess.PaymentIntent.ID
	}
	if sess.Customer != nil {
		d.CustomerID = sess.Customer.ID
	}
	d.CustomerEmail = sess.CustomerEmail
	if sess.CustomerDetails != nil {
		if sess.CustomerDetails.Email != "" {
			d.CustomerEmail = sess.CustomerDetails.Email
		}
		d.CustomerName = sess.CustomerDetails.Name
	}
	return d
}
