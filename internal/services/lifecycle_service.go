package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"mulchBack/internal/config"
	"mulchBack/internal/models"
)

// OrderStore is the slice of the order repository the lifecycle needs.
// MarkOrderPaid and CancelOrder are conditional writes: they report false
// when the record was not in the state the transition requires.
type OrderStore interface {
	CreateOrder(ctx context.Context, order models.MulchOrder, identity models.CustomerIdentity) (models.MulchOrder, error)
	GetOrderByID(ctx context.Context, id string) (models.MulchOrder, error)
	GetOrderBySessionID(ctx context.Context, sessionID string) (models.MulchOrder, error)
	MarkOrderPaid(ctx context.Context, id string, ref models.PaymentRef) (bool, error)
	CancelOrder(ctx context.Context, id string) (bool, error)
	UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) (bool, error)
}

type DonationStore interface {
	CreateDonation(ctx context.Context, d models.Donation) (models.Donation, error)
	GetDonationBySessionID(ctx context.Context, sessionID string) (models.Donation, error)
}

// PaymentGateway is the hosted-checkout provider as the lifecycle sees it.
type PaymentGateway interface {
	CreateOrderCheckoutSession(ctx context.Context, order models.MulchOrder, successURL, cancelURL string) (*CheckoutSession, error)
	CreateDonationCheckoutSession(ctx context.Context, p DonationCheckoutParams) (*CheckoutSession, error)
	VerifySessionPaid(ctx context.Context, sessionID string) (*SessionDetails, error)
}

// OrderLifecycleService owns every status transition of orders and
// donations. Both confirmation paths (webhook, browser return) converge
// here, so the idempotency and correlation rules live in one place.
type OrderLifecycleService struct {
	Orders    OrderStore
	Donations DonationStore
	Gateway   PaymentGateway
	Ward      config.WardConfig
	BaseURL   string
	Logger    *slog.Logger
}

func (s *OrderLifecycleService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

type CreateOrderInput struct {
	Quantity              int    `json:"quantity"`
	Color                 string `json:"color"`
	ShouldSpread          bool   `json:"should_spread"`
	Note                  string `json:"note"`
	Neighborhood          string `json:"neighborhood"`
	Street                string `json:"street"`
	Name                  string `json:"name"`
	Email                 string `json:"email"`
	Phone                 string `json:"phone"`
	ReferralSource        string `json:"referral_source"`
	ReferralSourceDetails string `json:"referral_source_details"`
}

func (in CreateOrderInput) validate(ward config.WardConfig) error {
	switch {
	case in.Quantity < 1:
		return fmt.Errorf("%w: quantity must be at least 1", models.ErrValidation)
	case in.Color != models.ColorBlack && in.Color != models.ColorBrown:
		return fmt.Errorf("%w: unknown color %q", models.ErrValidation, in.Color)
	case !ward.KnownNeighborhood(in.Neighborhood):
		return fmt.Errorf("%w: unknown neighborhood %q", models.ErrValidation, in.Neighborhood)
	case strings.TrimSpace(in.Street) == "":
		return fmt.Errorf("%w: street address is required", models.ErrValidation)
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", models.ErrValidation)
	case strings.TrimSpace(in.Email) == "" || !strings.Contains(in.Email, "@"):
		return fmt.Errorf("%w: valid email is required", models.ErrValidation)
	case len(strings.TrimSpace(in.Phone)) < 10:
		return fmt.Errorf("%w: phone must be at least 10 digits", models.ErrValidation)
	case in.ReferralSource == "OTHER" && strings.TrimSpace(in.ReferralSourceDetails) == "":
		return fmt.Errorf("%w: please specify how you heard about us", models.ErrValidation)
	}
	return nil
}

// CreateOrder validates the submission and persists a PENDING order. The
// unit price is always taken from the ward config on the server side,
// never from the client.
func (s *OrderLifecycleService) CreateOrder(ctx context.Context, in CreateOrderInput) (models.MulchOrder, error) {
	if !s.Ward.AcceptingOrders {
		return models.MulchOrder{}, models.ErrOrdersClosed
	}
	if err := in.validate(s.Ward); err != nil {
		return models.MulchOrder{}, err
	}

	orderType := models.OrderTypeDelivery
	price := s.Ward.PriceDelivery
	if in.ShouldSpread {
		orderType = models.OrderTypeSpread
		price = s.Ward.PriceSpread
	}

	order := models.MulchOrder{
		Quantity:              in.Quantity,
		PricePerUnit:          price,
		Color:                 in.Color,
		OrderType:             orderType,
		StreetAddress:         strings.TrimSpace(in.Street),
		Neighborhood:          in.Neighborhood,
		Note:                  strings.TrimSpace(in.Note),
		ReferralSource:        in.ReferralSource,
		ReferralSourceDetails: strings.TrimSpace(in.ReferralSourceDetails),
	}
	identity := models.CustomerIdentity{
		Name:  strings.TrimSpace(in.Name),
		Email: strings.TrimSpace(in.Email),
		Phone: strings.TrimSpace(in.Phone),
	}
	return s.Orders.CreateOrder(ctx, order, identity)
}

func (s *OrderLifecycleService) GetOrder(ctx context.Context, id string) (models.MulchOrder, error) {
	return s.Orders.GetOrderByID(ctx, id)
}

// CreateOrderCheckout opens a hosted checkout for a PENDING order and
// returns the redirect URL. The success URL carries the session id
// placeholder so the return handler can verify the outcome.
func (s *OrderLifecycleService) CreateOrderCheckout(ctx context.Context, orderID string) (*CheckoutSession, error) {
	order, err := s.Orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: order %s is %s, not PENDING", models.ErrInvalidTransition, order.ID, order.Status)
	}

	successURL := fmt.Sprintf("%s/fundraisers/mulch/orders/%s?session_id={CHECKOUT_SESSION_ID}", s.BaseURL, order.ID)
	cancelURL := fmt.Sprintf("%s/fundraisers/mulch/orders/%s?payment=cancelled", s.BaseURL, order.ID)
	return s.Gateway.CreateOrderCheckoutSession(ctx, order, successURL, cancelURL)
}

type DonationCheckoutInput struct {
	Amount         int64  `json:"amount"` // cents
	DonorEmail     string `json:"donor_email"`
	DonorGivenName string `json:"donor_given_name"`
	DonorSurname   string `json:"donor_surname"`
}

func (s *OrderLifecycleService) CreateDonationCheckout(ctx context.Context, in DonationCheckoutInput) (*CheckoutSession, error) {
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", models.ErrValidation)
	}
	return s.Gateway.CreateDonationCheckoutSession(ctx, DonationCheckoutParams{
		Amount:         in.Amount,
		DonorEmail:     strings.TrimSpace(in.DonorEmail),
		DonorGivenName: strings.TrimSpace(in.DonorGivenName),
		DonorSurname:   strings.TrimSpace(in.DonorSurname),
		SuccessURL:     s.BaseURL + "/fundraisers/mulch/donate/thank-you?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:      s.BaseURL + "/fundraisers/mulch/donate",
	})
}

// CancelOrder moves a PENDING order to CANCELLED. Cancelling an already
// cancelled order is a no-op; cancelling a paid or fulfilled order is
// rejected so a completed purchase cannot be voided from the order page.
func (s *OrderLifecycleService) CancelOrder(ctx context.Context, id string) (models.MulchOrder, error) {
	ok, err := s.Orders.CancelOrder(ctx, id)
	if err != nil {
		return models.MulchOrder{}, err
	}
	order, err := s.Orders.GetOrderByID(ctx, id)
	if err != nil {
		return models.MulchOrder{}, err
	}
	if ok || order.Status == models.StatusCancelled {
		return order, nil
	}
	return models.MulchOrder{}, fmt.Errorf("%w: cannot cancel order in status %s", models.ErrInvalidTransition, order.Status)
}

// MarkOrderPaid applies a verified payment confirmation to an order.
//
// orderID may be empty when the caller only has the confirmation itself
// (webhook path); the target is then taken from the correlation metadata,
// or, for replayed confirmations that carry none, from the stored session
// id. When both the caller and the metadata name a record they must agree,
// otherwise the confirmation is rejected without touching anything.
//
// The transition is idempotent: an order that is already PAID (or further
// along) is returned unchanged before any write, so duplicate webhook
// deliveries and the webhook/browser-return race cannot double-apply or
// clobber the payment reference.
func (s *OrderLifecycleService) MarkOrderPaid(ctx context.Context, orderID string, details *SessionDetails) (models.MulchOrder, error) {
	if t := details.Metadata[MetaKeyType]; t != "" && t != MetaTypeOrder {
		return models.MulchOrder{}, fmt.Errorf("%w: confirmation is for %q, not an order", models.ErrCorrelationMismatch, t)
	}

	metaOrderID := details.Metadata[MetaKeyOrderID]
	if orderID != "" && metaOrderID != "" && orderID != metaOrderID {
		s.logger().Warn("payment confirmation for a different order rejected",
			"op", "MarkOrderPaid", "order_id", orderID, "metadata_order_id", metaOrderID, "session_id", details.ID)
		return models.MulchOrder{}, fmt.Errorf("%w: confirmation references order %s", models.ErrCorrelationMismatch, metaOrderID)
	}

	target := orderID
	if target == "" {
		target = metaOrderID
	}

	var order models.MulchOrder
	var err error
	if target != "" {
		order, err = s.Orders.GetOrderByID(ctx, target)
	} else {
		// No internal id anywhere in the confirmation: fall back to the
		// session id written at payment time (redelivery of old events).
		order, err = s.Orders.GetOrderBySessionID(ctx, details.ID)
	}
	if err != nil {
		return models.MulchOrder{}, err
	}

	switch order.Status {
	case models.StatusPaid, models.StatusFulfilled, models.StatusRefunded:
		// Already confirmed; short-circuit before any field write.
		return order, nil
	case models.StatusCancelled:
		return models.MulchOrder{}, fmt.Errorf("%w: order %s was cancelled before payment confirmation", models.ErrInvalidTransition, order.ID)
	}

	ok, err := s.Orders.MarkOrderPaid(ctx, order.ID, details.Ref())
	if err != nil {
		return models.MulchOrder{}, err
	}
	updated, err := s.Orders.GetOrderByID(ctx, order.ID)
	if err != nil {
		return models.MulchOrder{}, err
	}
	if !ok {
		// Lost the race to the other confirmation path. Fine as long as
		// the record ended up paid.
		if updated.Status.Settled() || updated.Status == models.StatusRefunded {
			return updated, nil
		}
		return models.MulchOrder{}, fmt.Errorf("%w: order %s moved to %s during confirmation", models.ErrInvalidTransition, order.ID, updated.Status)
	}
	s.logger().Info("order paid", "op", "MarkOrderPaid", "order_id", order.ID, "session_id", details.ID, "total", updated.Total())
	return updated, nil
}

// RecordDonation creates the donation record for a paid session. The
// session id is the idempotency key: recording the same session twice
// returns the first record.
func (s *OrderLifecycleService) RecordDonation(ctx context.Context, details *SessionDetails) (models.Donation, error) {
	if t := details.Metadata[MetaKeyType]; t != "" && t != MetaTypeDonation {
		return models.Donation{}, fmt.Errorf("%w: confirmation is for %q, not a donation", models.ErrCorrelationMismatch, t)
	}

	given, surname := splitName(details.CustomerName)
	if given == "" {
		given = details.Metadata[MetaKeyGivenName]
	}
	if surname == "" {
		surname = details.Metadata[MetaKeySurname]
	}
	email := details.CustomerEmail
	if email == "" {
		email = details.Metadata[MetaKeyEmail]
	}

	donation, err := s.Donations.CreateDonation(ctx, models.Donation{
		Amount:         details.AmountTotal,
		DonorGivenName: given,
		DonorSurname:   surname,
		DonorEmail:     email,
		Payment:        details.Ref(),
	})
	if err != nil {
		return models.Donation{}, err
	}
	s.logger().Info("donation recorded", "op", "RecordDonation", "donation_id", donation.ID, "session_id", details.ID, "amount", donation.Amount)
	return donation, nil
}

// HandleCheckoutCompleted routes a verified checkout completion by its
// correlation type. This is the authoritative confirmation path.
func (s *OrderLifecycleService) HandleCheckoutCompleted(ctx context.Context, details *SessionDetails) error {
	switch details.Metadata[MetaKeyType] {
	case MetaTypeDonation:
		_, err := s.RecordDonation(ctx, details)
		return err
	case MetaTypeOrder:
		_, err := s.MarkOrderPaid(ctx, "", details)
		return err
	default:
		s.logger().Warn("checkout session with unknown correlation type", "session_id", details.ID, "type", details.Metadata[MetaKeyType])
		return nil
	}
}

// ConfirmOrderReturn is the opportunistic confirmation path: the buyer's
// browser came back from checkout with a session id. pending=true means
// the provider does not consider the session paid yet and the webhook
// remains responsible for eventual confirmation.
func (s *OrderLifecycleService) ConfirmOrderReturn(ctx context.Context, orderID, sessionID string) (order models.MulchOrder, pending bool, err error) {
	order, err = s.Orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return models.MulchOrder{}, false, err
	}
	if order.Status.Settled() || order.Status == models.StatusRefunded {
		// Webhook got here first; no need to ask the provider.
		return order, false, nil
	}

	details, err := s.Gateway.VerifySessionPaid(ctx, sessionID)
	if errors.Is(err, models.ErrSessionUnpaid) {
		return order, true, nil
	}
	if err != nil {
		return models.MulchOrder{}, false, err
	}
	order, err = s.MarkOrderPaid(ctx, orderID, details)
	if err != nil {
		return models.MulchOrder{}, false, err
	}
	return order, false, nil
}

// ConfirmDonationReturn mirrors ConfirmOrderReturn for donations: make
// sure the record exists if the session is paid, otherwise report pending.
func (s *OrderLifecycleService) ConfirmDonationReturn(ctx context.Context, sessionID string) (donation models.Donation, pending bool, err error) {
	donation, err = s.Donations.GetDonationBySessionID(ctx, sessionID)
	if err == nil {
		return donation, false, nil
	}
	if !errors.Is(err, models.ErrDonationNotFound) {
		return models.Donation{}, false, err
	}

	details, err := s.Gateway.VerifySessionPaid(ctx, sessionID)
	if errors.Is(err, models.ErrSessionUnpaid) {
		return models.Donation{}, true, nil
	}
	if err != nil {
		return models.Donation{}, false, err
	}
	donation, err = s.RecordDonation(ctx, details)
	if err != nil {
		return models.Donation{}, false, err
	}
	return donation, false, nil
}

// SetOrderStatus is the admin-driven transition (fulfillment, refunds).
// It goes through the same edge table as everything else.
func (s *OrderLifecycleService) SetOrderStatus(ctx context.Context, id string, to models.OrderStatus) (models.MulchOrder, error) {
	if !to.Valid() {
		return models.MulchOrder{}, fmt.Errorf("%w: unknown status %q", models.ErrValidation, to)
	}
	order, err := s.Orders.GetOrderByID(ctx, id)
	if err != nil {
		return models.MulchOrder{}, err
	}
	if order.Status == to {
		return order, nil
	}
	if !order.Status.CanTransitionTo(to) {
		return models.MulchOrder{}, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, order.Status, to)
	}
	ok, err := s.Orders.UpdateOrderStatus(ctx, id, order.Status, to)
	if err != nil {
		return models.MulchOrder{}, err
	}
	if !ok {
		return models.MulchOrder{}, fmt.Errorf("%w: order %s changed concurrently", models.ErrInvalidTransition, id)
	}
	return s.Orders.GetOrderByID(ctx, id)
}

func splitName(full string) (given, surname string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
