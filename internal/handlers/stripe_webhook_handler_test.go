package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v74/webhook"

	"mulchBack/internal/models"
	"mulchBack/internal/services"
)

const testWebhookSecret = "whsec_test_secret"

func signWebhookPayload(payload []byte, secret string, at time.Time) string {
	sig := webhook.ComputeSignature(at, payload, secret)
	return fmt.Sprintf("t=%d,v1=%x", at.Unix(), sig)
}

// fakeOrderStore backs the webhook tests with the same conditional write
// semantics as the SQL repository.
type fakeOrderStore struct {
	mu         sync.Mutex
	orders     map[string]models.MulchOrder
	paidWrites int

	// markPaidErr is returned by the next MarkOrderPaid call, then cleared.
	markPaidErr error
}

func (s *fakeOrderStore) CreateOrder(ctx context.Context, order models.MulchOrder, identity models.CustomerIdentity) (models.MulchOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order.ID = fmt.Sprintf("ord-%d", len(s.orders)+1)
	order.Status = models.StatusPending
	order.Customer = &models.Customer{Name: identity.Name, Email: identity.Email, Phone: identity.Phone}
	s.orders[order.ID] = order
	return order, nil
}

func (s *fakeOrderStore) GetOrderByID(ctx context.Context, id string) (models.MulchOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return models.MulchOrder{}, models.ErrOrderNotFound
	}
	return order, nil
}

func (s *fakeOrderStore) GetOrderBySessionID(ctx context.Context, sessionID string) (models.MulchOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, order := range s.orders {
		if order.Payment.StripeSessionID == sessionID {
			return order, nil
		}
	}
	return models.MulchOrder{}, models.ErrOrderNotFound
}

func (s *fakeOrderStore) MarkOrderPaid(ctx context.Context, id string, ref models.PaymentRef) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markPaidErr != nil {
		err := s.markPaidErr
		s.markPaidErr = nil
		return false, err
	}
	order, ok := s.orders[id]
	if !ok || order.Status != models.StatusPending {
		return false, nil
	}
	order.Status = models.StatusPaid
	order.Payment = ref
	s.orders[id] = order
	s.paidWrites++
	return true, nil
}

func (s *fakeOrderStore) CancelOrder(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok || order.Status != models.StatusPending {
		return false, nil
	}
	order.Status = models.StatusCancelled
	s.orders[id] = order
	return true, nil
}

func (s *fakeOrderStore) UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	s.orders[id] = order
	return true, nil
}

type fakeDonationStore struct {
	mu        sync.Mutex
	donations map[string]models.Donation
}

func (s *fakeDonationStore) CreateDonation(ctx context.Context, d models.Donation) (models.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.donations[d.Payment.StripeSessionID]; ok {
		return existing, nil
	}
	d.ID = fmt.Sprintf("don-%d", len(s.donations)+1)
	s.donations[d.Payment.StripeSessionID] = d
	return d, nil
}

func (s *fakeDonationStore) GetDonationBySessionID(ctx context.Context, sessionID string) (models.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[sessionID]
	if !ok {
		return models.Donation{}, models.ErrDonationNotFound
	}
	return d, nil
}

type webhookFixture struct {
	handler   *StripeWebhookHandler
	orders    *fakeOrderStore
	donations *fakeDonationStore
}

func newWebhookFixture(t *testing.T, events *services.EventCache) *webhookFixture {
	t.Helper()
	stripeSvc, err := services.NewStripeService(services.StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
	})
	if err != nil {
		t.Fatalf("NewStripeService: %v", err)
	}
	orders := &fakeOrderStore{orders: map[string]models.MulchOrder{}}
	donations := &fakeDonationStore{donations: map[string]models.Donation{}}
	return &webhookFixture{
		handler: &StripeWebhookHandler{
			Stripe: stripeSvc,
			Events: events,
			Lifecycle: &services.OrderLifecycleService{
				Orders:    orders,
				Donations: donations,
			},
		},
		orders:    orders,
		donations: donations,
	}
}

func (f *webhookFixture) seedOrder(id string, status models.OrderStatus) {
	f.orders.orders[id] = models.MulchOrder{
		ID:           id,
		Quantity:     10,
		PricePerUnit: 700,
		Status:       status,
	}
}

func (f *webhookFixture) deliver(t *testing.T, payload []byte, sig string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", bytes.NewReader(payload))
	if sig != "" {
		req.Header.Set("Stripe-Signature", sig)
	}
	rec := httptest.NewRecorder()
	f.handler.HandleWebhook(rec, req)
	return rec
}

func orderCompletedPayload(eventID, sessionID, orderID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"api_version": "2022-11-15",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": %q,
				"object": "checkout.session",
				"payment_status": "paid",
				"amount_total": 7000,
				"currency": "usd",
				"payment_intent": "pi_1",
				"metadata": {"type": "order", "orderId": %q}
			}
		}
	}`, eventID, sessionID, orderID))
}

func donationCompletedPayload(eventID, sessionID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"api_version": "2022-11-15",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": %q,
				"object": "checkout.session",
				"payment_status": "paid",
				"amount_total": 5000,
				"currency": "usd",
				"payment_intent": "pi_don_1",
				"customer_details": {"email": "jane@example.com", "name": "Jane Doe"},
				"metadata": {"type": "donation"}
			}
		}
	}`, eventID, sessionID))
}

func TestWebhookMissingSignature(t *testing.T) {
	f := newWebhookFixture(t, nil)
	rec := f.deliver(t, orderCompletedPayload("evt_1", "cs_1", "ord-1"), "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookInvalidSignature(t *testing.T) {
	f := newWebhookFixture(t, nil)
	f.seedOrder("ord-1", models.StatusPending)

	payload := orderCompletedPayload("evt_1", "cs_1", "ord-1")
	rec := f.deliver(t, payload, signWebhookPayload(payload, "whsec_wrong", time.Now()))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if order := f.orders.orders["ord-1"]; order.Status != models.StatusPending {
		t.Errorf("unsigned delivery must have no side effects, order is %s", order.Status)
	}
}

func TestWebhookOrderCompleted(t *testing.T) {
	f := newWebhookFixture(t, nil)
	f.seedOrder("ord-1", models.StatusPending)

	payload := orderCompletedPayload("evt_1", "cs_1", "ord-1")
	rec := f.deliver(t, payload, signWebhookPayload(payload, testWebhookSecret, time.Now()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	order := f.orders.orders["ord-1"]
	if order.Status != models.StatusPaid {
		t.Errorf("order status = %s, want PAID", order.Status)
	}
	if order.Payment.StripeSessionID != "cs_1" || order.Payment.StripePaymentIntentID != "pi_1" {
		t.Errorf("payment ref mismatch: %+v", order.Payment)
	}
}

func TestWebhookDuplicateDelivery(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	f := newWebhookFixture(t, services.NewEventCache(rdb, time.Hour))
	f.seedOrder("ord-1", models.StatusPending)

	payload := orderCompletedPayload("evt_1", "cs_1", "ord-1")
	sig := signWebhookPayload(payload, testWebhookSecret, time.Now())

	if rec := f.deliver(t, payload, sig); rec.Code != http.StatusOK {
		t.Fatalf("first delivery status = %d", rec.Code)
	}
	if rec := f.deliver(t, payload, sig); rec.Code != http.StatusOK {
		t.Fatalf("redelivery status = %d, want 200", rec.Code)
	}
	if f.orders.paidWrites != 1 {
		t.Errorf("payment fields written %d times, want 1", f.orders.paidWrites)
	}
}

func TestWebhookRetryAfterProcessingError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	f := newWebhookFixture(t, services.NewEventCache(rdb, time.Hour))
	f.seedOrder("ord-1", models.StatusPending)
	f.orders.markPaidErr = errors.New("db connection reset")

	payload := orderCompletedPayload("evt_1", "cs_1", "ord-1")
	sig := signWebhookPayload(payload, testWebhookSecret, time.Now())

	// Transient store failure: the delivery must be reported as failed so
	// the provider retries it.
	if rec := f.deliver(t, payload, sig); rec.Code != http.StatusInternalServerError {
		t.Fatalf("failed delivery status = %d, want 500", rec.Code)
	}
	if order := f.orders.orders["ord-1"]; order.Status != models.StatusPending {
		t.Fatalf("order mutated by failed delivery: %s", order.Status)
	}

	// The retry of the same event id must be processed, not dropped as a
	// duplicate of the failed attempt.
	if rec := f.deliver(t, payload, sig); rec.Code != http.StatusOK {
		t.Fatalf("retry status = %d, want 200", rec.Code)
	}
	if order := f.orders.orders["ord-1"]; order.Status != models.StatusPaid {
		t.Errorf("retry not applied, order is %s, want PAID", order.Status)
	}
}

func TestWebhookCancelledOrderAcknowledged(t *testing.T) {
	f := newWebhookFixture(t, nil)
	f.seedOrder("ord-1", models.StatusCancelled)

	payload := orderCompletedPayload("evt_1", "cs_1", "ord-1")
	rec := f.deliver(t, payload, signWebhookPayload(payload, testWebhookSecret, time.Now()))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 so the provider stops redelivering", rec.Code)
	}
	if order := f.orders.orders["ord-1"]; order.Status != models.StatusCancelled {
		t.Errorf("cancelled order must not be revived, got %s", order.Status)
	}
}

func TestWebhookUnknownOrderAcknowledged(t *testing.T) {
	f := newWebhookFixture(t, nil)

	payload := orderCompletedPayload("evt_1", "cs_1", "ord-missing")
	rec := f.deliver(t, payload, signWebhookPayload(payload, testWebhookSecret, time.Now()))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestWebhookDonationCompleted(t *testing.T) {
	f := newWebhookFixture(t, nil)

	payload := donationCompletedPayload("evt_1", "cs_don_1")
	rec := f.deliver(t, payload, signWebhookPayload(payload, testWebhookSecret, time.Now()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	donation, ok := f.donations.donations["cs_don_1"]
	if !ok {
		t.Fatal("donation not recorded")
	}
	if donation.Amount != 5000 || donation.DonorGivenName != "Jane" || donation.DonorSurname != "Doe" {
		t.Errorf("donation record mismatch: %+v", donation)
	}
}

func TestWebhookIgnoredEventType(t *testing.T) {
	f := newWebhookFixture(t, nil)

	payload := []byte(`{"id": "evt_9", "type": "payment_intent.created", "data": {"object": {"id": "pi_9"}}}`)
	rec := f.deliver(t, payload, signWebhookPayload(payload, testWebhookSecret, time.Now()))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
