package models

// PaymentProvider tags which provider reference set a record carries.
type PaymentProvider string

const (
	ProviderNone   PaymentProvider = ""
	ProviderPayPal PaymentProvider = "paypal"
	ProviderStripe PaymentProvider = "stripe"
)

// PaymentRef is the provider reference attached to a paid record. Exactly
// one provider branch may be populated over a record's life: either the
// legacy PayPal set or the Stripe set, never both. The zero value means no
// payment reference has been written yet.
type PaymentRef struct {
	Provider PaymentProvider `json:"provider,omitempty"`

	PayPalOrderID       string `json:"paypal_order_id,omitempty"`
	PayPalPayerID       string `json:"paypal_payer_id,omitempty"`
	PayPalPaymentSource string `json:"paypal_payment_source,omitempty"`

	StripeSessionID       string `json:"stripe_session_id,omitempty"`
	StripePaymentIntentID string `json:"stripe_payment_intent_id,omitempty"`
	StripeCustomerID      string `json:"stripe_customer_id,omitempty"`
}

func NewStripeRef(sessionID, paymentIntentID, customerID string) PaymentRef {
	return PaymentRef{
		Provider:              ProviderStripe,
		StripeSessionID:       sessionID,
		StripePaymentIntentID: paymentIntentID,
		StripeCustomerID:      customerID,
	}
}

func NewPayPalRef(orderID, payerID, paymentSource string) PaymentRef {
	return PaymentRef{
		Provider:            ProviderPayPal,
		PayPalOrderID:       orderID,
		PayPalPayerID:       payerID,
		PayPalPaymentSource: paymentSource,
	}
}

func (p PaymentRef) IsZero() bool {
	return p.Provider == ProviderNone
}
