package models

import (
	"time"
)

// Donation is a one-off contribution. Unlike orders, a donation record is
// created by the payment confirmation itself: there is no PENDING stage,
// the Stripe session id acts as the natural idempotency key.
type Donation struct {
	ID             string     `json:"id"`
	Amount         int64      `json:"amount"` // minor currency units (cents)
	DonorGivenName string     `json:"donor_given_name,omitempty"`
	DonorSurname   string     `json:"donor_surname,omitempty"`
	DonorEmail     string     `json:"donor_email,omitempty"`
	Payment        PaymentRef `json:"payment"`
	CreatedAt      time.Time  `json:"created_at"`
}
