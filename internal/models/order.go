package models

import (
	"time"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusPaid      OrderStatus = "PAID"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusFulfilled OrderStatus = "FULFILLED"
	StatusRefunded  OrderStatus = "REFUNDED"
)

// transitions holds the legal status edges. PENDING records can be paid or
// cancelled; paid records move forward only. CANCELLED and REFUNDED are
// terminal.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusFulfilled, StatusRefunded},
	StatusFulfilled: {StatusRefunded},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCancelled, StatusFulfilled, StatusRefunded:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Settled reports whether the record counts toward collected revenue.
func (s OrderStatus) Settled() bool {
	return s == StatusPaid || s == StatusFulfilled
}

const (
	OrderTypeDelivery = "DELIVERY"
	OrderTypeSpread   = "SPREAD"
)

const (
	ColorBlack = "BLACK"
	ColorBrown = "BROWN"
)

type MulchOrder struct {
	ID                    string      `json:"id"`
	CustomerID            string      `json:"customer_id"`
	Quantity              int         `json:"quantity"`
	PricePerUnit          int64       `json:"price_per_unit"` // minor currency units (cents)
	Color                 string      `json:"color"`
	OrderType             string      `json:"order_type"`
	StreetAddress         string      `json:"street_address"`
	Neighborhood          string      `json:"neighborhood"`
	Note                  string      `json:"note,omitempty"`
	ReferralSource        string      `json:"referral_source,omitempty"`
	ReferralSourceDetails string      `json:"referral_source_details,omitempty"`
	Status                OrderStatus `json:"status"`
	Payment               PaymentRef  `json:"payment"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             *time.Time  `json:"updated_at,omitempty"`

	Customer *Customer `json:"customer,omitempty"`
}

// Total is the amount owed for the order in cents.
func (o MulchOrder) Total() int64 {
	return int64(o.Quantity) * o.PricePerUnit
}
