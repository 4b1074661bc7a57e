package models

import (
	"errors"
)

var ErrOrderNotFound = errors.New("order not found")
var ErrDonationNotFound = errors.New("donation not found")
var ErrCustomerNotFound = errors.New("customer not found")
var (
	ErrNoRecord            = errors.New("models: no matching record found")
	ErrInvalidTransition   = errors.New("models: status transition not allowed")
	ErrCorrelationMismatch = errors.New("models: payment confirmation does not match record")
	ErrSessionUnpaid       = errors.New("models: checkout session is not paid")
	ErrOrdersClosed        = errors.New("models: mulch orders are not being accepted")
	ErrPaymentRefConflict  = errors.New("models: payment reference already set")
	ErrInvalidCredentials  = errors.New("models: invalid credentials")
	ErrValidation          = errors.New("models: invalid input")
)
