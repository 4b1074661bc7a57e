package models

type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CustomerIdentity is the exact-match tuple used to de-duplicate customers
// at order creation. An order submission with the same name, email and
// phone reuses the existing customer row; anything else creates a new one.
type CustomerIdentity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
