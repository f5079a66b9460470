package domain

import "time"

// Customer is a checkout customer keyed by email. Rows are upserted at
// checkout time and never deleted.
type Customer struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	FirstName         string    `json:"first_name,omitempty"`
	LastName          string    `json:"last_name,omitempty"`
	Phone             string    `json:"phone,omitempty"`
	IsGuest           bool      `json:"is_guest"`
	PaymentCustomerID string    `json:"stripe_customer_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
