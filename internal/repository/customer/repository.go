package customer

import (
	"context"

	"voiceshop/internal/domain"
)

// UpsertInput carries the fields written at checkout time.
type UpsertInput struct {
	Email             string
	FirstName         string
	LastName          string
	Phone             string
	IsGuest           bool
	PaymentCustomerID string
}

// Repository persists and fetches checkout customers.
type Repository interface {
	// Upsert inserts a customer keyed by email, updating contact fields on
	// conflict, and returns the stored row.
	Upsert(ctx context.Context, in UpsertInput) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
}
