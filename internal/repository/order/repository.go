package order

import (
	"context"

	"voiceshop/internal/domain"
)

// ItemInput is one cart line captured onto the order.
type ItemInput struct {
	ProductID    *string
	ProductName  string
	ProductImage string
	Quantity     int
	PriceEach    float64
}

// CreateInput carries everything needed to insert an order with its items.
type CreateInput struct {
	CustomerID      string
	Subtotal        float64
	TaxAmount       float64
	ShippingAmount  float64
	TotalAmount     float64
	Currency        string
	ShippingAddress domain.Address
	BillingAddress  domain.Address
	Items           []ItemInput
}

// Repository persists orders and their line items.
type Repository interface {
	// Create inserts the order row and one row per item in a single
	// transaction and returns the stored order.
	Create(ctx context.Context, in CreateInput) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// AttachCheckoutSession stores the hosted checkout session id after the
	// payment provider issued one.
	AttachCheckoutSession(ctx context.Context, orderID, sessionID string) error
	// UpdatePaymentStatus applies the verified payment outcome and returns
	// the updated order.
	UpdatePaymentStatus(ctx context.Context, orderID string, pay domain.PaymentStatus, ful domain.FulfillmentStatus, paymentIntentID string) (*domain.Order, error)
	// FulfillmentItems fetches the order's items joined with product and
	// supplier metadata for downstream dispatch.
	FulfillmentItems(ctx context.Context, orderID string) ([]domain.FulfillmentItem, error)
}
