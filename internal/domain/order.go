package domain

import "time"

// PaymentStatus is the order payment state. Transitions happen only through
// ApplyProviderStatus, driven by the verification handler.
type PaymentStatus string

// FulfillmentStatus tracks downstream fulfillment progress.
type FulfillmentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"

	FulfillmentUnfulfilled FulfillmentStatus = "unfulfilled"
	FulfillmentProcessing  FulfillmentStatus = "processing"
)

// Address stores a shipping or billing address as submitted at checkout.
// Persisted as a JSONB blob on the order.
type Address struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
	Phone        string `json:"phone,omitempty"`
}

// Order is a persisted checkout attempt. Monetary fields are decimal
// currency units; the DB column is NUMERIC(10,2).
type Order struct {
	ID                string            `json:"id"`
	OrderNumber       string            `json:"order_number"`
	CustomerID        string            `json:"customer_id"`
	Subtotal          float64           `json:"subtotal"`
	TaxAmount         float64           `json:"tax_amount"`
	ShippingAmount    float64           `json:"shipping_amount"`
	TotalAmount       float64           `json:"total_amount"`
	Currency          string            `json:"currency"`
	PaymentStatus     PaymentStatus     `json:"payment_status"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillment_status"`
	ShippingAddress   Address           `json:"shipping_address"`
	BillingAddress    Address           `json:"billing_address"`
	CheckoutSessionID string            `json:"stripe_session_id,omitempty"`
	PaymentIntentID   string            `json:"stripe_payment_intent_id,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// OrderItem is a denormalized cart snapshot line. Immutable after creation.
type OrderItem struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	ProductID    *string   `json:"product_id,omitempty"`
	ProductName  string    `json:"product_name"`
	ProductImage string    `json:"product_image,omitempty"`
	Quantity     int       `json:"quantity"`
	PriceEach    float64   `json:"price_each"`
	CreatedAt    time.Time `json:"created_at"`
}

// FulfillmentItem joins an order item with its product's supplier metadata,
// fetched once an order is paid to prepare supplier dispatch.
type FulfillmentItem struct {
	OrderItem
	SupplierProductID string `json:"supplier_product_id,omitempty"`
	SupplierName      string `json:"supplier_name,omitempty"`
	SupplierSlug      string `json:"supplier_slug,omitempty"`
}

// ApplyProviderStatus maps a payment provider session status onto the order
// state machine: pending -> paid (fulfillment moves to processing) or
// pending -> failed (fulfillment untouched). Any other provider status, or a
// status reported for an already settled order, leaves both states unchanged.
func ApplyProviderStatus(pay PaymentStatus, ful FulfillmentStatus, provider string) (PaymentStatus, FulfillmentStatus) {
	if pay != PaymentPending {
		return pay, ful
	}
	switch provider {
	case "paid":
		return PaymentPaid, FulfillmentProcessing
	case "unpaid":
		return PaymentFailed, ful
	default:
		return pay, ful
	}
}
