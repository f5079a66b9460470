package domain

import "time"

// Product is a catalog entry sourced from a dropship supplier.
type Product struct {
	ID                string    `json:"id"`
	SupplierID        *string   `json:"supplier_id,omitempty"`
	SupplierProductID string    `json:"supplier_product_id,omitempty"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	Image             string    `json:"image,omitempty"`
	Price             float64   `json:"price"`
	Currency          string    `json:"currency"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
}

// Supplier is a fulfillment source. APIConfig holds provider-specific
// settings for the (not yet implemented) dispatch step.
type Supplier struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Slug      string                 `json:"slug"`
	APIConfig map[string]interface{} `json:"api_config,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
