package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type productSeed struct {
	SupplierProductID string
	Name              string
	Description       string
	Image             string
	Price             float64
	Currency          string
}

// Apply inserts basic seed data for manual testing. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	supplierID, err := ensureSupplier(ctx, pool, "Demo Supplier", "demo-supplier")
	if err != nil {
		return fmt.Errorf("ensure supplier: %w", err)
	}

	products := []productSeed{
		{
			SupplierProductID: "DEMO-TSHIRT",
			Name:              "Demo T-Shirt",
			Description:       "Soft cotton tee for demo purposes",
			Image:             "https://placehold.co/400x400?text=Tee",
			Price:             19.99,
			Currency:          "USD",
		},
		{
			SupplierProductID: "DEMO-MUG",
			Name:              "Demo Mug",
			Description:       "Ceramic mug with demo logo",
			Image:             "https://placehold.co/400x400?text=Mug",
			Price:             12.99,
			Currency:          "USD",
		},
		{
			SupplierProductID: "DEMO-HEADSET",
			Name:              "Demo Headset",
			Description:       "USB headset for the call launcher demo",
			Image:             "https://placehold.co/400x400?text=Headset",
			Price:             54.99,
			Currency:          "USD",
		},
	}

	for _, p := range products {
		if err := upsertProduct(ctx, pool, supplierID, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SupplierProductID, err)
		}
	}

	return nil
}

func ensureSupplier(ctx context.Context, pool *pgxpool.Pool, name, slug string) (string, error) {
	const q = `
INSERT INTO suppliers (name, slug)
VALUES ($1, $2)
ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
RETURNING id::text
`
	var id string
	if err := pool.QueryRow(ctx, q, name, slug).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, supplierID string, p productSeed) error {
	const q = `
INSERT INTO products (supplier_id, supplier_product_id, name, description, image, price, currency)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (supplier_id, supplier_product_id) DO UPDATE SET
    name        = EXCLUDED.name,
    description = EXCLUDED.description,
    image       = EXCLUDED.image,
    price       = EXCLUDED.price,
    currency    = EXCLUDED.currency
`
	_, err := pool.Exec(ctx, q, supplierID, p.SupplierProductID, p.Name, p.Description, p.Image, p.Price, p.Currency)
	return err
}
