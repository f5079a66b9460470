package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"voiceshop/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

// newOrderNumber generates a human-readable order number from a uuid
// fragment, e.g. ORD-1A2B3C4D. Uniqueness is enforced by the orders table.
func newOrderNumber() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(raw[:8])
}

const orderColumns = `
id::text, order_number, customer_id::text, subtotal, tax_amount, shipping_amount, total_amount,
currency, payment_status, fulfillment_status, shipping_address, billing_address,
stripe_session_id, stripe_payment_intent_id, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	shipJSON, err := json.Marshal(in.ShippingAddress)
	if err != nil {
		return nil, err
	}
	billJSON, err := json.Marshal(in.BillingAddress)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertOrder = `
INSERT INTO orders (
    order_number, customer_id, subtotal, tax_amount, shipping_amount, total_amount,
    currency, shipping_address, billing_address
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns

	o, err := r.scanOrder(tx.QueryRow(
		ctx,
		insertOrder,
		newOrderNumber(),
		in.CustomerID,
		in.Subtotal,
		in.TaxAmount,
		in.ShippingAmount,
		in.TotalAmount,
		in.Currency,
		shipJSON,
		billJSON,
	))
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	const insertItem = `
INSERT INTO order_items (order_id, product_id, product_name, product_image, quantity, price_each)
VALUES ($1, $2, $3, $4, $5, $6)
`
	for _, item := range in.Items {
		if _, err := tx.Exec(ctx, insertItem, o.ID, item.ProductID, item.ProductName, item.ProductImage, item.Quantity, item.PriceEach); err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return o, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 LIMIT 1`
	return r.scanOrder(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) AttachCheckoutSession(ctx context.Context, orderID, sessionID string) error {
	const q = `UPDATE orders SET stripe_session_id = $2, updated_at = now() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, orderID, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) UpdatePaymentStatus(ctx context.Context, orderID string, pay domain.PaymentStatus, ful domain.FulfillmentStatus, paymentIntentID string) (*domain.Order, error) {
	const q = `
UPDATE orders SET
    payment_status           = $2,
    fulfillment_status       = $3,
    stripe_payment_intent_id = $4,
    updated_at               = now()
WHERE id = $1
RETURNING ` + orderColumns

	return r.scanOrder(r.pool.QueryRow(ctx, q, orderID, string(pay), string(ful), paymentIntentID))
}

func (r *postgresRepo) FulfillmentItems(ctx context.Context, orderID string) ([]domain.FulfillmentItem, error) {
	const q = `
SELECT oi.id::text, oi.order_id::text, oi.product_id::text, oi.product_name, oi.product_image,
       oi.quantity, oi.price_each, oi.created_at,
       COALESCE(p.supplier_product_id, ''), COALESCE(s.name, ''), COALESCE(s.slug, '')
FROM order_items oi
LEFT JOIN products p ON p.id = oi.product_id
LEFT JOIN suppliers s ON s.id = p.supplier_id
WHERE oi.order_id = $1
ORDER BY oi.created_at
`
	rows, err := r.pool.Query(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.FulfillmentItem
	for rows.Next() {
		var it domain.FulfillmentItem
		err := rows.Scan(
			&it.ID,
			&it.OrderID,
			&it.ProductID,
			&it.ProductName,
			&it.ProductImage,
			&it.Quantity,
			&it.PriceEach,
			&it.CreatedAt,
			&it.SupplierProductID,
			&it.SupplierName,
			&it.SupplierSlug,
		)
		if err != nil {
			r.logger.Printf("order repo: scan fulfillment item err=%v", err)
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *postgresRepo) scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var shipJSON, billJSON []byte
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.CustomerID,
		&o.Subtotal,
		&o.TaxAmount,
		&o.ShippingAmount,
		&o.TotalAmount,
		&o.Currency,
		&o.PaymentStatus,
		&o.FulfillmentStatus,
		&shipJSON,
		&billJSON,
		&o.CheckoutSessionID,
		&o.PaymentIntentID,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: scan error=%v", err)
		return nil, err
	}
	if len(shipJSON) > 0 {
		if err := json.Unmarshal(shipJSON, &o.ShippingAddress); err != nil {
			r.logger.Printf("order repo: decode shipping address id=%s err=%v", o.ID, err)
			return nil, err
		}
	}
	if len(billJSON) > 0 {
		if err := json.Unmarshal(billJSON, &o.BillingAddress); err != nil {
			r.logger.Printf("order repo: decode billing address id=%s err=%v", o.ID, err)
			return nil, err
		}
	}
	return &o, nil
}
