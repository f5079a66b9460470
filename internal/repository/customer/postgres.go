package customer

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"voiceshop/internal/domain"
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

func (r *postgresRepo) Upsert(ctx context.Context, in UpsertInput) (*domain.Customer, error) {
	const q = `
INSERT INTO customers (email, first_name, last_name, phone, is_guest, stripe_customer_id)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (lower(email)) DO UPDATE SET
    first_name         = EXCLUDED.first_name,
    last_name          = EXCLUDED.last_name,
    phone              = EXCLUDED.phone,
    stripe_customer_id = CASE WHEN EXCLUDED.stripe_customer_id <> ''
                              THEN EXCLUDED.stripe_customer_id
                              ELSE customers.stripe_customer_id END,
    updated_at         = now()
RETURNING id::text, email, first_name, last_name, phone, is_guest, stripe_customer_id, created_at, updated_at
`
	return r.scanCustomer(r.pool.QueryRow(
		ctx,
		q,
		strings.ToLower(strings.TrimSpace(in.Email)),
		in.FirstName,
		in.LastName,
		in.Phone,
		in.IsGuest,
		in.PaymentCustomerID,
	))
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	const q = `
SELECT id::text, email, first_name, last_name, phone, is_guest, stripe_customer_id, created_at, updated_at
FROM customers
WHERE lower(email) = lower($1)
LIMIT 1
`
	return r.scanCustomer(r.pool.QueryRow(ctx, q, email))
}

func (r *postgresRepo) scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(
		&c.ID,
		&c.Email,
		&c.FirstName,
		&c.LastName,
		&c.Phone,
		&c.IsGuest,
		&c.PaymentCustomerID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("customer repo: scan error=%v", err)
		return nil, err
	}
	return &c, nil
}
