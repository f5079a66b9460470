package product

import (
	"context"

	"voiceshop/internal/domain"
)

// Repository fetches catalog products.
type Repository interface {
	ListActive(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}
