package repositories

import (
	"context"

	"storeadmin/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	// GetByIDs loads every product whose ID is in ids. Missing ids are
	// not an error; callers compare the result against the request.
	GetByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	// AdjustQuantity adds delta (which may be negative) to the stored
	// stock quantity of one product.
	AdjustQuantity(ctx context.Context, id string, delta int) error
	Delete(ctx context.Context, id string) error
}
