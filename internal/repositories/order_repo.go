package repositories

import (
	"context"

	"storeadmin/internal/models"
)

// OrderRepository defines the interface for order data access. Soft-
// deleted orders are excluded everywhere except the Unscoped reads used
// by the restore and hard-delete lifecycle operations.
type OrderRepository interface {
	GetAll(ctx context.Context) ([]models.Order, error)
	GetByID(ctx context.Context, id string, withDetails bool) (*models.Order, error)
	GetByIDUnscoped(ctx context.Context, id string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	CreateDetails(ctx context.Context, details []models.OrderDetail) error
	UpdateDetail(ctx context.Context, detail *models.OrderDetail) error
	DeleteDetail(ctx context.Context, id string) error
	UpdateHeader(ctx context.Context, id string, fields map[string]interface{}) error
	SoftDelete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
	HardDelete(ctx context.Context, id string) error
}
