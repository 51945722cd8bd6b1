package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storeadmin/internal/database"
	"storeadmin/internal/models"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

func (r *GORMOrderRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

// GetAll retrieves all orders with their detail rows, excluding
// soft-deleted ones.
func (r *GORMOrderRepository) GetAll(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := r.conn(ctx).Preload("Details").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to get all orders: %w", err)
	}
	return orders, nil
}

// GetByID retrieves a single order by its ID, optionally with its
// detail rows.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string, withDetails bool) (*models.Order, error) {
	q := r.conn(ctx)
	if withDetails {
		q = q.Preload("Details")
	}
	var order models.Order
	if err := q.First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s: %w", id, gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// GetByIDUnscoped retrieves an order regardless of its soft-delete
// state. Used by restore and hard delete.
func (r *GORMOrderRepository) GetByIDUnscoped(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.conn(ctx).Unscoped().First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s: %w", id, gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// Create inserts the order header only. Detail rows are written
// separately by CreateDetails so the caller controls the sequencing of
// stock commits and line inserts within its transaction.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.conn(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// CreateDetails bulk-inserts order detail rows.
func (r *GORMOrderRepository) CreateDetails(ctx context.Context, details []models.OrderDetail) error {
	if len(details) == 0 {
		return nil
	}
	for i := range details {
		if details[i].ID == "" {
			details[i].ID = uuid.New().String()
		}
	}
	if err := r.conn(ctx).Create(&details).Error; err != nil {
		return fmt.Errorf("failed to create order details: %w", err)
	}
	return nil
}

// UpdateDetail rewrites the quantity and unit price of one detail row.
// Only those two columns are named so the derived line_total stays
// under trigger control.
func (r *GORMOrderRepository) UpdateDetail(ctx context.Context, detail *models.OrderDetail) error {
	res := r.conn(ctx).Model(&models.OrderDetail{}).
		Where("id = ?", detail.ID).
		Updates(map[string]interface{}{
			"quantity":   detail.Quantity,
			"unit_price": detail.UnitPrice,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update order detail %s: %w", detail.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order detail with ID %s: %w", detail.ID, gorm.ErrRecordNotFound)
	}
	return nil
}

// DeleteDetail removes one detail row permanently. Detail rows have no
// soft-delete state; their lifetime is bound to reconciliation.
func (r *GORMOrderRepository) DeleteDetail(ctx context.Context, id string) error {
	res := r.conn(ctx).Delete(&models.OrderDetail{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete order detail %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order detail with ID %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// UpdateHeader applies the supplied header fields to an order. The
// derived total_amount is never among them.
func (r *GORMOrderRepository) UpdateHeader(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.conn(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// SoftDelete marks an order as deleted. An already soft-deleted order
// is outside the default scope, so deleting it again reports not found.
func (r *GORMOrderRepository) SoftDelete(ctx context.Context, id string) error {
	res := r.conn(ctx).Delete(&models.Order{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// Restore clears an order's deletion timestamp.
func (r *GORMOrderRepository) Restore(ctx context.Context, id string) error {
	res := r.conn(ctx).Unscoped().Model(&models.Order{}).
		Where("id = ?", id).
		Update("deleted_at", nil)
	if res.Error != nil {
		return fmt.Errorf("failed to restore order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// HardDelete removes an order and its detail rows permanently,
// regardless of soft-delete state.
func (r *GORMOrderRepository) HardDelete(ctx context.Context, id string) error {
	if err := r.conn(ctx).Delete(&models.OrderDetail{}, "order_id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete details of order %s: %w", id, err)
	}
	res := r.conn(ctx).Unscoped().Delete(&models.Order{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to hard delete order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}
