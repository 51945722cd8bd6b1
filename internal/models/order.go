package models

import (
	"time"

	"gorm.io/gorm"
)

// Order statuses.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// OrderDetail represents a single line item within an order. UnitPrice
// is a snapshot of the product price taken when the line was written;
// later product price changes never touch it. LineTotal is recomputed
// by database triggers and is never written by application code (the
// "->" tag makes GORM treat it as read-only).
type OrderDetail struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string    `json:"order_id" gorm:"type:varchar(36);index:idx_order_details_order_product,unique"`
	ProductID string    `json:"product_id" gorm:"type:varchar(36);index:idx_order_details_order_product,unique" validate:"required,uuid"`
	Quantity  int       `json:"quantity" validate:"gte=1"`
	UnitPrice float64   `json:"unit_price" validate:"gte=0"`
	LineTotal float64   `json:"line_total" gorm:"->;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Order represents a customer order. TotalAmount is derived from the
// order's detail rows by database triggers, never written directly;
// callers reload the order after detail changes to observe it.
type Order struct {
	ID              string        `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	UserID          string        `json:"user_id" gorm:"type:varchar(36);index" validate:"required,uuid"`
	Status          string        `json:"status" validate:"omitempty,oneof=pending processing completed cancelled"`
	TotalAmount     float64       `json:"total_amount" gorm:"->;default:0"`
	Note            string        `json:"note" validate:"omitempty,max=500"`
	ShippingAddress string        `json:"shipping_address" validate:"omitempty,max=255"`
	PaymentMethod   string        `json:"payment_method" validate:"omitempty,max=50"`
	Details         []OrderDetail `json:"details" gorm:"foreignKey:OrderID"`
	gorm.Model                    // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
