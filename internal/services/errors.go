package services

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError reports that a referenced entity does not exist, or for
// lifecycle operations, exists in the wrong state to be visible.
type NotFoundError struct {
	Resource string
	IDs      []string
}

func (e *NotFoundError) Error() string {
	if len(e.IDs) == 1 {
		return fmt.Sprintf("%s with ID %s not found", e.Resource, e.IDs[0])
	}
	return fmt.Sprintf("%ss with IDs %s not found", e.Resource, strings.Join(e.IDs, ", "))
}

func newNotFound(resource string, ids ...string) *NotFoundError {
	return &NotFoundError{Resource: resource, IDs: ids}
}

// InsufficientStockError reports that a requested reservation exceeds a
// product's available quantity.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested: %d, available: %d)",
		e.ProductName, e.Requested, e.Available)
}

// ErrOrderNotDeleted is returned when restoring an order that carries
// no deletion timestamp.
var ErrOrderNotDeleted = errors.New("order is not deleted")
