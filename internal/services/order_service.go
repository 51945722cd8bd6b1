package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storeadmin/internal/database"
	"storeadmin/internal/models"
	"storeadmin/internal/repositories"
)

// EventPublisher publishes order lifecycle events. Satisfied by
// *rabbitmq.Client; a nil publisher disables eventing.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// OrderItemRequest is one requested line of an order create or update.
// A nil UnitPrice means "snapshot the product's current price".
type OrderItemRequest struct {
	ProductID string   `json:"product_id" validate:"required,uuid"`
	Quantity  int      `json:"quantity" validate:"gte=0"`
	UnitPrice *float64 `json:"unit_price" validate:"omitempty,gte=0"`
}

// CreateOrderRequest carries everything needed to create an order.
type CreateOrderRequest struct {
	UserID          string             `json:"user_id" validate:"required,uuid"`
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	Note            string             `json:"note" validate:"omitempty,max=500"`
	ShippingAddress string             `json:"shipping_address" validate:"omitempty,max=255"`
	PaymentMethod   string             `json:"payment_method" validate:"omitempty,max=50"`
}

// UpdateOrderRequest carries a complete replacement item set plus any
// header fields to change. Nil pointer fields are left untouched. A nil
// Items leaves the item set alone; an empty one removes every line.
type UpdateOrderRequest struct {
	Items           *[]OrderItemRequest `json:"items" validate:"omitempty,dive"`
	Status          *string             `json:"status" validate:"omitempty,oneof=pending processing completed cancelled"`
	Note            *string             `json:"note" validate:"omitempty,max=500"`
	ShippingAddress *string             `json:"shipping_address" validate:"omitempty,max=255"`
	PaymentMethod   *string             `json:"payment_method" validate:"omitempty,max=50"`
}

// OrderService handles business logic related to orders: creating them
// while committing stock, reconciling item-set replacements against
// stock by net deltas, and the soft-delete/restore/hard-delete
// lifecycle. Every mutation runs inside one transaction owned by the
// TxManager; totals are derived by database triggers and observed by
// reloading the order before returning it.
type OrderService struct {
	tx          *database.TxManager
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	userRepo    repositories.UserRepository
	events      EventPublisher
}

// NewOrderService creates a new OrderService.
func NewOrderService(tx *database.TxManager, orderRepo repositories.OrderRepository, productRepo repositories.ProductRepository, userRepo repositories.UserRepository, events EventPublisher) *OrderService {
	return &OrderService{
		tx:          tx,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		events:      events,
	}
}

// GetAllOrders retrieves all orders that are not soft-deleted.
func (s *OrderService) GetAllOrders(ctx context.Context) ([]models.Order, error) {
	return s.orderRepo.GetAll(ctx)
}

// GetOrderByID retrieves a single order with its line items.
func (s *OrderService) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id, true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFound("order", id)
		}
		return nil, err
	}
	return order, nil
}

// CreateOrder creates an order header and its line items while
// committing stock, all inside one transaction. Every requested line is
// checked against available stock before any stock is decremented, so a
// single short line aborts the whole order.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("quantity for product %s must be at least 1", item.ProductID)
		}
	}

	var created *models.Order
	err := s.tx.Transactional(ctx, func(ctx context.Context) error {
		if _, err := s.userRepo.GetByID(ctx, req.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newNotFound("user", req.UserID)
			}
			return err
		}

		ids, byProduct := collapseItems(req.Items)

		products, err := s.productRepo.GetByIDs(ctx, ids)
		if err != nil {
			return err
		}
		productsByID := indexProducts(products)
		if missing := missingProductIDs(ids, productsByID); len(missing) > 0 {
			return newNotFound("product", missing...)
		}

		for _, id := range ids {
			product := productsByID[id]
			if requested := byProduct[id].Quantity; product.Quantity < requested {
				return &InsufficientStockError{
					ProductID:   product.ID,
					ProductName: product.Name,
					Available:   product.Quantity,
					Requested:   requested,
				}
			}
		}

		order := &models.Order{
			ID:              uuid.New().String(),
			UserID:          req.UserID,
			Status:          models.OrderStatusPending,
			Note:            req.Note,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   req.PaymentMethod,
		}
		if err := s.orderRepo.Create(ctx, order); err != nil {
			return err
		}

		details := make([]models.OrderDetail, 0, len(ids))
		for _, id := range ids {
			item := byProduct[id]
			details = append(details, models.OrderDetail{
				ID:        uuid.New().String(),
				OrderID:   order.ID,
				ProductID: id,
				Quantity:  item.Quantity,
				UnitPrice: snapshotPrice(item, productsByID[id]),
			})
		}
		if err := s.orderRepo.CreateDetails(ctx, details); err != nil {
			return err
		}

		for _, id := range ids {
			if err := s.productRepo.AdjustQuantity(ctx, id, -byProduct[id].Quantity); err != nil {
				return err
			}
		}

		// The triggers have recomputed the totals by now; reload to
		// observe them.
		created, err = s.orderRepo.GetByID(ctx, order.ID, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishOrderEvent("order.created", created)
	return created, nil
}

// UpdateOrder transforms an order's current item set into the requested
// replacement set, adjusting product stock by exactly the net change,
// and applies any supplied header fields. The whole update is one
// transaction: an infeasible stock change leaves every row untouched.
func (s *OrderService) UpdateOrder(ctx context.Context, id string, req UpdateOrderRequest) (*models.Order, error) {
	var updated *models.Order
	err := s.tx.Transactional(ctx, func(ctx context.Context) error {
		order, err := s.orderRepo.GetByID(ctx, id, true)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newNotFound("order", id)
			}
			return err
		}

		if req.Items != nil {
			if err := s.reconcileItems(ctx, order, *req.Items); err != nil {
				return err
			}
		}

		if err := s.orderRepo.UpdateHeader(ctx, order.ID, headerChanges(req)); err != nil {
			return err
		}

		updated, err = s.orderRepo.GetByID(ctx, order.ID, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishOrderEvent("order.updated", updated)
	return updated, nil
}

// reconcileItems computes, per product, the net stock change needed to
// move the order from its stored lines to the requested set, validates
// the feasibility of every change before applying any, then adjusts
// stock and rewrites the detail rows.
func (s *OrderService) reconcileItems(ctx context.Context, order *models.Order, items []OrderItemRequest) error {
	existing := make(map[string]models.OrderDetail, len(order.Details))
	for _, d := range order.Details {
		existing[d.ProductID] = d
	}
	reqIDs, requested := collapseItems(items)

	union := make([]string, 0, len(order.Details)+len(reqIDs))
	for _, d := range order.Details {
		union = append(union, d.ProductID)
	}
	for _, id := range reqIDs {
		if _, ok := existing[id]; !ok {
			union = append(union, id)
		}
	}

	products, err := s.productRepo.GetByIDs(ctx, union)
	if err != nil {
		return err
	}
	productsByID := indexProducts(products)
	if missing := missingProductIDs(reqIDs, productsByID); len(missing) > 0 {
		return newNotFound("product", missing...)
	}

	// Net change to apply to each product's stock: positive releases
	// stock back, negative reserves more.
	changes := make(map[string]int, len(union))
	for _, id := range union {
		ex, hasExisting := existing[id]
		rq, hasRequested := requested[id]
		switch {
		case hasExisting && hasRequested:
			changes[id] = ex.Quantity - rq.Quantity
		case hasExisting:
			changes[id] = ex.Quantity
		default:
			changes[id] = -rq.Quantity
		}
	}

	// Validation pass, deliberately separate from the mutation pass so
	// the update stays all-or-nothing.
	for _, id := range union {
		if changes[id] >= 0 {
			continue
		}
		product := productsByID[id]
		if product.Quantity < -changes[id] {
			return &InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Available:   product.Quantity,
				Requested:   requested[id].Quantity,
			}
		}
	}

	for _, id := range union {
		if changes[id] == 0 {
			continue
		}
		if err := s.productRepo.AdjustQuantity(ctx, id, changes[id]); err != nil {
			return err
		}
	}

	for _, d := range order.Details {
		rq, ok := requested[d.ProductID]
		if !ok {
			if err := s.orderRepo.DeleteDetail(ctx, d.ID); err != nil {
				return err
			}
			continue
		}
		unitPrice := d.UnitPrice
		if rq.UnitPrice != nil {
			unitPrice = *rq.UnitPrice
		}
		if rq.Quantity == d.Quantity && unitPrice == d.UnitPrice {
			continue
		}
		d.Quantity = rq.Quantity
		d.UnitPrice = unitPrice
		if err := s.orderRepo.UpdateDetail(ctx, &d); err != nil {
			return err
		}
	}

	var added []models.OrderDetail
	for _, id := range reqIDs {
		if _, ok := existing[id]; ok {
			continue
		}
		rq := requested[id]
		added = append(added, models.OrderDetail{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			ProductID: id,
			Quantity:  rq.Quantity,
			UnitPrice: snapshotPrice(rq, productsByID[id]),
		})
	}
	return s.orderRepo.CreateDetails(ctx, added)
}

// SoftDeleteOrder marks an order deleted. Stock the order reserved is
// deliberately not released; it stays committed to the order so a
// restore brings the order back exactly as it was.
func (s *OrderService) SoftDeleteOrder(ctx context.Context, id string) error {
	err := s.tx.Transactional(ctx, func(ctx context.Context) error {
		if err := s.orderRepo.SoftDelete(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newNotFound("order", id)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publishOrderEventByID("order.deleted", id)
	return nil
}

// RestoreOrder clears a soft-deleted order's deletion timestamp and
// returns it. Restoring an order that was never deleted is rejected.
func (s *OrderService) RestoreOrder(ctx context.Context, id string) (*models.Order, error) {
	var restored *models.Order
	err := s.tx.Transactional(ctx, func(ctx context.Context) error {
		order, err := s.orderRepo.GetByIDUnscoped(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newNotFound("order", id)
			}
			return err
		}
		if !order.DeletedAt.Valid {
			return ErrOrderNotDeleted
		}
		if err := s.orderRepo.Restore(ctx, id); err != nil {
			return err
		}
		restored, err = s.orderRepo.GetByID(ctx, id, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishOrderEvent("order.restored", restored)
	return restored, nil
}

// HardDeleteOrder permanently removes an order and its line items,
// whatever their soft-delete state. Like soft delete, it does not
// release reserved stock.
func (s *OrderService) HardDeleteOrder(ctx context.Context, id string) error {
	err := s.tx.Transactional(ctx, func(ctx context.Context) error {
		if _, err := s.orderRepo.GetByIDUnscoped(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newNotFound("order", id)
			}
			return err
		}
		return s.orderRepo.HardDelete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.publishOrderEventByID("order.hard_deleted", id)
	return nil
}

// collapseItems folds the requested lines into a productID-keyed map.
// Duplicate product ids collapse (last occurrence wins) and
// zero-quantity entries are dropped, because a zero quantity means
// "remove this line" and there is no zero-quantity line state. The
// returned slice preserves first-seen order for deterministic inserts.
func collapseItems(items []OrderItemRequest) ([]string, map[string]OrderItemRequest) {
	byProduct := make(map[string]OrderItemRequest, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, seen := byProduct[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		byProduct[item.ProductID] = item
	}
	kept := ids[:0]
	for _, id := range ids {
		if byProduct[id].Quantity <= 0 {
			delete(byProduct, id)
			continue
		}
		kept = append(kept, id)
	}
	return kept, byProduct
}

func indexProducts(products []models.Product) map[string]models.Product {
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID
}

func missingProductIDs(ids []string, loaded map[string]models.Product) []string {
	var missing []string
	for _, id := range ids {
		if _, ok := loaded[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// snapshotPrice picks the unit price for a new line: the explicit
// request value when given, otherwise the product's current price.
// Later product price changes never retouch existing lines.
func snapshotPrice(item OrderItemRequest, product models.Product) float64 {
	if item.UnitPrice != nil {
		return *item.UnitPrice
	}
	return product.Price
}

func headerChanges(req UpdateOrderRequest) map[string]interface{} {
	fields := make(map[string]interface{})
	if req.Status != nil {
		fields["status"] = *req.Status
	}
	if req.Note != nil {
		fields["note"] = *req.Note
	}
	if req.ShippingAddress != nil {
		fields["shipping_address"] = *req.ShippingAddress
	}
	if req.PaymentMethod != nil {
		fields["payment_method"] = *req.PaymentMethod
	}
	return fields
}

// publishOrderEvent publishes an order lifecycle event after the
// transaction has committed. Publish failures are logged, never
// surfaced: the order mutation already succeeded.
func (s *OrderService) publishOrderEvent(routingKey string, order *models.Order) {
	if s.events == nil || order == nil {
		return
	}
	s.publish(routingKey, map[string]interface{}{
		"orderID": order.ID,
		"userID":  order.UserID,
		"status":  order.Status,
		"total":   order.TotalAmount,
	})
}

func (s *OrderService) publishOrderEventByID(routingKey, orderID string) {
	if s.events == nil {
		return
	}
	s.publish(routingKey, map[string]interface{}{
		"orderID": orderID,
	})
}

func (s *OrderService) publish(routingKey string, payload map[string]interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", routingKey, err)
		return
	}
	if err := s.events.Publish("order", routingKey, body); err != nil {
		log.Printf("Warning: Failed to publish %s event: %v", routingKey, err)
	}
}
