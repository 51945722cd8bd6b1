package services_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storeadmin/internal/database"
	"storeadmin/internal/models"
	"storeadmin/internal/repositories"
	"storeadmin/internal/services"
)

// orderServiceEnv wires an OrderService against an in-memory SQLite
// database with the real schema, triggers, and transaction manager, so
// the tests exercise actual commit/rollback behavior.
type orderServiceEnv struct {
	db       *gorm.DB
	service  *services.OrderService
	products repositories.ProductRepository
	orders   repositories.OrderRepository
	users    repositories.UserRepository
	userID   string
}

func newOrderServiceEnv(t *testing.T) *orderServiceEnv {
	t.Helper()

	// A named in-memory database per test keeps tests isolated while
	// letting the connection pool share one database.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	env := &orderServiceEnv{
		db:       db,
		products: repositories.NewGORMProductRepository(db),
		orders:   repositories.NewGORMOrderRepository(db),
		users:    repositories.NewGORMUserRepository(db),
	}
	env.service = services.NewOrderService(database.NewTxManager(db), env.orders, env.products, env.users, nil)

	user := &models.User{Username: "buyer", Email: "buyer@example.com", Password: "hashed-password"}
	require.NoError(t, env.users.Create(context.Background(), user))
	env.userID = user.ID

	return env
}

func (e *orderServiceEnv) createProduct(t *testing.T, name string, price float64, quantity int) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, Price: price, Quantity: quantity}
	require.NoError(t, e.products.Create(context.Background(), product))
	return product
}

func (e *orderServiceEnv) productQuantity(t *testing.T, id string) int {
	t.Helper()
	product, err := e.products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return product.Quantity
}

func TestOrderService_CreateOrder(t *testing.T) {
	env := newOrderServiceEnv(t)
	laptop := env.createProduct(t, "Laptop", 1200.00, 10)
	mouse := env.createProduct(t, "Mouse", 25.00, 50)

	order, err := env.service.CreateOrder(context.Background(), services.CreateOrderRequest{
		UserID: env.userID,
		Items: []services.OrderItemRequest{
			{ProductID: laptop.ID, Quantity: 2},
			{ProductID: mouse.ID, Quantity: 3},
		},
		Note:            "deliver after 5pm",
		ShippingAddress: "1 Main St",
		PaymentMethod:   "card",
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, env.userID, order.UserID)
	assert.Len(t, order.Details, 2)

	// Unit prices are snapshots of the product prices at order time,
	// and the totals come back populated by the triggers.
	byProduct := map[string]models.OrderDetail{}
	for _, d := range order.Details {
		byProduct[d.ProductID] = d
	}
	assert.Equal(t, 1200.00, byProduct[laptop.ID].UnitPrice)
	assert.Equal(t, 2400.00, byProduct[laptop.ID].LineTotal)
	assert.Equal(t, 25.00, byProduct[mouse.ID].UnitPrice)
	assert.Equal(t, 75.00, byProduct[mouse.ID].LineTotal)
	assert.Equal(t, 2475.00, order.TotalAmount)

	// Stock was committed.
	assert.Equal(t, 8, env.productQuantity(t, laptop.ID))
	assert.Equal(t, 47, env.productQuantity(t, mouse.ID))
}

func TestOrderService_CreateOrder_ExplicitUnitPrice(t *testing.T) {
	env := newOrderServiceEnv(t)
	laptop := env.createProduct(t, "Laptop", 1200.00, 10)

	discounted := 999.00
	order, err := env.service.CreateOrder(context.Background(), services.CreateOrderRequest{
		UserID: env.userID,
		Items: []services.OrderItemRequest{
			{ProductID: laptop.ID, Quantity: 1, UnitPrice: &discounted},
		},
	})
	require.NoError(t, err)
	require.Len(t, order.Details, 1)
	assert.Equal(t, 999.00, order.Details[0].UnitPrice)
	assert.Equal(t, 999.00, order.TotalAmount)
}

func TestOrderService_CreateOrder_UserNotFound(t *testing.T) {
	env := newOrderServiceEnv(t)
	laptop := env.createProduct(t, "Laptop", 1200.00, 10)

	_, err := env.service.CreateOrder(context.Background(), services.CreateOrderRequest{
		UserID: "00000000-0000-0000-0000-000000000000",
		Items:  []services.OrderItemRequest{{ProductID: laptop.ID, Quantity: 1}},
	})
	var notFound *services.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "user", notFound.Resource)
}

func TestOrderService_CreateOrder_MissingProductsListed(t *testing.T) {
	env := newOrderServiceEnv(t)
	laptop := env.createProduct(t, "Laptop", 1200.00, 10)

	_, err := env.service.CreateOrder(context.Background(), services.CreateOrderRequest{
		UserID: env.userID,
		Items: []services.OrderItemRequest{
			{ProductID: laptop.ID, Quantity: 1},
			{ProductID: "missing-1", Quantity: 1},
			{ProductID: "missing-2", Quantity: 1},
		},
	})
	var notFound *services.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "product", notFound.Resource)
	assert.ElementsMatch(t, []string{"missing-1", "missing-2"}, notFound.IDs)

	// Nothing was persisted.
	assert.Equal(t, 10, env.productQuantity(t, laptop.ID))
	orders, err := env.orders.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderService_CreateOrder_InsufficientStockIsAllOrNothing(t *testing.T) {
	env := newOrderServiceEnv(t)
	laptop := env.createProduct(t, "Laptop", 1200.00, 10)
	scarce := env.createProduct(t, "Webcam", 60.00, 2)

	_, err := env.service.CreateOrder(context.Background(), services.CreateOrderRequest{
		UserID: env.userID,
		Items: []services.OrderItemRequest{
			{ProductID: laptop.ID, Quantity: 1},
			{ProductID: scarce.ID, Quantity: 5},
		},
	})
	var stockErr *services.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, scarce.ID, stockErr.ProductID)
	assert.Equal(t, "Webcam", stockErr.ProductName)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 5, stockErr.Requested)

	// One short line aborts the whole order: no order, no details, no
	// stock change.
	assert.Equal(t, 10, env.productQuantity(t, laptop.ID))
	assert.Equal(t, 2, env.productQuantity(t, scarce.ID))
	orders, err := env.orders.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

// TestOrderService_UpdateOrder_Reconciliation walks the full scenario:
// P starts at 10; create {P:3} leaves 7; resize to {P:5} leaves 5;
// empty item set releases everything back to 10; adding Q:4 drains Q to
// 0 while P stays untouched.
func TestOrderService_UpdateOrder_Reconciliation(t *testing.T) {
	env := newOrderServiceEnv(t)
	ctx := context.Background()
	p := env.createProduct(t, "Keyboard", 75.00, 10)
	q := env.createProduct(t, "Monitor", 200.00, 4)

	order, err := env.service.CreateOrder(ctx, services.CreateOrderRequest{
		UserID: env.userID,
		Items:  []services.OrderItemRequest{{ProductID: p.ID, Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, env.productQuantity(t, p.ID))
	require.Len(t, order.Details, 1)
	assert.Equal(t, 3, order.Details[0].Quantity)

	// Grow the line: net delta 2.
	items := []services.OrderItemRequest{{ProductID: p.ID, Quantity: 5}}
	order, err = env.service.UpdateOrder(ctx, order.ID, services.UpdateOrderRequest{Items: &items})
	require.NoError(t, err)
	assert.Equal(t, 5, env.productQuantity(t, p.ID))
	require.Len(t, order.Details, 1)
	assert.Equal(t, 5, order.Details[0].Quantity)
	assert.Equal(t, 375.00, order.TotalAmount)

	// Empty replacement set removes the line and releases all stock.
	items = []services.OrderItemRequest{}
	order, err = env.service.UpdateOrder(ctx, order.ID, services.UpdateOrderRequest{Items: &items})
	require.NoError(t, err)
	assert.Equal(t, 10, env.productQuantity(t, p.ID))
	assert.Empty(t, order.Details)
	assert.Equal(t, 0.00, order.TotalAmount)

	// Add a different product; the untouched one stays untouched.
	items = []services.OrderItemRequest{{ProductID: q.ID, Quantity: 4}}
	order, err = env.service.UpdateOrder(ctx, order.ID, services.UpdateOrderRequest{Items: &items})
	require.NoError(t, err)
	assert.Equal(t, 10, env.productQuantity(t, p.ID))
	assert.Equal(t, 0, env.productQuantity(t, q.ID))
	require.Len(t, order.Details, 1)
	assert.Equal(t, q.ID, order.Details[0].ProductID)
	assert.Equal(t, 800.00, order.TotalAmount)
}

func TestOrderService_UpdateOrder_ZeroQuantityRemovesLine(t *testing.T) {
	env := newOrderServiceEnv(t)
	ctx := context.Background()
	p := env.createProduct(t, "Keyboard", 75.00, 10)

	order, err := env.service.CreateOrder(ctx, services.CreateOrderRequest{
		UserID: env.userID,
		Items:  []services.OrderItemRequest{{ProductID: p.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, 6, env.productQuantity(t, p.ID))

	// Quantity zero means "remove this line", not "keep it at zero".
	items := []services.OrderItemRequest{{ProductID: p.ID, Quantity: 0}}
	order, err = env.service.UpdateOrder(ctx, order.ID, services.UpdateOrderRequest{Items: &items})
	require.NoError(t, err)
	assert.Empty(t, order.Details)
	assert.Equal(t, 10, env.productQuantity(t, p.ID))
}

func TestOrderService_UpdateOrder_InsufficientStockIsAllOrNothing(t *testing.T) {
	env := newOrderServiceEnv(t)
	ctx := context.Background()
	p := env.createProduct(t, "Keyboard", 75.00, 10)
	q := env.createProduct(t, "Monitor", 200.00, 1)

	order, err := env.service.CreateOrder(ctx, services.CreateOrderRequest{
		UserID: env.userID,
		Items:  []services.OrderItemRequest{{ProductID: p.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	// Shrinking P is feasible, but Q wants more than exists; the whole
	// update must leave every row as it was.
	items := []services.OrderItemRequest{
		{ProductID: p.ID, Quantity: 1},
		{ProductID: q.ID, Quantity: 5},
	}
	_, err = env.service.UpdateOrder(ctx, order.ID, services.UpdateOrderRequest{Items: &items})
	var stockErr *services.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, q.ID, stockErr.ProductID)

	assert.Equal(t, 7, env.productQuantity(t, p.ID))
	assert.Equal(t, 1, env.productQuantity(t, q.ID))
	reloaded, err := env.service.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Details, 1)
	assert.Equal(t, p.ID, reloaded.Details[0].ProductID)
	assert.Equal(t, 3, reloaded.Details[0].Quantity)
}

func TestOrderService_UpdateOrder_HeaderFieldsOnly(t *testing.T) {
	env := newOrderServiceEnv(t)
	ctx := context.Background()
	p := env.createProduct(t, "Keyboard", 75.00, 10)

	order, err := env.service.CreateOrder(ctx, services.CreateOrderRequest{
		UserID: env.userID,
		Items:  []services.OrderItemRequest{{ProductID: p.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	status := models.OrderStatusProcessing
	note := "rush order"
	order, err = env.service.UpdateOrder(ctx, order.ID, services.UpdateOrderRequest{
		Status: &status,
		Note:   &note,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.Equal(t, "rush order", order.Note)

	// Omitted items leave the line set and the stock untouched.
	require.Len(t, order.Details, 1)
	assert.Equal(t, 8, env.productQuantity(t, p.ID))
}

func TestOrderService_PriceSnapshotStability(t *testing.T) {
	env := newOrderServiceEnv(t)
	ctx := context.Background()
	p := env.createProduct(t, "Keyboard", 75.00, 10)

	order, err := env.service.CreateOrder(ctx, services.CreateOrderRequest{
		UserID: env.userID,
		Items:  []services.OrderItemRequest{{ProductID: p.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	// Raise the catalog price after the line was written.
	stored, err := env.products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	stored.Price = 120.00
	require.NoError(t, env.products.Update(ctx, stored))

	// Resizing the line must keep the original snapshot price.
	items := []services.OrderItemRequest{{ProductID: p.ID, Quantity: 4}}
	order, err = env.service.UpdateOrder(ctx, order.ID, services.UpdateOrderRequest{Items: &items})
	require.NoError(t, err)
	require.Len(t, order.Details, 1)
	assert.Equal(t, 75.00, order.Details[0].UnitPrice)
	assert.Equal(t, 300.00, order.TotalAmount)
}

func TestOrderService_Lifecycle(t *testing.T) {
	env := newOrderServiceEnv(t)
	ctx := context.Background()
	p := env.createProduct(t, "Keyboard", 75.00, 10)

	order, err := env.service.CreateOrder(ctx, services.CreateOrderRequest{
		UserID: env.userID,
		Items:  []services.OrderItemRequest{{ProductID: p.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	// Soft delete hides the order from default reads but keeps its
	// stock committed.
	require.NoError(t, env.service.SoftDeleteOrder(ctx, order.ID))
	assert.Equal(t, 7, env.productQuantity(t, p.ID))

	_, err = env.service.GetOrderByID(ctx, order.ID)
	var notFound *services.NotFoundError
	require.ErrorAs(t, err, &notFound)

	// Deleting again reports not found.
	err = env.service.SoftDeleteOrder(ctx, order.ID)
	require.ErrorAs(t, err, &notFound)

	// Restore brings it back with lines intact.
	restored, err := env.service.RestoreOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, restored.Details, 1)
	assert.Equal(t, 225.00, restored.TotalAmount)

	// Restoring a live order is rejected.
	_, err = env.service.RestoreOrder(ctx, order.ID)
	require.ErrorIs(t, err, services.ErrOrderNotDeleted)
}

func TestOrderService_HardDelete(t *testing.T) {
	env := newOrderServiceEnv(t)
	ctx := context.Background()
	p := env.createProduct(t, "Keyboard", 75.00, 10)

	order, err := env.service.CreateOrder(ctx, services.CreateOrderRequest{
		UserID: env.userID,
		Items:  []services.OrderItemRequest{{ProductID: p.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	require.NoError(t, env.service.HardDeleteOrder(ctx, order.ID))

	// The row is gone for good; restore cannot resurrect it, and the
	// reserved stock is not released.
	var notFound *services.NotFoundError
	_, err = env.service.RestoreOrder(ctx, order.ID)
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 7, env.productQuantity(t, p.ID))

	var detailCount int64
	require.NoError(t, env.db.Model(&models.OrderDetail{}).Where("order_id = ?", order.ID).Count(&detailCount).Error)
	assert.Zero(t, detailCount)
}

func TestOrderService_DuplicateProductIDsCollapse(t *testing.T) {
	env := newOrderServiceEnv(t)
	p := env.createProduct(t, "Keyboard", 75.00, 10)

	// The same product twice collapses to one line; the last occurrence
	// wins, mirroring the productId-keyed reconciliation.
	order, err := env.service.CreateOrder(context.Background(), services.CreateOrderRequest{
		UserID: env.userID,
		Items: []services.OrderItemRequest{
			{ProductID: p.ID, Quantity: 2},
			{ProductID: p.ID, Quantity: 5},
		},
	})
	require.NoError(t, err)
	require.Len(t, order.Details, 1)
	assert.Equal(t, 5, order.Details[0].Quantity)
	assert.Equal(t, 5, env.productQuantity(t, p.ID))
}
