package handlers

import (
	"errors"
	"fmt"
	"log"

	"storeadmin/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Put("/:id", h.HandleUpdateOrder)
	orderRoutes.Delete("/:id/hard", h.HandleHardDeleteOrder)
	orderRoutes.Delete("/:id", h.HandleDeleteOrder)
	orderRoutes.Post("/:id/restore", h.HandleRestoreOrder)
}

// orderErrorResponse maps the service error taxonomy onto HTTP statuses:
// missing entities and wrong lifecycle states are expected, reportable
// conditions; everything else is an unexpected failure.
func orderErrorResponse(c *fiber.Ctx, message string, err error) error {
	var notFound *services.NotFoundError
	var stock *services.InsufficientStockError
	switch {
	case errors.As(err, &notFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": message,
			"error":   err.Error(),
		})
	case errors.As(err, &stock):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": message,
			"error":   err.Error(),
			"product": fiber.Map{
				"id":        stock.ProductID,
				"name":      stock.ProductName,
				"available": stock.Available,
				"requested": stock.Requested,
			},
		})
	case errors.Is(err, services.ErrOrderNotDeleted):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": message,
			"error":   err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": message,
			"error":   err.Error(),
		})
	}
}

func validationErrorResponse(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

// HandleGetOrders retrieves all orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.GetAllOrders(c.UserContext())
	if err != nil {
		log.Printf("Error getting all orders: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve orders",
			"error":   err.Error(),
		})
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order with its line items.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	orderID := c.Params("id")
	order, err := h.service.GetOrderByID(c.UserContext(), orderID)
	if err != nil {
		log.Printf("Error getting order by ID %s: %v", orderID, err)
		return orderErrorResponse(c, "Could not retrieve order", err)
	}
	return c.JSON(order)
}

// HandleCreateOrder creates a new order, committing stock for every
// line item.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req services.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Validation failed",
				"error":   fmt.Sprintf("quantity for product %s must be at least 1", item.ProductID),
			})
		}
	}

	createdOrder, err := h.service.CreateOrder(c.UserContext(), req)
	if err != nil {
		log.Printf("Error creating order: %v", err)
		return orderErrorResponse(c, "Could not create order", err)
	}

	return c.Status(fiber.StatusCreated).JSON(createdOrder)
}

// HandleUpdateOrder replaces an order's item set and/or header fields.
func (h *OrderHandler) HandleUpdateOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")
	var req services.UpdateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing request body for order update: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	updatedOrder, err := h.service.UpdateOrder(c.UserContext(), orderID, req)
	if err != nil {
		log.Printf("Error updating order %s: %v", orderID, err)
		return orderErrorResponse(c, "Could not update order", err)
	}
	return c.JSON(updatedOrder)
}

// HandleDeleteOrder soft-deletes an order.
func (h *OrderHandler) HandleDeleteOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")
	if err := h.service.SoftDeleteOrder(c.UserContext(), orderID); err != nil {
		log.Printf("Error deleting order %s: %v", orderID, err)
		return orderErrorResponse(c, "Could not delete order", err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Order %s deleted successfully", orderID),
	})
}

// HandleHardDeleteOrder permanently removes an order.
func (h *OrderHandler) HandleHardDeleteOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")
	if err := h.service.HardDeleteOrder(c.UserContext(), orderID); err != nil {
		log.Printf("Error hard deleting order %s: %v", orderID, err)
		return orderErrorResponse(c, "Could not hard delete order", err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Order %s permanently deleted", orderID),
	})
}

// HandleRestoreOrder restores a soft-deleted order.
func (h *OrderHandler) HandleRestoreOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")
	order, err := h.service.RestoreOrder(c.UserContext(), orderID)
	if err != nil {
		log.Printf("Error restoring order %s: %v", orderID, err)
		return orderErrorResponse(c, "Could not restore order", err)
	}
	return c.JSON(order)
}
