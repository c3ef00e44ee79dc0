package handler

import (
	"go-mini-commerce/internal/service"

	"github.com/gofiber/fiber/v2"
)

type OrderHandler struct {
	orders service.OrderService
}

func NewOrderHandler(orders service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CreateOrder places a new order. In synchronous mode stock is adjusted
// before the response; in asynchronous mode the order is accepted as
// PENDING_STOCK_CHECK and resolved via the stock_events topic.
// POST /api/v1/orders
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req service.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	order, err := h.orders.CreateOrder(c.Context(), &req)
	if err != nil {
		return respondError(c, err)
	}

	status := 201
	if !order.Status.Terminal() {
		status = 202 // stock check still in flight
	}
	return c.Status(status).JSON(fiber.Map{"message": "Order created", "data": order})
}

// GetOrders lists all orders
// GET /api/v1/orders
func (h *OrderHandler) GetOrders(c *fiber.Ctx) error {
	orders, err := h.orders.ListOrders()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(orders)
}

// GetCustomerOrders lists the orders placed by one customer
// GET /api/v1/customers/:id/orders
func (h *OrderHandler) GetCustomerOrders(c *fiber.Ctx) error {
	customerID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid customer ID"})
	}

	orders, err := h.orders.ListCustomerOrders(customerID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(orders)
}

// GetOrder fetches one order with its items
// GET /api/v1/orders/:id
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	order, err := h.orders.GetOrder(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

// UpdateOrder changes the quantity of one line item
// PUT /api/v1/orders/:id
func (h *OrderHandler) UpdateOrder(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	var req service.UpdateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	order, err := h.orders.UpdateOrder(c.Context(), id, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order updated", "data": order})
}

// DeleteOrder removes an order after returning its stock
// DELETE /api/v1/orders/:id
func (h *OrderHandler) DeleteOrder(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	if err := h.orders.DeleteOrder(c.Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order deleted"})
}

// CancelOrder is the administrative cancellation path
// POST /api/v1/orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	order, err := h.orders.CancelOrder(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order cancelled", "data": order})
}
