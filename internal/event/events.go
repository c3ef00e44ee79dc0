// Package event defines the message envelopes and broker topology shared by
// the order and product services.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Exchange and queue topology. Both exchanges are durable topics; each queue
// has a companion dead-letter exchange named "<queue>.dlx".
const (
	ExchangeOrderEvents = "order_events"
	ExchangeStockEvents = "stock_events"

	KeyOrderCreated  = "order.created"
	KeyStockDeducted = "stock.deducted"
	KeyStockFailed   = "stock.failed"

	QueueOrderCreated = "order_created_queue"
	QueueStockStatus  = "order_stock_status_queue"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// OrderLine is one requested deduction within an order event.
type OrderLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// OrderCreated is published by the order service after persisting a new
// order in PENDING_STOCK_CHECK state.
type OrderCreated struct {
	OrderID    uuid.UUID   `json:"order_id"`
	CustomerID uuid.UUID   `json:"customer_id"`
	Items      []OrderLine `json:"items"`
	Timestamp  time.Time   `json:"timestamp"`
}

// ItemResult reports the outcome of one line item's stock check.
type ItemResult struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	OK        bool      `json:"ok"`
	Message   string    `json:"message,omitempty"`
}

// StockResult is published by the product service after processing an
// OrderCreated event. Status is success only when every item was deducted;
// on failure nothing was deducted and Items carries the per-item detail.
type StockResult struct {
	OrderID   uuid.UUID    `json:"order_id"`
	Items     []ItemResult `json:"items"`
	Status    string       `json:"status"`
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
}

// RoutingKey selects the stock_events topic for this result.
func (r StockResult) RoutingKey() string {
	if r.Status == StatusSuccess {
		return KeyStockDeducted
	}
	return KeyStockFailed
}
