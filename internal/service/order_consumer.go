package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"go-mini-commerce/internal/broker"
	"go-mini-commerce/internal/event"
	"go-mini-commerce/internal/model"
	"go-mini-commerce/internal/repository"
)

// OrderConsumer handles stock result events on the order coordinator side.
type OrderConsumer struct {
	orders repository.OrderRepository
}

func NewOrderConsumer(orders repository.OrderRepository) *OrderConsumer {
	return &OrderConsumer{orders: orders}
}

// HandleStockResult implements broker.HandlerFunc. The transition is guarded:
// only orders still in PENDING_STOCK_CHECK move, so duplicate or late results
// can never drag a terminal order back or flip it.
func (c *OrderConsumer) HandleStockResult(ctx context.Context, body []byte) error {
	var result event.StockResult
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("%w: decode stock result: %v", broker.ErrReject, err)
	}

	target := model.StatusFailed
	if result.Status == event.StatusSuccess {
		target = model.StatusConfirmed
	}

	moved, err := c.orders.TransitionStatus(result.OrderID, model.StatusPendingStockCheck, target)
	if err != nil {
		return fmt.Errorf("transition order %s: %w", result.OrderID, err)
	}
	if !moved {
		log.Printf("order %s: ignoring stock result %q (order unknown or already terminal)",
			result.OrderID, result.Status)
		return nil
	}
	log.Printf("order %s: status updated to %s", result.OrderID, target)
	return nil
}
