package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"go-mini-commerce/internal/broker"
	"go-mini-commerce/internal/event"
)

// DeductionApplier is the slice of CatalogService the consumer needs.
type DeductionApplier interface {
	ApplyOrderDeduction(evt event.OrderCreated) (event.StockResult, error)
}

// RegistryConsumer handles order.created events on the product registry
// side: apply the deduction (all-or-nothing, idempotent) and answer with a
// stock.deducted or stock.failed event.
type RegistryConsumer struct {
	catalog DeductionApplier
	events  EventPublisher
}

func NewRegistryConsumer(catalog DeductionApplier, events EventPublisher) *RegistryConsumer {
	return &RegistryConsumer{catalog: catalog, events: events}
}

// HandleOrderCreated implements broker.HandlerFunc. A failed publish leaves
// the message unacked; the redelivery re-emits the ledger's stored outcome
// without touching stock again.
func (c *RegistryConsumer) HandleOrderCreated(ctx context.Context, body []byte) error {
	var evt event.OrderCreated
	if err := json.Unmarshal(body, &evt); err != nil {
		return fmt.Errorf("%w: decode order.created: %v", broker.ErrReject, err)
	}

	result, err := c.catalog.ApplyOrderDeduction(evt)
	if err != nil {
		return fmt.Errorf("apply deduction for order %s: %w", evt.OrderID, err)
	}

	if err := c.events.Publish(ctx, event.ExchangeStockEvents, result.RoutingKey(), result); err != nil {
		return fmt.Errorf("publish stock result for order %s: %w", evt.OrderID, err)
	}
	log.Printf("order %s: stock result %s published", evt.OrderID, result.Status)
	return nil
}
