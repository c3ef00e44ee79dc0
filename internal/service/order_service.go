package service

import (
	"context"
	"log"
	"time"

	"go-mini-commerce/internal/apperr"
	"go-mini-commerce/internal/event"
	"go-mini-commerce/internal/model"
	"go-mini-commerce/internal/repository"
	"go-mini-commerce/internal/stockclient"
	"go-mini-commerce/pkg/validator"

	"github.com/google/uuid"
)

// StockGateway is the synchronous stock-adjustment channel to the product
// registry. Implemented by stockclient.Client; mocked in tests.
type StockGateway interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*stockclient.Product, error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*stockclient.Product, error)
}

// EventPublisher is the asynchronous stock-adjustment channel.
// Implemented by broker.Publisher; mocked in tests.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, payload interface{}) error
}

type CreateOrderItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1"`
}

type CreateOrderRequest struct {
	CustomerID uuid.UUID         `json:"customer_id" validate:"uuid_required"`
	Items      []CreateOrderItem `json:"items" validate:"required,min=1,dive"`
}

// UpdateOrderRequest changes the quantity of one line item on a confirmed
// order. The stock delta is applied to the registry before the row changes.
type UpdateOrderRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*model.Order, error)
	ListOrders() ([]model.Order, error)
	ListCustomerOrders(customerID uuid.UUID) ([]model.Order, error)
	GetOrder(id uuid.UUID) (*model.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, req *UpdateOrderRequest) (*model.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	CancelOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
}

type orderService struct {
	orders repository.OrderRepository
	stock  StockGateway
	events EventPublisher
	async  bool // create via pending-stock-check + order.created event
}

// NewOrderService wires the coordinator. With async=false order creation
// adjusts stock synchronously and persists a terminal order; with async=true
// it persists PENDING_STOCK_CHECK and publishes order.created.
func NewOrderService(orders repository.OrderRepository, stock StockGateway, events EventPublisher, async bool) OrderService {
	return &orderService{
		orders: orders,
		stock:  stock,
		events: events,
		async:  async,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*model.Order, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}
	seen := make(map[uuid.UUID]bool, len(req.Items))
	for _, item := range req.Items {
		if seen[item.ProductID] {
			return nil, apperr.Newf(apperr.KindValidation,
				"duplicate line item for product %s", item.ProductID)
		}
		seen[item.ProductID] = true
	}

	// Snapshot the unit price of every product at order time. Totals are
	// decimal-exact from here on.
	items := make([]model.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		product, err := s.stock.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, model.OrderItem{
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			PriceAtPurchase: product.Price,
		})
	}

	order := &model.Order{
		CustomerID: req.CustomerID,
		Items:      items,
	}
	order.ComputeTotal()

	if s.async {
		return s.createAsync(ctx, order)
	}
	return s.createSync(ctx, order)
}

// createSync deducts stock for every item before the order is persisted.
// On any failure the deductions already made are returned, so a rejected
// order leaves stock unchanged and no order row behind.
func (s *orderService) createSync(ctx context.Context, order *model.Order) (*model.Order, error) {
	if err := s.adjustItems(ctx, order.Items, -1); err != nil {
		return nil, err
	}

	order.Status = model.StatusConfirmed
	if err := s.orders.Create(order); err != nil {
		// Return the stock we already took; the order was never visible.
		if undoErr := s.adjustItems(ctx, order.Items, +1); undoErr != nil {
			log.Printf("order create: failed to return stock after persist error: %v", undoErr)
		}
		return nil, apperr.Wrap(apperr.KindPersistence, "persist order", err)
	}
	return order, nil
}

// createAsync persists the order in PENDING_STOCK_CHECK and emits
// order.created. The product registry answers on the stock_events topic.
func (s *orderService) createAsync(ctx context.Context, order *model.Order) (*model.Order, error) {
	order.Status = model.StatusPendingStockCheck
	if err := s.orders.Create(order); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "persist order", err)
	}

	lines := make([]event.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, event.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	evt := event.OrderCreated{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Items:      lines,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, event.ExchangeOrderEvents, event.KeyOrderCreated, evt); err != nil {
		// The order stays pending; it can be reconciled or re-published.
		log.Printf("order %s: failed to publish order.created: %v", order.ID, err)
	}
	return order, nil
}

func (s *orderService) ListOrders() ([]model.Order, error) {
	orders, err := s.orders.FindAll()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "list orders", err)
	}
	return orders, nil
}

func (s *orderService) ListCustomerOrders(customerID uuid.UUID) ([]model.Order, error) {
	orders, err := s.orders.FindByCustomer(customerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "list customer orders", err)
	}
	return orders, nil
}

func (s *orderService) GetOrder(id uuid.UUID) (*model.Order, error) {
	order, err := s.orders.FindByID(id)
	if err != nil {
		return nil, wrapDBErr(err, "order not found")
	}
	return order, nil
}

func (s *orderService) UpdateOrder(ctx context.Context, id uuid.UUID, req *UpdateOrderRequest) (*model.Order, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	order, err := s.orders.FindByID(id)
	if err != nil {
		return nil, wrapDBErr(err, "order not found")
	}
	if order.Status != model.StatusConfirmed {
		return nil, apperr.Newf(apperr.KindConflict,
			"order in status %s cannot be updated", order.Status)
	}

	item := order.ItemFor(req.ProductID)
	if item == nil {
		return nil, apperr.Newf(apperr.KindNotFound,
			"order has no line item for product %s", req.ProductID)
	}

	delta := req.Quantity - item.Quantity
	if delta == 0 {
		return order, nil
	}

	// Increasing the order quantity consumes more stock, hence the sign flip.
	if _, err := s.stock.AdjustStock(ctx, req.ProductID, -delta); err != nil {
		return nil, err
	}

	item.Quantity = req.Quantity
	order.ComputeTotal()
	if err := s.orders.Save(order); err != nil {
		if _, undoErr := s.stock.AdjustStock(ctx, req.ProductID, delta); undoErr != nil {
			log.Printf("order %s: failed to return stock after update persist error: %v", id, undoErr)
		}
		return nil, apperr.Wrap(apperr.KindPersistence, "persist order update", err)
	}
	return order, nil
}

// DeleteOrder returns the full ordered quantity of a confirmed order to the
// registry before removing the row. If the compensating return fails, the
// delete does not proceed.
func (s *orderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	order, err := s.orders.FindByID(id)
	if err != nil {
		return wrapDBErr(err, "order not found")
	}

	switch order.Status {
	case model.StatusPendingStockCheck:
		return apperr.New(apperr.KindConflict,
			"order is awaiting its stock check; cancel it once the result arrives")
	case model.StatusConfirmed:
		if err := s.adjustItems(ctx, order.Items, +1); err != nil {
			return err
		}
	}
	// FAILED and CANCELLED orders hold no stock.

	if err := s.orders.Delete(id); err != nil {
		if order.Status == model.StatusConfirmed {
			if undoErr := s.adjustItems(ctx, order.Items, -1); undoErr != nil {
				log.Printf("order %s: failed to re-deduct stock after delete error: %v", id, undoErr)
			}
		}
		return apperr.Wrap(apperr.KindPersistence, "delete order", err)
	}
	return nil
}

// CancelOrder is the administrative path out of a terminal stock-check
// outcome. Orders still awaiting their stock check cannot be cancelled: the
// registry may be deducting right now, and a cancel that wins that race
// would discard the success result and leak the deducted stock. Cancelling
// a confirmed order performs the compensating stock return first and aborts
// when the return fails.
func (s *orderService) CancelOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orders.FindByID(id)
	if err != nil {
		return nil, wrapDBErr(err, "order not found")
	}
	if order.Status == model.StatusPendingStockCheck {
		return nil, apperr.New(apperr.KindConflict,
			"order is awaiting its stock check; cancel it once the result arrives")
	}

	from := order.Status
	if err := order.Transition(model.StatusCancelled); err != nil {
		return nil, apperr.Newf(apperr.KindConflict,
			"order in status %s cannot be cancelled", from)
	}

	if from == model.StatusConfirmed {
		if err := s.adjustItems(ctx, order.Items, +1); err != nil {
			return nil, err
		}
	}

	moved, err := s.orders.TransitionStatus(id, from, model.StatusCancelled)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "cancel order", err)
	}
	if !moved {
		if from == model.StatusConfirmed {
			if undoErr := s.adjustItems(ctx, order.Items, -1); undoErr != nil {
				log.Printf("order %s: failed to re-deduct stock after cancel race: %v", id, undoErr)
			}
		}
		return nil, apperr.New(apperr.KindConflict, "order status changed concurrently")
	}

	return order, nil
}

// adjustItems applies sign*quantity for every item, undoing the ones already
// applied when a later one fails so the registry never keeps a partial
// multi-item adjustment.
func (s *orderService) adjustItems(ctx context.Context, items []model.OrderItem, sign int) error {
	done := make([]model.OrderItem, 0, len(items))
	for _, item := range items {
		if _, err := s.stock.AdjustStock(ctx, item.ProductID, sign*item.Quantity); err != nil {
			for _, applied := range done {
				if _, undoErr := s.stock.AdjustStock(ctx, applied.ProductID, -sign*applied.Quantity); undoErr != nil {
					log.Printf("stock compensation failed for product %s: %v", applied.ProductID, undoErr)
				}
			}
			return err
		}
		done = append(done, item)
	}
	return nil
}
