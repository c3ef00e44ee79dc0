package service

import (
	"context"

	"go-mini-commerce/internal/apperr"
	"go-mini-commerce/internal/model"
	"go-mini-commerce/internal/stockclient"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// errNotFound is what the real repositories surface for a missing row.
var errNotFound = gorm.ErrRecordNotFound

// mockOrderRepository keeps orders in a map and mimics the guarded status
// transition of the real repository.
type mockOrderRepository struct {
	store      map[uuid.UUID]*model.Order
	createErr  error
	saveErr    error
	deleteErr  error
	transitErr error
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{store: make(map[uuid.UUID]*model.Order)}
}

func (m *mockOrderRepository) Create(order *model.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	copied := *order
	m.store[order.ID] = &copied
	return nil
}

func (m *mockOrderRepository) FindAll() ([]model.Order, error) {
	orders := make([]model.Order, 0, len(m.store))
	for _, order := range m.store {
		orders = append(orders, *order)
	}
	return orders, nil
}

func (m *mockOrderRepository) FindByCustomer(customerID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	for _, order := range m.store {
		if order.CustomerID == customerID {
			orders = append(orders, *order)
		}
	}
	return orders, nil
}

func (m *mockOrderRepository) FindByID(id uuid.UUID) (*model.Order, error) {
	order, ok := m.store[id]
	if !ok {
		return nil, errNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *mockOrderRepository) Save(order *model.Order) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	copied := *order
	m.store[order.ID] = &copied
	return nil
}

func (m *mockOrderRepository) Delete(id uuid.UUID) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.store, id)
	return nil
}

func (m *mockOrderRepository) TransitionStatus(id uuid.UUID, from, to model.OrderStatus) (bool, error) {
	if m.transitErr != nil {
		return false, m.transitErr
	}
	order, ok := m.store[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	return true, nil
}

// mockStockGateway simulates the product registry with in-memory counters.
type mockStockGateway struct {
	stock     map[uuid.UUID]int
	prices    map[uuid.UUID]decimal.Decimal
	adjustErr map[uuid.UUID]error // forced AdjustStock failures per product
	adjusts   int                 // number of AdjustStock calls made
}

func newMockStockGateway() *mockStockGateway {
	return &mockStockGateway{
		stock:     make(map[uuid.UUID]int),
		prices:    make(map[uuid.UUID]decimal.Decimal),
		adjustErr: make(map[uuid.UUID]error),
	}
}

func (m *mockStockGateway) addProduct(price string, stock int) uuid.UUID {
	id := uuid.New()
	m.stock[id] = stock
	m.prices[id] = decimal.RequireFromString(price)
	return id
}

func (m *mockStockGateway) product(id uuid.UUID) *stockclient.Product {
	qty := m.stock[id]
	return &stockclient.Product{ID: id, Price: m.prices[id], StockQuantity: &qty}
}

func (m *mockStockGateway) GetProduct(ctx context.Context, id uuid.UUID) (*stockclient.Product, error) {
	if _, ok := m.stock[id]; !ok {
		return nil, apperr.New(apperr.KindNotFound, "product not found in registry")
	}
	return m.product(id), nil
}

func (m *mockStockGateway) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*stockclient.Product, error) {
	m.adjusts++
	if err, ok := m.adjustErr[id]; ok {
		return nil, err
	}
	current, ok := m.stock[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "product not found in registry")
	}
	if current+delta < 0 {
		return nil, apperr.Newf(apperr.KindConflict, "insufficient stock: available %d", current)
	}
	m.stock[id] = current + delta
	return m.product(id), nil
}

type publishedEvent struct {
	exchange   string
	routingKey string
	payload    interface{}
}

type mockEventPublisher struct {
	events     []publishedEvent
	publishErr error
}

func (m *mockEventPublisher) Publish(ctx context.Context, exchange, routingKey string, payload interface{}) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.events = append(m.events, publishedEvent{exchange, routingKey, payload})
	return nil
}
