package service

import (
	"context"
	"encoding/json"
	"testing"

	"go-mini-commerce/internal/broker"
	"go-mini-commerce/internal/event"
	"go-mini-commerce/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingOrder(t *testing.T, repo *mockOrderRepository) *model.Order {
	t.Helper()
	order := &model.Order{
		CustomerID: uuid.New(),
		Status:     model.StatusPendingStockCheck,
	}
	require.NoError(t, repo.Create(order))
	return order
}

func stockResultBody(t *testing.T, orderID uuid.UUID, status string) []byte {
	t.Helper()
	body, err := json.Marshal(event.StockResult{OrderID: orderID, Status: status})
	require.NoError(t, err)
	return body
}

func TestHandleStockResultSuccess(t *testing.T) {
	repo := newMockOrderRepository()
	consumer := NewOrderConsumer(repo)
	order := pendingOrder(t, repo)

	err := consumer.HandleStockResult(context.Background(),
		stockResultBody(t, order.ID, event.StatusSuccess))

	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, repo.store[order.ID].Status)
}

func TestHandleStockResultFailure(t *testing.T) {
	repo := newMockOrderRepository()
	consumer := NewOrderConsumer(repo)
	order := pendingOrder(t, repo)

	err := consumer.HandleStockResult(context.Background(),
		stockResultBody(t, order.ID, event.StatusFailure))

	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, repo.store[order.ID].Status)
}

func TestHandleStockResultDuplicateDelivery(t *testing.T) {
	repo := newMockOrderRepository()
	consumer := NewOrderConsumer(repo)
	order := pendingOrder(t, repo)
	body := stockResultBody(t, order.ID, event.StatusSuccess)

	require.NoError(t, consumer.HandleStockResult(context.Background(), body))
	require.NoError(t, consumer.HandleStockResult(context.Background(), body))
	assert.Equal(t, model.StatusConfirmed, repo.store[order.ID].Status)
}

func TestHandleStockResultLateAfterCancel(t *testing.T) {
	repo := newMockOrderRepository()
	consumer := NewOrderConsumer(repo)
	order := pendingOrder(t, repo)
	repo.store[order.ID].Status = model.StatusCancelled

	// A late result must never drag a cancelled order back to life, and the
	// delivery is still acked (nil return).
	err := consumer.HandleStockResult(context.Background(),
		stockResultBody(t, order.ID, event.StatusSuccess))

	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, repo.store[order.ID].Status)
}

func TestHandleStockResultUnknownOrder(t *testing.T) {
	repo := newMockOrderRepository()
	consumer := NewOrderConsumer(repo)

	err := consumer.HandleStockResult(context.Background(),
		stockResultBody(t, uuid.New(), event.StatusSuccess))
	require.NoError(t, err)
}

func TestHandleStockResultMalformed(t *testing.T) {
	consumer := NewOrderConsumer(newMockOrderRepository())

	err := consumer.HandleStockResult(context.Background(), []byte("{not json"))
	require.ErrorIs(t, err, broker.ErrReject, "garbage must dead-letter, not requeue")
}
