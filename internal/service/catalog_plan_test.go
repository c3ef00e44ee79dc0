package service

import (
	"testing"

	"go-mini-commerce/internal/event"
	"go-mini-commerce/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lockedProducts(stocks map[uuid.UUID]int) map[uuid.UUID]*model.Product {
	products := make(map[uuid.UUID]*model.Product, len(stocks))
	for id, stock := range stocks {
		p := &model.Product{Stock: stock}
		p.ID = id
		products[id] = p
	}
	return products
}

func TestPlanDeductionAllPass(t *testing.T) {
	widget, gadget := uuid.New(), uuid.New()
	products := lockedProducts(map[uuid.UUID]int{widget: 10, gadget: 5})

	results, allOK := planDeduction(products, []event.OrderLine{
		{ProductID: widget, Quantity: 3},
		{ProductID: gadget, Quantity: 5},
	})

	require.True(t, allOK)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.True(t, res.OK)
		assert.Empty(t, res.Message)
	}
}

func TestPlanDeductionInsufficientStock(t *testing.T) {
	widget, gadget := uuid.New(), uuid.New()
	products := lockedProducts(map[uuid.UUID]int{widget: 10, gadget: 2})

	results, allOK := planDeduction(products, []event.OrderLine{
		{ProductID: widget, Quantity: 3},
		{ProductID: gadget, Quantity: 5},
	})

	require.False(t, allOK)
	require.Len(t, results, 2)

	// Nothing is applied: the passing line is reported as not-applied and
	// the failing line carries its reason.
	assert.False(t, results[0].OK)
	assert.Equal(t, "not applied: order rejected", results[0].Message)
	assert.False(t, results[1].OK)
	assert.Contains(t, results[1].Message, "insufficient stock")
}

func TestPlanDeductionMissingProduct(t *testing.T) {
	widget := uuid.New()
	products := lockedProducts(map[uuid.UUID]int{widget: 10})
	ghost := uuid.New()

	results, allOK := planDeduction(products, []event.OrderLine{
		{ProductID: widget, Quantity: 1},
		{ProductID: ghost, Quantity: 1},
	})

	require.False(t, allOK)
	assert.Contains(t, results[1].Message, "not found")
}

func TestPlanDeductionDuplicateLinesShareStock(t *testing.T) {
	widget := uuid.New()
	products := lockedProducts(map[uuid.UUID]int{widget: 5})

	// Two lines for the same product must be checked against the shared
	// remaining stock, not each against the full counter.
	results, allOK := planDeduction(products, []event.OrderLine{
		{ProductID: widget, Quantity: 3},
		{ProductID: widget, Quantity: 3},
	})

	require.False(t, allOK)
	assert.Contains(t, results[1].Message, "insufficient stock")

	results, allOK = planDeduction(products, []event.OrderLine{
		{ProductID: widget, Quantity: 3},
		{ProductID: widget, Quantity: 2},
	})
	require.True(t, allOK)
	require.Len(t, results, 2)
}

func TestPlanDeductionNonPositiveQuantity(t *testing.T) {
	widget := uuid.New()
	products := lockedProducts(map[uuid.UUID]int{widget: 10})

	// Events arrive over an open channel; a zero or negative quantity must
	// fail the order instead of slipping through (a negative one would add
	// stock when applied).
	for _, qty := range []int{0, -3} {
		results, allOK := planDeduction(products, []event.OrderLine{
			{ProductID: widget, Quantity: qty},
		})
		require.False(t, allOK, "quantity %d", qty)
		assert.Contains(t, results[0].Message, "invalid quantity")
	}

	results, allOK := planDeduction(products, []event.OrderLine{
		{ProductID: widget, Quantity: 2},
		{ProductID: widget, Quantity: -1},
	})
	require.False(t, allOK)
	assert.Equal(t, "not applied: order rejected", results[0].Message)
	assert.Contains(t, results[1].Message, "invalid quantity")
}

func TestBuildStockResultRoutingKeys(t *testing.T) {
	ok := buildStockResult(uuid.New(), nil, true)
	assert.Equal(t, event.StatusSuccess, ok.Status)
	assert.Equal(t, event.KeyStockDeducted, ok.RoutingKey())

	failed := buildStockResult(uuid.New(), nil, false)
	assert.Equal(t, event.StatusFailure, failed.Status)
	assert.Equal(t, event.KeyStockFailed, failed.RoutingKey())
}

func TestResultFromLedger(t *testing.T) {
	orderID, widget := uuid.New(), uuid.New()

	applied := resultFromLedger(orderID, []model.StockAdjustment{
		{OrderID: orderID, ProductID: widget, Delta: -3, Status: model.AdjustmentApplied},
	})
	assert.Equal(t, event.StatusSuccess, applied.Status)
	require.Len(t, applied.Items, 1)
	assert.Equal(t, 3, applied.Items[0].Quantity)
	assert.True(t, applied.Items[0].OK)

	rejected := resultFromLedger(orderID, []model.StockAdjustment{
		{OrderID: orderID, ProductID: widget, Delta: -3, Status: model.AdjustmentRejected, Message: "insufficient stock"},
	})
	assert.Equal(t, event.StatusFailure, rejected.Status)
	assert.Equal(t, "insufficient stock", rejected.Items[0].Message)
}
