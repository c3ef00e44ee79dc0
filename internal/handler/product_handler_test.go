package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-mini-commerce/internal/apperr"
	"go-mini-commerce/internal/event"
	"go-mini-commerce/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCatalog struct {
	products  map[uuid.UUID]*model.Product
	adjustErr error
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{products: make(map[uuid.UUID]*model.Product)}
}

func (m *mockCatalog) add(name, price string, stock int) *model.Product {
	p := &model.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock}
	p.ID = uuid.New()
	m.products[p.ID] = p
	return p
}

func (m *mockCatalog) CreateProduct(req *model.Product) error {
	req.ID = uuid.New()
	m.products[req.ID] = req
	return nil
}

func (m *mockCatalog) ListProducts() ([]model.Product, error) {
	out := make([]model.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockCatalog) GetProduct(id uuid.UUID) (*model.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "product not found")
	}
	return p, nil
}

func (m *mockCatalog) UpdateProduct(id uuid.UUID, req *model.Product) (*model.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "product not found")
	}
	p.Name = req.Name
	p.Price = req.Price
	p.Stock = req.Stock
	return p, nil
}

func (m *mockCatalog) DeleteProduct(id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return apperr.New(apperr.KindNotFound, "product not found")
	}
	delete(m.products, id)
	return nil
}

func (m *mockCatalog) AdjustStock(id uuid.UUID, delta int) (*model.Product, error) {
	if m.adjustErr != nil {
		return nil, m.adjustErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "product not found")
	}
	if p.Stock+delta < 0 {
		return nil, apperr.Newf(apperr.KindConflict,
			"not enough stock for product %s: available %d, requested change %d", id, p.Stock, delta)
	}
	p.Stock += delta
	return p, nil
}

func (m *mockCatalog) ApplyOrderDeduction(evt event.OrderCreated) (event.StockResult, error) {
	return event.StockResult{}, nil
}

func productApp(catalog *mockCatalog) *fiber.App {
	app := fiber.New()
	h := NewProductHandler(catalog)
	api := app.Group("/api/v1")
	api.Get("/products", h.GetProducts)
	api.Post("/products", h.CreateProduct)
	api.Get("/products/:id", h.GetProduct)
	api.Put("/products/:id", h.UpdateProduct)
	api.Delete("/products/:id", h.DeleteProduct)
	api.Patch("/products/:id/stock", h.AdjustStock)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

func TestGetProductWireShape(t *testing.T) {
	catalog := newMockCatalog()
	widget := catalog.add("Widget", "10.50", 7)
	app := productApp(catalog)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/products/"+widget.ID.String(), nil)

	require.Equal(t, 200, resp.StatusCode)
	// The record is returned unwrapped with stock under "stock_quantity".
	assert.Equal(t, widget.ID.String(), body["id"])
	assert.Equal(t, float64(7), body["stock_quantity"])
	_, wrapped := body["data"]
	assert.False(t, wrapped)
}

func TestGetProductNotFound(t *testing.T) {
	app := productApp(newMockCatalog())

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/products/"+uuid.NewString(), nil)

	require.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "product not found", body["error"])
}

func TestGetProductInvalidID(t *testing.T) {
	app := productApp(newMockCatalog())

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/products/not-a-uuid", nil)

	require.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "Invalid product ID", body["error"])
}

func TestAdjustStockEndpoint(t *testing.T) {
	catalog := newMockCatalog()
	widget := catalog.add("Widget", "10.50", 7)
	app := productApp(catalog)
	path := fmt.Sprintf("/api/v1/products/%s/stock", widget.ID)

	t.Run("deduct", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPatch, path, map[string]int{"delta": -3})

		require.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "Stock adjusted", body["message"])
		data := body["data"].(map[string]interface{})
		assert.Equal(t, float64(4), data["stock_quantity"])
	})

	t.Run("return", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPatch, path, map[string]int{"delta": 3})

		require.Equal(t, 200, resp.StatusCode)
		data := body["data"].(map[string]interface{})
		assert.Equal(t, float64(7), data["stock_quantity"])
	})

	t.Run("insufficient stock", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPatch, path, map[string]int{"delta": -100})

		require.Equal(t, 400, resp.StatusCode)
		assert.Contains(t, body["error"], "not enough stock")
		assert.Equal(t, 7, widget.Stock, "rejected adjustment must not change stock")
	})

	t.Run("unknown product", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPatch,
			fmt.Sprintf("/api/v1/products/%s/stock", uuid.New()), map[string]int{"delta": -1})
		require.Equal(t, 404, resp.StatusCode)
	})
}

func TestAdjustStockUnavailable(t *testing.T) {
	catalog := newMockCatalog()
	widget := catalog.add("Widget", "10.50", 7)
	catalog.adjustErr = apperr.New(apperr.KindUnavailable, "database unavailable")
	app := productApp(catalog)

	resp, body := doJSON(t, app, http.MethodPatch,
		fmt.Sprintf("/api/v1/products/%s/stock", widget.ID), map[string]int{"delta": -1})

	require.Equal(t, 503, resp.StatusCode)
	assert.Equal(t, "database unavailable", body["error"])
}
