// Package stockclient is the order service's HTTP client for the product
// registry. Every failure mode of the cross-service call maps to a distinct
// apperr kind so callers can tell "registry down" from "out of stock".
package stockclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go-mini-commerce/internal/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product mirrors the registry's wire representation. StockQuantity is a
// pointer so a payload missing the field is distinguishable from zero stock.
type Product struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity *int            `json:"stock_quantity"`
}

type adjustRequest struct {
	Delta int `json:"delta"`
}

type errorBody struct {
	Error string `json:"error"`
}

type dataEnvelope struct {
	Data Product `json:"data"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client with an explicit per-request timeout. The timeout is
// mandatory: a hung registry must surface as KindTimeout, not a stuck worker.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// GetProduct fetches the current product record from the registry.
func (c *Client) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/v1/products/%s", c.baseURL, id), nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "build registry request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var product Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, apperr.Wrap(apperr.KindBadUpstream, "registry returned an unreadable product payload", err)
	}
	if product.StockQuantity == nil {
		return nil, apperr.New(apperr.KindBadUpstream, "registry product payload is missing stock_quantity")
	}
	return &product, nil
}

// AdjustStock applies a signed delta to the product's stock counter in a
// single registry-side transaction and returns the updated record.
func (c *Client) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*Product, error) {
	body, err := json.Marshal(adjustRequest{Delta: delta})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "encode stock adjustment", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		fmt.Sprintf("%s/api/v1/products/%s/stock", c.baseURL, id), bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "build registry request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var envelope dataEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, apperr.Wrap(apperr.KindBadUpstream, "registry returned an unreadable adjustment payload", err)
	}
	if envelope.Data.StockQuantity == nil {
		return nil, apperr.New(apperr.KindBadUpstream, "registry adjustment payload is missing stock_quantity")
	}
	return &envelope.Data, nil
}

// transportError distinguishes a timed-out registry from an unreachable one.
func transportError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return apperr.Wrap(apperr.KindTimeout, "product registry request timed out", err)
	}
	return apperr.Wrap(apperr.KindUnavailable, "product registry is unreachable", err)
}

// statusError translates registry status codes into the shared taxonomy.
func statusError(resp *http.Response) error {
	detail := upstreamDetail(resp)
	switch resp.StatusCode {
	case http.StatusNotFound:
		return apperr.New(apperr.KindNotFound, "product not found in registry")
	case http.StatusUnprocessableEntity:
		return apperr.Newf(apperr.KindValidation, "registry rejected the stock update: %s", detail)
	case http.StatusBadRequest:
		return apperr.Newf(apperr.KindConflict, "insufficient stock: %s", detail)
	case http.StatusServiceUnavailable:
		return apperr.Newf(apperr.KindUnavailable, "product registry unavailable: %s", detail)
	case http.StatusGatewayTimeout:
		return apperr.Newf(apperr.KindTimeout, "product registry timed out: %s", detail)
	default:
		return apperr.Newf(apperr.KindInternal, "registry returned status %d: %s", resp.StatusCode, detail)
	}
}

func upstreamDetail(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(raw) == 0 {
		return resp.Status
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return string(raw)
}
