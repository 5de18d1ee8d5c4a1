// Package rest is the HTTP client for the order API. Mutations issued here
// travel independently of the push stream; the stream's connection state
// never blocks a REST call.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Additional-Code/brigade/internal/dto"
	"github.com/Additional-Code/brigade/internal/status"
)

// APIError is a non-2xx response. Message is taken verbatim from the server's
// `{message}` body when present so it can be surfaced to the user unchanged.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// Client talks to the order API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateItem is one line of a create-order or add-item request.
type CreateItem struct {
	MenuItemID          int64  `json:"menuItemId"`
	Quantity            int    `json:"quantity"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}

// CreateOrder holds the create-order request body.
type CreateOrder struct {
	TableNumber int          `json:"tableNumber"`
	ServerName  string       `json:"serverName"`
	Items       []CreateItem `json:"items"`
}

// UpdateOrder holds the order-header update body; nil fields are untouched.
type UpdateOrder struct {
	TableNumber *int    `json:"tableNumber,omitempty"`
	ServerName  *string `json:"serverName,omitempty"`
}

// UpdateItem holds the item update body.
type UpdateItem struct {
	Quantity            int    `json:"quantity"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}

// ListOrders fetches the full order snapshot used to seed a view.
func (c *Client) ListOrders(ctx context.Context) ([]dto.Order, error) {
	var out []dto.Order
	err := c.do(ctx, http.MethodGet, "/orders", nil, &out)
	return out, err
}

// GetOrder fetches one order.
func (c *Client) GetOrder(ctx context.Context, id int64) (dto.Order, error) {
	var out dto.Order
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, &out)
	return out, err
}

// Create submits a new order.
func (c *Client) Create(ctx context.Context, req CreateOrder) (dto.Order, error) {
	var out dto.Order
	err := c.do(ctx, http.MethodPost, "/orders", req, &out)
	return out, err
}

// Update rewrites the order header.
func (c *Client) Update(ctx context.Context, id int64, req UpdateOrder) (dto.Order, error) {
	var out dto.Order
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/orders/%d", id), req, &out)
	return out, err
}

// UpdateStatus moves an order to a new status.
func (c *Client) UpdateStatus(ctx context.Context, id int64, to status.Status) (dto.Order, error) {
	var out dto.Order
	body := struct {
		Status status.Status `json:"status"`
	}{Status: to}
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/orders/%d/status", id), body, &out)
	return out, err
}

// BulkUpdateStatus moves several orders to one status in a single call.
func (c *Client) BulkUpdateStatus(ctx context.Context, ids []int64, to status.Status) error {
	body := struct {
		OrderIDs []int64       `json:"orderIds"`
		Status   status.Status `json:"status"`
	}{OrderIDs: ids, Status: to}
	return c.do(ctx, http.MethodPost, "/orders/bulk-status", body, nil)
}

// Delete removes an order.
func (c *Client) Delete(ctx context.Context, id int64) (dto.Order, error) {
	var out dto.Order
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/orders/%d", id), nil, &out)
	return out, err
}

// AddItem appends a line to an order.
func (c *Client) AddItem(ctx context.Context, orderID int64, req CreateItem) (dto.OrderItem, error) {
	var out dto.OrderItem
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%d/items", orderID), req, &out)
	return out, err
}

// UpdateOrderItem replaces quantity and instructions on a line.
func (c *Client) UpdateOrderItem(ctx context.Context, orderID, itemID int64, req UpdateItem) (dto.OrderItem, error) {
	var out dto.OrderItem
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/orders/%d/items/%d", orderID, itemID), req, &out)
	return out, err
}

// RemoveItem deletes a line from an order.
func (c *Client) RemoveItem(ctx context.Context, orderID, itemID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/orders/%d/items/%d", orderID, itemID), nil)
}

// ListMenuItems fetches the menu for draft pickers.
func (c *Client) ListMenuItems(ctx context.Context) ([]dto.MenuItem, error) {
	var out []dto.MenuItem
	err := c.do(ctx, http.MethodGet, "/menu-items", nil, &out)
	return out, err
}

// do issues one request. Success bodies are `{"data": ...}`; error bodies are
// `{"message": ...}` with a generic fallback when absent.
func (c *Client) do(ctx context.Context, method, path string, body any, out ...any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &payload); err == nil {
			apiErr.Message = payload.Message
		}
		return apiErr
	}

	if len(out) == 0 || out[0] == nil {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out[0]); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
