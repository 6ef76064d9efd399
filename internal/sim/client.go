// Package sim drives synthetic storefront traffic against a running
// instance. cmd/smoke-order uses it for a single end-to-end check and
// cmd/loadgen for sustained scenarios.
package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MenuItem mirrors the menu entry shape of the API.
type MenuItem struct {
	ID    int     `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
}

// OrderItem mirrors the order line shape of the API.
type OrderItem struct {
	MenuID      int     `json:"menuId"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// OrderReceipt is what a successful order returns.
type OrderReceipt struct {
	JWT       string `json:"jwt"`
	ReportURL string `json:"reportSlowPizzaToFactoryUrl"`
}

// Client is a thin API consumer holding a bearer token after login.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// NewClient targets the API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Register creates a diner account and stores the issued token.
func (c *Client) Register(ctx context.Context, name, email, password string) error {
	return c.authenticate(ctx, http.MethodPost, map[string]string{
		"name": name, "email": email, "password": password,
	})
}

// Login signs in and stores the issued token.
func (c *Client) Login(ctx context.Context, email, password string) error {
	return c.authenticate(ctx, http.MethodPut, map[string]string{
		"email": email, "password": password,
	})
}

func (c *Client) authenticate(ctx context.Context, method string, body map[string]string) error {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.call(ctx, method, "/api/auth", body, &out); err != nil {
		return err
	}
	if out.Token == "" {
		return fmt.Errorf("no token in auth response")
	}
	c.token = out.Token
	return nil
}

// Logout revokes the stored token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.call(ctx, http.MethodDelete, "/api/auth", nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

// Menu fetches the catalog.
func (c *Client) Menu(ctx context.Context) ([]MenuItem, error) {
	var menu []MenuItem
	if err := c.call(ctx, http.MethodGet, "/api/order/menu", nil, &menu); err != nil {
		return nil, err
	}
	return menu, nil
}

// Order places an order for the given items.
func (c *Client) Order(ctx context.Context, franchiseID, storeID int, items []OrderItem) (OrderReceipt, error) {
	var receipt OrderReceipt
	err := c.call(ctx, http.MethodPost, "/api/order", map[string]any{
		"franchiseId": franchiseID,
		"storeId":     storeID,
		"items":       items,
	}, &receipt)
	return receipt, err
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, payload)
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}
