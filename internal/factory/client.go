// Package factory talks to the external pizza factory that fulfills orders.
package factory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sliceline.app/internal/pizza"
)

// ErrFactoryRejected reports that the factory refused to fulfill an order.
var ErrFactoryRejected = errors.New("factory: order rejected")

// RejectionError carries the follow-up URL the factory hands back alongside
// a rejection so callers can surface it to the diner.
type RejectionError struct {
	Status    int
	ReportURL string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("factory: order rejected with status %d", e.Status)
}

func (e *RejectionError) Unwrap() error { return ErrFactoryRejected }

// CallLogger receives a record of every factory interaction. Satisfied by
// the logging pipeline.
type CallLogger interface {
	FactoryCall(info any)
}

// Verification is the factory's acknowledgement of a fulfilled order.
type Verification struct {
	JWT       string `json:"jwt"`
	ReportURL string `json:"reportUrl"`
}

// Diner identifies who placed the order in the verification request.
type Diner struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Client is an HTTP client for the factory API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     CallLogger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithCallLogger wires outbound call logging.
func WithCallLogger(log CallLogger) Option {
	return func(cl *Client) { cl.log = log }
}

// New builds a Client for the factory at baseURL.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Verify submits a stored order to the factory for fulfillment. On success
// the factory returns a signed receipt and a slow-pizza report URL. On
// rejection the error wraps ErrFactoryRejected and carries the factory's
// follow-up URL when one was provided.
func (c *Client) Verify(ctx context.Context, diner Diner, order *pizza.Order) (*Verification, error) {
	payload, err := json.Marshal(map[string]any{
		"diner": diner,
		"order": order,
	})
	if err != nil {
		return nil, fmt.Errorf("encode verification request: %w", err)
	}

	url := c.baseURL + "/api/order/verify"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logCall(order, 0, err)
		return nil, fmt.Errorf("call factory: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.logCall(order, resp.StatusCode, err)
		return nil, fmt.Errorf("read factory response: %w", err)
	}
	c.logCall(order, resp.StatusCode, nil)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rej := &RejectionError{Status: resp.StatusCode}
		var report struct {
			ReportURL string `json:"reportUrl"`
		}
		if json.Unmarshal(body, &report) == nil {
			rej.ReportURL = report.ReportURL
		}
		return nil, rej
	}

	var v Verification
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decode factory response: %w", err)
	}
	return &v, nil
}

func (c *Client) logCall(order *pizza.Order, status int, err error) {
	if c.log == nil {
		return
	}
	info := map[string]any{
		"orderId":    order.ID,
		"storeId":    order.StoreID,
		"statusCode": status,
	}
	if err != nil {
		info["error"] = err.Error()
	}
	c.log.FactoryCall(info)
}
