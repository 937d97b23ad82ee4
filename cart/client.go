package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yeremiapane/fnb-kiosk/models"
	"github.com/yeremiapane/fnb-kiosk/utils"
)

// Submitter sends an order submission to the order service.
type Submitter interface {
	Submit(ctx context.Context, sub *models.OrderSubmission) (*models.CreateOrderResponse, error)
}

// SubmitError is a non-2xx answer from the order service.
type SubmitError struct {
	StatusCode int
	Message    string
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("order rejected (%d): %s", e.StatusCode, e.Message)
}

// Client talks to the kiosk HTTP API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr utils.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &SubmitError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) Submit(ctx context.Context, sub *models.OrderSubmission) (*models.CreateOrderResponse, error) {
	var resp models.CreateOrderResponse
	if err := c.do(ctx, http.MethodPost, "/api/orders", sub, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Menu fetches the purchasable items.
func (c *Client) Menu(ctx context.Context) ([]models.MenuItem, error) {
	var resp struct {
		Success bool              `json:"success"`
		Data    []models.MenuItem `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/menu", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// PlaceOrder submits the cart and empties it only when the service accepted the
// order. On any failure the cart is left exactly as it was so the customer can
// retry.
func PlaceOrder(ctx context.Context, c *Cart, s Submitter, customerName string) (*models.CreateOrderResponse, error) {
	sub, err := c.BuildSubmission(customerName)
	if err != nil {
		return nil, err
	}

	resp, err := s.Submit(ctx, sub)
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.OrderID == "" {
		return nil, &SubmitError{StatusCode: http.StatusOK, Message: "order service did not confirm the order"}
	}

	c.Reset()
	return resp, nil
}
