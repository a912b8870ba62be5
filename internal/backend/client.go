package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"kioskboard/internal/config"
	"kioskboard/internal/models"
	"kioskboard/internal/utils"
)

// Client talks to the check-in/order REST backend.
type Client struct {
	baseURL string
	http    *http.Client
	log     *utils.Logger
}

// NewClient builds a client for cfg.BackendURL. A nil httpClient gets one with cfg.RequestTimeout.
func NewClient(cfg config.Config, httpClient *http.Client, log *utils.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	if log == nil {
		log = utils.NewNopLogger()
	}
	return &Client{
		baseURL: config.NormalizeBaseURL(cfg.BackendURL),
		http:    httpClient,
		log:     log,
	}
}

// BaseURL is the normalised backend root, always ending in "/".
func (c *Client) BaseURL() string { return c.baseURL }

// ListCheckIns returns the active check-ins.
func (c *Client) ListCheckIns(ctx context.Context) ([]models.CheckIn, error) {
	var out []models.CheckIn
	if err := c.do(ctx, http.MethodGet, "api/checkin/", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.CheckIn{}
	}
	return out, nil
}

// CheckIn records a customer's arrival and returns their reward balance.
func (c *Client) CheckIn(ctx context.Context, phone, name string) (models.CheckInResult, error) {
	var out models.CheckInResult
	err := c.do(ctx, http.MethodPost, "api/checkin/checkin", models.CheckInRequest{Phone: phone, Name: name}, &out)
	return out, err
}

// CompleteCheckIn marks the check-in delivered. The response body is ignored.
func (c *Client) CompleteCheckIn(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "api/checkin/completeCheckin", map[string]string{"id": id}, nil)
}

// ListOrders returns the active orders. A missing or malformed "orders" field yields an empty list.
func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	raw, err := c.getBody(ctx, "api/orders/")
	if err != nil {
		return nil, err
	}
	return decodeList[models.Order](c.field(raw, "orders"), c.log, "orders"), nil
}

// OrderItems returns the line items of one order. A missing "orderDetails" field yields an empty list.
func (c *Client) OrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	raw, err := c.getBody(ctx, "api/orders/"+url.PathEscape(orderID))
	if err != nil {
		return nil, err
	}
	return decodeList[models.OrderItem](c.field(raw, "orderDetails"), c.log, "orderDetails"), nil
}

// UpdateOrderStatus moves an order to status. The response body is ignored.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	path := "api/orders/" + url.PathEscape(orderID) + "/status"
	return c.do(ctx, http.MethodPut, path, models.StatusUpdate{Status: status}, nil)
}

// field extracts one member of a JSON object; anything that is not an object yields nil.
// A body that is not JSON at all is logged.
func (c *Client) field(raw []byte, name string) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if !json.Valid(raw) {
		c.log.WithFields(map[string]any{"field": name}).Warn("response body is not JSON")
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj[name]
}

// decodeList tolerates absent, null and non-array payloads by returning an empty slice.
func decodeList[T any](raw json.RawMessage, log *utils.Logger, name string) []T {
	out := []T{}
	if len(raw) == 0 || string(raw) == "null" {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		log.WithFields(map[string]any{"field": name}).WithError(err).Warn("unexpected response shape")
		return []T{}
	}
	return out
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	data, err := c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// getBody returns the raw 2xx body of a GET, leaving shape checks to the caller.
func (c *Client) getBody(ctx context.Context, path string) ([]byte, error) {
	return c.send(ctx, http.MethodGet, path, nil)
}

// send performs one request and returns the body of a 2xx response.
func (c *Client) send(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.log.WithFields(map[string]any{"method": method, "path": path, "request_id": reqID})
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	log.WithFields(map[string]any{"status": resp.StatusCode, "elapsed_ms": time.Since(start).Milliseconds()}).Debug("backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, utils.New(resp.StatusCode, errorMessage(data, resp.Status))
	}
	return data, nil
}

// errorMessage prefers the backend's {"message": ...}, falling back to the status line.
func errorMessage(body []byte, status string) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return status
}
