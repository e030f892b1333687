package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to the payment provider over HTTP with an API key header and a
// bounded timeout, so a hung gateway cannot wedge payment initiation.
type Client struct {
	URL    string
	APIKey string
	HTTP   *http.Client
}

var _ Gateway = (*Client)(nil)

func NewClient(url, apiKey string, timeout time.Duration) *Client {
	return &Client{
		URL:    url,
		APIKey: apiKey,
		HTTP:   &http.Client{Timeout: timeout},
	}
}

// createResponse mirrors the provider contract: a transaction id on success,
// or a statusCode/message pair on failure.
type createResponse struct {
	ID         string `json:"id"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

func (c *Client) CreateTransaction(ctx context.Context, req TransactionRequest) (*Transaction, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment gateway call: %w", err)
	}
	defer resp.Body.Close()

	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Message: "unreadable gateway response"}
	}

	// no transaction id means no transaction, whatever the transport said
	if out.ID == "" || out.StatusCode >= 400 || resp.StatusCode >= 400 {
		code := out.StatusCode
		if code == 0 {
			code = resp.StatusCode
		}
		return nil, &GatewayError{StatusCode: code, Message: out.Message}
	}
	return &Transaction{ID: out.ID}, nil
}
