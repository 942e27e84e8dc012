/**
 * @description
 * This package provides a client for the notification dispatch service,
 * which owns email rendering and delivery. The settlement core treats both
 * calls as fire-and-forget with an error result; retry policy lives with the
 * dispatch service, never here.
 */
package mailerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labelhq/settlement-service/internal/domain"
)

// Client is a client for the notification dispatch service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new notification dispatch client. The timeout bounds
// every call so settlement never blocks on a slow mailer.
func NewClient(baseURL string, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type orderConfirmationRequest struct {
	OrderID        string `json:"order_id"`
	Kind           string `json:"kind"`
	BuyerEmail     string `json:"buyer_email"`
	Description    string `json:"description"`
	GrossAmount    string `json:"gross_amount"`
	CorrelationKey string `json:"correlation_key"`
}

type adminAlertRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendOrderConfirmation asks the dispatch service to send the buyer their
// ticket or donation receipt.
func (c *Client) SendOrderConfirmation(ctx context.Context, order *domain.Order) error {
	payload := orderConfirmationRequest{
		OrderID:        order.ID.String(),
		Kind:           string(order.Kind),
		BuyerEmail:     order.BuyerEmail,
		Description:    order.Description,
		GrossAmount:    order.GrossAmount().StringFixed(2),
		CorrelationKey: order.CorrelationKey,
	}
	return c.post(ctx, "/messages/order-confirmation", payload)
}

// SendAdminAlert asks the dispatch service to notify the label operators.
func (c *Client) SendAdminAlert(ctx context.Context, subject, body string) error {
	return c.post(ctx, "/messages/admin-alert", adminAlertRequest{Subject: subject, Body: body})
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) error {
	if c.baseURL == "" {
		return fmt.Errorf("mailer base url is empty")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.apiKey) != "" {
		req.Header.Set("X-Internal-API-Key", strings.TrimSpace(c.apiKey))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request to mailer service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("mailer service returned error status %d", resp.StatusCode)
	}

	return nil
}
