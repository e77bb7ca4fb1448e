// Package httpclient implements the payment gateway port over a JSON
// HTTP API.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/smallbiznis/fleetbill/internal/config"
	"github.com/smallbiznis/fleetbill/internal/gateway/domain"
	"go.uber.org/zap"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.Gateway.BaseURL,
		apiKey:  cfg.Gateway.APIKey,
		http:    &http.Client{Timeout: cfg.Gateway.CallTimeout},
		log:     log.Named("gateway.http"),
	}
}

func (c *Client) RetrieveSubscription(ctx context.Context, customerRef string) (*domain.RemoteSubscription, error) {
	var sub domain.RemoteSubscription
	path := fmt.Sprintf("/v1/customers/%s/subscription", customerRef)
	if err := c.do(ctx, http.MethodGet, path, nil, &sub); err != nil {
		return nil, err
	}
	if sub.Status == "" {
		sub.Status = domain.SubscriptionUnknown
	}
	return &sub, nil
}

func (c *Client) CreateInvoice(ctx context.Context, customerRef string, amountCents int64, currency, description string) (string, error) {
	body := map[string]any{
		"customer_ref": customerRef,
		"amount_cents": amountCents,
		"currency":     currency,
		"description":  description,
	}
	var out struct {
		InvoiceRef string `json:"invoice_ref"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/invoices", body, &out); err != nil {
		return "", err
	}
	return out.InvoiceRef, nil
}

func (c *Client) FinalizeAndPayInvoice(ctx context.Context, invoiceRef string) (*domain.ChargeReceipt, error) {
	var receipt domain.ChargeReceipt
	path := fmt.Sprintf("/v1/invoices/%s/pay", invoiceRef)
	if err := c.do(ctx, http.MethodPost, path, map[string]any{}, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) CancelSubscription(ctx context.Context, subscriptionRef string) error {
	path := fmt.Sprintf("/v1/subscriptions/%s/cancel", subscriptionRef)
	return c.do(ctx, http.MethodPost, path, map[string]any{}, nil)
}

// do issues one request. Mutating calls carry a fresh Idempotency-Key;
// the remote side is expected to dedupe on it, so a retry after a
// timeout cannot double-apply.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if method != http.MethodGet {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("gateway request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return errors.Join(domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", domain.ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway rejected %s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
