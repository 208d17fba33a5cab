package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// PaymentGatewayConfig holds payment gateway API configuration
type PaymentGatewayConfig struct {
	BaseURL string
	APIKey  string
	System  string
}

// PaymentGatewayService talks to the registry's invoicing system. It
// implements PaymentGateway.
type PaymentGatewayService struct {
	config PaymentGatewayConfig
	client *http.Client
}

// invoiceResponse represents the gateway's invoice payload
type invoiceResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// NewPaymentGatewayService creates a new payment gateway client
func NewPaymentGatewayService(baseURL, apiKey, system string) *PaymentGatewayService {
	return &PaymentGatewayService{
		config: PaymentGatewayConfig{
			BaseURL: baseURL,
			APIKey:  apiKey,
			System:  system,
		},
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateInvoice raises an invoice for the line items and returns its
// reference.
func (s *PaymentGatewayService) CreateInvoice(ctx context.Context, lineItems []LineItem, payerID uint, dueDate time.Time) (string, error) {
	payload := map[string]interface{}{
		"system":     s.config.System,
		"payer_id":   payerID,
		"due_date":   dueDate.Format("2006-01-02"),
		"line_items": lineItems,
	}

	body, err := s.post(ctx, "/api/invoices", payload)
	if err != nil {
		return "", err
	}

	var invoice invoiceResponse
	if err := json.Unmarshal(body, &invoice); err != nil {
		return "", fmt.Errorf("parse invoice response failed: %w", err)
	}
	if invoice.Reference == "" {
		return "", fmt.Errorf("gateway returned an invoice without a reference")
	}
	return invoice.Reference, nil
}

// GetPaymentStatus fetches the current status of an invoice.
func (s *PaymentGatewayService) GetPaymentStatus(ctx context.Context, invoiceReference string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/invoices/%s", s.config.BaseURL, url.PathEscape(invoiceReference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway status error: %s", string(body))
	}

	var invoice invoiceResponse
	if err := json.Unmarshal(body, &invoice); err != nil {
		return "", fmt.Errorf("parse status response failed: %w", err)
	}
	return invoice.Status, nil
}

// CancelInvoice voids an unpaid invoice.
func (s *PaymentGatewayService) CancelInvoice(ctx context.Context, invoiceReference string) error {
	payload := map[string]interface{}{
		"system": s.config.System,
	}
	endpoint := fmt.Sprintf("/api/invoices/%s/cancel", url.PathEscape(invoiceReference))
	_, err := s.post(ctx, endpoint, payload)
	return err
}

func (s *PaymentGatewayService) post(ctx context.Context, path string, payload map[string]interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("gateway error: %s", string(body))
	}
	return body, nil
}
