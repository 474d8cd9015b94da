// Package pdf talks to the external PDF render service used for
// invoice documents.
package pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/doorcraft-as/takeoff-api/internal/config"
	"github.com/doorcraft-as/takeoff-api/internal/domain"
)

// Client renders PDFs through the render service. When the service is
// disabled in configuration every render call is skipped by callers via
// Enabled.
type Client struct {
	baseURL string
	enabled bool
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(cfg *config.PDFConfig, logger *zap.Logger) *Client {
	timeout := cfg.TimeoutDuration()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		enabled: cfg.Enabled,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Enabled reports whether the render service is configured.
func (c *Client) Enabled() bool {
	return c.enabled && c.baseURL != ""
}

type invoicePayload struct {
	InvoiceNumber string  `json:"invoiceNumber"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	DueDate       string  `json:"dueDate,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	CustomerName  string  `json:"customerName,omitempty"`
	Address       string  `json:"address,omitempty"`
}

// RenderInvoice renders an invoice document and returns the PDF bytes.
func (c *Client) RenderInvoice(ctx context.Context, invoice *domain.Invoice) ([]byte, error) {
	payload := invoicePayload{
		InvoiceNumber: invoice.InvoiceNumber,
		Amount:        invoice.Amount,
		Currency:      invoice.Currency,
		Notes:         invoice.Notes,
	}
	if invoice.DueDate != nil {
		payload.DueDate = invoice.DueDate.Format("2006-01-02")
	}
	if invoice.Takeoff != nil {
		payload.CustomerName = invoice.Takeoff.CustomerName
		payload.Address = invoice.Takeoff.Address
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode render payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render/invoice", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("render service returned %d: %s", resp.StatusCode, snippet)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered PDF: %w", err)
	}

	c.logger.Debug("invoice PDF rendered",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.Int("bytes", len(data)))

	return data, nil
}
