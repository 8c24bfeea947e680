// Package treasury wraps the external settlement services the financing core
// depends on: the stablecoin value-transfer ledger and the trusted clock
// oracle. Both are synchronous collaborators that either complete or fail the
// whole operation; neither performs partial work.
package treasury

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// TransferRequest moves an exact amount of one asset unit between accounts.
type TransferRequest struct {
	From   uuid.UUID `json:"from"`
	To     uuid.UUID `json:"to"`
	Mint   uuid.UUID `json:"mint"`
	Amount uint64    `json:"amount"`
}

// TransferClient executes value transfers. Implementations must move exactly
// the requested amount of the requested mint, or fail without any partial
// transfer.
type TransferClient interface {
	Transfer(ctx context.Context, req TransferRequest) error
}

// Client calls the settlement ledger over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// ClientConfig configures the settlement ledger client.
type ClientConfig struct {
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"api_key"`
	Timeout time.Duration `json:"timeout"`
}

// NewClient creates a settlement ledger client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Transfer submits the transfer and fails unless the ledger acknowledges it.
func (c *Client) Transfer(ctx context.Context, req TransferRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode transfer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build transfer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("transfer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("transfer rejected: status %d", resp.StatusCode)
	}
	return nil
}
