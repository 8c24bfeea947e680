// Package registry wraps the external digital-asset registry used to mint
// and verify equipment and collection assets. It is consumed only at listing
// time; nothing in the contract lifecycle touches it.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CreateAssetRequest mints a new asset under a collection.
type CreateAssetRequest struct {
	Owner      uuid.UUID `json:"owner"`
	Collection uuid.UUID `json:"collection"`
	Name       string    `json:"name"`
	URI        string    `json:"uri"`
}

// CreateCollectionRequest opens a new collection owned by an authority.
// Marketplaces and vendors each get one; their listed assets are minted into
// it.
type CreateCollectionRequest struct {
	Authority uuid.UUID `json:"authority"`
	Name      string    `json:"name"`
	URI       string    `json:"uri"`
}

// AssetRegistry is the minting/verification surface the listing flow consumes.
type AssetRegistry interface {
	CreateAsset(ctx context.Context, req CreateAssetRequest) (uuid.UUID, error)
	VerifyAsset(ctx context.Context, assetID uuid.UUID) (bool, error)
}

// CollectionRegistry is the collection surface the marketplace directory
// consumes.
type CollectionRegistry interface {
	CreateCollection(ctx context.Context, req CreateCollectionRequest) (uuid.UUID, error)
}

// Client calls the registry service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a registry client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateAsset mints an asset and returns its registry identifier.
func (c *Client) CreateAsset(ctx context.Context, req CreateAssetRequest) (uuid.UUID, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode asset request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/assets", bytes.NewReader(body))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to build asset request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return uuid.Nil, fmt.Errorf("asset registry unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return uuid.Nil, fmt.Errorf("asset registry returned status %d", resp.StatusCode)
	}

	var payload struct {
		AssetID uuid.UUID `json:"asset_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return uuid.Nil, fmt.Errorf("failed to decode asset response: %w", err)
	}
	return payload.AssetID, nil
}

// CreateCollection opens a collection and returns its registry identifier.
func (c *Client) CreateCollection(ctx context.Context, req CreateCollectionRequest) (uuid.UUID, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode collection request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/collections", bytes.NewReader(body))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to build collection request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return uuid.Nil, fmt.Errorf("asset registry unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return uuid.Nil, fmt.Errorf("asset registry returned status %d", resp.StatusCode)
	}

	var payload struct {
		CollectionID uuid.UUID `json:"collection_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return uuid.Nil, fmt.Errorf("failed to decode collection response: %w", err)
	}
	return payload.CollectionID, nil
}

// VerifyAsset checks that the registry still recognizes the asset.
func (c *Client) VerifyAsset(ctx context.Context, assetID uuid.UUID) (bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/assets/"+assetID.String(), nil)
	if err != nil {
		return false, fmt.Errorf("failed to build verify request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("asset registry unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("asset registry returned status %d", resp.StatusCode)
	}
}
