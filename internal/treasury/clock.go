package treasury

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Clock supplies the trusted timestamp every time-dependent operation uses.
// The core never reads the local wall clock directly.
type Clock interface {
	Now(ctx context.Context) (time.Time, error)
}

// OracleClock fetches timestamps from the trusted clock oracle.
type OracleClock struct {
	baseURL    string
	httpClient *http.Client
}

// NewOracleClock creates a clock backed by the oracle endpoint.
func NewOracleClock(baseURL string, timeout time.Duration) *OracleClock {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &OracleClock{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Now returns the oracle's current unix timestamp.
func (c *OracleClock) Now(ctx context.Context) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/now", nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to build clock request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("clock oracle unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("clock oracle returned status %d", resp.StatusCode)
	}

	var payload struct {
		UnixTimestamp int64 `json:"unix_timestamp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode clock response: %w", err)
	}
	return time.Unix(payload.UnixTimestamp, 0).UTC(), nil
}

// SystemClock reads the local wall clock. Intended for development
// environments without an oracle.
type SystemClock struct{}

func (SystemClock) Now(ctx context.Context) (time.Time, error) {
	return time.Now().UTC(), nil
}
