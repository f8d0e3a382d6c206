package conversion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutRequest asks a provider to send money to a destination.
type PayoutRequest struct {
	ID          uuid.UUID       `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Destination string          `json:"destination"`
}

// PayoutProvider performs the real-money leg of a conversion.
type PayoutProvider interface {
	Payout(ctx context.Context, req PayoutRequest) (reference string, err error)
}

// SimulationProvider completes every payout without moving money.
type SimulationProvider struct{}

// Payout implements PayoutProvider.
func (SimulationProvider) Payout(_ context.Context, req PayoutRequest) (string, error) {
	return "SIM-" + req.ID.String()[:8], nil
}

// HTTPProvider posts payouts as JSON to a provider endpoint.
type HTTPProvider struct {
	url    string
	client *http.Client
}

// NewHTTPProvider creates a provider posting to url.
func NewHTTPProvider(url string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type payoutResponse struct {
	Reference string `json:"reference"`
	Error     string `json:"error"`
}

// Payout implements PayoutProvider.
func (p *HTTPProvider) Payout(ctx context.Context, req PayoutRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode payout: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build payout request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.ID.String())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("payout request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("failed to read payout response: %w", err)
	}

	var out payoutResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if out.Error != "" {
			return "", fmt.Errorf("payout rejected (%d): %s", resp.StatusCode, out.Error)
		}
		return "", fmt.Errorf("payout rejected with status %d", resp.StatusCode)
	}
	if out.Reference == "" {
		return "", fmt.Errorf("payout response has no reference")
	}
	return out.Reference, nil
}
