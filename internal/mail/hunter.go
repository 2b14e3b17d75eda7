package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/isdelr/referral-be/internal/models"
)

// HunterClient queries the hunter.io email-verifier API.
type HunterClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHunterClient creates a HunterClient.
func NewHunterClient(baseURL, apiKey string) *HunterClient {
	return &HunterClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Verify returns the verifier's JSON report for email.
func (h *HunterClient) Verify(ctx context.Context, email string) (map[string]any, error) {
	u, err := url.Parse(h.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid hunter base url: %w", err)
	}
	q := u.Query()
	q.Set("email", email)
	q.Set("api_key", h.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, models.NewError(models.ErrUnavailable, fmt.Sprintf("email verifier returned %d", resp.StatusCode))
	}

	var report map[string]any
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("%w: malformed verifier response: %v", models.ErrUnavailable, err)
	}
	return report, nil
}
