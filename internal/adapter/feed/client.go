package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/parking-zone-sync/internal/domain"
)

// maxErrorBody bounds how much of a failed response is copied into the error.
const maxErrorBody = 512

// Client fetches the raw availability list from the parking feed.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a feed client for the given endpoint.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Fetch retrieves the current feed. Network errors, non-2xx statuses, and
// undecodable bodies are all reported as domain.ErrFeedUnavailable. There is
// no retry here; the scheduler's next tick is the retry.
func (c *Client) Fetch(ctx context.Context) ([]domain.FeedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrFeedUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrFeedUnavailable, resp.StatusCode, body)
	}

	var items []domain.FeedItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrFeedUnavailable, err)
	}

	c.logger.Debug("feed fetched", "items", len(items))
	return items, nil
}
