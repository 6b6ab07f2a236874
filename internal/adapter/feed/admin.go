package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/parking-zone-sync/internal/domain"
)

var (
	// ErrAdminRejected is returned when the feed refuses a zone mutation.
	ErrAdminRejected = errors.New("feed rejected mutation")
	// ErrRefreshAfterMutation marks a mutation that succeeded on the feed
	// but whose follow-up refresh failed.
	ErrRefreshAfterMutation = errors.New("refresh after mutation failed")
)

// Refresher triggers an immediate refresh cycle.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// AdminClient mutates zones on the feed and refreshes local state afterwards,
// so a successful edit is visible without waiting for the next tick.
type AdminClient struct {
	baseURL    string
	httpClient *http.Client
	refresher  Refresher
	logger     *slog.Logger
}

// NewAdminClient creates an admin client. baseURL is the collection URL,
// for example http://localhost:3000/api/parking. refresher may be nil.
func NewAdminClient(baseURL string, timeout time.Duration, refresher Refresher, logger *slog.Logger) *AdminClient {
	return &AdminClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		refresher:  refresher,
		logger:     logger,
	}
}

// Create adds a zone.
func (a *AdminClient) Create(ctx context.Context, item domain.FeedItem) error {
	return a.mutate(ctx, http.MethodPost, a.baseURL, &item)
}

// Update replaces the zone stored under address.
func (a *AdminClient) Update(ctx context.Context, address string, item domain.FeedItem) error {
	return a.mutate(ctx, http.MethodPut, a.itemURL(address), &item)
}

// Delete removes the zone stored under address.
func (a *AdminClient) Delete(ctx context.Context, address string) error {
	return a.mutate(ctx, http.MethodDelete, a.itemURL(address), nil)
}

func (a *AdminClient) itemURL(address string) string {
	return a.baseURL + "/" + url.PathEscape(address)
}

func (a *AdminClient) mutate(ctx context.Context, method, target string, item *domain.FeedItem) error {
	var body io.Reader
	if item != nil {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal item: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrFeedUnavailable, method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s status %d: %s", ErrAdminRejected, method, resp.StatusCode, bytes.TrimSpace(msg))
	}

	a.logger.Info("zone mutated", "method", method, "url", target)
	if a.refresher == nil {
		return nil
	}
	// The mutation already succeeded; a failed refresh is reported but the
	// next scheduled cycle will pick the change up anyway.
	if err := a.refresher.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRefreshAfterMutation, method, err)
	}
	return nil
}
