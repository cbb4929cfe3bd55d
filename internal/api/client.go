package api

import (
	"context"
	"net/http"

	"github.com/vilaca/event-monitor/internal/domain"
)

// EventFetcher retrieves one batch of events from an event feed.
// Each call is independent; no pagination state is kept between calls.
type EventFetcher interface {
	FetchEvents(ctx context.Context) ([]domain.Event, error)
}

// HTTPClient interface for HTTP operations (allows mocking in tests).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds common configuration for feed clients.
type ClientConfig struct {
	FeedURL string
	Token   string
}
