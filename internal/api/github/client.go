package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/vilaca/event-monitor/internal/api"
	"github.com/vilaca/event-monitor/internal/domain"
)

// DefaultFeedURL is the GitHub public events endpoint.
const DefaultFeedURL = "https://api.github.com/events"

// Client implements api.EventFetcher for the GitHub events API.
type Client struct {
	feedURL    string
	token      string
	httpClient api.HTTPClient
}

// NewClient creates a new GitHub events client.
// Uses dependency injection for HTTPClient (IoC).
func NewClient(config api.ClientConfig, httpClient api.HTTPClient) *Client {
	feedURL := config.FeedURL
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}

	return &Client{
		feedURL:    feedURL,
		token:      config.Token,
		httpClient: httpClient,
	}
}

// FeedURL returns the endpoint this client polls.
func (c *Client) FeedURL() string {
	return c.feedURL
}

// FetchEvents performs one GET against the feed and decodes the returned array.
// Any transport, status or decode failure is reported as *domain.FetchError.
func (c *Client) FetchEvents(ctx context.Context) ([]domain.Event, error) {
	body, status, err := c.doRequest(ctx)
	if err != nil {
		return nil, &domain.FetchError{URL: c.feedURL, StatusCode: status, Err: err}
	}

	events, err := decodeEvents(body)
	if err != nil {
		return nil, &domain.FetchError{URL: c.feedURL, StatusCode: status, Err: err}
	}
	return events, nil
}

// doRequest performs the HTTP request and returns the response body.
func (c *Client) doRequest(ctx context.Context) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, resp.StatusCode, nil
}

// decodeEvents converts a JSON array of feed records to domain events.
// Non-object elements are dropped; missing fields are left empty so the
// filter and indexer can decide what to do with them.
func decodeEvents(body []byte) ([]domain.Event, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("failed to decode response: invalid JSON")
	}

	result := gjson.ParseBytes(body)
	if !result.IsArray() {
		return nil, fmt.Errorf("failed to decode response: expected array, got %s", result.Type)
	}

	elements := result.Array()
	events := make([]domain.Event, 0, len(elements))
	for _, value := range elements {
		if !value.IsObject() {
			continue
		}
		event, err := domain.DecodeEvent([]byte(value.Raw))
		if err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		events = append(events, event)
	}

	return events, nil
}
