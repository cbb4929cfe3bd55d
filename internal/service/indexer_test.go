package service

import (
	"errors"
	"testing"
	"time"

	"github.com/vilaca/event-monitor/internal/domain"
)

// TestIndexer_SkipsMalformedTimestamps tests that a bad event does not abort the batch.
// Follows AAA (Arrange, Act, Assert) pattern.
func TestIndexer_SkipsMalformedTimestamps(t *testing.T) {
	// Arrange
	logger := &mockLogger{}
	index := NewIndex()
	indexer := NewIndexer(index, []string{domain.KindPullRequest}, logger)
	events := []domain.Event{
		makeEvent(t, "WatchEvent", 1, "a/b", "2024-01-01T00:00:00Z"),
		makeEvent(t, "WatchEvent", 1, "a/b", "yesterday"),
		makeEvent(t, "PullRequestEvent", 1, "a/b", "2024-01-01 00:00:00"),
		makeEvent(t, "PullRequestEvent", 1, "a/b", "2024-01-01T00:10:00Z"),
	}

	// Act
	result := indexer.Index(events)

	// Assert
	if result.Skipped != 2 {
		t.Errorf("expected 2 skipped events, got %d", result.Skipped)
	}
	if len(result.Indexed) != 2 {
		t.Fatalf("expected 2 indexed events, got %d", len(result.Indexed))
	}
	if len(logger.messages) != 2 {
		t.Errorf("expected 2 log messages, got %d", len(logger.messages))
	}

	stats := index.Stats()
	if stats.Kinds != 2 || stats.Entities != 1 || stats.Instants != 2 {
		t.Errorf("unexpected index stats %+v", stats)
	}
}

// TestIndexer_EntityNameRegistration tests lazy name registration and first-name-wins.
func TestIndexer_EntityNameRegistration(t *testing.T) {
	// Arrange
	index := NewIndex()
	indexer := NewIndexer(index, []string{domain.KindPullRequest}, &mockLogger{})
	engine := NewMetricsEngine(index, nil)

	// Act
	indexer.Index([]domain.Event{
		makeEvent(t, "PullRequestEvent", 10, "old/name", "2024-01-01T00:00:00Z"),
		makeEvent(t, "PullRequestEvent", 10, "new/name", "2024-01-01T00:30:00Z"),
	})

	// Assert
	name, ok := index.EntityName(10)
	if !ok || name != "old/name" {
		t.Errorf("expected first-seen name old/name, got %q (%v)", name, ok)
	}
	if avg, err := engine.AverageInterval(domain.ByName("old/name")); err != nil || avg != 30*time.Minute {
		t.Errorf("expected 30m via first name, got %v (%v)", avg, err)
	}
	if _, err := engine.AverageInterval(domain.ByName("new/name")); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected renamed entity to stay resolvable only by first name, got %v", err)
	}
}

// TestIndexer_UnnamedEntity tests that an entity without a name still gets a
// timeline but is not resolvable by the empty name.
func TestIndexer_UnnamedEntity(t *testing.T) {
	// Arrange
	index := NewIndex()
	indexer := NewIndexer(index, []string{domain.KindPullRequest}, &mockLogger{})
	engine := NewMetricsEngine(index, nil)
	events := make([]domain.Event, 0, 2)
	for _, at := range []string{"2024-01-01T00:00:00Z", "2024-01-01T00:10:00Z"} {
		event, err := domain.DecodeEvent([]byte(`{"type":"PullRequestEvent","repo":{"id":21},"created_at":"` + at + `"}`))
		if err != nil {
			t.Fatalf("failed to build event: %v", err)
		}
		events = append(events, event)
	}

	// Act
	indexer.Index(events)

	// Assert
	if avg, err := engine.AverageInterval(domain.ByID(21)); err != nil || avg != 10*time.Minute {
		t.Errorf("expected 10m by id, got %v (%v)", avg, err)
	}
	if name, ok := index.EntityName(21); !ok || name != "" {
		t.Errorf("expected id registered with empty name, got %q (%v)", name, ok)
	}
	if _, err := engine.AverageInterval(domain.ByName("")); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected empty name to be unknown, got %v", err)
	}
}

// TestIndexer_NonEntityKindsSkipTimelines tests that only entity kinds feed timelines.
func TestIndexer_NonEntityKindsSkipTimelines(t *testing.T) {
	// Arrange
	index := NewIndex()
	indexer := NewIndexer(index, []string{domain.KindPullRequest}, &mockLogger{})
	noRepo, err := domain.DecodeEvent([]byte(`{"type":"PullRequestEvent","created_at":"2024-01-01T00:00:00Z"}`))
	if err != nil {
		t.Fatalf("failed to build event: %v", err)
	}

	// Act
	indexer.Index([]domain.Event{
		makeEvent(t, "WatchEvent", 3, "w/x", "2024-01-01T00:00:00Z"),
		noRepo,
	})

	// Assert
	stats := index.Stats()
	if stats.Entities != 0 {
		t.Errorf("expected no entity timelines, got %d", stats.Entities)
	}
	if stats.Instants != 2 {
		t.Errorf("expected both events in kind index, got %d", stats.Instants)
	}
	if _, ok := index.EntityName(3); ok {
		t.Error("expected no name registered for non-entity kind")
	}
}
