package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vilaca/event-monitor/internal/domain"
)

// mockLogger is a test double for Logger.
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockLogger) Printf(format string, v ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, fmt.Sprintf(format, v...))
}

// fixedClock is a Clock frozen at a given instant.
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

// makeEvent builds a feed event the way the fetcher would decode it.
func makeEvent(t *testing.T, kind string, repoID int64, repoName, createdAt string) domain.Event {
	t.Helper()

	raw := fmt.Sprintf(`{"type":%q,"repo":{"id":%d,"name":%q},"created_at":%q}`, kind, repoID, repoName, createdAt)
	event, err := domain.DecodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("failed to build event: %v", err)
	}
	return event
}
