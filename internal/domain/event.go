package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// TimestampLayout is the format of created_at in feed records (UTC, second precision).
const TimestampLayout = "2006-01-02T15:04:05Z"

// Event represents a single activity record from the event feed.
// Raw holds the compact JSON of the original record so it can be mirrored
// to a cache and read back without losing fields the monitor ignores.
type Event struct {
	Kind      string          // Event type, e.g. "PullRequestEvent", "WatchEvent"
	CreatedAt string          // Textual timestamp as delivered by the feed
	Repo      *Repo           // Entity the event belongs to (nil if absent)
	Raw       json.RawMessage // Original record
}

// Repo identifies the entity (repository) an event belongs to.
type Repo struct {
	ID   int64
	Name string
}

// OccurredAt parses CreatedAt using TimestampLayout.
func (e Event) OccurredAt() (time.Time, error) {
	t, err := time.Parse(TimestampLayout, e.CreatedAt)
	if err != nil {
		return time.Time{}, &ParseError{Value: e.CreatedAt, Err: err}
	}
	return t.UTC(), nil
}

// MarshalJSON emits the original record unchanged.
func (e Event) MarshalJSON() ([]byte, error) {
	if len(e.Raw) == 0 {
		return nil, fmt.Errorf("event %q has no raw payload", e.Kind)
	}
	return e.Raw, nil
}

// DecodeEvent builds an Event from one JSON object. Fields the monitor
// interprets are extracted; the compacted object is kept as Raw.
func DecodeEvent(raw []byte) (Event, error) {
	if !gjson.ValidBytes(raw) {
		return Event{}, errors.New("invalid JSON")
	}
	value := gjson.ParseBytes(raw)
	if !value.IsObject() {
		return Event{}, fmt.Errorf("expected object, got %s", value.Type)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return Event{}, err
	}

	event := Event{
		Kind:      value.Get("type").String(),
		CreatedAt: value.Get("created_at").String(),
		Raw:       compact.Bytes(),
	}

	repo := value.Get("repo")
	if repo.IsObject() && repo.Get("id").Exists() {
		event.Repo = &Repo{
			ID:   repo.Get("id").Int(),
			Name: repo.Get("name").String(),
		}
	}

	return event, nil
}
