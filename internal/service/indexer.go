package service

import (
	"github.com/vilaca/event-monitor/internal/domain"
)

// Indexer is the only writer of an Index.
type Indexer struct {
	index       *Index
	entityKinds domain.KindSet
	logger      Logger
}

// IndexResult reports what happened to a batch.
type IndexResult struct {
	Indexed []domain.Event
	Skipped int
}

// NewIndexer creates an indexer. Events whose kind is in entityKinds also
// feed the per-entity timelines (e.g. "PullRequestEvent").
func NewIndexer(index *Index, entityKinds []string, logger Logger) *Indexer {
	return &Indexer{
		index:       index,
		entityKinds: domain.NewKindSet(entityKinds),
		logger:      logger,
	}
}

// Index appends every event of the batch whose timestamp parses.
// Events with a malformed timestamp are skipped and logged; the rest of the
// batch is still indexed. Parsing happens before the write lock is taken.
func (ix *Indexer) Index(events []domain.Event) IndexResult {
	result := IndexResult{Indexed: make([]domain.Event, 0, len(events))}
	entries := make([]indexEntry, 0, len(events))

	for _, event := range events {
		at, err := event.OccurredAt()
		if err != nil {
			result.Skipped++
			ix.logger.Printf("[Indexer] Skipping %s event: %v", event.Kind, err)
			continue
		}

		entries = append(entries, indexEntry{
			kind:   event.Kind,
			at:     at,
			repo:   event.Repo,
			entity: ix.entityKinds.Contains(event.Kind),
		})
		result.Indexed = append(result.Indexed, event)
	}

	if len(entries) > 0 {
		ix.index.appendBatch(entries)
	}

	return result
}
