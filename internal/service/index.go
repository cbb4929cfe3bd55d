package service

import (
	"sync"
	"time"

	"github.com/vilaca/event-monitor/internal/domain"
)

// Index holds the in-memory time series the monitor answers queries from:
// instants per event kind, instants per entity, and entity names.
// All buckets are append-only and keep arrival order.
// Writes go through Indexer; reads go through MetricsEngine.
type Index struct {
	mu       sync.RWMutex
	byKind   map[string][]time.Time
	byEntity map[int64][]time.Time
	nameToID map[string]int64
	idToName map[int64]string
}

// IndexStats summarizes the size of an Index.
type IndexStats struct {
	Kinds    int `json:"kinds"`
	Entities int `json:"entities"`
	Instants int `json:"instants"`
}

// indexEntry is one parsed event ready to be appended.
type indexEntry struct {
	kind   string
	at     time.Time
	repo   *domain.Repo
	entity bool
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		byKind:   make(map[string][]time.Time),
		byEntity: make(map[int64][]time.Time),
		nameToID: make(map[string]int64),
		idToName: make(map[int64]string),
	}
}

// appendBatch appends all entries under a single write lock.
// The first sighting of an entity id registers its name together with the
// first instant, so readers never see one without the other.
func (idx *Index) appendBatch(entries []indexEntry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, e := range entries {
		idx.byKind[e.kind] = append(idx.byKind[e.kind], e.at)

		if !e.entity || e.repo == nil {
			continue
		}
		if _, seen := idx.idToName[e.repo.ID]; !seen {
			idx.idToName[e.repo.ID] = e.repo.Name
			if e.repo.Name != "" {
				idx.nameToID[e.repo.Name] = e.repo.ID
			}
		}
		idx.byEntity[e.repo.ID] = append(idx.byEntity[e.repo.ID], e.at)
	}
}

// readKind calls fn with the instants recorded for kind while holding the
// read lock. fn must not retain the slice.
func (idx *Index) readKind(kind string, fn func(instants []time.Time)) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	fn(idx.byKind[kind])
}

// readAllKinds calls fn for every kind while holding the read lock.
func (idx *Index) readAllKinds(fn func(kind string, instants []time.Time)) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for kind, instants := range idx.byKind {
		fn(kind, instants)
	}
}

// readEntity resolves ref and calls fn with the entity's timeline while
// holding the read lock. Returns domain.ErrNotFound for unknown entities.
func (idx *Index) readEntity(ref domain.EntityRef, fn func(instants []time.Time) error) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var id int64
	if name, ok := ref.Name(); ok {
		resolved, found := idx.nameToID[name]
		if !found {
			return domain.ErrNotFound
		}
		id = resolved
	} else {
		id, _ = ref.ID()
	}

	instants, found := idx.byEntity[id]
	if !found {
		return domain.ErrNotFound
	}
	return fn(instants)
}

// EntityName returns the first name recorded for an entity id.
func (idx *Index) EntityName(id int64) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	name, ok := idx.idToName[id]
	return name, ok
}

// Stats returns bucket counts.
func (idx *Index) Stats() IndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	stats := IndexStats{Kinds: len(idx.byKind), Entities: len(idx.byEntity)}
	for _, instants := range idx.byKind {
		stats.Instants += len(instants)
	}
	return stats
}
