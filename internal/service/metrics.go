package service

import (
	"sort"
	"time"

	"github.com/vilaca/event-monitor/internal/domain"
)

// MetricsEngine answers read-only queries over an Index.
type MetricsEngine struct {
	index *Index
	clock Clock
}

// SeriesPoint is the number of events of one kind within a bucket.
type SeriesPoint struct {
	Start time.Time `json:"start"`
	Count int       `json:"count"`
}

// NewMetricsEngine creates a metrics engine. A nil clock uses RealClock.
func NewMetricsEngine(index *Index, clock Clock) *MetricsEngine {
	if clock == nil {
		clock = RealClock{}
	}
	return &MetricsEngine{index: index, clock: clock}
}

// AverageInterval returns the mean gap between consecutive events of an
// entity, in arrival order. For a timeline t0..tn this equals (tn - t0) / n.
// Returns domain.ErrNotFound for unseen entities and
// domain.ErrInsufficientData when fewer than two events were recorded.
//
// Out-of-order delivery by the feed is not corrected; gaps are taken in
// the order events arrived.
func (m *MetricsEngine) AverageInterval(ref domain.EntityRef) (time.Duration, error) {
	var avg time.Duration
	err := m.index.readEntity(ref, func(instants []time.Time) error {
		if len(instants) < 2 {
			return domain.ErrInsufficientData
		}

		var total time.Duration
		for i := 1; i < len(instants); i++ {
			total += instants[i].Sub(instants[i-1])
		}
		avg = total / time.Duration(len(instants)-1)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return avg, nil
}

// CountWithinWindow counts events of kind that occurred at or after now - window.
// Unknown kinds count as zero.
func (m *MetricsEngine) CountWithinWindow(kind string, window time.Duration) int {
	threshold := m.clock.Now().UTC().Add(-window)

	count := 0
	m.index.readKind(kind, func(instants []time.Time) {
		for _, at := range instants {
			if !at.Before(threshold) {
				count++
			}
		}
	})
	return count
}

// CountSeries groups every indexed instant into buckets of the given size,
// per kind, sorted by bucket start.
func (m *MetricsEngine) CountSeries(bucket time.Duration) map[string][]SeriesPoint {
	if bucket <= 0 {
		bucket = time.Minute
	}

	series := make(map[string][]SeriesPoint)
	m.index.readAllKinds(func(kind string, instants []time.Time) {
		counts := make(map[time.Time]int)
		for _, at := range instants {
			counts[at.Truncate(bucket)]++
		}

		points := make([]SeriesPoint, 0, len(counts))
		for start, count := range counts {
			points = append(points, SeriesPoint{Start: start, Count: count})
		}
		sort.Slice(points, func(i, j int) bool {
			return points[i].Start.Before(points[j].Start)
		})
		series[kind] = points
	})
	return series
}

// Kinds returns the sorted list of kinds with at least one event.
func (m *MetricsEngine) Kinds() []string {
	var kinds []string
	m.index.readAllKinds(func(kind string, _ []time.Time) {
		kinds = append(kinds, kind)
	})
	sort.Strings(kinds)
	return kinds
}
