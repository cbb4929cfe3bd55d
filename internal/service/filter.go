package service

import "github.com/vilaca/event-monitor/internal/domain"

// FilterEvents returns the events whose kind is in kinds, preserving order.
// Events without a kind never match. Filtering an already filtered batch
// with the same set returns an equal batch.
func FilterEvents(events []domain.Event, kinds domain.KindSet) []domain.Event {
	filtered := make([]domain.Event, 0, len(events))
	for _, event := range events {
		if event.Kind == "" || !kinds.Contains(event.Kind) {
			continue
		}
		filtered = append(filtered, event)
	}
	return filtered
}
