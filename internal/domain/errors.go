package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a query references an entity never observed.
	ErrNotFound = errors.New("entity not found")
	// ErrInsufficientData is returned when an interval metric has fewer than two data points.
	ErrInsufficientData = errors.New("not enough data for calculation")
	// ErrInvalidRef is returned when an entity reference is neither a name nor a numeric id.
	ErrInvalidRef = errors.New("invalid entity reference")
)

// FetchError reports a failed retrieval from the event feed.
type FetchError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError reports an event timestamp that does not match TimestampLayout.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse timestamp %q: %v", e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
