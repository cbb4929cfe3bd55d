package service

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/vilaca/event-monitor/internal/domain"
)

// CacheSink is an append-only mirror of filtered events.
type CacheSink interface {
	// Append writes events in order after anything already stored.
	Append(ctx context.Context, events []domain.Event) error
	// ReadAll returns every stored event in the order it was appended.
	ReadAll(ctx context.Context) ([]domain.Event, error)
}

// FileSink stores events as newline-delimited JSON, one record per line.
type FileSink struct {
	filePath string
	mu       sync.RWMutex
	logger   Logger
}

// NewFileSink creates a file sink writing to filePath.
func NewFileSink(filePath string, logger Logger) *FileSink {
	return &FileSink{
		filePath: filePath,
		logger:   logger,
	}
}

// Path returns the file the sink writes to.
func (s *FileSink) Path() string {
	return s.filePath
}

// Append writes each event's raw record as one line, opening the file in
// append mode. The parent directory is created when missing.
func (s *FileSink) Append(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.logger.Printf("File cache: Failed to create directory %s: %v", dir, err)
		return err
	}

	f, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		s.logger.Printf("File cache: Failed to open %s: %v", s.filePath, err)
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, event := range events {
		if len(event.Raw) == 0 {
			return fmt.Errorf("event %s at %s has no raw record", event.Kind, event.CreatedAt)
		}
		w.Write(event.Raw)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		s.logger.Printf("File cache: Failed to write %s: %v", s.filePath, err)
		return err
	}

	return nil
}

// ReadAll parses the file one JSON object per line. A missing file reads
// back as no events. Blank lines are ignored.
func (s *FileSink) ReadAll(ctx context.Context) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.Event{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	events := []domain.Event{}
	r := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line, readErr := r.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, readErr
		}

		if line = bytes.TrimSpace(line); len(line) > 0 {
			event, err := domain.DecodeEvent(line)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", s.filePath, lineNo, err)
			}
			events = append(events, event)
		}

		if errors.Is(readErr, io.EOF) {
			return events, nil
		}
	}
}

// Clear removes the cache file.
func (s *FileSink) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.filePath); err != nil && !os.IsNotExist(err) {
		s.logger.Printf("File cache: Failed to remove cache file: %v", err)
		return err
	}

	s.logger.Printf("File cache: Cleared cache file")
	return nil
}
