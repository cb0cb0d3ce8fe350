// Package persistence provides file-backed implementations of the
// append-only logs the application layer depends on: the feedback log and
// the live-data audit log, both JSON-lines files, plus atomic ChangeManifest
// I/O.
package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/kodexhq/kodex/domain/feedback"
)

// FeedbackStore is a JSON-lines-backed feedback.Store: one Record per line,
// appended under an exclusive lock so concurrent raters never interleave a
// partial line.
type FeedbackStore struct {
	path string
	mu   sync.Mutex
}

// NewFeedbackStore opens (creating if absent) the feedback log at path.
func NewFeedbackStore(path string) (*FeedbackStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("persistence: open feedback log: %w", err)
	}
	f.Close()
	return &FeedbackStore{path: path}, nil
}

// Append writes r as one JSON line.
func (s *FeedbackStore) Append(r feedback.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("persistence: open feedback log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("persistence: marshal feedback record: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("persistence: append feedback record: %w", err)
	}
	return nil
}

// All reads every record from the log in append order.
func (s *FeedbackStore) All() ([]feedback.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("persistence: open feedback log: %w", err)
	}
	defer f.Close()

	var records []feedback.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r feedback.Record
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("persistence: unmarshal feedback record: %w", err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("persistence: scan feedback log: %w", err)
	}
	return records, nil
}

var _ feedback.Store = (*FeedbackStore)(nil)
