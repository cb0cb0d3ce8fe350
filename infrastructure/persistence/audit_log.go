package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kodexhq/kodex/domain/live"
)

// AuditEntry is one line of the live-data audit log: the tool called, the
// redacted params it was authorized with, whether the Confirmation gate
// approved it, and the outcome.
type AuditEntry struct {
	Tool      string         `json:"tool"`
	Tier      live.Tier      `json:"tier"`
	Params    map[string]any `json:"params"`
	Approved  bool           `json:"approved"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// AuditLogger appends AuditEntry records to a JSON-lines file. Every
// LiveDataServer tool call is logged once, approved or denied, after its
// handler returns.
type AuditLogger struct {
	path string
	mu   sync.Mutex
}

// NewAuditLogger opens (creating if absent) the audit log at path.
func NewAuditLogger(path string) (*AuditLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("persistence: open audit log: %w", err)
	}
	f.Close()
	return &AuditLogger{path: path}, nil
}

// Log appends entry, stamping Timestamp if it is zero.
func (l *AuditLogger) Log(entry AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("persistence: open audit log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("persistence: marshal audit entry: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("persistence: append audit entry: %w", err)
	}
	return nil
}
