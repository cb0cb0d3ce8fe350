package live

import (
	"errors"
	"sync"
	"time"
)

// ConfirmationMode is the closed set of Confirmation authorization policies.
type ConfirmationMode string

// Closed set of confirmation modes.
const (
	ModeAutoApprove ConfirmationMode = "auto_approve"
	ModeAutoDeny    ConfirmationMode = "auto_deny"
	ModeCallback    ConfirmationMode = "callback"
)

// ErrConfirmationDenied is returned when a mutating/escape-hatch tool call
// is denied by the Confirmation policy.
var ErrConfirmationDenied = errors.New("confirmation denied")

// ConfirmationRequest is what a Tier-4 (or requires_confirmation) tool asks
// the Confirmation gate to authorize.
type ConfirmationRequest struct {
	Tool   string
	Params map[string]any
}

// ConfirmationRecord is one entry in the confirmation history: every
// request, approved or denied, is appended.
type ConfirmationRecord struct {
	Request   ConfirmationRequest
	Approved  bool
	Timestamp time.Time
}

// Callback decides whether to approve a request.
type Callback func(req ConfirmationRequest) bool

// Confirmation is the authorization gate for mutating/escape-hatch tools.
type Confirmation struct {
	mode     ConfirmationMode
	callback Callback

	mu      sync.Mutex
	history []ConfirmationRecord
}

// NewConfirmation constructs a Confirmation in the given mode. callback is
// only consulted when mode is ModeCallback.
func NewConfirmation(mode ConfirmationMode, callback Callback) *Confirmation {
	return &Confirmation{mode: mode, callback: callback}
}

// Authorize evaluates req against the configured mode, records the outcome
// in history, and returns ErrConfirmationDenied if denied.
func (c *Confirmation) Authorize(req ConfirmationRequest) error {
	var approved bool
	switch c.mode {
	case ModeAutoApprove:
		approved = true
	case ModeAutoDeny:
		approved = false
	case ModeCallback:
		if c.callback == nil {
			approved = false
		} else {
			approved = c.callback(req)
		}
	default:
		approved = false
	}

	c.mu.Lock()
	c.history = append(c.history, ConfirmationRecord{Request: req, Approved: approved, Timestamp: time.Now().UTC()})
	c.mu.Unlock()

	if !approved {
		return ErrConfirmationDenied
	}
	return nil
}

// History returns a defensive copy of every confirmation decision made so
// far.
func (c *Confirmation) History() []ConfirmationRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ConfirmationRecord(nil), c.history...)
}
