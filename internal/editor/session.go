// Package editor implements the content editor panel: a per-file session
// with an edit buffer, dirty tracking, save gating, and lock lifecycle.
package editor

import (
	"context"
	"sync"

	"github.com/codedeck/codedeck/internal/hostapi"
)

// State is the editor panel state.
type State string

// Panel states. Saved doubles as "loaded and clean".
const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSaved   State = "saved"
	StateUnsaved State = "unsaved"
	StateSaving  State = "saving"
	StateError   State = "error"
)

// Session tracks the currently selected file and its edit buffer. All
// methods are safe for concurrent use; host calls run outside the lock.
type Session struct {
	languages map[string]string

	mu       sync.Mutex
	state    State
	record   hostapi.FileRecord
	buffer   string
	baseline string
	errMsg   string
	readOnly bool
	gen      int
}

// NewSession returns an idle session. languages overrides the built-in
// extension lookup (may be nil).
func NewSession(languages map[string]string) *Session {
	return &Session{
		languages: languages,
		state:     StateIdle,
	}
}

// Snapshot is a point-in-time view of the session for rendering.
type Snapshot struct {
	State    State  `json:"state"`
	Path     string `json:"path,omitempty"`
	Buffer   string `json:"buffer"`
	Language string `json:"language,omitempty"`
	Error    string `json:"error,omitempty"`
	ReadOnly bool   `json:"readOnly"`
	Dirty    bool   `json:"dirty"`
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:    s.state,
		Buffer:   s.buffer,
		Error:    s.errMsg,
		ReadOnly: s.readOnly,
		Dirty:    s.state == StateUnsaved || s.state == StateSaving,
	}
	if s.record != nil {
		snap.Path = s.record.Path()
		snap.Language = Language(s.record.Path(), s.languages)
	}
	return snap
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open switches the session to the given file: any in-flight tracking for
// the previous file is discarded without prompting, its lock released, and
// the new file fetched. A failed lock claim leaves the buffer read-only;
// a failed fetch surfaces as the error state.
func (s *Session) Open(ctx context.Context, record hostapi.FileRecord) {
	s.mu.Lock()
	previous := s.record
	s.gen++
	gen := s.gen
	s.record = record
	s.state = StateLoading
	s.buffer = ""
	s.baseline = ""
	s.errMsg = ""
	s.readOnly = false
	s.mu.Unlock()

	if previous != nil {
		_ = previous.ReleaseLock(ctx)
	}

	readOnly := record.ClaimLock(ctx) != nil
	content, err := record.Get(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		// A newer Open superseded this load.
		return
	}
	if err != nil {
		s.state = StateError
		s.errMsg = err.Error()
		return
	}
	s.state = StateSaved
	s.buffer = content
	s.baseline = content
	s.readOnly = readOnly
}

// Edit replaces the buffer. The state follows from comparing the live
// buffer with the last-saved baseline; edits are ignored unless a file is
// loaded and writable.
func (s *Session) Edit(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateSaved, StateUnsaved:
	default:
		return
	}
	if s.readOnly {
		return
	}

	s.buffer = text
	if s.buffer == s.baseline {
		s.state = StateSaved
	} else {
		s.state = StateUnsaved
	}
}

// Save persists the buffer through the host. It is a no-op unless the
// session is Unsaved; a save already in flight gates further saves. On
// failure the buffer is preserved and the error surfaced so the user can
// retry.
func (s *Session) Save(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateUnsaved {
		s.mu.Unlock()
		return
	}
	s.state = StateSaving
	s.errMsg = ""
	record := s.record
	content := s.buffer
	gen := s.gen
	s.mu.Unlock()

	err := record.Set(ctx, content)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	if err != nil {
		s.state = StateUnsaved
		s.errMsg = err.Error()
		return
	}
	s.baseline = content
	if s.buffer == s.baseline {
		s.state = StateSaved
	} else {
		// Edited while the save was in flight.
		s.state = StateUnsaved
	}
}

// Close releases the current lock and returns the session to idle.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	record := s.record
	s.gen++
	s.record = nil
	s.state = StateIdle
	s.buffer = ""
	s.baseline = ""
	s.errMsg = ""
	s.readOnly = false
	s.mu.Unlock()

	if record != nil {
		_ = record.ReleaseLock(ctx)
	}
}
