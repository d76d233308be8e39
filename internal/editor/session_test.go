package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/codedeck/codedeck/internal/hostapi"
)

// fakeRecord is an in-memory FileRecord with controllable failures.
type fakeRecord struct {
	mu        sync.Mutex
	path      string
	content   string
	getErr    error
	setErr    error
	lockErr   error
	setCalls  int
	released  int
	setGate   chan struct{} // when non-nil, Set blocks until closed
	setActive chan struct{} // signalled when Set begins
}

func (f *fakeRecord) Path() string { return f.path }

func (f *fakeRecord) Get(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.content, nil
}

func (f *fakeRecord) Set(ctx context.Context, content string) error {
	f.mu.Lock()
	f.setCalls++
	gate := f.setGate
	active := f.setActive
	err := f.setErr
	f.mu.Unlock()

	if active != nil {
		active <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.content = content
	f.mu.Unlock()
	return nil
}

func (f *fakeRecord) ClaimLock(ctx context.Context) error { return f.lockErr }

func (f *fakeRecord) ReleaseLock(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
	return nil
}

func (f *fakeRecord) Metadata(ctx context.Context) (hostapi.Metadata, error) {
	return hostapi.Metadata{Path: f.path}, nil
}

func TestOpenLoadsContent(t *testing.T) {
	s := NewSession(nil)
	rec := &fakeRecord{path: "docs/a.md", content: "X"}

	s.Open(context.Background(), rec)

	snap := s.Snapshot()
	if snap.State != StateSaved {
		t.Fatalf("state = %s", snap.State)
	}
	if snap.Buffer != "X" || snap.Path != "docs/a.md" {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Language != "markdown" {
		t.Errorf("language = %q", snap.Language)
	}
}

func TestEditAndSave(t *testing.T) {
	s := NewSession(nil)
	rec := &fakeRecord{path: "docs/a.md", content: "X"}
	ctx := context.Background()

	s.Open(ctx, rec)
	s.Edit("Y")
	if s.State() != StateUnsaved {
		t.Fatalf("state after edit = %s", s.State())
	}

	s.Save(ctx)
	if s.State() != StateSaved {
		t.Fatalf("state after save = %s", s.State())
	}
	if rec.content != "Y" {
		t.Errorf("persisted content = %q", rec.content)
	}

	// Unrelated snapshots must not revert the state.
	for i := 0; i < 3; i++ {
		if snap := s.Snapshot(); snap.State != StateSaved {
			t.Fatalf("state flapped to %s", snap.State)
		}
	}

	// Editing back to the baseline is clean again.
	s.Edit("Z")
	s.Edit("Y")
	if s.State() != StateSaved {
		t.Errorf("state after reverting edit = %s", s.State())
	}
}

func TestSaveFailureKeepsBuffer(t *testing.T) {
	s := NewSession(nil)
	rec := &fakeRecord{path: "docs/a.md", content: "X", setErr: errors.New("disk full")}
	ctx := context.Background()

	s.Open(ctx, rec)
	s.Edit("Y")
	s.Save(ctx)

	snap := s.Snapshot()
	if snap.State != StateUnsaved {
		t.Fatalf("state = %s", snap.State)
	}
	if snap.Buffer != "Y" {
		t.Errorf("buffer lost: %q", snap.Buffer)
	}
	if snap.Error == "" {
		t.Error("expected surfaced error")
	}

	// Retry after the failure clears.
	rec.mu.Lock()
	rec.setErr = nil
	rec.mu.Unlock()
	s.Save(ctx)
	if s.State() != StateSaved {
		t.Errorf("state after retry = %s", s.State())
	}
}

func TestSaveGatedWhileSaving(t *testing.T) {
	s := NewSession(nil)
	rec := &fakeRecord{
		path:      "docs/a.md",
		content:   "X",
		setGate:   make(chan struct{}),
		setActive: make(chan struct{}, 1),
	}
	ctx := context.Background()

	s.Open(ctx, rec)
	s.Edit("Y")

	done := make(chan struct{})
	go func() {
		s.Save(ctx)
		close(done)
	}()

	select {
	case <-rec.setActive:
	case <-time.After(2 * time.Second):
		t.Fatal("save never started")
	}
	if s.State() != StateSaving {
		t.Fatalf("state = %s", s.State())
	}

	// Second save request while pending is a no-op.
	s.Save(ctx)

	close(rec.setGate)
	<-done

	rec.mu.Lock()
	calls := rec.setCalls
	rec.mu.Unlock()
	if calls != 1 {
		t.Errorf("Set called %d times, want 1", calls)
	}
	if s.State() != StateSaved {
		t.Errorf("final state = %s", s.State())
	}
}

func TestSaveNoopWhenClean(t *testing.T) {
	s := NewSession(nil)
	rec := &fakeRecord{path: "docs/a.md", content: "X"}
	ctx := context.Background()

	s.Open(ctx, rec)
	s.Save(ctx)

	if rec.setCalls != 0 {
		t.Errorf("Set called %d times on clean buffer", rec.setCalls)
	}
}

func TestSwitchFileDiscardsTracking(t *testing.T) {
	s := NewSession(nil)
	first := &fakeRecord{path: "docs/a.md", content: "A"}
	second := &fakeRecord{path: "docs/b.md", content: "B"}
	ctx := context.Background()

	s.Open(ctx, first)
	s.Edit("A-dirty")

	s.Open(ctx, second)

	snap := s.Snapshot()
	if snap.State != StateSaved || snap.Path != "docs/b.md" || snap.Buffer != "B" {
		t.Fatalf("snapshot after switch = %+v", snap)
	}
	if first.released != 1 {
		t.Errorf("previous lock released %d times, want 1", first.released)
	}
}

func TestLoadError(t *testing.T) {
	s := NewSession(nil)
	rec := &fakeRecord{path: "docs/a.md", getErr: errors.New("boom")}

	s.Open(context.Background(), rec)

	snap := s.Snapshot()
	if snap.State != StateError {
		t.Fatalf("state = %s", snap.State)
	}
	if snap.Error == "" {
		t.Error("expected error message")
	}
	// No editable buffer in the error state.
	s.Edit("nope")
	if s.Snapshot().Buffer != "" {
		t.Error("edit accepted in error state")
	}
}

func TestLockFailureReadOnly(t *testing.T) {
	s := NewSession(nil)
	rec := &fakeRecord{path: "docs/a.md", content: "X", lockErr: errors.New("locked")}
	ctx := context.Background()

	s.Open(ctx, rec)

	snap := s.Snapshot()
	if snap.State != StateSaved || !snap.ReadOnly {
		t.Fatalf("snapshot = %+v", snap)
	}

	s.Edit("Y")
	if s.State() != StateSaved {
		t.Error("read-only buffer accepted an edit")
	}
}

func TestCloseReleasesLock(t *testing.T) {
	s := NewSession(nil)
	rec := &fakeRecord{path: "docs/a.md", content: "X"}
	ctx := context.Background()

	s.Open(ctx, rec)
	s.Close(ctx)

	if s.State() != StateIdle {
		t.Fatalf("state = %s", s.State())
	}
	if rec.released != 1 {
		t.Errorf("lock released %d times, want 1", rec.released)
	}
}

func TestLanguageLookup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"main.go", "go"},
		{"notes/readme.md", "markdown"},
		{"data.unknownext", PlainText},
	}
	for _, tt := range tests {
		if got := Language(tt.path, nil); got != tt.want {
			t.Errorf("Language(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}

	overrides := map[string]string{".mdx": "markdown"}
	if got := Language("page.mdx", overrides); got != "markdown" {
		t.Errorf("override lookup = %q", got)
	}
}
