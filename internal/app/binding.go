// Package app composes the browser and editor panels over a host binding
// and serves the application shell's HTTP surface.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/codedeck/codedeck/internal/hostapi"
)

// refreshTimeout bounds event-triggered list re-fetches.
const refreshTimeout = 30 * time.Second

// Binding owns the negotiated host API plus cached file and collection
// lists. The lists are re-fetched whenever the host fires a change, create
// or delete notification; each list has exactly one writer (this binding).
type Binding struct {
	api hostapi.API

	mu          sync.Mutex
	files       []hostapi.FileRecord
	collections []hostapi.CollectionInfo
	listErr     string
	seq         int
	listenerIDs []string
	onUpdate    func()
}

// Bind negotiates v1 on the router, eagerly fetches both lists, and
// registers the refetch listeners. Version negotiation failure is terminal
// and never retried here; list fetch failures are not terminal (they
// surface through ListError and a later refresh can clear them).
func Bind(ctx context.Context, router hostapi.Router) (*Binding, error) {
	api, err := router.UseVersion(ctx, hostapi.Version1)
	if err != nil {
		return nil, err
	}

	b := &Binding{api: api}
	b.refresh(ctx)

	for _, kind := range []hostapi.EventKind{hostapi.EventChange, hostapi.EventCreate, hostapi.EventDelete} {
		id := api.AddListener(hostapi.Scope{}, kind, func(hostapi.Event) {
			refreshCtx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()
			b.refresh(refreshCtx)
		})
		b.listenerIDs = append(b.listenerIDs, id)
	}

	return b, nil
}

// OnUpdate registers a callback invoked after every applied refresh.
func (b *Binding) OnUpdate(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onUpdate = fn
}

// API exposes the negotiated capability surface.
func (b *Binding) API() hostapi.API { return b.api }

// refresh re-fetches both lists. Responses superseded by a newer refresh
// are discarded via the sequence counter.
func (b *Binding) refresh(ctx context.Context) {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.mu.Unlock()

	files, filesErr := b.api.Files(ctx)
	collections, collectionsErr := b.api.Collections(ctx)

	b.mu.Lock()
	if seq != b.seq {
		b.mu.Unlock()
		return // stale response
	}
	b.listErr = ""
	if filesErr != nil {
		b.listErr = filesErr.Error()
	} else {
		b.files = files
	}
	if collectionsErr != nil {
		b.listErr = collectionsErr.Error()
	} else {
		b.collections = collections
	}
	fn := b.onUpdate
	b.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Refresh re-fetches both lists on demand.
func (b *Binding) Refresh(ctx context.Context) {
	b.refresh(ctx)
}

// Files returns the cached file list.
func (b *Binding) Files() []hostapi.FileRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.files
}

// Collections returns the cached collection list.
func (b *Binding) Collections() []hostapi.CollectionInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.collections
}

// ListError returns the message of the last failed list fetch, if any.
func (b *Binding) ListError() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listErr
}

// Close deregisters every listener and releases the event stream. Safe to
// call on partially constructed bindings; every registration recorded in
// listenerIDs gets its matching deregistration unconditionally.
func (b *Binding) Close() {
	b.mu.Lock()
	ids := b.listenerIDs
	b.listenerIDs = nil
	b.mu.Unlock()

	for _, id := range ids {
		b.api.RemoveListener(id)
	}
	_ = b.api.Close()
}
