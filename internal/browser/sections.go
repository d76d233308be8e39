package browser

import (
	"context"
	"time"

	"github.com/codedeck/codedeck/internal/hostapi"
	"github.com/codedeck/codedeck/internal/tree"
)

// refreshTimeout bounds event-triggered re-fetches.
const refreshTimeout = 30 * time.Second

// Section is one independently refreshing collection in the stacked
// per-collection form of the browser. It subscribes to the collection's
// change/create/delete notifications and re-queries its item list on each.
type Section struct {
	*Browser

	api         hostapi.API
	key         string
	listenerIDs []string
}

// NewSection creates a section for one collection. Call Mount to load it
// and start listening.
func NewSection(api hostapi.API, info hostapi.CollectionInfo, onSelect SelectFunc) *Section {
	s := &Section{
		api: api,
		key: info.Key,
	}
	fetch := func(ctx context.Context) ([]tree.Record, error) {
		files, err := api.Collection(s.key).Files(ctx)
		if err != nil {
			return nil, err
		}
		return asRecords(files), nil
	}
	title := info.Label
	if title == "" {
		title = info.Key
	}
	s.Browser = New(title, fetch, onSelect)
	return s
}

// Key returns the collection key.
func (s *Section) Key() string { return s.key }

// Mount fetches the initial list and registers the event listeners. Each
// registration is recorded so Unmount can deregister all of them; repeated
// mount/unmount cycles therefore never leak or duplicate listeners.
func (s *Section) Mount(ctx context.Context) {
	scope := hostapi.Scope{Collection: s.key}
	for _, kind := range []hostapi.EventKind{hostapi.EventChange, hostapi.EventCreate, hostapi.EventDelete} {
		id := s.api.AddListener(scope, kind, func(hostapi.Event) {
			refreshCtx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()
			s.Refresh(refreshCtx)
		})
		s.listenerIDs = append(s.listenerIDs, id)
	}

	s.Refresh(ctx)
}

// Unmount deregisters every listener registered by Mount.
func (s *Section) Unmount() {
	for _, id := range s.listenerIDs {
		s.api.RemoveListener(id)
	}
	s.listenerIDs = nil
}

// asRecords adapts host file handles to the builder's record interface.
func asRecords(files []hostapi.FileRecord) []tree.Record {
	records := make([]tree.Record, len(files))
	for i, f := range files {
		records[i] = f
	}
	return records
}
