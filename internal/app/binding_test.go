package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/codedeck/codedeck/internal/hostapi"
)

// fakeRouter negotiates against a fixed version list.
type fakeRouter struct {
	versions []string
	api      *fakeAPI
}

func (r *fakeRouter) UseVersion(_ context.Context, version string) (hostapi.API, error) {
	for _, v := range r.versions {
		if v == version {
			return r.api, nil
		}
	}
	return nil, fmt.Errorf("%w: host offers %v", hostapi.ErrVersionUnsupported, r.versions)
}

// fakeAPI is an in-memory capability API with synchronous event delivery
// and call counting.
type fakeAPI struct {
	mu          sync.Mutex
	paths       []string
	collections []hostapi.CollectionInfo
	filesErr    error
	filesCalls  int
	listeners   map[string]fakeListener
	nextID      int
	closed      bool
}

type fakeListener struct {
	scope hostapi.Scope
	kind  hostapi.EventKind
	fn    func(hostapi.Event)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{listeners: make(map[string]fakeListener)}
}

func (a *fakeAPI) setPaths(paths ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paths = paths
}

func (a *fakeAPI) fire(e hostapi.Event) {
	a.mu.Lock()
	var matched []func(hostapi.Event)
	for _, l := range a.listeners {
		if l.kind == e.Kind && l.scope.Matches(e) {
			matched = append(matched, l.fn)
		}
	}
	a.mu.Unlock()
	for _, fn := range matched {
		fn(e)
	}
}

func (a *fakeAPI) listenerCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.listeners)
}

type fakeFile struct {
	path    string
	content string
}

func (f *fakeFile) Path() string                        { return f.path }
func (f *fakeFile) Get(context.Context) (string, error) { return f.content, nil }
func (f *fakeFile) Set(_ context.Context, content string) error {
	f.content = content
	return nil
}
func (f *fakeFile) ClaimLock(context.Context) error   { return nil }
func (f *fakeFile) ReleaseLock(context.Context) error { return nil }
func (f *fakeFile) Metadata(context.Context) (hostapi.Metadata, error) {
	return hostapi.Metadata{Path: f.path}, nil
}

func (a *fakeAPI) Files(context.Context) ([]hostapi.FileRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.filesCalls++
	if a.filesErr != nil {
		return nil, a.filesErr
	}
	records := make([]hostapi.FileRecord, len(a.paths))
	for i, p := range a.paths {
		records[i] = &fakeFile{path: p, content: "body of " + p}
	}
	return records, nil
}

func (a *fakeAPI) Collections(context.Context) ([]hostapi.CollectionInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.collections, nil
}

func (a *fakeAPI) Collection(key string) hostapi.Collection {
	return fakeCollection{api: a, key: key}
}

type fakeCollection struct {
	api *fakeAPI
	key string
}

func (c fakeCollection) Key() string { return c.key }

func (c fakeCollection) Files(ctx context.Context) ([]hostapi.FileRecord, error) {
	return c.api.Files(ctx)
}

func (a *fakeAPI) File(path string) hostapi.FileRecord {
	return &fakeFile{path: path}
}

func (a *fakeAPI) CurrentFile(context.Context) (hostapi.FileRecord, error) {
	return nil, hostapi.ErrRouterUnavailable
}

func (a *fakeAPI) Upload(context.Context, string, io.Reader) error { return nil }

func (a *fakeAPI) Structure(context.Context) (*hostapi.Structure, error) {
	return &hostapi.Structure{}, nil
}

func (a *fakeAPI) AddListener(scope hostapi.Scope, kind hostapi.EventKind, fn func(hostapi.Event)) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	id := fmt.Sprintf("listener-%d", a.nextID)
	a.listeners[id] = fakeListener{scope: scope, kind: kind, fn: fn}
	return id
}

func (a *fakeAPI) RemoveListener(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.listeners, id)
}

func (a *fakeAPI) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

func TestBindNegotiatesAndFetchesEagerly(t *testing.T) {
	api := newFakeAPI()
	api.setPaths("guide.md", "api/ref.md")
	api.collections = []hostapi.CollectionInfo{{Key: "docs", Label: "Docs"}}
	router := &fakeRouter{versions: []string{"v1"}, api: api}

	b, err := Bind(context.Background(), router)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer b.Close()

	if got := len(b.Files()); got != 2 {
		t.Errorf("files = %d, want 2", got)
	}
	if got := len(b.Collections()); got != 1 {
		t.Errorf("collections = %d, want 1", got)
	}
	if got := api.listenerCount(); got != 3 {
		t.Errorf("listeners = %d, want 3 (change, create, delete)", got)
	}
}

func TestBindVersionUnsupportedIsTerminal(t *testing.T) {
	router := &fakeRouter{versions: []string{"v0"}, api: newFakeAPI()}

	b, err := Bind(context.Background(), router)
	if !errors.Is(err, hostapi.ErrVersionUnsupported) {
		t.Fatalf("err = %v, want ErrVersionUnsupported", err)
	}
	if b != nil {
		t.Fatal("binding returned despite failed negotiation")
	}
}

func TestBindingRefetchesOnEvents(t *testing.T) {
	api := newFakeAPI()
	api.setPaths("guide.md")
	router := &fakeRouter{versions: []string{"v1"}, api: api}

	b, err := Bind(context.Background(), router)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer b.Close()

	api.setPaths("guide.md", "new.md")
	api.fire(hostapi.Event{Kind: hostapi.EventCreate, Path: "new.md"})

	if got := len(b.Files()); got != 2 {
		t.Errorf("files after create event = %d, want 2", got)
	}

	api.setPaths("new.md")
	api.fire(hostapi.Event{Kind: hostapi.EventDelete, Path: "guide.md"})

	files := b.Files()
	if len(files) != 1 || files[0].Path() != "new.md" {
		t.Errorf("files after delete event = %v", files)
	}
}

func TestBindingSurfacesListError(t *testing.T) {
	api := newFakeAPI()
	api.setPaths("guide.md")
	router := &fakeRouter{versions: []string{"v1"}, api: api}

	b, err := Bind(context.Background(), router)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer b.Close()

	api.mu.Lock()
	api.filesErr = errors.New("host gone")
	api.mu.Unlock()
	b.Refresh(context.Background())

	if b.ListError() == "" {
		t.Error("expected list error after failed fetch")
	}
	// The previous list is kept for display until a fetch succeeds.
	if got := len(b.Files()); got != 1 {
		t.Errorf("files after failed fetch = %d, want 1 (kept)", got)
	}

	api.mu.Lock()
	api.filesErr = nil
	api.mu.Unlock()
	b.Refresh(context.Background())
	if b.ListError() != "" {
		t.Errorf("list error not cleared: %q", b.ListError())
	}
}

func TestBindingCloseRemovesListeners(t *testing.T) {
	api := newFakeAPI()
	router := &fakeRouter{versions: []string{"v1"}, api: api}

	b, err := Bind(context.Background(), router)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	b.Close()

	if got := api.listenerCount(); got != 0 {
		t.Errorf("%d listeners after close, want 0", got)
	}
	if !api.closed {
		t.Error("api not closed")
	}

	// Events after close must not resurrect state.
	calls := api.filesCalls
	api.fire(hostapi.Event{Kind: hostapi.EventChange, Path: "guide.md"})
	if api.filesCalls != calls {
		t.Error("closed binding still refetches")
	}
}
