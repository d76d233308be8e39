package browser

import (
	"context"
	"sync"

	"github.com/codedeck/codedeck/internal/tree"
)

// State is the browser list state.
type State string

// Browser states. Empty is distinct from loading: the list resolved and
// had nothing in it.
const (
	StateLoading State = "loading"
	StateEmpty   State = "empty"
	StateError   State = "error"
	StateReady   State = "ready"
)

// FetchFunc supplies the authoritative record list.
type FetchFunc func(ctx context.Context) ([]tree.Record, error)

// SelectFunc receives the record of a clicked file node.
type SelectFunc func(tree.Record)

// Browser wraps a TreeView with a refresh affordance and list state. The
// single-source-of-truth form: the caller owns when to refresh; overlapping
// refreshes resolve last-started-wins via a request counter.
type Browser struct {
	Title string

	fetch    FetchFunc
	onSelect SelectFunc

	mu     sync.Mutex
	view   *TreeView
	state  State
	errMsg string
	seq    int
}

// New creates a browser over the given fetch function.
func New(title string, fetch FetchFunc, onSelect SelectFunc) *Browser {
	return &Browser{
		Title:    title,
		fetch:    fetch,
		onSelect: onSelect,
		view:     NewTreeView(),
		state:    StateLoading,
	}
}

// Refresh re-queries the list. A response that has been superseded by a
// newer refresh is discarded.
func (b *Browser) Refresh(ctx context.Context) {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.state = StateLoading
	b.errMsg = ""
	b.mu.Unlock()

	records, err := b.fetch(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if seq != b.seq {
		return // stale response
	}
	if err != nil {
		b.state = StateError
		b.errMsg = err.Error()
		return
	}

	b.view.SetRecords(records)
	if len(records) == 0 {
		b.state = StateEmpty
	} else {
		b.state = StateReady
	}
}

// State returns the current list state.
func (b *Browser) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Error returns the message of the last failed refresh.
func (b *Browser) Error() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errMsg
}

// Rows returns the visible tree rows. The refresh control is disabled
// while loading; callers render a spinner instead of the rows then.
func (b *Browser) Rows(selectedPath string) []Row {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view.Rows(selectedPath)
}

// Toggle flips a directory's expansion.
func (b *Browser) Toggle(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view.Toggle(path)
}

// Select fires the selection callback for a file row. Exactly the record
// whose path matches is delivered; anything else is ignored.
func (b *Browser) Select(path string) bool {
	b.mu.Lock()
	record, ok := b.view.Select(path)
	b.mu.Unlock()

	if !ok {
		return false
	}
	if b.onSelect != nil {
		b.onSelect(record)
	}
	return true
}
