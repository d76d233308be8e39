// Package watcher monitors the embedded host's folders and reports changes
// in the host event taxonomy.
package watcher

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/codedeck/codedeck/internal/config"
	"github.com/fsnotify/fsnotify"
)

// Kind represents the type of change, matching the host notification kinds.
type Kind string

// Change kinds. Renames surface as deletes; the create of the new name
// arrives as its own event.
const (
	KindCreate Kind = "create"
	KindChange Kind = "change"
	KindDelete Kind = "delete"
)

// Event represents a change inside one collection.
type Event struct {
	Kind       Kind
	Collection string
	// Path is the collection-prefixed record path, e.g. "docs/guide.md".
	Path string
}

// Callback is a function called when file changes occur
type Callback func(Event)

// Watcher monitors the configured folders for changes.
type Watcher struct {
	watcher   *fsnotify.Watcher
	cfg       *config.Config
	callbacks []Callback
	mu        sync.RWMutex
	done      chan struct{}
}

// New creates a new file system watcher
func New(cfg *config.Config) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher: w,
		cfg:     cfg,
		done:    make(chan struct{}),
	}, nil
}

// OnChange registers a callback for change events
func (w *Watcher) OnChange(cb Callback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Start begins watching all configured folders
func (w *Watcher) Start() error {
	for _, folder := range w.cfg.Folders {
		err := filepath.Walk(folder.Path, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			// Only watch directories
			if info.IsDir() && !w.cfg.IsExcluded(path) {
				if err := w.watcher.Add(path); err != nil {
					log.Printf("Warning: cannot watch %s: %v", path, err)
				}
			}
			return nil
		})
		if err != nil {
			log.Printf("Warning: failed to walk folder %s: %v", folder.Path, err)
		}
	}

	go w.eventLoop()
	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.cfg.IsExcluded(event.Name) {
		return
	}

	collection, recordPath, ok := w.resolve(event.Name)
	if !ok {
		return
	}

	var kind Kind
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		kind = KindCreate
		// If a new directory is created, watch it
		if isDir(event.Name) {
			_ = w.watcher.Add(event.Name)
		}
	case event.Op&fsnotify.Write == fsnotify.Write:
		kind = KindChange
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		kind = KindDelete
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		kind = KindDelete
	default:
		return
	}

	e := Event{
		Kind:       kind,
		Collection: collection,
		Path:       recordPath,
	}

	w.mu.RLock()
	callbacks := make([]Callback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for _, cb := range callbacks {
		cb(e)
	}
}

// resolve maps an absolute filesystem path to its collection key and
// collection-prefixed record path.
func (w *Watcher) resolve(absPath string) (collection, recordPath string, ok bool) {
	for _, folder := range w.cfg.Folders {
		rel, err := filepath.Rel(folder.Path, absPath)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		return folder.Key, folder.Key + "/" + rel, true
	}
	return "", "", false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
