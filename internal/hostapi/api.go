// Package hostapi provides typed client bindings for the host editor's
// versioned capability API: router discovery, version negotiation, file and
// collection handles, and change/create/delete event subscriptions.
package hostapi

import (
	"context"
	"errors"
	"io"
	"time"
)

// Version1 is the capability API version this package binds to.
const Version1 = "v1"

// Sentinel errors for the terminal failure classes.
var (
	// ErrRouterUnavailable is returned when no capability router was
	// installed or announced before the discovery context expired.
	ErrRouterUnavailable = errors.New("capability router unavailable")

	// ErrVersionUnsupported is returned when the router is present but the
	// requested API version cannot be negotiated.
	ErrVersionUnsupported = errors.New("requested API version unsupported")

	// ErrLocked is returned when a lock is held by another session.
	ErrLocked = errors.New("file locked by another session")
)

// EventKind identifies a host notification type.
type EventKind string

// Host notification kinds.
const (
	EventChange EventKind = "change"
	EventCreate EventKind = "create"
	EventDelete EventKind = "delete"
)

// Event is a single host notification.
type Event struct {
	Kind       EventKind `json:"kind"`
	Collection string    `json:"collection,omitempty"`
	Path       string    `json:"path"`
}

// Scope restricts a listener to a collection or a single file. The zero
// value matches every event.
type Scope struct {
	Collection string
	Path       string
}

// Matches reports whether the event falls inside the scope.
func (s Scope) Matches(e Event) bool {
	if s.Path != "" && s.Path != e.Path {
		return false
	}
	if s.Collection != "" && s.Collection != e.Collection {
		return false
	}
	return true
}

// Metadata holds per-file metadata supplied by the host.
type Metadata struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
	MIME    string    `json:"mime"`
}

// CollectionInfo describes one collection in the host's list.
type CollectionInfo struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Structure summarizes the host's content layout (structure inspection).
type Structure struct {
	Collections []CollectionStructure `json:"collections"`
}

// CollectionStructure is the per-collection slice of a Structure.
type CollectionStructure struct {
	Key        string         `json:"key"`
	FileCount  int            `json:"fileCount"`
	Extensions map[string]int `json:"extensions"`
}

// Router is the versioned entry point the host exposes.
type Router interface {
	// UseVersion negotiates the given API version. Failure is terminal;
	// callers must not retry automatically.
	UseVersion(ctx context.Context, version string) (API, error)
}

// FileRecord is an opaque handle to a single host file.
type FileRecord interface {
	Path() string
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, content string) error
	ClaimLock(ctx context.Context) error
	ReleaseLock(ctx context.Context) error
	Metadata(ctx context.Context) (Metadata, error)
}

// Collection is a handle to one host collection.
type Collection interface {
	Key() string
	Files(ctx context.Context) ([]FileRecord, error)
}

// API is the negotiated v1 capability surface.
type API interface {
	Files(ctx context.Context) ([]FileRecord, error)
	Collections(ctx context.Context) ([]CollectionInfo, error)
	Collection(key string) Collection
	File(path string) FileRecord
	CurrentFile(ctx context.Context) (FileRecord, error)
	Upload(ctx context.Context, path string, content io.Reader) error
	Structure(ctx context.Context) (*Structure, error)

	// AddListener registers fn for events of the given kind inside scope
	// and returns a listener id. RemoveListener deregisters it; every
	// registration must be paired with a deregistration.
	AddListener(scope Scope, kind EventKind, fn func(Event)) string
	RemoveListener(id string)

	// Close releases the event stream and all listeners.
	Close() error
}
