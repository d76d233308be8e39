package app

import (
	"context"
	"sync"

	"github.com/codedeck/codedeck/internal/browser"
	"github.com/codedeck/codedeck/internal/config"
	"github.com/codedeck/codedeck/internal/editor"
	"github.com/codedeck/codedeck/internal/hostapi"
	"github.com/codedeck/codedeck/internal/preview"
	"github.com/codedeck/codedeck/internal/tree"
)

// Connection is the shell's connection state toward the host.
type Connection string

// Connection states.
const (
	Connecting      Connection = "connecting"
	Connected       Connection = "connected"
	ConnectionError Connection = "error"
)

// troubleshooting accompanies the terminal connection error states.
const troubleshooting = "check that the host editor is running and that " +
	"host_url points at it; the capability router is announced by the host, " +
	"not by this app"

// Shell composes the file browser and the editor panel, feeding the
// selection from one into the other, and renders the binding's connection
// state.
type Shell struct {
	cfg      *config.Config
	session  *editor.Session
	renderer *preview.Renderer

	mu           sync.Mutex
	conn         Connection
	connErr      string
	binding      *Binding
	browser      *browser.Browser
	sections     []*browser.Section
	selectedPath string
	onUpdate     func()
}

// NewShell creates a disconnected shell.
func NewShell(cfg *config.Config) *Shell {
	return &Shell{
		cfg:      cfg,
		session:  editor.NewSession(cfg.Languages),
		renderer: preview.NewRenderer(),
		conn:     Connecting,
	}
}

// OnUpdate registers a callback fired whenever shell state changes in ways
// the frontend should repaint for.
func (s *Shell) OnUpdate(fn func()) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

func (s *Shell) notify() {
	s.mu.Lock()
	fn := s.onUpdate
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Connect discovers the capability router, binds the v1 API, and mounts
// the browser and collection sections. Discovery and negotiation failures
// are terminal: the shell stays in the error state with troubleshooting
// guidance and never retries on its own.
func (s *Shell) Connect(ctx context.Context) error {
	router, err := hostapi.Discover(ctx)
	if err != nil {
		s.setConnError(err)
		return err
	}

	binding, err := Bind(ctx, router)
	if err != nil {
		s.setConnError(err)
		return err
	}

	fileBrowser := browser.New("Files", func(ctx context.Context) ([]tree.Record, error) {
		files, err := binding.API().Files(ctx)
		if err != nil {
			return nil, err
		}
		records := make([]tree.Record, len(files))
		for i, f := range files {
			records[i] = f
		}
		return records, nil
	}, s.selectRecord)
	fileBrowser.Refresh(ctx)

	var sections []*browser.Section
	for _, info := range binding.Collections() {
		section := browser.NewSection(binding.API(), info, s.selectRecord)
		section.Mount(ctx)
		sections = append(sections, section)
	}

	s.mu.Lock()
	s.binding = binding
	s.browser = fileBrowser
	s.sections = sections
	s.conn = Connected
	s.connErr = ""
	s.mu.Unlock()

	binding.OnUpdate(s.notify)
	s.notify()
	return nil
}

func (s *Shell) setConnError(err error) {
	s.mu.Lock()
	s.conn = ConnectionError
	s.connErr = err.Error() + " (" + troubleshooting + ")"
	s.mu.Unlock()
	s.notify()
}

// selectRecord is the browser's selection callback: it holds the single
// selected file and restarts the editor session on it.
func (s *Shell) selectRecord(record tree.Record) {
	fileRecord, ok := record.(hostapi.FileRecord)
	if !ok {
		return
	}

	s.mu.Lock()
	s.selectedPath = fileRecord.Path()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	s.session.Open(ctx, fileRecord)
	s.notify()
}

// Connection returns the connection state and its error message.
func (s *Shell) Connection() (Connection, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn, s.connErr
}

// SelectedPath returns the path of the currently selected file.
func (s *Shell) SelectedPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedPath
}

// Browser returns the single-source file browser, nil before Connect.
func (s *Shell) Browser() *browser.Browser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browser
}

// Sections returns the per-collection sections, nil before Connect.
func (s *Shell) Sections() []*browser.Section {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sections
}

// Session returns the editor session.
func (s *Shell) Session() *editor.Session { return s.session }

// Preview renders the current buffer as Markdown.
func (s *Shell) Preview() (*preview.Result, error) {
	snap := s.session.Snapshot()
	return s.renderer.Render([]byte(snap.Buffer))
}

// Refresh re-queries every list: the binding's caches, the file browser,
// and each collection section.
func (s *Shell) Refresh(ctx context.Context) {
	s.mu.Lock()
	binding := s.binding
	fileBrowser := s.browser
	sections := s.sections
	s.mu.Unlock()

	if binding == nil {
		return
	}
	binding.Refresh(ctx)
	fileBrowser.Refresh(ctx)
	for _, section := range sections {
		section.Refresh(ctx)
	}
	s.notify()
}

// Close unmounts sections, closes the editor session, and releases the
// binding with all its listeners.
func (s *Shell) Close(ctx context.Context) {
	s.mu.Lock()
	binding := s.binding
	sections := s.sections
	s.binding = nil
	s.sections = nil
	s.conn = Connecting
	s.mu.Unlock()

	s.session.Close(ctx)
	for _, section := range sections {
		section.Unmount()
	}
	if binding != nil {
		binding.Close()
	}
}
