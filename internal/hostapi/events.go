package hostapi

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// eventStream multiplexes the host's single WebSocket event feed to scoped
// listeners. It connects lazily on the first registration and reconnects
// with exponential backoff until closed.
type eventStream struct {
	url   string
	token string

	mu        sync.Mutex
	listeners map[string]listener
	started   bool
	done      chan struct{}
}

type listener struct {
	scope Scope
	kind  EventKind
	fn    func(Event)
}

func newEventStream(url, token string) *eventStream {
	return &eventStream{
		url:       url,
		token:     token,
		listeners: make(map[string]listener),
		done:      make(chan struct{}),
	}
}

func (s *eventStream) add(scope Scope, kind EventKind, fn func(Event)) string {
	id := uuid.NewString()

	s.mu.Lock()
	s.listeners[id] = listener{scope: scope, kind: kind, fn: fn}
	start := !s.started
	s.started = true
	s.mu.Unlock()

	if start {
		go s.readLoop()
	}
	return id
}

func (s *eventStream) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, id)
}

func (s *eventStream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = make(map[string]listener)
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *eventStream) readLoop() {
	const (
		reconnectMin = time.Second
		reconnectMax = 30 * time.Second
	)
	delay := reconnectMin

	for {
		select {
		case <-s.done:
			return
		default:
		}

		if err := s.connect(); err != nil {
			log.Printf("host event stream: %v (reconnecting in %s)", err, delay)
			select {
			case <-s.done:
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > reconnectMax {
				delay = reconnectMax
			}
			continue
		}
		delay = reconnectMin
	}
}

func (s *eventStream) connect() error {
	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}

	conn, _, err := websocket.DefaultDialer.Dial(s.url, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock ReadMessage when the stream is closed.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-s.done:
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
				return err
			}
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}
		s.dispatch(event)
	}
}

func (s *eventStream) dispatch(event Event) {
	s.mu.Lock()
	matched := make([]func(Event), 0, len(s.listeners))
	for _, l := range s.listeners {
		if l.kind == event.Kind && l.scope.Matches(event) {
			matched = append(matched, l.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range matched {
		fn(event)
	}
}
