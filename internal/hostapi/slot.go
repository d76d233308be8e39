package hostapi

import (
	"context"
	"sync"
)

// Slot is a single-resolution holder for the capability router. It covers
// both delivery orders: a host that installs the router before the app
// starts, and one that announces it later. Waiters resolve at most once.
type Slot struct {
	mu      sync.Mutex
	router  Router
	waiters []chan Router
}

// NewSlot returns an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Announce installs the router and wakes every pending waiter. A second
// announcement replaces the stored router for future lookups but does not
// re-resolve past waiters.
func (s *Slot) Announce(r Router) {
	s.mu.Lock()
	s.router = r
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, ch := range waiters {
		ch <- r
	}
}

// Current returns the installed router, or nil.
func (s *Slot) Current() Router {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.router
}

// Wait returns the installed router, blocking until one is announced or the
// context expires. Expiry surfaces as ErrRouterUnavailable.
func (s *Slot) Wait(ctx context.Context) (Router, error) {
	s.mu.Lock()
	if s.router != nil {
		r := s.router
		s.mu.Unlock()
		return r, nil
	}
	ch := make(chan Router, 1)
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()

	select {
	case r := <-ch:
		return r, nil
	case <-ctx.Done():
		s.drop(ch)
		return nil, ErrRouterUnavailable
	}
}

func (s *Slot) drop(ch chan Router) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.waiters {
		if w == ch {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}

var defaultSlot = NewSlot()

// Announce installs the router in the process-wide slot.
func Announce(r Router) {
	defaultSlot.Announce(r)
}

// Discover returns the process-wide router, waiting for an announcement if
// none is installed yet.
func Discover(ctx context.Context) (Router, error) {
	return defaultSlot.Wait(ctx)
}
