package hostsrv

import "sync"

// lockTable tracks which session holds each file path. Locks are advisory
// and in-memory; they exist so two editor sessions cannot save over each
// other unnoticed.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]string // path -> session id
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]string)}
}

// claim locks path for session. Claiming a lock the session already holds
// is a no-op. Returns the holding session and false when another session
// holds it.
func (t *lockTable) claim(path, session string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if holder, held := t.locks[path]; held && holder != session {
		return holder, false
	}
	t.locks[path] = session
	return session, true
}

// release removes the session's lock on path. Releasing a lock held by
// someone else fails.
func (t *lockTable) release(path, session string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	holder, held := t.locks[path]
	if !held {
		return "", true
	}
	if holder != session {
		return holder, false
	}
	delete(t.locks, path)
	return "", true
}

// holder returns the session holding path, if any.
func (t *lockTable) holder(path string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	holder, held := t.locks[path]
	return holder, held
}

// allows reports whether session may write path.
func (t *lockTable) allows(path, session string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	holder, held := t.locks[path]
	if held && holder != session {
		return holder, false
	}
	return "", true
}
