package hostsrv

import "testing"

func TestLockTableClaimRelease(t *testing.T) {
	locks := newLockTable()

	if _, ok := locks.claim("docs/guide.md", "alice"); !ok {
		t.Fatal("first claim failed")
	}
	// Re-claiming an owned lock is a no-op.
	if _, ok := locks.claim("docs/guide.md", "alice"); !ok {
		t.Fatal("re-claim by holder failed")
	}

	holder, ok := locks.claim("docs/guide.md", "bob")
	if ok {
		t.Fatal("claim on a held lock succeeded")
	}
	if holder != "alice" {
		t.Errorf("holder = %q, want alice", holder)
	}

	// Only the holder can release.
	if _, ok := locks.release("docs/guide.md", "bob"); ok {
		t.Fatal("release by non-holder succeeded")
	}
	if _, ok := locks.release("docs/guide.md", "alice"); !ok {
		t.Fatal("release by holder failed")
	}
	if _, held := locks.holder("docs/guide.md"); held {
		t.Error("lock survived release")
	}

	// Releasing an unheld lock is a no-op.
	if _, ok := locks.release("docs/guide.md", "bob"); !ok {
		t.Error("release of unheld lock failed")
	}
}

func TestLockTableAllows(t *testing.T) {
	locks := newLockTable()

	// Unlocked files are writable by anyone.
	if _, ok := locks.allows("docs/guide.md", "alice"); !ok {
		t.Fatal("write to unlocked file denied")
	}

	locks.claim("docs/guide.md", "alice")
	if _, ok := locks.allows("docs/guide.md", "alice"); !ok {
		t.Error("holder denied write")
	}
	holder, ok := locks.allows("docs/guide.md", "bob")
	if ok {
		t.Error("non-holder allowed to write")
	}
	if holder != "alice" {
		t.Errorf("holder = %q, want alice", holder)
	}

	// Locks are per path.
	if _, ok := locks.allows("docs/other.md", "bob"); !ok {
		t.Error("unrelated path denied")
	}
}
