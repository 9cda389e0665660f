package enrich

import (
	"fmt"
	"testing"
)

func TestCacheLifecycle(t *testing.T) {
	c := NewCache(10)

	if _, state := c.Get("missing"); state != StateUnknown {
		t.Errorf("state for unknown id = %v, want StateUnknown", state)
	}

	c.Begin("id-1")
	if _, state := c.Get("id-1"); state != StatePending {
		t.Errorf("state after Begin = %v, want StatePending", state)
	}

	c.Resolve("id-1", &Analysis{Available: true, Verdict: "FAKE"})
	a, state := c.Get("id-1")
	if state != StateDone {
		t.Errorf("state after Resolve = %v, want StateDone", state)
	}
	if a == nil || a.Verdict != "FAKE" {
		t.Errorf("analysis = %+v, want stored verdict", a)
	}
}

func TestCacheEvictsOldestFirst(t *testing.T) {
	c := NewCache(50)

	for i := 0; i < 51; i++ {
		c.Begin(fmt.Sprintf("id-%d", i))
	}

	if c.Len() != 50 {
		t.Errorf("Len = %d, want 50", c.Len())
	}
	if _, state := c.Get("id-0"); state != StateUnknown {
		t.Errorf("oldest entry should be evicted, state = %v", state)
	}
	for i := 1; i <= 50; i++ {
		if _, state := c.Get(fmt.Sprintf("id-%d", i)); state == StateUnknown {
			t.Errorf("id-%d evicted, only the oldest should go", i)
		}
	}
}

func TestCacheEvictsPendingEntries(t *testing.T) {
	c := NewCache(2)
	c.Begin("a")
	c.Begin("b")
	c.Resolve("b", &Analysis{Available: true})
	c.Begin("c")

	// FIFO order ignores state: "a" goes even though it is still pending.
	if _, state := c.Get("a"); state != StateUnknown {
		t.Errorf("pending entry not evicted, state = %v", state)
	}
	if _, state := c.Get("b"); state != StateDone {
		t.Errorf("resolved entry lost, state = %v", state)
	}
}

func TestCacheResolveAfterEviction(t *testing.T) {
	c := NewCache(1)
	c.Begin("old")
	c.Begin("new")

	// Must not re-create the evicted entry.
	c.Resolve("old", &Analysis{Available: true})
	if _, state := c.Get("old"); state != StateUnknown {
		t.Errorf("resolve resurrected an evicted entry, state = %v", state)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestCacheRebeginResetsEntry(t *testing.T) {
	c := NewCache(5)
	c.Begin("id")
	c.Resolve("id", &Analysis{Available: true})
	c.Begin("id")

	if _, state := c.Get("id"); state != StatePending {
		t.Errorf("re-begun entry state = %v, want StatePending", state)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}
