package cache

import (
	"testing"
	"time"
)

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get() on empty cache should miss")
	}

	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Errorf("Get(a) = %q, %v, want 1, true", v, ok)
	}

	// Filling past capacity evicts the least recently used entry.
	c.Set("b", "2")
	c.Set("c", "3")
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_TTL(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)
	c.Set("k", 42)

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("expired entry should miss")
	}
	c.Set("k", 42)
	time.Sleep(20 * time.Millisecond)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
}

func TestLRUCache_DeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("dashboard:1:month", 1)
	c.Set("dashboard:1:year", 2)
	c.Set("dashboard:2:month", 3)

	if n := c.DeletePrefix("dashboard:1:"); n != 2 {
		t.Errorf("DeletePrefix() = %d, want 2", n)
	}
	if _, ok := c.Get("dashboard:1:month"); ok {
		t.Error("prefixed entry should be gone")
	}
	if _, ok := c.Get("dashboard:2:month"); !ok {
		t.Error("other user entry should survive")
	}
}

func TestManagerCleanup(t *testing.T) {
	c := NewLRUCache[int](10, 5*time.Millisecond)
	c.Set("k", 1)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(10 * time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for c.Size() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expired entry was never cleaned up")
		}
		time.Sleep(5 * time.Millisecond)
	}

	m.Stop()
}
