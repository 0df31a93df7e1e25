package cache

import (
	"testing"
	"time"
)

func TestLRUGetSet(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}

	// "a" was just touched, so adding "c" evicts "b".
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Error("expected b evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a retained")
	}
	if c.Size() != 2 {
		t.Errorf("Size = %d, want 2", c.Size())
	}
}

func TestLRUTTLExpiry(t *testing.T) {
	c := NewLRUCache[string](10, 10*time.Millisecond)

	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to miss")
	}
	if n := c.CleanExpired(); n != 0 {
		// Get already removed it.
		t.Errorf("CleanExpired = %d, want 0", n)
	}
}

func TestLRUDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("invoice:card-1:2025-07", 1)
	c.Set("invoice:card-1:2025-08", 2)
	c.Set("invoice:card-2:2025-07", 3)

	if n := c.DeletePrefix("invoice:card-1:"); n != 2 {
		t.Errorf("DeletePrefix = %d, want 2", n)
	}
	if _, ok := c.Get("invoice:card-2:2025-07"); !ok {
		t.Error("other card's entry should survive")
	}
	if c.Size() != 1 {
		t.Errorf("Size = %d, want 1", c.Size())
	}
}

func TestCleanExpired(t *testing.T) {
	c := NewLRUCache[int](10, 5*time.Millisecond)

	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(10 * time.Millisecond)
	c.Set("fresh", 3)

	// Fresh TTL for the last entry hasn't elapsed.
	if n := c.CleanExpired(); n != 2 {
		t.Errorf("CleanExpired = %d, want 2", n)
	}
	if c.Size() != 1 {
		t.Errorf("Size = %d, want 1", c.Size())
	}
}
