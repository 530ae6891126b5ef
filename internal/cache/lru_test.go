package cache

import (
	"testing"
	"time"
)

func TestLRUCacheBasics(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")

	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("expected a=1, got %q (%v)", v, ok)
	}

	// "a" was just touched, so adding a third entry evicts "b"
	c.Set("c", "3")
	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a retained")
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)

	c.Set("k", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected entry expired")
	}

	c.Set("k", 2)
	c.Set("j", 3)
	time.Sleep(20 * time.Millisecond)
	c.CleanExpired()
	if c.Size() != 0 {
		t.Fatalf("expected cleanup to drop expired entries, size=%d", c.Size())
	}
}

func TestLRUCachePurge(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Purge()

	if c.Size() != 0 {
		t.Fatalf("expected empty cache after purge, size=%d", c.Size())
	}
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a gone after purge")
	}

	// The cache stays usable after a purge
	c.Set("a", 3)
	if v, ok := c.Get("a"); !ok || v != 3 {
		t.Fatalf("expected a=3 after re-set, got %d (%v)", v, ok)
	}
}

func TestLRUCacheDelete(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("a", 1)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a deleted")
	}
	// Deleting a missing key is a no-op
	c.Delete("missing")
}
