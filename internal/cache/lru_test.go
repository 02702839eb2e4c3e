// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package cache

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestLRUAddGet(t *testing.T) {
	c := NewLRU(10, 1<<20, time.Minute)

	c.Add("map/6/59/37", []byte("tile-bytes"))

	got, ok := c.Get("map/6/59/37")
	if !ok {
		t.Fatal("expected hit for freshly added key")
	}
	if !bytes.Equal(got, []byte("tile-bytes")) {
		t.Errorf("got %q, expected %q", got, "tile-bytes")
	}

	if _, ok := c.Get("map/6/59/38"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestLRUReplaceUpdatesBytes(t *testing.T) {
	c := NewLRU(10, 1<<20, time.Minute)

	c.Add("k", make([]byte, 100))
	if c.Bytes() != 100 {
		t.Errorf("expected 100 bytes, got %d", c.Bytes())
	}

	c.Add("k", make([]byte, 40))
	if c.Bytes() != 40 {
		t.Errorf("expected 40 bytes after replace, got %d", c.Bytes())
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
}

func TestLRUCapacityEviction(t *testing.T) {
	c := NewLRU(3, 1<<20, time.Minute)

	c.Add("a", []byte("1"))
	c.Add("b", []byte("2"))
	c.Add("c", []byte("3"))

	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected hit for a")
	}

	c.Add("d", []byte("4"))

	if c.Contains("b") {
		t.Error("expected least recently used entry 'b' to be evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if !c.Contains(key) {
			t.Errorf("expected %q to survive eviction", key)
		}
	}
}

func TestLRUByteBudgetEviction(t *testing.T) {
	c := NewLRU(100, 250, time.Minute)

	c.Add("a", make([]byte, 100))
	c.Add("b", make([]byte, 100))
	c.Add("c", make([]byte, 100))

	if c.Bytes() > 250 {
		t.Errorf("byte budget exceeded: %d > 250", c.Bytes())
	}
	if c.Contains("a") {
		t.Error("expected oldest entry evicted to satisfy byte budget")
	}
	if !c.Contains("c") {
		t.Error("expected newest entry retained")
	}
}

func TestLRUTTLExpiry(t *testing.T) {
	c := NewLRU(10, 1<<20, 10*time.Millisecond)

	c.Add("k", []byte("v"))
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after TTL expiry")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry removed on access, len=%d", c.Len())
	}
}

func TestLRUCleanupExpired(t *testing.T) {
	c := NewLRU(10, 1<<20, 10*time.Millisecond)

	c.Add("a", []byte("1"))
	c.Add("b", []byte("2"))
	time.Sleep(20 * time.Millisecond)
	c.Add("c", []byte("3"))

	removed := c.CleanupExpired()
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if !c.Contains("c") {
		t.Error("expected fresh entry to survive cleanup")
	}
	if c.Bytes() != 1 {
		t.Errorf("expected 1 byte after cleanup, got %d", c.Bytes())
	}
}

func TestLRUClear(t *testing.T) {
	c := NewLRU(10, 1<<20, time.Minute)

	c.Add("a", []byte("1"))
	c.Add("b", []byte("2"))
	c.Clear()

	if c.Len() != 0 || c.Bytes() != 0 {
		t.Errorf("expected empty cache after Clear, len=%d bytes=%d", c.Len(), c.Bytes())
	}
}

func TestLRUStats(t *testing.T) {
	c := NewLRU(10, 1<<20, time.Minute)

	c.Add("a", []byte("1"))
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	hits, misses, size := c.Stats()
	if hits != 2 {
		t.Errorf("expected 2 hits, got %d", hits)
	}
	if misses != 1 {
		t.Errorf("expected 1 miss, got %d", misses)
	}
	if size != 1 {
		t.Errorf("expected size 1, got %d", size)
	}
}

func TestLRUConcurrentAccess(t *testing.T) {
	c := NewLRU(1000, 1<<20, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("tile/%d/%d", g, i%50)
				c.Add(key, []byte{byte(i)})
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 1000 {
		t.Errorf("capacity exceeded under concurrency: %d", c.Len())
	}
}

func BenchmarkLRUGet(b *testing.B) {
	c := NewLRU(4096, 64<<20, time.Minute)
	payload := make([]byte, 20*1024)
	for i := 0; i < 1000; i++ {
		c.Add(fmt.Sprintf("tile/%d", i), payload)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get(fmt.Sprintf("tile/%d", i%1000))
	}
}

func BenchmarkLRUAdd(b *testing.B) {
	c := NewLRU(4096, 64<<20, time.Minute)
	payload := make([]byte, 20*1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Add(fmt.Sprintf("tile/%d", i%8192), payload)
	}
}
