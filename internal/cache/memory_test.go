package cache

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestMemoryCache_BasicOperations(t *testing.T) {
	cache := NewMemoryCache(1024)

	key := "hn9|44100|1"
	value := []byte("pcm-data")

	if err := cache.Put(key, value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	retrieved, ok := cache.Get(key)
	if !ok {
		t.Fatal("Get failed: key not found")
	}
	if string(retrieved) != string(value) {
		t.Errorf("Retrieved value mismatch: got %s, want %s", retrieved, value)
	}
	if !cache.Contains(key) {
		t.Error("Contains returned false for existing key")
	}
	if cache.Size() != int64(len(value)) {
		t.Errorf("Size mismatch: got %d, want %d", cache.Size(), len(value))
	}

	if err := cache.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if cache.Contains(key) {
		t.Error("Key still exists after delete")
	}
	if cache.Size() != 0 {
		t.Errorf("Size not zero after delete: %d", cache.Size())
	}
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	cache := NewMemoryCache(100)

	for i := 0; i < 5; i++ {
		if err := cache.Put(fmt.Sprintf("key-%d", i), make([]byte, 20)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	cache.Get("key-0")
	cache.Get("key-1")

	if err := cache.Put("key-new", make([]byte, 30)); err != nil {
		t.Fatalf("Put failed for new key: %v", err)
	}

	for _, key := range []string{"key-0", "key-1", "key-4", "key-new"} {
		if !cache.Contains(key) {
			t.Errorf("%s was evicted", key)
		}
	}
	for _, key := range []string{"key-2", "key-3"} {
		if cache.Contains(key) {
			t.Errorf("%s should have been evicted", key)
		}
	}

	stats := cache.Stats()
	if stats.Evictions != 2 {
		t.Errorf("Evictions = %d, want 2", stats.Evictions)
	}
	if stats.Size != 90 {
		t.Errorf("Size = %d, want 90", stats.Size)
	}
}

func TestMemoryCache_ItemTooLarge(t *testing.T) {
	cache := NewMemoryCache(10)

	if err := cache.Put("big", make([]byte, 11)); err != ErrItemTooLarge {
		t.Errorf("Put error = %v, want ErrItemTooLarge", err)
	}
}

func TestMemoryCache_UpdateExisting(t *testing.T) {
	cache := NewMemoryCache(100)

	_ = cache.Put("key", make([]byte, 40))
	_ = cache.Put("key", make([]byte, 10))

	if cache.Size() != 10 {
		t.Errorf("Size after update = %d, want 10", cache.Size())
	}
	if got := len(cache.Keys()); got != 1 {
		t.Errorf("Keys() has %d entries, want 1", got)
	}
}

func TestMemoryCache_DeleteMatching(t *testing.T) {
	cache := NewMemoryCache(1024)
	for _, key := range []string{"hn1|a", "hn1|b", "hn10|a", "mn5|a"} {
		_ = cache.Put(key, []byte("x"))
	}

	removed := cache.DeleteMatching(func(key string) bool { return strings.HasPrefix(key, "hn1|") })
	if removed != 2 {
		t.Errorf("DeleteMatching removed %d, want 2", removed)
	}
	if !cache.Contains("hn10|a") || !cache.Contains("mn5|a") {
		t.Error("DeleteMatching removed unrelated keys")
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	cache := NewMemoryCache(1024)
	_ = cache.Put("a", []byte("1"))

	cache.Get("a")
	cache.Get("a")
	cache.Get("missing")

	stats := cache.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("Hits/Misses = %d/%d, want 2/1", stats.Hits, stats.Misses)
	}
	if stats.HitRate < 0.66 || stats.HitRate > 0.67 {
		t.Errorf("HitRate = %f, want ~0.667", stats.HitRate)
	}
	if stats.ItemCount != 1 || stats.Capacity != 1024 {
		t.Errorf("ItemCount/Capacity = %d/%d", stats.ItemCount, stats.Capacity)
	}
}

func TestMemoryCache_KeysMostRecentFirst(t *testing.T) {
	cache := NewMemoryCache(1024)
	_ = cache.Put("a", []byte("1"))
	_ = cache.Put("b", []byte("1"))
	_ = cache.Put("c", []byte("1"))
	cache.Get("a")

	got := strings.Join(cache.Keys(), ",")
	if got != "a,c,b" {
		t.Errorf("Keys() = %s, want a,c,b", got)
	}

	_ = cache.Clear()
	if len(cache.Keys()) != 0 || cache.Size() != 0 {
		t.Error("Clear left entries behind")
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache(10 * 1024)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("key-%d-%d", g, i%10)
				_ = cache.Put(key, make([]byte, 16))
				cache.Get(key)
				if i%7 == 0 {
					_ = cache.Delete(key)
				}
			}
		}(g)
	}
	wg.Wait()

	if cache.Size() > 10*1024 {
		t.Errorf("Size %d exceeds capacity", cache.Size())
	}
}
