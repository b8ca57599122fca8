package cache

import (
	"strings"
	"testing"
)

func newTestManager(t *testing.T, dir string) *Manager {
	t.Helper()
	manager, err := NewManager(Config{
		MemoryCapacity:   1024,
		DiskCapacity:     10240,
		DiskPath:         dir,
		CompressionLevel: 3,
	}, nil)
	if err != nil {
		t.Fatalf("Failed to create cache manager: %v", err)
	}
	return manager
}

func TestManager_BasicOperations(t *testing.T) {
	manager := newTestManager(t, t.TempDir())
	defer manager.Close()

	if err := manager.Put("key", []byte("value")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, ok := manager.Get("key")
	if !ok || string(got) != "value" {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	if err := manager.Delete("key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := manager.Get("key"); ok {
		t.Error("Key still exists after delete")
	}

	stats := manager.Stats()
	if stats.MemoryHits != 1 || stats.Misses != 1 {
		t.Errorf("MemoryHits/Misses = %d/%d, want 1/1", stats.MemoryHits, stats.Misses)
	}
}

func TestManager_Promotion(t *testing.T) {
	manager := newTestManager(t, t.TempDir())
	defer manager.Close()

	_ = manager.Put("key", []byte("value"))
	_ = manager.memory.Delete("key")

	if _, ok := manager.Get("key"); !ok {
		t.Fatal("disk level did not serve the entry")
	}
	if !manager.memory.Contains("key") {
		t.Error("disk hit not promoted to memory")
	}

	stats := manager.Stats()
	if stats.DiskHits != 1 || stats.Promotions != 1 {
		t.Errorf("DiskHits/Promotions = %d/%d, want 1/1", stats.DiskHits, stats.Promotions)
	}
}

func TestManager_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	first := newTestManager(t, dir)
	_ = first.Put("key", []byte("value"))
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := newTestManager(t, dir)
	defer second.Close()
	if got, ok := second.Get("key"); !ok || string(got) != "value" {
		t.Errorf("Get after restart = %q, %v", got, ok)
	}
}

func TestManager_MemoryOnly(t *testing.T) {
	manager, err := NewManager(Config{MemoryCapacity: 1024}, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer manager.Close()

	_ = manager.Put("key", []byte("value"))
	if _, ok := manager.Get("key"); !ok {
		t.Error("memory-only manager lost the entry")
	}
	if manager.Stats().DiskEnabled {
		t.Error("disk level enabled without a path")
	}
}

func TestManager_DeleteMatchingAndClear(t *testing.T) {
	manager := newTestManager(t, t.TempDir())
	defer manager.Close()

	for _, key := range []string{"am|1", "am|2", "pm|1"} {
		_ = manager.Put(key, []byte("x"))
	}

	// each entry lives in both levels
	if removed := manager.DeleteMatching(func(key string) bool { return strings.HasPrefix(key, "am|") }); removed != 4 {
		t.Errorf("DeleteMatching removed %d, want 4", removed)
	}
	if _, ok := manager.Get("pm|1"); !ok {
		t.Error("unrelated entry removed")
	}

	if err := manager.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	stats := manager.Stats()
	if stats.Memory.ItemCount != 0 || stats.Disk.ItemCount != 0 {
		t.Errorf("items left after Clear: %d/%d", stats.Memory.ItemCount, stats.Disk.ItemCount)
	}
}
