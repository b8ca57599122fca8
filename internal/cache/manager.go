package cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Manager puts a memory cache in front of an optional disk cache. Disk hits
// are promoted to memory.
type Manager struct {
	memory *MemoryCache
	disk   *DiskCache
	logger *log.Logger

	mu    sync.Mutex
	stats struct {
		memoryHits int64
		diskHits   int64
		misses     int64
		promotions int64
	}
}

// ManagerStats combines the counters of both levels.
type ManagerStats struct {
	Memory      Stats
	Disk        Stats
	DiskEnabled bool

	MemoryHits int64
	DiskHits   int64
	Misses     int64
	Promotions int64
}

// NewManager creates the cache levels described by config. The disk level
// is skipped when config has no DiskPath or no DiskCapacity.
func NewManager(config Config, logger *log.Logger) (*Manager, error) {
	if logger == nil {
		logger = log.Default()
	}
	m := &Manager{
		memory: NewMemoryCache(config.MemoryCapacity),
		logger: logger.WithPrefix("cache"),
	}

	if config.DiskPath != "" && config.DiskCapacity > 0 {
		disk, err := NewDiskCache(config.DiskPath, config.DiskCapacity, config.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create disk cache: %w", err)
		}
		m.disk = disk
	}
	return m, nil
}

// Get looks up key in memory, then on disk.
func (m *Manager) Get(key string) ([]byte, bool) {
	if data, ok := m.memory.Get(key); ok {
		m.mu.Lock()
		m.stats.memoryHits++
		m.mu.Unlock()
		return data, true
	}

	if m.disk != nil {
		if data, ok := m.disk.Get(key); ok {
			promoted := m.memory.Put(key, data) == nil
			m.mu.Lock()
			m.stats.diskHits++
			if promoted {
				m.stats.promotions++
			}
			m.mu.Unlock()
			return data, true
		}
	}

	m.mu.Lock()
	m.stats.misses++
	m.mu.Unlock()
	return nil, false
}

// Put stores value in every level it fits in. Disk write failures are
// logged and do not fail the call.
func (m *Manager) Put(key string, value []byte) error {
	if err := m.memory.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
		return fmt.Errorf("memory cache: %w", err)
	}
	if m.disk != nil {
		if err := m.disk.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
			m.logger.Warn("Failed to write disk cache entry", "key", key, "error", err)
		}
	}
	return nil
}

// Delete removes key from every level.
func (m *Manager) Delete(key string) error {
	err := m.memory.Delete(key)
	if m.disk != nil {
		err = errors.Join(err, m.disk.Delete(key))
	}
	return err
}

// DeleteMatching removes matching keys from every level and returns the
// number of entries removed.
func (m *Manager) DeleteMatching(match func(key string) bool) int {
	removed := m.memory.DeleteMatching(match)
	if m.disk != nil {
		removed += m.disk.DeleteMatching(match)
	}
	return removed
}

// Clear empties every level.
func (m *Manager) Clear() error {
	var errs []error
	if err := m.memory.Clear(); err != nil {
		errs = append(errs, fmt.Errorf("memory clear: %w", err))
	}
	if m.disk != nil {
		if err := m.disk.Clear(); err != nil {
			errs = append(errs, fmt.Errorf("disk clear: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Stats returns the counters of both levels.
func (m *Manager) Stats() ManagerStats {
	stats := ManagerStats{Memory: m.memory.Stats()}
	if m.disk != nil {
		stats.Disk = m.disk.Stats()
		stats.DiskEnabled = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stats.MemoryHits = m.stats.memoryHits
	stats.DiskHits = m.stats.diskHits
	stats.Misses = m.stats.misses
	stats.Promotions = m.stats.promotions
	return stats
}

// Close saves the disk index.
func (m *Manager) Close() error {
	if m.disk == nil {
		return nil
	}
	if err := m.disk.Close(); err != nil {
		return fmt.Errorf("failed to close disk cache: %w", err)
	}
	return nil
}
