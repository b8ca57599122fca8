package cache

import (
	"errors"
	"time"
)

var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheCorrupted is returned when a stored entry cannot be read back.
	ErrCacheCorrupted = errors.New("cache data corrupted")
)

// Level identifies a cache tier.
type Level int

const (
	// LevelMemory is the in-process LRU cache.
	LevelMemory Level = iota

	// LevelDisk is the persistent disk cache.
	LevelDisk
)

func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "memory"
	case LevelDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Stats holds the counters of one cache level.
type Stats struct {
	Capacity  int64
	Size      int64
	ItemCount int64

	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64

	LastEvict time.Time
}

func (s *Stats) updateHitRate() {
	if s.Hits+s.Misses > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Hits+s.Misses)
	}
}

// Config holds the cache sizes and the disk location.
type Config struct {
	// MemoryCapacity is the L1 size limit in bytes.
	MemoryCapacity int64 `yaml:"memory_bytes" mapstructure:"memory_bytes"`

	// DiskCapacity is the L2 size limit in bytes. Zero disables the disk cache.
	DiskCapacity int64 `yaml:"disk_bytes" mapstructure:"disk_bytes"`

	// DiskPath is the directory for cache files. Empty disables the disk cache.
	DiskPath string `yaml:"dir" mapstructure:"dir"`

	// CompressionLevel is the zstd level (1-22). Zero stores entries raw.
	CompressionLevel int `yaml:"zstd_level" mapstructure:"zstd_level"`
}

// DefaultConfig returns a memory-only configuration; callers set DiskPath
// to enable the disk level.
func DefaultConfig() Config {
	return Config{
		MemoryCapacity:   32 * 1024 * 1024,
		DiskCapacity:     256 * 1024 * 1024,
		CompressionLevel: 3,
	}
}

// Cache is the interface shared by both levels.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Delete(key string) error
	DeleteMatching(match func(key string) bool) int
	Clear() error

	Size() int64
	Contains(key string) bool
	Keys() []string
	Stats() Stats
}
