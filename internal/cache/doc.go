// Package cache stores decoded clip audio in two levels: an in-memory LRU
// cache and an optional zstd-compressed disk cache that survives restarts.
package cache
