package noop

import (
	"go-fetch-cache/internal/interfaces"
	"go-fetch-cache/internal/models"
)

// Ensure the no-op tiers implement their interfaces
var (
	_ interfaces.DurableCache = (*NoOpCache)(nil)
	_ interfaces.MemoryCache  = (*NoOpMemoryCache)(nil)
)

// NoOpCache is a durable tier that stores nothing (durable.backend: none)
type NoOpCache struct{}

// NewNoOpCache creates a new no-operation durable tier
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Read always reports a miss
func (n *NoOpCache) Read(key string) ([]byte, error) {
	return nil, interfaces.ErrNotFound
}

// Write discards data
func (n *NoOpCache) Write(key string, data []byte) error {
	return nil
}

// Delete does nothing
func (n *NoOpCache) Delete(key string) error {
	return nil
}

// Clear does nothing
func (n *NoOpCache) Clear() error {
	return nil
}

// NoOpMemoryCache is a memory tier that stores nothing (memory.enabled: false)
type NoOpMemoryCache struct{}

// NewNoOpMemoryCache creates a new no-operation memory tier
func NewNoOpMemoryCache() *NoOpMemoryCache {
	return &NoOpMemoryCache{}
}

// Get always reports a miss
func (n *NoOpMemoryCache) Get(key string) (*models.CacheEntry, bool) {
	return nil, false
}

// Set discards the entry
func (n *NoOpMemoryCache) Set(key string, entry *models.CacheEntry) {}

// Delete does nothing
func (n *NoOpMemoryCache) Delete(key string) {}

// Reset does nothing
func (n *NoOpMemoryCache) Reset() {}
