package interfaces

import (
	"errors"
	"time"

	"go-fetch-cache/internal/models"
)

//go:generate mockgen -package=mock -source=cache.go -destination=mock/cache.go

// ErrNotFound is returned by durable tiers when a key has no stored payload
var ErrNotFound = errors.New("cache: key not found")

// MemoryCache is the fast, size-bounded tier
type MemoryCache interface {
	Get(key string) (*models.CacheEntry, bool)
	Set(key string, entry *models.CacheEntry)
	Delete(key string)
	Reset()
}

// DurableCache is the persistent tier. It stores raw payloads only; no
// expiration metadata survives a round trip.
type DurableCache interface {
	Read(key string) ([]byte, error) // ErrNotFound when absent
	Write(key string, data []byte) error
	Delete(key string) error
	Clear() error
}

// Store is the two-tier key/value cache used by the fetch orchestrator
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, val []byte, ttl time.Duration) // ttl <= 0 selects the default TTL
	Remove(key string)
	Clear()
}
