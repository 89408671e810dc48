package store

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"go-fetch-cache/internal/interfaces"
	"go-fetch-cache/internal/metrics"
	"go-fetch-cache/internal/models"
)

// Ensure Store implements interfaces.Store
var _ interfaces.Store = (*Store)(nil)

// Cache levels reported in metrics and logs
const (
	LevelMemory  = "memory"
	LevelDurable = "durable"
)

// Store is the two-tier cache: a bounded memory tier in front of a durable
// tier. The durable tier keeps payloads only, so an entry read back from it
// gets a fresh default expiration when promoted into memory.
type Store struct {
	memory     interfaces.MemoryCache
	durable    interfaces.DurableCache
	defaultTTL time.Duration
	logger     *zap.Logger
}

// NewStore creates a Store over the given tiers. A non-positive defaultTTL
// selects models.DefaultCacheTTL.
func NewStore(memory interfaces.MemoryCache, durable interfaces.DurableCache, defaultTTL time.Duration, logger *zap.Logger) *Store {
	if defaultTTL <= 0 {
		defaultTTL = models.DefaultCacheTTL
	}
	return &Store{
		memory:     memory,
		durable:    durable,
		defaultTTL: defaultTTL,
		logger:     logger,
	}
}

// DefaultTTL returns the expiration applied when none is given
func (s *Store) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// Get returns the payload stored for key
func (s *Store) Get(key string) ([]byte, bool) {
	metrics.RecordCacheRequest()

	if entry, found := s.memory.Get(key); found {
		if entry.IsExpired() {
			// an expired write must not come back through the durable tier
			metrics.RecordCacheExpired()
			s.remove(key)
			metrics.RecordCacheMiss()
			return nil, false
		}
		metrics.RecordCacheHit(LevelMemory)
		return entry.Data, true
	}

	data, err := s.durable.Read(key)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			s.logger.Warn("Durable cache read failed", zap.String("key", key), zap.Error(err))
			metrics.RecordCacheError(LevelDurable, "read")
		}
		metrics.RecordCacheMiss()
		return nil, false
	}

	s.memory.Set(key, models.NewCacheEntry(data, s.defaultTTL))
	metrics.RecordCacheHit(LevelDurable)
	return data, true
}

// Set stores val in both tiers. ttl <= 0 selects the default TTL. Durable
// tier failures are logged and otherwise ignored.
func (s *Store) Set(key string, val []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.memory.Set(key, models.NewCacheEntry(val, ttl))

	if err := s.durable.Write(key, val); err != nil {
		s.logger.Warn("Durable cache write failed", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError(LevelDurable, "write")
	}
}

// Remove deletes key from both tiers
func (s *Store) Remove(key string) {
	s.remove(key)
}

// Clear empties both tiers
func (s *Store) Clear() {
	s.memory.Reset()

	if err := s.durable.Clear(); err != nil {
		s.logger.Warn("Durable cache clear failed", zap.Error(err))
		metrics.RecordCacheError(LevelDurable, "clear")
		return
	}
	s.logger.Debug("Cache cleared")
}

func (s *Store) remove(key string) {
	s.memory.Delete(key)

	if err := s.durable.Delete(key); err != nil {
		s.logger.Warn("Durable cache delete failed", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError(LevelDurable, "delete")
	}
}
