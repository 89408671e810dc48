package l1

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"

	"go-fetch-cache/internal/config"
	"go-fetch-cache/internal/interfaces"
	"go-fetch-cache/internal/metrics"
	"go-fetch-cache/internal/models"
)

// Ensure BigCache implements interfaces.MemoryCache
var _ interfaces.MemoryCache = (*BigCache)(nil)

// lifeWindow keeps bigcache from expiring entries on its own; expiration is
// tracked per entry and checked on read
const lifeWindow = 24 * time.Hour

// BigCache implements the memory tier on top of bigcache.
// bigcache bounds the total byte size; the count limit is enforced here with
// a least-recently-used key index.
type BigCache struct {
	cache      *bigcache.BigCache
	logger     *zap.Logger
	countLimit int

	mu    sync.Mutex
	order *list.List               // front = most recently used
	index map[string]*list.Element // key -> element in order
}

// NewBigCache creates a new BigCache instance
func NewBigCache(memoryCfg *config.MemoryConfig, logger *zap.Logger) (*BigCache, error) {
	bc := &BigCache{
		logger:     logger,
		countLimit: memoryCfg.CountLimit,
		order:      list.New(),
		index:      make(map[string]*list.Element),
	}

	cfg := bigcache.DefaultConfig(lifeWindow)
	cfg.Shards = memoryCfg.Shards
	cfg.HardMaxCacheSize = memoryCfg.SizeMB // Size in MB
	cfg.MaxEntriesInWindow = memoryCfg.CountLimit
	cfg.CleanWindow = 0
	cfg.Verbose = false
	cfg.OnRemoveWithReason = bc.onRemove

	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	bc.cache = cache

	return bc, nil
}

// Get retrieves a live entry; expired or corrupted entries are dropped
func (bc *BigCache) Get(key string) (*models.CacheEntry, bool) {
	data, err := bc.cache.Get(key)
	if err != nil {
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		bc.logger.Warn("Failed to unmarshal memory cache entry", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("memory", "decode")
		bc.Delete(key) // Remove corrupted entry
		return nil, false
	}

	bc.touch(key)
	return &entry, true
}

// Set stores the entry, evicting least recently used keys past the count limit
func (bc *BigCache) Set(key string, entry *models.CacheEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		bc.logger.Error("Failed to marshal cache entry", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("memory", "encode")
		return
	}

	if err := bc.cache.Set(key, data); err != nil {
		bc.logger.Warn("Failed to set memory cache entry", zap.String("key", key), zap.Int("size", len(data)), zap.Error(err))
		metrics.RecordCacheError("memory", "upstream")
		return
	}

	// bigcache must never be called while mu is held: its removal callback takes mu
	for _, victim := range bc.touchAndCollectVictims(key) {
		_ = bc.cache.Delete(victim)
	}
	metrics.UpdateCacheKeys("memory", int64(bc.Len()))
	metrics.UpdateMemoryCacheCapacity(int64(bc.cache.Capacity()))
}

// Delete removes entry from cache
func (bc *BigCache) Delete(key string) {
	if err := bc.cache.Delete(key); err != nil {
		// ErrEntryNotFound; drop a possibly stale index element anyway
		bc.forget(key)
	}
}

// Reset empties the cache
func (bc *BigCache) Reset() {
	if err := bc.cache.Reset(); err != nil {
		bc.logger.Warn("Failed to reset memory cache", zap.Error(err))
	}
	bc.mu.Lock()
	bc.order.Init()
	bc.index = make(map[string]*list.Element)
	bc.mu.Unlock()
	metrics.UpdateCacheKeys("memory", 0)
}

// Len returns the number of tracked entries
func (bc *BigCache) Len() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.order.Len()
}

// Close closes the cache
func (bc *BigCache) Close() error {
	return bc.cache.Close()
}

// Capacity returns the bytes currently allocated by bigcache's queues
func (bc *BigCache) Capacity() int {
	return bc.cache.Capacity()
}

// onRemove keeps the index in sync when bigcache drops entries on its own
// (e.g. NoSpace eviction) or through Delete
func (bc *BigCache) onRemove(key string, _ []byte, reason bigcache.RemoveReason) {
	if reason == bigcache.NoSpace {
		bc.logger.Debug("Memory cache evicted entry for space", zap.String("key", key))
		metrics.RecordEviction("memory", "size")
	}
	bc.forget(key)
}

func (bc *BigCache) touch(key string) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if el, ok := bc.index[key]; ok {
		bc.order.MoveToFront(el)
	}
}

func (bc *BigCache) touchAndCollectVictims(key string) []string {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if el, ok := bc.index[key]; ok {
		bc.order.MoveToFront(el)
	} else {
		bc.index[key] = bc.order.PushFront(key)
	}

	if bc.countLimit <= 0 {
		return nil
	}

	var victims []string
	for bc.order.Len() > bc.countLimit {
		oldest := bc.order.Back()
		victim := oldest.Value.(string)
		bc.order.Remove(oldest)
		delete(bc.index, victim)
		victims = append(victims, victim)
		metrics.RecordEviction("memory", "count")
	}
	return victims
}

func (bc *BigCache) forget(key string) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if el, ok := bc.index[key]; ok {
		bc.order.Remove(el)
		delete(bc.index, key)
	}
}
