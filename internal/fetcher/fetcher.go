package fetcher

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"go-fetch-cache/internal/interfaces"
	"go-fetch-cache/internal/models"
)

// Ensure Fetcher implements interfaces.Fetcher
var _ interfaces.Fetcher = (*Fetcher)(nil)

// Fetcher combines the HTTP client with the cache store
type Fetcher struct {
	client     interfaces.HTTPClient
	store      interfaces.Store
	keys       interfaces.KeyBuilder
	defaultTTL time.Duration
	logger     *zap.Logger
}

// NewFetcher creates a Fetcher. A non-positive defaultTTL selects
// models.DefaultCacheTTL.
func NewFetcher(client interfaces.HTTPClient, store interfaces.Store, keys interfaces.KeyBuilder, defaultTTL time.Duration, logger *zap.Logger) *Fetcher {
	if defaultTTL <= 0 {
		defaultTTL = models.DefaultCacheTTL
	}
	return &Fetcher{
		client:     client,
		store:      store,
		keys:       keys,
		defaultTTL: defaultTTL,
		logger:     logger,
	}
}

// Fetch performs a live request; the cache is never consulted
func (f *Fetcher) Fetch(ctx context.Context, cfg models.RequestConfiguration) ([]byte, error) {
	return f.client.Execute(ctx, cfg)
}

// CacheKey returns the key cfg is stored under
func (f *Fetcher) CacheKey(cfg models.RequestConfiguration) string {
	return f.keys.Build(cfg)
}

// Invalidate removes the cached value for cfg
func (f *Fetcher) Invalidate(cfg models.RequestConfiguration) {
	f.store.Remove(f.keys.Build(cfg))
}

// Fetch performs a live request and decodes the body into T
func Fetch[T any](ctx context.Context, f *Fetcher, cfg models.RequestConfiguration) (T, error) {
	var result T

	data, err := f.Fetch(ctx, cfg)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, err
	}
	return result, nil
}

// FetchWithCache returns the cached value for cfg when present. On a miss
// it fetches live, stores the value as dictated by cfg.CachePolicy and
// returns it; a failed store does not fail the fetch.
//
// Every policy consults the cache first and every miss goes to the network,
// including PolicyReturnCacheDataDontLoad. Policies only decide whether and
// for how long the fresh value is stored.
func FetchWithCache[T any](ctx context.Context, f *Fetcher, cfg models.RequestConfiguration) (T, error) {
	result, _, err := FetchWithCacheStatus[T](ctx, f, cfg)
	return result, err
}

// FetchWithCacheStatus is FetchWithCache that also reports whether the value
// was served from the cache
func FetchWithCacheStatus[T any](ctx context.Context, f *Fetcher, cfg models.RequestConfiguration) (T, bool, error) {
	key := f.keys.Build(cfg)

	if data, found := f.store.Get(key); found {
		var cached T
		err := json.Unmarshal(data, &cached)
		if err == nil {
			f.logger.Debug("Cache hit", zap.String("key", key), zap.String("domain", cfg.Domain), zap.String("path", cfg.Path))
			return cached, true, nil
		}
		f.logger.Warn("Cached value no longer decodes, refetching", zap.String("key", key), zap.Error(err))
		f.store.Remove(key)
	}

	result, err := Fetch[T](ctx, f, cfg)
	if err != nil {
		return result, false, err
	}

	ttl, store := cfg.CachePolicy.Expiration(f.defaultTTL)
	if !store {
		f.logger.Debug("Cache policy skips store", zap.String("key", key), zap.Stringer("policy", cfg.CachePolicy))
		return result, false, nil
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		f.logger.Warn("Failed to encode value for cache", zap.String("key", key), zap.Error(err))
		return result, false, nil
	}
	f.store.Set(key, encoded, ttl)

	return result, false, nil
}
