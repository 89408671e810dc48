package l2

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"go-fetch-cache/internal/config"
	"go-fetch-cache/internal/interfaces"
)

// Ensure KeyDBCache implements interfaces.DurableCache
var _ interfaces.DurableCache = (*KeyDBCache)(nil)

const scanBatch = 100

// KeyDBCache implements the durable tier on Redis/KeyDB. Payloads are stored
// raw under "<namespace>:<key>" without a server-side expiration.
type KeyDBCache struct {
	client    interfaces.KeyDbClient
	config    *config.Config
	namespace string
	logger    *zap.Logger
}

// NewKeyDBCache creates a new KeyDBCache instance with provided client
func NewKeyDBCache(cfg *config.Config, client interfaces.KeyDbClient, logger *zap.Logger) *KeyDBCache {
	namespace := cfg.Durable.Namespace
	if namespace == "" {
		namespace = config.DefaultNamespace
	}
	return &KeyDBCache{
		client:    client,
		config:    cfg,
		namespace: namespace,
		logger:    logger,
	}
}

// Read retrieves the payload stored for key
func (kc *KeyDBCache) Read(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), kc.config.GetReadTimeout())
	defer cancel()

	data, err := kc.client.Get(ctx, kc.namespaced(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("keydb get: %w", err)
	}
	return data, nil
}

// Write stores data for key
func (kc *KeyDBCache) Write(key string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), kc.config.GetSendTimeout())
	defer cancel()

	if err := kc.client.Set(ctx, kc.namespaced(key), data, 0).Err(); err != nil {
		return fmt.Errorf("keydb set: %w", err)
	}
	return nil
}

// Delete removes the entry for key
func (kc *KeyDBCache) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), kc.config.GetSendTimeout())
	defer cancel()

	if err := kc.client.Del(ctx, kc.namespaced(key)).Err(); err != nil {
		return fmt.Errorf("keydb del: %w", err)
	}
	return nil
}

// Clear deletes every key in the namespace
func (kc *KeyDBCache) Clear() error {
	ctx := context.Background()
	match := kc.namespace + ":*"

	var cursor uint64
	removed := 0
	for {
		scanCtx, cancel := context.WithTimeout(ctx, kc.config.GetReadTimeout())
		keys, next, err := kc.client.Scan(scanCtx, cursor, match, scanBatch).Result()
		cancel()
		if err != nil {
			return fmt.Errorf("keydb scan: %w", err)
		}

		if len(keys) > 0 {
			delCtx, cancel := context.WithTimeout(ctx, kc.config.GetSendTimeout())
			err := kc.client.Del(delCtx, keys...).Err()
			cancel()
			if err != nil {
				return fmt.Errorf("keydb del: %w", err)
			}
			removed += len(keys)
		}

		if next == 0 {
			break
		}
		cursor = next
	}

	kc.logger.Debug("Cleared KeyDB namespace", zap.String("namespace", kc.namespace), zap.Int("keys", removed))
	return nil
}

// Close closes the KeyDB connection
func (kc *KeyDBCache) Close() error {
	return kc.client.Close()
}

func (kc *KeyDBCache) namespaced(key string) string {
	return kc.namespace + ":" + key
}
