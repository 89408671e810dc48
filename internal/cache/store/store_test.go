package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"go-fetch-cache/internal/cache/disk"
	"go-fetch-cache/internal/cache/l1"
	"go-fetch-cache/internal/cache/l2"
	"go-fetch-cache/internal/cache/noop"
	"go-fetch-cache/internal/config"
	"go-fetch-cache/internal/interfaces"
	"go-fetch-cache/internal/interfaces/mock"
	"go-fetch-cache/internal/metrics"
	"go-fetch-cache/internal/models"
)

func newMockStore(t *testing.T) (*Store, *mock.MockMemoryCache, *mock.MockDurableCache) {
	t.Helper()
	ctrl := gomock.NewController(t)
	memory := mock.NewMockMemoryCache(ctrl)
	durable := mock.NewMockDurableCache(ctrl)
	return NewStore(memory, durable, models.DefaultCacheTTL, zap.NewNop()), memory, durable
}

func newRealStore(t *testing.T, countLimit int) (*Store, *l1.BigCache, *disk.DiskCache) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	memory, err := l1.NewBigCache(&config.MemoryConfig{CountLimit: countLimit, SizeMB: 8, Shards: 16}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = memory.Close() })

	durable, err := disk.NewDiskCache(filepath.Join(t.TempDir(), config.DefaultNamespace), logger)
	require.NoError(t, err)

	return NewStore(memory, durable, models.DefaultCacheTTL, logger), memory, durable
}

func TestNewStore_DefaultTTL(t *testing.T) {
	ctrl := gomock.NewController(t)

	s := NewStore(mock.NewMockMemoryCache(ctrl), mock.NewMockDurableCache(ctrl), 0, zap.NewNop())

	assert.Equal(t, models.DefaultCacheTTL, s.DefaultTTL())
}

func TestStore_Get_MemoryHit(t *testing.T) {
	s, memory, _ := newMockStore(t)

	memory.EXPECT().Get("key").Return(models.NewCacheEntry([]byte("value"), time.Minute), true)
	// durable tier must not be consulted

	val, found := s.Get("key")

	assert.True(t, found)
	assert.Equal(t, []byte("value"), val)
}

func TestStore_Get_DurableHitIsPromoted(t *testing.T) {
	s, memory, durable := newMockStore(t)

	var promoted *models.CacheEntry
	before := time.Now()
	gomock.InOrder(
		memory.EXPECT().Get("key").Return(nil, false),
		durable.EXPECT().Read("key").Return([]byte("value"), nil),
		memory.EXPECT().Set("key", gomock.Any()).Do(func(_ string, entry *models.CacheEntry) {
			promoted = entry
		}),
	)

	val, found := s.Get("key")

	assert.True(t, found)
	assert.Equal(t, []byte("value"), val)
	require.NotNil(t, promoted)
	assert.Equal(t, []byte("value"), promoted.Data)
	assert.GreaterOrEqual(t, promoted.ExpiresAt, before.Add(models.DefaultCacheTTL).UnixNano())
	assert.LessOrEqual(t, promoted.ExpiresAt, time.Now().Add(models.DefaultCacheTTL).UnixNano())
}

func TestStore_Get_Miss(t *testing.T) {
	s, memory, durable := newMockStore(t)

	memory.EXPECT().Get("key").Return(nil, false)
	durable.EXPECT().Read("key").Return(nil, interfaces.ErrNotFound)

	val, found := s.Get("key")

	assert.False(t, found)
	assert.Nil(t, val)
}

func TestStore_Get_DurableErrorIsMiss(t *testing.T) {
	s, memory, durable := newMockStore(t)

	memory.EXPECT().Get("key").Return(nil, false)
	durable.EXPECT().Read("key").Return(nil, errors.New("permission denied"))

	_, found := s.Get("key")

	assert.False(t, found)
}

func TestStore_Get_ExpiredMemoryEntryRemovedFromBothTiers(t *testing.T) {
	s, memory, durable := newMockStore(t)

	expired := &models.CacheEntry{Data: []byte("old"), ExpiresAt: time.Now().Add(-time.Second).UnixNano()}
	memory.EXPECT().Get("key").Return(expired, true)
	memory.EXPECT().Delete("key")
	durable.EXPECT().Delete("key").Return(nil)

	val, found := s.Get("key")

	assert.False(t, found)
	assert.Nil(t, val)
}

func TestStore_Set_WritesBothTiers(t *testing.T) {
	tests := []struct {
		name    string
		ttl     time.Duration
		wantTTL time.Duration
	}{
		{name: "explicit ttl", ttl: 10 * time.Minute, wantTTL: 10 * time.Minute},
		{name: "zero selects default", ttl: 0, wantTTL: models.DefaultCacheTTL},
		{name: "negative selects default", ttl: -time.Second, wantTTL: models.DefaultCacheTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, memory, durable := newMockStore(t)

			var stored *models.CacheEntry
			before := time.Now()
			memory.EXPECT().Set("key", gomock.Any()).Do(func(_ string, entry *models.CacheEntry) {
				stored = entry
			})
			durable.EXPECT().Write("key", []byte("value")).Return(nil)

			s.Set("key", []byte("value"), tt.ttl)

			require.NotNil(t, stored)
			assert.GreaterOrEqual(t, stored.ExpiresAt, before.Add(tt.wantTTL).UnixNano())
			assert.LessOrEqual(t, stored.ExpiresAt, time.Now().Add(tt.wantTTL).UnixNano())
		})
	}
}

func TestStore_Set_DurableFailureIsSwallowed(t *testing.T) {
	s, memory, durable := newMockStore(t)

	memory.EXPECT().Set("key", gomock.Any())
	durable.EXPECT().Write("key", gomock.Any()).Return(errors.New("disk full"))

	assert.NotPanics(t, func() { s.Set("key", []byte("value"), time.Minute) })
}

func TestStore_Remove(t *testing.T) {
	s, memory, durable := newMockStore(t)

	memory.EXPECT().Delete("key")
	durable.EXPECT().Delete("key").Return(errors.New("ignored"))

	s.Remove("key")
}

func TestStore_Clear(t *testing.T) {
	s, memory, durable := newMockStore(t)

	memory.EXPECT().Reset()
	durable.EXPECT().Clear().Return(nil)

	s.Clear()
}

func TestStore_RealTiers_RoundTrip(t *testing.T) {
	s, _, _ := newRealStore(t, 100)

	s.Set("a2V5", []byte(`{"temperature":72}`), 0)

	val, found := s.Get("a2V5")
	require.True(t, found)
	assert.Equal(t, []byte(`{"temperature":72}`), val)
}

func TestStore_RealTiers_Expiration(t *testing.T) {
	s, _, durable := newRealStore(t, 100)

	s.Set("key", []byte("value"), time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	_, found := s.Get("key")
	assert.False(t, found)

	_, err := durable.Read("key")
	assert.ErrorIs(t, err, interfaces.ErrNotFound, "expired entry is removed from the durable tier too")

	_, found = s.Get("key")
	assert.False(t, found)
}

func TestStore_RealTiers_DurableSurvivesMemoryLoss(t *testing.T) {
	s, memory, _ := newRealStore(t, 100)

	s.Set("key", []byte("value"), time.Minute)
	memory.Reset() // simulate a process restart

	val, found := s.Get("key")
	require.True(t, found)
	assert.Equal(t, []byte("value"), val)

	entry, found := memory.Get("key")
	require.True(t, found, "durable hit is promoted into memory")
	assert.False(t, entry.IsExpired())
}

func TestStore_RealTiers_CountEvictionFallsBackToDurable(t *testing.T) {
	s, memory, _ := newRealStore(t, 2)

	s.Set("a", []byte("1"), 0)
	s.Set("b", []byte("2"), 0)
	s.Set("c", []byte("3"), 0)

	_, found := memory.Get("a")
	assert.False(t, found, "oldest entry evicted from memory")

	val, found := s.Get("a")
	require.True(t, found)
	assert.Equal(t, []byte("1"), val)
}

func TestStore_RealTiers_RemoveAndClear(t *testing.T) {
	s, _, durable := newRealStore(t, 100)

	s.Set("a", []byte("1"), 0)
	s.Set("b", []byte("2"), 0)

	s.Remove("a")
	_, found := s.Get("a")
	assert.False(t, found)
	s.Remove("a") // absent key

	s.Clear()
	_, found = s.Get("b")
	assert.False(t, found)
	_, err := durable.Read("b")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestStore_NoDurableTier(t *testing.T) {
	ctrl := gomock.NewController(t)
	memory := mock.NewMockMemoryCache(ctrl)
	s := NewStore(memory, noop.NewNoOpCache(), 0, zap.NewNop())

	memory.EXPECT().Get("key").Return(nil, false)

	_, found := s.Get("key")
	assert.False(t, found)
}

func TestStore_KeyDBTier_ErrorsCountedOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewMockKeyDbClient(ctrl)
	s := NewStore(noop.NewNoOpMemoryCache(), l2.NewKeyDBCache(config.Default(), client, zap.NewNop()), 0, zap.NewNop())

	connErr := errors.New("connection refused")
	client.EXPECT().Get(gomock.Any(), gomock.Any()).Return(redis.NewStringResult("", connErr))
	client.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), time.Duration(0)).Return(redis.NewStatusResult("", connErr))
	client.EXPECT().Del(gomock.Any(), gomock.Any()).Return(redis.NewIntResult(0, connErr))
	client.EXPECT().Scan(gomock.Any(), uint64(0), gomock.Any(), gomock.Any()).Return(redis.NewScanCmdResult(nil, 0, connErr))

	errorCount := func(op string) float64 {
		return testutil.ToFloat64(metrics.CacheErrors.WithLabelValues(LevelDurable, op))
	}

	before := errorCount("read")
	_, found := s.Get("key")
	assert.False(t, found)
	assert.Equal(t, before+1, errorCount("read"))

	before = errorCount("write")
	s.Set("key", []byte("1"), time.Minute)
	assert.Equal(t, before+1, errorCount("write"))

	before = errorCount("delete")
	s.Remove("key")
	assert.Equal(t, before+1, errorCount("delete"))

	before = errorCount("clear")
	s.Clear()
	assert.Equal(t, before+1, errorCount("clear"))
}
