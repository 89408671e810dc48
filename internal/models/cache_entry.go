package models

import "time"

// CacheEntry is a stored payload together with its absolute expiration
type CacheEntry struct {
	Data      []byte `json:"data"`
	ExpiresAt int64  `json:"expires_at"` // unix nanoseconds
}

// NewCacheEntry creates an entry expiring ttl from now
func NewCacheEntry(data []byte, ttl time.Duration) *CacheEntry {
	return &CacheEntry{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl).UnixNano(),
	}
}

// IsExpired reports whether the current time is strictly after ExpiresAt
func (e *CacheEntry) IsExpired() bool {
	return time.Now().UnixNano() > e.ExpiresAt
}
