package httpserver

import (
	"encoding/json"
	"time"

	"go-fetch-cache/internal/weather"
)

// CacheStatus tells whether a fetch was answered from the cache
type CacheStatus string

const (
	CacheStatusHit    CacheStatus = "HIT"
	CacheStatusMiss   CacheStatus = "MISS"
	CacheStatusBypass CacheStatus = "BYPASS"
)

// FetchResponse is returned by GET /fetch
type FetchResponse struct {
	Success        bool            `json:"success"`
	Key            string          `json:"key,omitempty"`
	CacheStatus    CacheStatus     `json:"cache_status,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
	Error          string          `json:"error,omitempty"`
	UpstreamStatus int             `json:"upstream_status,omitempty"`
}

// ForecastResponse is returned by GET /forecast
type ForecastResponse struct {
	Success  bool             `json:"success"`
	Periods  []weather.Period `json:"periods"`
	Progress float64          `json:"progress"`
	Error    string           `json:"error,omitempty"`
}

// LatestResponse is returned by GET /forecast/latest
type LatestResponse struct {
	Success bool          `json:"success"`
	Entry   weather.Entry `json:"entry"`
	NextIn  float64       `json:"next_refresh_seconds"`
}

// CacheResponse is returned by the cache maintenance endpoints
type CacheResponse struct {
	Success bool   `json:"success"`
	Key     string `json:"key,omitempty"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}
