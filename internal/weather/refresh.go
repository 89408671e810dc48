package weather

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-fetch-cache/internal/config"
)

// Entry is the latest forecast snapshot published by a Refresher
type Entry struct {
	Date        time.Time `json:"date"`
	Period      *Period   `json:"period,omitempty"`
	Unavailable bool      `json:"unavailable"`
}

// NextRefresh returns how long to wait before the next load: the available
// interval when periods were loaded, the retry interval otherwise
func NextRefresh(available bool, cfg *config.Config) time.Duration {
	if available {
		return cfg.GetRefreshAvailable()
	}
	return cfg.GetRefreshUnavailable()
}

// Refresher reloads the forecast on the NextRefresh schedule
type Refresher struct {
	service   *Service
	cfg       *config.Config
	latitude  float64
	longitude float64
	now       func() time.Time
	logger    *zap.Logger

	mu     sync.RWMutex
	latest *Entry
}

// NewRefresher creates a Refresher for the configured coordinates
func NewRefresher(service *Service, cfg *config.Config, logger *zap.Logger) *Refresher {
	return &Refresher{
		service:   service,
		cfg:       cfg,
		latitude:  cfg.Weather.Latitude,
		longitude: cfg.Weather.Longitude,
		now:       time.Now,
		logger:    logger,
	}
}

// Refresh loads the forecast once and publishes the resulting entry
func (r *Refresher) Refresh(ctx context.Context) Entry {
	periods, err := r.service.LoadPeriods(ctx, r.latitude, r.longitude)

	entry := Entry{Date: r.now()}
	if len(periods) > 0 {
		first := periods[0]
		entry.Period = &first
	} else {
		entry.Unavailable = true
		r.logger.Warn("Forecast unavailable", zap.Error(err))
	}

	r.mu.Lock()
	r.latest = &entry
	r.mu.Unlock()
	return entry
}

// Latest returns the most recent entry, if any
func (r *Refresher) Latest() (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.latest == nil {
		return Entry{}, false
	}
	return *r.latest, true
}

// Run refreshes until ctx is cancelled
func (r *Refresher) Run(ctx context.Context) {
	r.logger.Info("Starting forecast refresher",
		zap.Float64("latitude", r.latitude),
		zap.Float64("longitude", r.longitude))

	for {
		entry := r.Refresh(ctx)
		wait := NextRefresh(!entry.Unavailable, r.cfg)
		r.logger.Debug("Next forecast refresh scheduled", zap.Duration("in", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("Forecast refresher stopped")
			return
		case <-timer.C:
		}
	}
}
