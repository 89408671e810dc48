package weather

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-fetch-cache/internal/chain"
	"go-fetch-cache/internal/config"
	"go-fetch-cache/internal/models"
)

// Service loads forecast periods through the point -> forecast request chain
type Service struct {
	coordinator *chain.Coordinator
	domain      string
	userAgent   string
	timeout     time.Duration
	logger      *zap.Logger

	mu      sync.RWMutex
	periods []Period
}

// NewService creates a weather Service on top of coordinator
func NewService(coordinator *chain.Coordinator, cfg *config.Config, logger *zap.Logger) *Service {
	return &Service{
		coordinator: coordinator,
		domain:      cfg.Weather.Domain,
		userAgent:   cfg.HTTP.UserAgent,
		timeout:     cfg.GetWeatherTimeout(),
		logger:      logger,
	}
}

// LoadPeriods clears the previous error, runs the chain for the given
// coordinates and replaces the stored periods with the result, or with an
// empty list on failure.
func (s *Service) LoadPeriods(ctx context.Context, latitude, longitude float64) ([]Period, error) {
	s.ClearError()

	forecast, err := chain.ChainTwo[PointLookup, Forecast](ctx, s.coordinator, s.PointRequest(latitude, longitude), s.ForecastRequest)

	var periods []Period
	if err == nil {
		periods = forecast.Properties.Periods
	}
	if periods == nil {
		periods = []Period{}
	}

	s.mu.Lock()
	s.periods = periods
	s.mu.Unlock()

	if err != nil {
		return periods, err
	}

	s.logger.Debug("Loaded forecast periods",
		zap.Float64("latitude", latitude),
		zap.Float64("longitude", longitude),
		zap.Int("periods", len(periods)))
	return periods, nil
}

// Periods returns the periods from the last load
func (s *Service) Periods() []Period {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Period(nil), s.periods...)
}

// State returns the chain loading state
func (s *Service) State() chain.State {
	return s.coordinator.State()
}

// ClearData drops the stored periods and the error
func (s *Service) ClearData() {
	s.mu.Lock()
	s.periods = []Period{}
	s.mu.Unlock()
	s.ClearError()
}

// ClearError resets the chain error
func (s *Service) ClearError() {
	s.coordinator.ClearError()
}

// PointRequest builds the /points lookup for the given coordinates
func (s *Service) PointRequest(latitude, longitude float64) models.RequestConfiguration {
	return models.NewRequest(s.domain).
		Path("/points/" + formatCoordinate(latitude) + "," + formatCoordinate(longitude)).
		Method(models.MethodGet).
		Headers(s.headers()).
		Timeout(s.timeout).
		Build()
}

// ForecastRequest derives the forecast request from the point lookup's
// forecast URL. A URL without a usable host falls back to a bare GET on the
// weather domain.
func (s *Service) ForecastRequest(point PointLookup) models.RequestConfiguration {
	u, err := url.Parse(point.Properties.Forecast)
	if err != nil || u.Host == "" {
		s.logger.Warn("Unusable forecast URL, falling back to weather domain",
			zap.String("forecast", point.Properties.Forecast))
		return models.NewRequest(s.domain).
			Method(models.MethodGet).
			Headers(s.headers()).
			Build()
	}

	builder := models.NewRequest(u.Host).
		Path(u.Path).
		Method(models.MethodGet).
		Headers(s.headers()).
		Timeout(s.timeout)

	if query := u.Query(); len(query) > 0 {
		params := make(map[string]string, len(query))
		for name := range query {
			params[name] = query.Get(name)
		}
		builder.QueryParameters(params)
	}
	return builder.Build()
}

func (s *Service) headers() map[string]string {
	headers := map[string]string{"Accept": "application/geo+json"}
	if s.userAgent != "" {
		headers["User-Agent"] = s.userAgent
	}
	return headers
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
