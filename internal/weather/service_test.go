package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"go-fetch-cache/internal/chain"
	"go-fetch-cache/internal/client"
	"go-fetch-cache/internal/config"
	"go-fetch-cache/internal/interfaces/mock"
	"go-fetch-cache/internal/models"
)

const forecastBody = `{
  "properties": {
    "periods": [
      {"name": "Tonight", "temperature": 58, "temperatureUnit": "F", "temperatureTrend": "", "icon": "https://api.weather.gov/icons/land/night/few", "shortForecast": "Mostly Clear"},
      {"name": "Monday", "temperature": 84, "temperatureUnit": "F", "temperatureTrend": null, "icon": "https://api.weather.gov/icons/land/day/skc", "shortForecast": "Sunny"}
    ]
  }
}`

type weatherAPI struct {
	server        *httptest.Server
	domain        string
	pointStatus   int
	forecastCalls atomic.Int32
	userAgents    chan string
}

func newWeatherAPI(t *testing.T) *weatherAPI {
	t.Helper()
	api := &weatherAPI{pointStatus: http.StatusOK, userAgents: make(chan string, 10)}

	mux := http.NewServeMux()
	mux.HandleFunc("/points/", func(w http.ResponseWriter, r *http.Request) {
		api.userAgents <- r.Header.Get("User-Agent")
		if api.pointStatus != http.StatusOK {
			w.WriteHeader(api.pointStatus)
			return
		}
		_, _ = fmt.Fprintf(w, `{"id":"x","type":"Feature","properties":{"@id":"x","@type":"wx:Point","forecast":"%s/gridpoints/MTR/99,82/forecast"}}`, api.server.URL)
	})
	mux.HandleFunc("/gridpoints/MTR/99,82/forecast", func(w http.ResponseWriter, r *http.Request) {
		api.forecastCalls.Add(1)
		api.userAgents <- r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(forecastBody))
	})

	api.server = httptest.NewTLSServer(mux)
	t.Cleanup(api.server.Close)
	api.domain = strings.TrimPrefix(api.server.URL, "https://")
	return api
}

func newTestService(t *testing.T, api *weatherAPI) (*Service, *config.Config) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg := config.Default()
	cfg.Weather.Domain = api.domain
	cfg.HTTP.UserAgent = "weather-fetch-test"

	c := client.NewClient(api.server.Client(), logger)
	return NewService(chain.NewCoordinator(liveFetcher{c}, logger), cfg, logger), cfg
}

// liveFetcher adapts the client to interfaces.Fetcher without a cache
type liveFetcher struct {
	c *client.Client
}

func (f liveFetcher) Fetch(ctx context.Context, cfg models.RequestConfiguration) ([]byte, error) {
	return f.c.Execute(ctx, cfg)
}

func TestService_LoadPeriods(t *testing.T) {
	api := newWeatherAPI(t)
	s, _ := newTestService(t, api)

	periods, err := s.LoadPeriods(context.Background(), 37.2883, -121.8434)

	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, "Tonight", periods[0].Name)
	assert.Equal(t, 58, periods[0].Temperature)
	assert.Equal(t, Fahrenheit, periods[0].TemperatureUnit)
	assert.Equal(t, MostlyClear, periods[0].ShortForecast)
	assert.Equal(t, Sunny, periods[1].ShortForecast)
	assert.Equal(t, periods, s.Periods())

	assert.Equal(t, chain.State{IsLoading: false, Progress: 1.0}, s.State())
	assert.Equal(t, "weather-fetch-test", <-api.userAgents)
	assert.Equal(t, "weather-fetch-test", <-api.userAgents)
}

func TestService_LoadPeriods_PointFailure(t *testing.T) {
	api := newWeatherAPI(t)
	api.pointStatus = http.StatusInternalServerError
	s, _ := newTestService(t, api)

	periods, err := s.LoadPeriods(context.Background(), 1, 2)

	assert.Equal(t, models.KindNetworkError, models.KindOf(err))
	assert.NotNil(t, periods)
	assert.Empty(t, periods)
	assert.Empty(t, s.Periods())
	assert.Equal(t, int32(0), api.forecastCalls.Load(), "forecast is never requested")

	state := s.State()
	assert.False(t, state.IsLoading)
	assert.Equal(t, 1.0, state.Progress)
	assert.Error(t, state.Err)
}

func TestService_LoadPeriods_FailureReplacesPreviousPeriods(t *testing.T) {
	api := newWeatherAPI(t)
	s, _ := newTestService(t, api)

	_, err := s.LoadPeriods(context.Background(), 1, 2)
	require.NoError(t, err)
	require.NotEmpty(t, s.Periods())

	api.pointStatus = http.StatusServiceUnavailable
	_, err = s.LoadPeriods(context.Background(), 1, 2)

	require.Error(t, err)
	assert.Empty(t, s.Periods())
}

func TestService_ClearData(t *testing.T) {
	api := newWeatherAPI(t)
	api.pointStatus = http.StatusNotFound
	s, _ := newTestService(t, api)

	_, _ = s.LoadPeriods(context.Background(), 1, 2)
	require.Error(t, s.State().Err)

	s.ClearData()

	assert.Empty(t, s.Periods())
	assert.NoError(t, s.State().Err)
}

func TestService_PointRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	cfg := config.Default()
	s := NewService(chain.NewCoordinator(mock.NewMockFetcher(ctrl), zap.NewNop()), cfg, zap.NewNop())

	req := s.PointRequest(37.2883, -121.8434)

	assert.Equal(t, "api.weather.gov", req.Domain)
	assert.Equal(t, "/points/37.2883,-121.8434", req.Path)
	assert.Equal(t, models.MethodGet, req.Method)
	assert.Equal(t, 15*time.Second, req.Timeout)
	assert.Equal(t, cfg.HTTP.UserAgent, req.Headers["User-Agent"])
}

func TestService_ForecastRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := NewService(chain.NewCoordinator(mock.NewMockFetcher(ctrl), zap.NewNop()), config.Default(), zap.NewNop())

	tests := []struct {
		name     string
		forecast string
		domain   string
		path     string
		query    map[string]string
		timeout  time.Duration
	}{
		{
			name:     "absolute forecast URL",
			forecast: "https://api.weather.gov/gridpoints/MTR/99,82/forecast",
			domain:   "api.weather.gov",
			path:     "/gridpoints/MTR/99,82/forecast",
			timeout:  15 * time.Second,
		},
		{
			name:     "query is carried over",
			forecast: "https://api.weather.gov/gridpoints/MTR/99,82/forecast?units=si",
			domain:   "api.weather.gov",
			path:     "/gridpoints/MTR/99,82/forecast",
			query:    map[string]string{"units": "si"},
			timeout:  15 * time.Second,
		},
		{name: "empty", forecast: "", domain: "api.weather.gov", timeout: models.DefaultRequestTimeout},
		{name: "relative", forecast: "/gridpoints/MTR/99,82/forecast", domain: "api.weather.gov", timeout: models.DefaultRequestTimeout},
		{name: "unparsable", forecast: "://bad url", domain: "api.weather.gov", timeout: models.DefaultRequestTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			point := PointLookup{Properties: PointProperties{Forecast: tt.forecast}}

			req := s.ForecastRequest(point)

			assert.Equal(t, tt.domain, req.Domain)
			assert.Equal(t, tt.path, req.Path)
			assert.Equal(t, models.MethodGet, req.Method)
			assert.Equal(t, tt.query, req.QueryParameters)
			assert.Equal(t, tt.timeout, req.Timeout)
		})
	}
}

func TestShortForecast_Known(t *testing.T) {
	assert.True(t, PartlyCloudy.Known())
	assert.True(t, MostlySunny.Known())
	assert.False(t, ShortForecast("Chance Showers And Thunderstorms").Known())
}
