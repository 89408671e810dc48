package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"go-fetch-cache/internal/chain"
	"go-fetch-cache/internal/fetcher"
	"go-fetch-cache/internal/models"
	"go-fetch-cache/internal/weather"
)

// handleForecast runs the forecast chain for the requested coordinates,
// falling back to the configured location
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	latitude, longitude := s.cfg.Weather.Latitude, s.cfg.Weather.Longitude

	query := r.URL.Query()
	if v := query.Get("latitude"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < -90 || parsed > 90 {
			s.writeErrorResponse(w, "Invalid latitude", http.StatusBadRequest)
			return
		}
		latitude = parsed
	}
	if v := query.Get("longitude"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < -180 || parsed > 180 {
			s.writeErrorResponse(w, "Invalid longitude", http.StatusBadRequest)
			return
		}
		longitude = parsed
	}

	// the coordinator is shared with the refresher, so its State() may
	// describe another chain; a returned chain is always at ProgressDone
	periods, err := s.weather.LoadPeriods(r.Context(), latitude, longitude)
	if err != nil {
		s.writeResponse(w, statusForError(err), &ForecastResponse{
			Success:  false,
			Periods:  periods,
			Progress: chain.ProgressDone,
			Error:    err.Error(),
		})
		return
	}

	s.writeResponse(w, http.StatusOK, &ForecastResponse{
		Success:  true,
		Periods:  periods,
		Progress: chain.ProgressDone,
	})
}

// handleLatest returns the entry published by the background refresher
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		s.writeErrorResponse(w, "Forecast refresher is not running", http.StatusNotFound)
		return
	}

	entry, ok := s.refresher.Latest()
	if !ok {
		s.writeErrorResponse(w, "No forecast loaded yet", http.StatusNotFound)
		return
	}

	s.writeResponse(w, http.StatusOK, &LatestResponse{
		Success: true,
		Entry:   entry,
		NextIn:  weather.NextRefresh(!entry.Unavailable, s.cfg).Seconds(),
	})
}

// handleFetch performs a GET for domain+path and returns the JSON payload.
// cached=false bypasses the cache; policy overrides the cache rules.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	domain := query.Get("domain")
	if domain == "" {
		s.writeErrorResponse(w, "Missing required parameter: domain", http.StatusBadRequest)
		return
	}

	cached := true
	if v := query.Get("cached"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			s.writeErrorResponse(w, "Invalid cached flag", http.StatusBadRequest)
			return
		}
		cached = parsed
	}

	policy := s.rules.PolicyFor(domain, query.Get("path"))
	if v := query.Get("policy"); v != "" {
		parsed, err := models.ParseCachePolicy(v)
		if err != nil {
			s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		policy = parsed
	}

	cfg := models.NewRequest(domain).
		Path(query.Get("path")).
		Method(models.MethodGet).
		Headers(map[string]string{"User-Agent": s.cfg.HTTP.UserAgent}).
		Timeout(s.cfg.GetHTTPTimeout()).
		CachePolicy(policy).
		Build()
	key := s.fetcher.CacheKey(cfg)

	var (
		data   json.RawMessage
		status = CacheStatusBypass
		err    error
	)
	if cached {
		var hit bool
		data, hit, err = fetcher.FetchWithCacheStatus[json.RawMessage](r.Context(), s.fetcher, cfg)
		status = CacheStatusMiss
		if hit {
			status = CacheStatusHit
		}
	} else {
		data, err = fetcher.Fetch[json.RawMessage](r.Context(), s.fetcher, cfg)
	}

	if err != nil {
		s.logger.Debug("Fetch failed", zap.String("domain", domain), zap.String("path", cfg.Path), zap.Error(err))
		response := &FetchResponse{Success: false, Key: key, Error: err.Error()}
		var netErr *models.NetworkError
		if errors.As(err, &netErr) && netErr.Kind == models.KindServerError {
			response.UpstreamStatus = netErr.StatusCode
		}
		s.writeResponse(w, statusForError(err), response)
		return
	}

	s.writeResponse(w, http.StatusOK, &FetchResponse{
		Success:     true,
		Key:         key,
		CacheStatus: status,
		Data:        data,
	})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.store.Clear()
	s.logger.Info("Cache cleared via HTTP")
	s.writeResponse(w, http.StatusOK, &CacheResponse{Success: true})
}

func (s *Server) handleRemoveKey(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	s.store.Remove(key)
	s.writeResponse(w, http.StatusOK, &CacheResponse{Success: true, Key: key})
}
