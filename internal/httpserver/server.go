package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"go-fetch-cache/internal/config"
	"go-fetch-cache/internal/fetcher"
	"go-fetch-cache/internal/interfaces"
	"go-fetch-cache/internal/models"
	"go-fetch-cache/internal/weather"
)

const unixPrefix = "unix:"

// Server exposes forecasts and cached fetches to local consumers such as
// widget extensions
type Server struct {
	fetcher   *fetcher.Fetcher
	store     interfaces.Store
	rules     interfaces.CachePolicyRules
	weather   *weather.Service
	refresher *weather.Refresher
	cfg       *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a new HTTP server. refresher may be nil, in which case
// /forecast/latest reports that no entry is available.
func NewServer(f *fetcher.Fetcher, store interfaces.Store, rules interfaces.CachePolicyRules, weatherService *weather.Service, refresher *weather.Refresher, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		fetcher:   f,
		store:     store,
		rules:     rules,
		weather:   weatherService,
		refresher: refresher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start listens on address, either host:port or unix:/path/to.sock
func (s *Server) Start(address string) error {
	if strings.HasPrefix(address, unixPrefix) {
		return s.StartUnixSocket(strings.TrimPrefix(address, unixPrefix))
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}

	s.logger.Info("Starting HTTP server", zap.String("address", listener.Addr().String()))
	return s.serve(listener)
}

// StartUnixSocket starts the HTTP server on a Unix socket
func (s *Server) StartUnixSocket(socketPath string) error {
	if err := os.RemoveAll(socketPath); err != nil {
		s.logger.Warn("Failed to remove existing socket file", zap.String("path", socketPath), zap.Error(err))
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return err
	}

	// readable/writable by owner and group
	if err := os.Chmod(socketPath, 0660); err != nil {
		s.logger.Warn("Failed to set socket permissions", zap.String("path", socketPath), zap.Error(err))
	}

	s.logger.Info("Starting HTTP server on Unix socket", zap.String("socket_path", socketPath))
	return s.serve(listener)
}

func (s *Server) serve(listener net.Listener) error {
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s.server.Serve(listener)
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler returns the configured router
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/forecast", s.handleForecast).Methods(http.MethodGet)
	router.HandleFunc("/forecast/latest", s.handleLatest).Methods(http.MethodGet)
	router.HandleFunc("/fetch", s.handleFetch).Methods(http.MethodGet)

	router.HandleFunc("/cache", s.handleClearCache).Methods(http.MethodDelete)
	router.HandleFunc("/cache/{key}", s.handleRemoveKey).Methods(http.MethodDelete)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, http.StatusOK, &HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC(),
	})
}

// writeResponse writes JSON response
func (s *Server) writeResponse(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

// writeErrorResponse writes error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeResponse(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// statusForError maps a fetch failure to the status returned to the caller
func statusForError(err error) int {
	switch models.KindOf(err) {
	case models.KindInvalidURL:
		return http.StatusBadRequest
	case "":
		// undecodable upstream payload
		return http.StatusBadGateway
	}

	var netErr *models.NetworkError
	if errors.As(err, &netErr) && netErr.IsTimeout() {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
