package main

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"go-fetch-cache/internal/cache"
	"go-fetch-cache/internal/cache/disk"
	"go-fetch-cache/internal/cache/l1"
	"go-fetch-cache/internal/cache/l2"
	"go-fetch-cache/internal/cache/noop"
	"go-fetch-cache/internal/cache/store"
	"go-fetch-cache/internal/cache_rules"
	"go-fetch-cache/internal/chain"
	"go-fetch-cache/internal/client"
	"go-fetch-cache/internal/config"
	"go-fetch-cache/internal/fetcher"
	"go-fetch-cache/internal/httpserver"
	"go-fetch-cache/internal/interfaces"
	"go-fetch-cache/internal/weather"
)

// Options are the process-level settings taken from flags
type Options struct {
	ConfigPath string
	Debug      bool
}

// CompositionRoot holds all application dependencies and is the single place
// where they are created, wired together and released.
type CompositionRoot struct {
	// Configuration
	Config *config.Config
	Logger *zap.Logger

	// Cache components
	MemoryCache  interfaces.MemoryCache
	DurableCache interfaces.DurableCache
	KeyBuilder   interfaces.KeyBuilder
	Store        *store.Store
	CacheRules   interfaces.CachePolicyRules

	// Services
	Client      *client.Client
	Fetcher     *fetcher.Fetcher
	Coordinator *chain.Coordinator
	Weather     *weather.Service
	Refresher   *weather.Refresher
	HTTPServer  *httpserver.Server
}

// NewCompositionRoot creates and initializes all application dependencies.
//
// Initialization order:
// 1. Logger (needed by all other components)
// 2. Configuration
// 3. Cache tiers, key builder, store and cache rules
// 4. HTTP client, fetcher, chain coordinator and weather service
// 5. HTTP server
func NewCompositionRoot(opts Options) (*CompositionRoot, error) {
	root := &CompositionRoot{}

	if err := root.initLogger(opts.Debug); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := root.loadConfig(opts.ConfigPath); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := root.initCacheComponents(); err != nil {
		return nil, fmt.Errorf("failed to initialize cache components: %w", err)
	}

	root.initServices()
	root.initHTTPServer()

	return root, nil
}

// initLogger initializes the application logger
func (r *CompositionRoot) initLogger(debug bool) error {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	r.Logger = logger
	return nil
}

// loadConfig loads the configuration file, or the defaults when no path is set
func (r *CompositionRoot) loadConfig(flagValue string) error {
	configPath := GetConfigPath(flagValue)
	if configPath == "" {
		r.Logger.Debug("No configuration file, using defaults")
		r.Config = config.Default()
		return nil
	}

	cfg, err := config.LoadConfig(configPath, r.Logger)
	if err != nil {
		return err
	}
	r.Config = cfg
	return nil
}

// initCacheComponents initializes all cache-related components
func (r *CompositionRoot) initCacheComponents() error {
	if err := r.initMemoryCache(); err != nil {
		return fmt.Errorf("failed to initialize memory cache: %w", err)
	}

	if err := r.initDurableCache(); err != nil {
		return fmt.Errorf("failed to initialize durable cache: %w", err)
	}

	r.KeyBuilder = cache.NewKeyBuilder()
	r.Store = store.NewStore(r.MemoryCache, r.DurableCache, r.Config.GetDefaultTTL(), r.Logger)

	if err := r.initCacheRules(); err != nil {
		return fmt.Errorf("failed to initialize cache rules: %w", err)
	}
	return nil
}

// initCacheRules loads cache.rules_file, or applies http.cache_policy to
// every target when no file is configured
func (r *CompositionRoot) initCacheRules() error {
	if r.Config.Cache.RulesFile == "" {
		r.CacheRules = cache_rules.NewCacheConfig(&cache_rules.CacheRulesConfig{
			Default: r.Config.HTTP.CachePolicy,
		}, r.Logger)
		return nil
	}

	rules, err := cache_rules.LoadCacheRulesConfig(r.Config.Cache.RulesFile, r.Config.HTTP.CachePolicy, r.Logger)
	if err != nil {
		return err
	}
	r.CacheRules = rules
	return nil
}

// initMemoryCache initializes the memory tier (BigCache)
func (r *CompositionRoot) initMemoryCache() error {
	if !r.Config.MemoryEnabled() {
		r.MemoryCache = noop.NewNoOpMemoryCache()
		r.Logger.Info("Memory cache disabled")
		return nil
	}

	memoryCache, err := l1.NewBigCache(&r.Config.Memory, r.Logger)
	if err != nil {
		return err
	}
	r.MemoryCache = memoryCache
	r.Logger.Info("Memory cache initialized",
		zap.Int("count_limit", r.Config.Memory.CountLimit),
		zap.Int("size_mb", r.Config.Memory.SizeMB))
	return nil
}

// initDurableCache initializes the durable tier selected by durable.backend
func (r *CompositionRoot) initDurableCache() error {
	switch r.Config.Durable.Backend {
	case config.BackendDisk:
		diskCache, err := disk.NewDiskCache(r.Config.Durable.Directory, r.Logger)
		if err != nil {
			return err
		}
		r.DurableCache = diskCache
		r.Logger.Info("Disk cache initialized", zap.String("directory", diskCache.Dir()))

	case config.BackendKeyDB:
		keydbURL := GetKeyDBURL(r.Config.Durable.KeyDB.URL, r.Logger)

		keydbClient, err := l2.NewRedisKeyDbClient(r.Config, keydbURL, r.Logger)
		if err != nil {
			r.Logger.Warn("Failed to connect to KeyDB, falling back to no durable cache",
				zap.String("keydb_url", keydbURL),
				zap.Error(err))
			r.DurableCache = noop.NewNoOpCache()
			return nil
		}
		r.DurableCache = l2.NewKeyDBCache(r.Config, keydbClient, r.Logger)
		r.Logger.Info("KeyDB cache initialized", zap.String("namespace", r.Config.Durable.Namespace))

	default:
		r.DurableCache = noop.NewNoOpCache()
		r.Logger.Info("Durable cache disabled")
	}
	return nil
}

// initServices initializes the fetch pipeline and the weather service
func (r *CompositionRoot) initServices() {
	r.Client = client.NewClient(&http.Client{}, r.Logger)
	r.Fetcher = fetcher.NewFetcher(r.Client, r.Store, r.KeyBuilder, r.Config.GetDefaultTTL(), r.Logger)
	r.Coordinator = chain.NewCoordinator(r.Fetcher, r.Logger)
	r.Weather = weather.NewService(r.Coordinator, r.Config, r.Logger)
	r.Refresher = weather.NewRefresher(r.Weather, r.Config, r.Logger)
}

// initHTTPServer initializes the HTTP server
func (r *CompositionRoot) initHTTPServer() {
	r.HTTPServer = httpserver.NewServer(
		r.Fetcher,
		r.Store,
		r.CacheRules,
		r.Weather,
		r.Refresher,
		r.Config,
		r.Logger,
	)
}

// Cleanup performs cleanup of all resources
func (r *CompositionRoot) Cleanup() error {
	var errs []error

	if memoryCache, ok := r.MemoryCache.(*l1.BigCache); ok {
		if err := memoryCache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close memory cache: %w", err))
		}
	}

	if keydbCache, ok := r.DurableCache.(*l2.KeyDBCache); ok {
		if err := keydbCache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close KeyDB cache: %w", err))
		}
	}

	if r.Logger != nil {
		// stderr/stdout sync fails on some platforms and is not actionable
		_ = r.Logger.Sync()
	}

	return errors.Join(errs...)
}
