package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"go-fetch-cache/internal/models"
)

// DefaultNamespace names the durable cache directory / key prefix
const DefaultNamespace = "DataFetcherCache"

// Durable backends
const (
	BackendDisk  = "disk"
	BackendKeyDB = "keydb"
	BackendNone  = "none"
)

// Config represents the main configuration structure
type Config struct {
	Memory  MemoryConfig  `yaml:"memory"`
	Durable DurableConfig `yaml:"durable"`
	Cache   CacheConfig   `yaml:"cache"`
	HTTP    HTTPConfig    `yaml:"http"`
	Weather WeatherConfig `yaml:"weather"`
	Server  ServerConfig  `yaml:"server"`
}

// MemoryConfig bounds the in-process tier
type MemoryConfig struct {
	Enabled    *bool `yaml:"enabled"`
	CountLimit int   `yaml:"count_limit"` // max number of entries
	SizeMB     int   `yaml:"size_mb"`     // max total size in MB
	Shards     int   `yaml:"shards"`      // power of two
}

// DurableConfig selects and configures the persistent tier
type DurableConfig struct {
	Backend   string      `yaml:"backend"` // disk, keydb or none
	Directory string      `yaml:"directory"`
	Namespace string      `yaml:"namespace"`
	KeyDB     KeyDBConfig `yaml:"keydb"`
}

// KeyDBConfig configures the KeyDB/Redis durable backend
type KeyDBConfig struct {
	URL        string           `yaml:"url"`
	Connection ConnectionConfig `yaml:"connection"`
	Keepalive  KeepaliveConfig  `yaml:"keepalive"`
}

// ConnectionConfig holds KeyDB timeouts in milliseconds
type ConnectionConfig struct {
	ConnectTimeout int `yaml:"connect_timeout"`
	SendTimeout    int `yaml:"send_timeout"`
	ReadTimeout    int `yaml:"read_timeout"`
}

// KeepaliveConfig holds KeyDB pool settings
type KeepaliveConfig struct {
	PoolSize       int `yaml:"pool_size"`
	MaxIdleTimeout int `yaml:"max_idle_timeout"` // milliseconds
}

// CacheConfig holds expiration defaults in seconds
type CacheConfig struct {
	DefaultTTL int    `yaml:"default_ttl"`
	RulesFile  string `yaml:"rules_file"` // optional per-domain cache policies
}

// HTTPConfig configures outbound requests
type HTTPConfig struct {
	Timeout     int                `yaml:"timeout"` // seconds
	UserAgent   string             `yaml:"user_agent"`
	CachePolicy models.CachePolicy `yaml:"cache_policy"` // policy for ad-hoc cached fetches
}

// WeatherConfig configures the point -> forecast chain
type WeatherConfig struct {
	Domain             string  `yaml:"domain"`
	Latitude           float64 `yaml:"latitude"`
	Longitude          float64 `yaml:"longitude"`
	RequestTimeout     int     `yaml:"request_timeout"`     // seconds
	RefreshAvailable   int     `yaml:"refresh_available"`   // seconds
	RefreshUnavailable int     `yaml:"refresh_unavailable"` // seconds
}

// ServerConfig configures the local HTTP surface
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LoadConfig loads configuration from file path
func LoadConfig(configPath string, logger *zap.Logger) (*Config, error) {
	logger.Info("Loading configuration", zap.String("path", configPath))

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var config Config
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to decode YAML config: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

// Validate checks values that defaults cannot repair
func (c *Config) Validate() error {
	switch c.Durable.Backend {
	case BackendDisk, BackendKeyDB, BackendNone:
	default:
		return fmt.Errorf("invalid durable backend '%s': must be one of 'disk', 'keydb', 'none'", c.Durable.Backend)
	}
	if c.Memory.Shards <= 0 || c.Memory.Shards&(c.Memory.Shards-1) != 0 {
		return fmt.Errorf("memory.shards must be a power of two, got %d", c.Memory.Shards)
	}
	return nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.Memory.Enabled == nil {
		enabled := true
		c.Memory.Enabled = &enabled
	}
	if c.Memory.CountLimit == 0 {
		c.Memory.CountLimit = 100
	}
	if c.Memory.SizeMB == 0 {
		c.Memory.SizeMB = 50
	}
	if c.Memory.Shards == 0 {
		c.Memory.Shards = 64
	}

	if c.Durable.Backend == "" {
		c.Durable.Backend = BackendDisk
	}
	if c.Durable.Namespace == "" {
		c.Durable.Namespace = DefaultNamespace
	}
	if c.Durable.Directory == "" {
		base, err := os.UserCacheDir()
		if err != nil || base == "" {
			base = os.TempDir()
		}
		c.Durable.Directory = filepath.Join(base, c.Durable.Namespace)
	}
	if c.Durable.KeyDB.Connection.ConnectTimeout == 0 {
		c.Durable.KeyDB.Connection.ConnectTimeout = 1000
	}
	if c.Durable.KeyDB.Connection.SendTimeout == 0 {
		c.Durable.KeyDB.Connection.SendTimeout = 1000
	}
	if c.Durable.KeyDB.Connection.ReadTimeout == 0 {
		c.Durable.KeyDB.Connection.ReadTimeout = 1000
	}
	if c.Durable.KeyDB.Keepalive.PoolSize == 0 {
		c.Durable.KeyDB.Keepalive.PoolSize = 10
	}
	if c.Durable.KeyDB.Keepalive.MaxIdleTimeout == 0 {
		c.Durable.KeyDB.Keepalive.MaxIdleTimeout = 10000
	}

	if c.Cache.DefaultTTL == 0 {
		c.Cache.DefaultTTL = 3600
	}

	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 30
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = "go-fetch-cache (weather-fetch)"
	}

	if c.Weather.Domain == "" {
		c.Weather.Domain = "api.weather.gov"
	}
	if c.Weather.Latitude == 0 && c.Weather.Longitude == 0 {
		c.Weather.Latitude = 37.2883
		c.Weather.Longitude = -121.8434
	}
	if c.Weather.RequestTimeout == 0 {
		c.Weather.RequestTimeout = 15
	}
	if c.Weather.RefreshAvailable == 0 {
		c.Weather.RefreshAvailable = 1800
	}
	if c.Weather.RefreshUnavailable == 0 {
		c.Weather.RefreshUnavailable = 300
	}

	if c.Server.Address == "" {
		c.Server.Address = "127.0.0.1:8089"
	}
}

// MemoryEnabled reports whether the memory tier is on
func (c *Config) MemoryEnabled() bool {
	return c.Memory.Enabled == nil || *c.Memory.Enabled
}

// GetConnectTimeout returns KeyDB connect timeout as duration
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.Durable.KeyDB.Connection.ConnectTimeout) * time.Millisecond
}

// GetSendTimeout returns KeyDB send timeout as duration
func (c *Config) GetSendTimeout() time.Duration {
	return time.Duration(c.Durable.KeyDB.Connection.SendTimeout) * time.Millisecond
}

// GetReadTimeout returns KeyDB read timeout as duration
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Durable.KeyDB.Connection.ReadTimeout) * time.Millisecond
}

// GetMaxIdleTimeout returns KeyDB max idle timeout as duration
func (c *Config) GetMaxIdleTimeout() time.Duration {
	return time.Duration(c.Durable.KeyDB.Keepalive.MaxIdleTimeout) * time.Millisecond
}

// GetDefaultTTL returns the default cache TTL as duration
func (c *Config) GetDefaultTTL() time.Duration {
	return time.Duration(c.Cache.DefaultTTL) * time.Second
}

// GetHTTPTimeout returns the default request timeout as duration
func (c *Config) GetHTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.Timeout) * time.Second
}

// GetWeatherTimeout returns the timeout used by the weather chain requests
func (c *Config) GetWeatherTimeout() time.Duration {
	return time.Duration(c.Weather.RequestTimeout) * time.Second
}

// GetRefreshAvailable returns the refresh interval when forecast data is available
func (c *Config) GetRefreshAvailable() time.Duration {
	return time.Duration(c.Weather.RefreshAvailable) * time.Second
}

// GetRefreshUnavailable returns the retry interval when forecast data is unavailable
func (c *Config) GetRefreshUnavailable() time.Duration {
	return time.Duration(c.Weather.RefreshUnavailable) * time.Second
}
