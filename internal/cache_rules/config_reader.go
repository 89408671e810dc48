package cache_rules

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"go-fetch-cache/internal/models"
)

// LoadCacheRulesConfig loads cache rules from a YAML file. fallback is used
// when the file has no default policy.
func LoadCacheRulesConfig(rulesPath string, fallback models.CachePolicy, logger *zap.Logger) (*CacheConfig, error) {
	logger.Info("Loading cache rules config", zap.String("path", rulesPath))

	file, err := os.Open(rulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache rules file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var config CacheRulesConfig
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to decode YAML cache rules: %w", err)
	}

	if config.Default.Kind == "" {
		config.Default = fallback
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("cache rules validation failed: %w", err)
	}

	logger.Info("Cache rules config loaded successfully", zap.Int("rules", len(config.CacheRules)))

	return NewCacheConfig(&config, logger), nil
}

// validateConfig validates the rule keys. Keys that normalize to the same
// domain and prefix are rejected since neither would reliably win.
func validateConfig(config *CacheRulesConfig) error {
	seen := make(map[string]string, len(config.CacheRules))
	for key := range config.CacheRules {
		domain, prefix := splitRuleKey(key)
		if previous, ok := seen[domain+prefix]; ok {
			return fmt.Errorf("rules '%s' and '%s' match the same target", previous, key)
		}
		seen[domain+prefix] = key

		if domain == "" {
			return fmt.Errorf("rule '%s': missing domain", key)
		}
		if strings.HasSuffix(domain, ":") || strings.ContainsAny(domain, " ?#@") {
			return fmt.Errorf("rule '%s': domain must be a bare host", key)
		}
	}
	return nil
}
