package cache_rules

import "go-fetch-cache/internal/models"

// CacheRulesConfig represents the cache rules configuration.
//
// Rule keys are either a bare domain ("api.weather.gov") or a domain followed
// by a path prefix ("api.weather.gov/points").
type CacheRulesConfig struct {
	Default    models.CachePolicy            `yaml:"default"`
	CacheRules map[string]models.CachePolicy `yaml:"cache_rules"`
}
