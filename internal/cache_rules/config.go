package cache_rules

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"go-fetch-cache/internal/interfaces"
	"go-fetch-cache/internal/models"
)

// CacheConfig implements the CachePolicyRules interface
type CacheConfig struct {
	fallback models.CachePolicy
	rules    []rule // most specific first
	logger   *zap.Logger
}

type rule struct {
	domain string
	prefix string
	policy models.CachePolicy
}

// Ensure CacheConfig implements the CachePolicyRules interface
var _ interfaces.CachePolicyRules = (*CacheConfig)(nil)

// NewCacheConfig creates a new CacheConfig instance
func NewCacheConfig(config *CacheRulesConfig, logger *zap.Logger) *CacheConfig {
	if config == nil {
		panic("config cannot be nil")
	}

	rules := make([]rule, 0, len(config.CacheRules))
	for key, policy := range config.CacheRules {
		domain, prefix := splitRuleKey(key)
		rules = append(rules, rule{domain: domain, prefix: prefix, policy: policy})
	}
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].prefix) != len(rules[j].prefix) {
			return len(rules[i].prefix) > len(rules[j].prefix)
		}
		return rules[i].domain < rules[j].domain
	})

	return &CacheConfig{
		fallback: config.Default,
		rules:    rules,
		logger:   logger,
	}
}

// PolicyFor returns the policy of the longest path-prefix rule for domain,
// then the bare domain rule, then the default
func (cr *CacheConfig) PolicyFor(domain, path string) models.CachePolicy {
	domain = strings.ToLower(domain)

	for _, r := range cr.rules {
		if r.domain != domain || !matchesPrefix(path, r.prefix) {
			continue
		}
		if cr.logger != nil {
			cr.logger.Debug("Cache rule matched",
				zap.String("domain", domain),
				zap.String("path", path),
				zap.String("prefix", r.prefix),
				zap.Stringer("policy", r.policy))
		}
		return r.policy
	}

	return cr.fallback
}

// GetAllRules returns the configured rule keys, most specific first
func (cr *CacheConfig) GetAllRules() []string {
	keys := make([]string, 0, len(cr.rules))
	for _, r := range cr.rules {
		keys = append(keys, r.domain+r.prefix)
	}
	return keys
}

func splitRuleKey(key string) (domain, prefix string) {
	key = strings.TrimSpace(key)
	if i := strings.Index(key, "/"); i >= 0 {
		return strings.ToLower(key[:i]), strings.TrimRight(key[i:], "/")
	}
	return strings.ToLower(key), ""
}

// matchesPrefix matches whole path segments, so "/points" does not cover
// "/pointsx"
func matchesPrefix(path, prefix string) bool {
	if prefix == "" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
