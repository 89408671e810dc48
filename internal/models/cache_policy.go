package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCacheTTL is the expiration used when no explicit TTL is given
const DefaultCacheTTL = 3600 * time.Second

// CachePolicyKind enumerates the cache policy variants
type CachePolicyKind string

const (
	PolicyDefault                 CachePolicyKind = "default"
	PolicyReloadIgnoringCache     CachePolicyKind = "reloadIgnoringCache"
	PolicyReturnCacheDataElseLoad CachePolicyKind = "returnCacheDataElseLoad"
	PolicyReturnCacheDataDontLoad CachePolicyKind = "returnCacheDataDontLoad"
	PolicyCustom                  CachePolicyKind = "custom"
)

// CachePolicy controls whether and for how long a fetched value is stored.
// TTL is only meaningful for PolicyCustom.
type CachePolicy struct {
	Kind CachePolicyKind
	TTL  time.Duration
}

func CachePolicyDefault() CachePolicy {
	return CachePolicy{Kind: PolicyDefault}
}

func CachePolicyReloadIgnoringCache() CachePolicy {
	return CachePolicy{Kind: PolicyReloadIgnoringCache}
}

func CachePolicyReturnCacheDataElseLoad() CachePolicy {
	return CachePolicy{Kind: PolicyReturnCacheDataElseLoad}
}

func CachePolicyReturnCacheDataDontLoad() CachePolicy {
	return CachePolicy{Kind: PolicyReturnCacheDataDontLoad}
}

func CachePolicyCustom(ttl time.Duration) CachePolicy {
	return CachePolicy{Kind: PolicyCustom, TTL: ttl}
}

// Expiration resolves the policy to the TTL handed to the cache store.
// The boolean is false when the fetched value must not be stored.
func (p CachePolicy) Expiration(defaultTTL time.Duration) (time.Duration, bool) {
	switch p.Kind {
	case PolicyReloadIgnoringCache, PolicyReturnCacheDataDontLoad:
		return 0, false
	case PolicyCustom:
		return p.TTL, true
	default:
		// "" behaves like PolicyDefault so a zero CachePolicy is usable
		return defaultTTL, true
	}
}

func (p CachePolicy) String() string {
	if p.Kind == PolicyCustom {
		return fmt.Sprintf("%s:%g", p.Kind, p.TTL.Seconds())
	}
	if p.Kind == "" {
		return string(PolicyDefault)
	}
	return string(p.Kind)
}

// ParseCachePolicy accepts the String() form, e.g. "default" or "custom:600"
func ParseCachePolicy(s string) (CachePolicy, error) {
	name, arg, hasArg := strings.Cut(strings.TrimSpace(s), ":")
	switch CachePolicyKind(name) {
	case PolicyDefault, "":
		return CachePolicyDefault(), nil
	case PolicyReloadIgnoringCache:
		return CachePolicyReloadIgnoringCache(), nil
	case PolicyReturnCacheDataElseLoad:
		return CachePolicyReturnCacheDataElseLoad(), nil
	case PolicyReturnCacheDataDontLoad:
		return CachePolicyReturnCacheDataDontLoad(), nil
	case PolicyCustom:
		if !hasArg {
			return CachePolicy{}, fmt.Errorf("cache policy '%s': custom requires a TTL in seconds", s)
		}
		seconds, err := strconv.ParseFloat(arg, 64)
		if err != nil || seconds <= 0 {
			return CachePolicy{}, fmt.Errorf("cache policy '%s': invalid TTL", s)
		}
		return CachePolicyCustom(time.Duration(seconds * float64(time.Second))), nil
	default:
		return CachePolicy{}, fmt.Errorf("invalid cache policy '%s': must be one of 'default', 'reloadIgnoringCache', 'returnCacheDataElseLoad', 'returnCacheDataDontLoad', 'custom:<seconds>'", s)
	}
}

// UnmarshalYAML implements custom YAML unmarshaling for CachePolicy
func (p *CachePolicy) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	policy, err := ParseCachePolicy(str)
	if err != nil {
		return err
	}
	*p = policy
	return nil
}
