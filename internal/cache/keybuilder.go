package cache

import (
	"encoding/base64"
	"sort"
	"strings"

	"go-fetch-cache/internal/interfaces"
	"go-fetch-cache/internal/models"
)

// Ensure KeyBuilderImpl implements interfaces.KeyBuilder
var _ interfaces.KeyBuilder = (*KeyBuilderImpl)(nil)

const keySeparator = "|"

// KeyBuilderImpl implements the KeyBuilder interface
type KeyBuilderImpl struct{}

// NewKeyBuilder creates a new KeyBuilder instance
func NewKeyBuilder() interfaces.KeyBuilder {
	return &KeyBuilderImpl{}
}

// Build creates the cache key for a request configuration.
//
// The key is base64(domain|path|METHOD|query|base64(body)) using the URL-safe
// alphabet, so it can be used directly as a file name. Headers, timeout and
// cache policy do not take part in the key.
func (kb *KeyBuilderImpl) Build(cfg models.RequestConfiguration) string {
	var body string
	if len(cfg.Body) > 0 {
		body = base64.StdEncoding.EncodeToString(cfg.Body)
	}

	components := []string{
		cfg.Domain,
		cfg.Path,
		string(cfg.Method),
		canonicalQuery(cfg.QueryParameters),
		body,
	}

	joined := strings.Join(components, keySeparator)
	return base64.URLEncoding.EncodeToString([]byte(joined))
}

// canonicalQuery renders query parameters in a stable, order-independent form
func canonicalQuery(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteByte('[')
	for i, name := range names {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(quote(name))
		sb.WriteByte(':')
		sb.WriteString(quote(params[name]))
	}
	sb.WriteByte(']')
	return sb.String()
}

// quote escapes the characters that would make two different maps render alike
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
