package interfaces

import "go-fetch-cache/internal/models"

// CachePolicyRules picks the cache policy for a request target when the
// caller does not name one
type CachePolicyRules interface {
	PolicyFor(domain, path string) models.CachePolicy
}
