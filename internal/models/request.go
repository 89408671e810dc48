package models

import (
	"time"
)

// HTTPMethod is the verb used for an outbound request
type HTTPMethod string

const (
	MethodGet    HTTPMethod = "GET"
	MethodPost   HTTPMethod = "POST"
	MethodPut    HTTPMethod = "PUT"
	MethodDelete HTTPMethod = "DELETE"
	MethodPatch  HTTPMethod = "PATCH"
)

// DefaultRequestTimeout is applied when a request does not set its own timeout
const DefaultRequestTimeout = 30 * time.Second

// Valid reports whether m is one of the supported methods
func (m HTTPMethod) Valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch:
		return true
	default:
		return false
	}
}

// RequestConfiguration describes a single outbound request.
// Values are built once through RequestBuilder and treated as read-only afterwards.
type RequestConfiguration struct {
	Domain          string
	Path            string
	Method          HTTPMethod
	QueryParameters map[string]string
	Headers         map[string]string
	Body            []byte
	Timeout         time.Duration
	CachePolicy     CachePolicy
}

// RequestBuilder assembles a RequestConfiguration
type RequestBuilder struct {
	cfg RequestConfiguration
}

// NewRequest starts a configuration for the given domain with GET, a 30s
// timeout and the default cache policy
func NewRequest(domain string) *RequestBuilder {
	return &RequestBuilder{
		cfg: RequestConfiguration{
			Domain:      domain,
			Method:      MethodGet,
			Timeout:     DefaultRequestTimeout,
			CachePolicy: CachePolicyDefault(),
		},
	}
}

func (b *RequestBuilder) Path(path string) *RequestBuilder {
	b.cfg.Path = path
	return b
}

func (b *RequestBuilder) Method(method HTTPMethod) *RequestBuilder {
	b.cfg.Method = method
	return b
}

func (b *RequestBuilder) QueryParameters(params map[string]string) *RequestBuilder {
	b.cfg.QueryParameters = copyMap(params)
	return b
}

func (b *RequestBuilder) Headers(headers map[string]string) *RequestBuilder {
	b.cfg.Headers = copyMap(headers)
	return b
}

func (b *RequestBuilder) Body(body []byte) *RequestBuilder {
	if body == nil {
		b.cfg.Body = nil
		return b
	}
	b.cfg.Body = append([]byte(nil), body...)
	return b
}

func (b *RequestBuilder) Timeout(timeout time.Duration) *RequestBuilder {
	b.cfg.Timeout = timeout
	return b
}

func (b *RequestBuilder) CachePolicy(policy CachePolicy) *RequestBuilder {
	b.cfg.CachePolicy = policy
	return b
}

// Build returns the configuration. The builder can keep being used; later
// calls do not affect configurations that were already built.
func (b *RequestBuilder) Build() RequestConfiguration {
	cfg := b.cfg
	cfg.QueryParameters = copyMap(b.cfg.QueryParameters)
	cfg.Headers = copyMap(b.cfg.Headers)
	if b.cfg.Body != nil {
		cfg.Body = append([]byte(nil), b.cfg.Body...)
	}
	return cfg
}

func copyMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
