package interfaces

import (
	"context"

	"go-fetch-cache/internal/models"
)

//go:generate mockgen -package=mock -source=httpclient.go -destination=mock/httpclient.go

// HTTPClient executes a configured request and returns the validated body
type HTTPClient interface {
	Execute(ctx context.Context, cfg models.RequestConfiguration) ([]byte, error)
}

// Fetcher returns live (uncached) response bodies
type Fetcher interface {
	Fetch(ctx context.Context, cfg models.RequestConfiguration) ([]byte, error)
}
