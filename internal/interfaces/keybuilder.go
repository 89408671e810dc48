package interfaces

import "go-fetch-cache/internal/models"

//go:generate mockgen -package=mock -source=keybuilder.go -destination=mock/keybuilder.go

// KeyBuilder canonizes request configurations into deterministic cache keys
type KeyBuilder interface {
	Build(cfg models.RequestConfiguration) string
}
