package main

import (
	"os"
	"strings"

	"go.uber.org/zap"
)

const defaultKeyDBURL = "redis://localhost:6379"

// GetConfigPath returns the configuration file path with the following priority:
// 1. --config flag
// 2. FETCH_CONFIG_FILE environment variable
// 3. "" (built-in defaults)
func GetConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("FETCH_CONFIG_FILE")
}

// GetKeyDBURL returns KeyDB URL with the following priority:
// 1. KEYDB_URL environment variable
// 2. FETCH_KEYDB_URL_FILE file content
// 3. durable.keydb.url from the configuration
// 4. Default value
func GetKeyDBURL(configured string, logger *zap.Logger) string {
	if keydbURL := os.Getenv("KEYDB_URL"); keydbURL != "" {
		logger.Debug("Using KeyDB URL from environment variable")
		return keydbURL
	}

	if connectionFile := os.Getenv("FETCH_KEYDB_URL_FILE"); connectionFile != "" {
		if content, err := os.ReadFile(connectionFile); err == nil {
			if keydbURL := strings.TrimSpace(string(content)); keydbURL != "" {
				logger.Debug("Using KeyDB URL from connection file", zap.String("file", connectionFile))
				return keydbURL
			}
		} else {
			logger.Debug("KeyDB connection file not readable", zap.String("file", connectionFile), zap.Error(err))
		}
	}

	if configured != "" {
		return configured
	}

	logger.Debug("Using default KeyDB URL")
	return defaultKeyDBURL
}
