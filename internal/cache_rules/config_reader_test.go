package cache_rules

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"go-fetch-cache/internal/models"
)

func createTempYAMLFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache_rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadCacheRulesConfig_Success(t *testing.T) {
	logger := zaptest.NewLogger(t)

	validYAML := `
default: "custom:600"
cache_rules:
  api.weather.gov/points: "custom:86400"
  api.weather.gov/alerts: "reloadIgnoringCache"
  api.example.com: "returnCacheDataElseLoad"
`

	rules, err := LoadCacheRulesConfig(createTempYAMLFile(t, validYAML), models.CachePolicyDefault(), logger)
	require.NoError(t, err)
	require.NotNil(t, rules)

	assert.Equal(t, models.CachePolicyCustom(24*time.Hour), rules.PolicyFor("api.weather.gov", "/points/1,2"))
	assert.Equal(t, models.CachePolicyReloadIgnoringCache(), rules.PolicyFor("api.weather.gov", "/alerts"))
	assert.Equal(t, models.CachePolicyReturnCacheDataElseLoad(), rules.PolicyFor("api.example.com", "/"))
	assert.Equal(t, models.CachePolicyCustom(10*time.Minute), rules.PolicyFor("api.weather.gov", "/gridpoints"))
	assert.Len(t, rules.GetAllRules(), 3)
}

func TestLoadCacheRulesConfig_FallbackDefault(t *testing.T) {
	logger := zaptest.NewLogger(t)

	path := createTempYAMLFile(t, "cache_rules:\n  api.weather.gov: \"custom:60\"\n")
	rules, err := LoadCacheRulesConfig(path, models.CachePolicyReturnCacheDataDontLoad(), logger)
	require.NoError(t, err)

	assert.Equal(t, models.CachePolicyReturnCacheDataDontLoad(), rules.PolicyFor("example.org", "/"))
	assert.Equal(t, models.CachePolicyCustom(time.Minute), rules.PolicyFor("api.weather.gov", "/"))
}

func TestLoadCacheRulesConfig_FileNotFound(t *testing.T) {
	logger := zaptest.NewLogger(t)

	rules, err := LoadCacheRulesConfig("/nonexistent/file.yaml", models.CachePolicyDefault(), logger)

	assert.Error(t, err)
	assert.Nil(t, rules)
	assert.Contains(t, err.Error(), "failed to open cache rules file")
}

func TestLoadCacheRulesConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "invalid yaml",
			yaml:    "cache_rules: [unclosed",
			wantErr: "failed to decode YAML cache rules",
		},
		{
			name:    "invalid policy",
			yaml:    "cache_rules:\n  api.weather.gov: \"forever\"\n",
			wantErr: "failed to decode YAML cache rules",
		},
		{
			name:    "missing domain",
			yaml:    "cache_rules:\n  /points: \"default\"\n",
			wantErr: "missing domain",
		},
		{
			name:    "duplicate after trailing slash",
			yaml:    "cache_rules:\n  example.com: \"default\"\n  example.com/: \"reloadIgnoringCache\"\n",
			wantErr: "match the same target",
		},
		{
			name:    "duplicate after case folding",
			yaml:    "cache_rules:\n  api.weather.gov/points: \"default\"\n  API.weather.gov/points/: \"custom:60\"\n",
			wantErr: "match the same target",
		},
		{
			name:    "scheme in key",
			yaml:    "cache_rules:\n  https://api.weather.gov: \"default\"\n",
			wantErr: "domain must be a bare host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zaptest.NewLogger(t)

			rules, err := LoadCacheRulesConfig(createTempYAMLFile(t, tt.yaml), models.CachePolicyDefault(), logger)
			require.Error(t, err)
			assert.Nil(t, rules)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
