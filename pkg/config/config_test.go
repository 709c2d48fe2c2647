package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_SearchConfig(t *testing.T) {
	t.Setenv("SEARCH_STORE", "memory")
	t.Setenv("SEARCH_RESULT_TTL", "45s")
	t.Setenv("SEARCH_ADAPTER_TIMEOUT", "750ms")
	t.Setenv("SEARCH_DID_YOU_MEAN_THRESHOLD", "0.4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Search.Store)
	assert.Equal(t, 45*time.Second, cfg.Search.ResultTTL)
	assert.Equal(t, 750*time.Millisecond, cfg.Search.AdapterTimeout)
	assert.Equal(t, 0.4, cfg.Search.DidYouMeanThreshold)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultSearchConfig(), cfg.Search)
	assert.Equal(t, "localhost:6379", cfg.Redis.RedisAddr())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://app.fundbrave.example, ,https://admin.fundbrave.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://app.fundbrave.example", "https://admin.fundbrave.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("SEARCH_RESULT_TTL", "soon")
	t.Setenv("SEARCH_DEFAULT_LIMIT", "ten")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Search.ResultTTL)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	t.Setenv("SEARCH_STORE", "typesense")

	_, err := Load()
	assert.Error(t, err)
}

func TestSearchConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *SearchConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *SearchConfig) {}},
		{name: "max below default", mutate: func(c *SearchConfig) { c.MaxLimit = 5 }, wantErr: true},
		{name: "zero suggestions", mutate: func(c *SearchConfig) { c.DefaultSuggestions = 0 }, wantErr: true},
		{name: "threshold above one", mutate: func(c *SearchConfig) { c.DidYouMeanThreshold = 1.5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultSearchConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
