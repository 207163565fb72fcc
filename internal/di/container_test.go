package di

import (
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkboard/talkboard-web/internal/api"
	"github.com/talkboard/talkboard-web/internal/config"
	"github.com/talkboard/talkboard-web/internal/di/providers"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App:    config.AppConfig{Environment: "development", Name: "talkboard"},
		Logger: config.LoggerConfig{Level: "error", Format: "json"},
		Server: config.ServerConfig{Port: "0"},
		API: config.APIConfig{
			BaseURL:   "https://forum.example.com",
			Timeout:   time.Second,
			RateLimit: 10,
			Burst:     10,
		},
		Identity: config.IdentityConfig{APIKey: "key", SignInRate: 5},
		Session: config.SessionConfig{
			DataPath:    t.TempDir(),
			CookieName:  "tb",
			Duration:    time.Hour,
			RefreshSkew: time.Minute,
		},
		Query:  config.QueryConfig{StaleTime: time.Minute, MaxEntries: 100},
		Search: config.SearchConfig{Debounce: 300 * time.Millisecond},
	}
}

func TestNewContainer_ResolvesAPIServer(t *testing.T) {
	injector := NewContainer(testConfig(t), "test")
	t.Cleanup(func() { injector.Shutdown() })

	server, err := do.Invoke[*api.Server](injector)
	require.NoError(t, err)
	assert.NotNil(t, server)

	checks, err := do.Invoke[[]api.HealthCheck](injector)
	require.NoError(t, err)
	assert.Len(t, checks, 3)
}

func TestNewContainer_CookieKeyPersists(t *testing.T) {
	cfg := testConfig(t)

	first := NewContainer(cfg, "test")
	key1, err := do.Invoke[providers.CookieKey](first)
	require.NoError(t, err)
	first.Shutdown()

	second := NewContainer(cfg, "test")
	t.Cleanup(func() { second.Shutdown() })
	key2, err := do.Invoke[providers.CookieKey](second)
	require.NoError(t, err)

	assert.Equal(t, key1, key2)
}
