package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, "BookCourierDB", cfg.MongoDatabase)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.AllowLibrarianCancel)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/bookcourier")
	t.Setenv("ALLOW_LIBRARIAN_CANCEL", "true")
	t.Setenv("CORS_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("CACHE_TTL", "30s")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.True(t, cfg.AllowLibrarianCancel)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
}

func TestValidate(t *testing.T) {
	base := Config{StoreDriver: DriverMemory, RequestTimeout: time.Second}
	require.NoError(t, base.Validate())

	cases := map[string]func(*Config){
		"postgres without url": func(c *Config) { c.StoreDriver = DriverPostgres },
		"mongo without uri":    func(c *Config) { c.StoreDriver = DriverMongo },
		"unknown driver":       func(c *Config) { c.StoreDriver = "sqlite" },
		"zero timeout":         func(c *Config) { c.RequestTimeout = 0 },
		"negative rate":        func(c *Config) { c.OrdersPerMinute = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
