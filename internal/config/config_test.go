package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBase(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_PROVIDER", "memory")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
}

func TestLoadDefaults(t *testing.T) {
	setBase(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.Equal(t, StoreMemory, cfg.StoreProvider)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.JWTRefreshTTL)
	assert.Equal(t, "America/Sao_Paulo", cfg.Location.String())
	assert.Equal(t, "https://viacep.com.br/ws", cfg.ViaCEPURL)
	assert.Equal(t, RateLimitConfig{RequestsPerSecond: 10, Burst: 20}, cfg.RateLimitPublic)
	assert.Empty(t, cfg.Storage.Provider)
}

func TestLoadOverrides(t *testing.T) {
	setBase(t)
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("ALLOW_ORIGINS", "https://igreja.app, http://localhost:5173 ,")
	t.Setenv("RATE_LIMIT_AUTH", "2.5,5")
	t.Setenv("VIACEP_URL", "http://cep.local/ws/")
	t.Setenv("STORAGE_PROVIDER", "R2")
	t.Setenv("S3_BUCKET", "fotos")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.Equal(t, []string{"https://igreja.app", "http://localhost:5173"}, cfg.AllowOrigins)
	assert.True(t, cfg.DevCookies)
	assert.Equal(t, RateLimitConfig{RequestsPerSecond: 2.5, Burst: 5}, cfg.RateLimitAuth)
	assert.Equal(t, "http://cep.local/ws", cfg.ViaCEPURL)
	assert.Equal(t, "r2", cfg.Storage.Provider)
	assert.Equal(t, "fotos", cfg.Storage.S3Bucket)
}

func TestLoadErros(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{"segredo curto", map[string]string{"JWT_SECRET": "curto"}, "JWT_SECRET"},
		{"sem redis", map[string]string{"REDIS_URL": ""}, "REDIS_URL"},
		{"postgres sem dsn", map[string]string{"STORE_PROVIDER": "postgres", "DB_DSN": ""}, "DB_DSN"},
		{"firestore sem projeto", map[string]string{"STORE_PROVIDER": "firestore", "FIRESTORE_PROJECT_ID": ""}, "FIRESTORE_PROJECT_ID"},
		{"store desconhecido", map[string]string{"STORE_PROVIDER": "mongo"}, "STORE_PROVIDER"},
		{"ttl", map[string]string{"JWT_ACCESS_TTL": "quinze"}, "JWT_ACCESS_TTL"},
		{"rate limit", map[string]string{"RATE_LIMIT_PUBLIC": "10"}, "RATE_LIMIT_PUBLIC"},
		{"fuso", map[string]string{"TZ_IGREJA": "Lua/Base"}, "TZ_IGREJA"},
		{"porta", map[string]string{"PORT": "abc"}, "PORT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBase(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}
