package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(k string) string { return values[k] }
}

func baseEnv() map[string]string {
	return map[string]string{
		"SUPABASE_URL":      "https://demo.supabase.co/",
		"SUPABASE_ANON_KEY": "anon",
		"JWT_SECRET_KEY":    "secret",
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(env(baseEnv()))
	require.NoError(t, err)

	assert.Equal(t, "https://demo.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5, cfg.LoginRatePerMinute)
	assert.False(t, cfg.R2.Enabled())
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestFromEnv_Overrides(t *testing.T) {
	values := baseEnv()
	values["SERVER_PORT"] = "9090"
	values["REQUEST_TIMEOUT"] = "3"
	values["TOKEN_TTL"] = "90m"
	values["DATABASE_URL"] = "postgres://localhost/weekly"
	values["R2_BUCKET_NAME"] = "proofs"
	values["ALLOWED_ORIGINS"] = "https://finals.example, ,http://localhost:3000"

	cfg, err := FromEnv(env(values))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 90*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "postgres://localhost/weekly", cfg.DatabaseURL)
	assert.True(t, cfg.R2.Enabled())
	assert.Equal(t, []string{"https://finals.example", "http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{"missing url", func(m map[string]string) { delete(m, "SUPABASE_URL") }},
		{"missing anon key", func(m map[string]string) { delete(m, "SUPABASE_ANON_KEY") }},
		{"missing jwt secret", func(m map[string]string) { delete(m, "JWT_SECRET_KEY") }},
		{"bad port", func(m map[string]string) { m["SERVER_PORT"] = "http" }},
		{"port out of range", func(m map[string]string) { m["SERVER_PORT"] = "70000" }},
		{"bad timeout", func(m map[string]string) { m["REQUEST_TIMEOUT"] = "soon" }},
		{"negative timeout", func(m map[string]string) { m["REQUEST_TIMEOUT"] = "-2s" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := baseEnv()
			tt.mutate(values)
			_, err := FromEnv(env(values))
			assert.Error(t, err)
		})
	}
}
