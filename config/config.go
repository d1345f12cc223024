package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultServerPort     = 8080
	defaultRequestTimeout = 10 * time.Second
	defaultLoginRate      = 5
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	// DatabaseURL is optional; without it joins, transactions and procedure
	// fallbacks are unavailable.
	DatabaseURL    string
	RequestTimeout time.Duration

	JWTSecretKey string
	TokenTTL     time.Duration
	ServerPort   int
	LogLevel     string

	// LoginRatePerMinute limits login attempts per client IP.
	LoginRatePerMinute int
	// AllowedOrigins is used for CORS and the websocket origin check. Empty
	// allows any origin.
	AllowedOrigins []string

	R2 R2Config
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicBaseURL   string
	Endpoint        string
}

// Enabled reports whether object storage has been configured at all.
func (c R2Config) Enabled() bool {
	return c.BucketName != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		SupabaseURL:        strings.TrimRight(getenv("SUPABASE_URL"), "/"),
		SupabaseAnonKey:    getenv("SUPABASE_ANON_KEY"),
		SupabaseServiceKey: getenv("SUPABASE_SERVICE_KEY"),
		DatabaseURL:        getenv("DATABASE_URL"),
		JWTSecretKey:       getenv("JWT_SECRET_KEY"),
		LogLevel:           strings.ToLower(getenv("LOG_LEVEL")),
		R2: R2Config{
			AccountID:       getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: getenv("R2_SECRET_ACCESS_KEY"),
			BucketName:      getenv("R2_BUCKET_NAME"),
			PublicBaseURL:   getenv("R2_PUBLIC_BASE_URL"),
			Endpoint:        getenv("R2_ENDPOINT"),
		},
	}

	if cfg.SupabaseURL == "" {
		return nil, errors.New("SUPABASE_URL environment variable is not set")
	}
	if cfg.SupabaseAnonKey == "" {
		return nil, errors.New("SUPABASE_ANON_KEY environment variable is not set")
	}
	if cfg.JWTSecretKey == "" {
		return nil, errors.New("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intFromEnv(getenv, "SERVER_PORT", defaultServerPort)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	if cfg.RequestTimeout, err = durationFromEnv(getenv, "REQUEST_TIMEOUT", defaultRequestTimeout); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = durationFromEnv(getenv, "TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.LoginRatePerMinute, err = intFromEnv(getenv, "LOGIN_RATE_PER_MINUTE", defaultLoginRate); err != nil {
		return nil, err
	}

	for _, origin := range strings.Split(getenv("ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	return cfg, nil
}

func intFromEnv(getenv func(string) string, key string, def int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

// durationFromEnv accepts Go durations ("15s") or a bare number of seconds.
func durationFromEnv(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		raw = strconv.Itoa(secs) + "s"
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}
