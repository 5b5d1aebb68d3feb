package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	LocalMemory = "memory"
	LocalRedis  = "redis"
	LocalSQLite = "sqlite"

	RemoteNone     = "none"
	RemoteHTTP     = "http"
	RemotePostgres = "postgres"
)

type AppConfig struct {
	LocalBackend   string
	RedisURL       string
	SQLitePath     string
	LocalNamespace string

	RemoteBackend string
	RemoteAPIURL  string
	RemoteAPIKey  string
	DatabaseURL   string
	AuthJWTSecret string
	AuthToken     string

	RemoteTimeout   time.Duration
	RemoteRetryMax  int
	AutosaveTimeout time.Duration

	MessagesDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		LocalBackend:    LocalMemory,
		SQLitePath:      "cuescore.db",
		RemoteBackend:   RemoteNone,
		RemoteTimeout:   10 * time.Second,
		RemoteRetryMax:  3,
		AutosaveTimeout: 5 * time.Second,
	}

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("LOCAL_BACKEND"))); v != "" {
		cfg.LocalBackend = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	if v := strings.TrimSpace(os.Getenv("SQLITE_PATH")); v != "" {
		cfg.SQLitePath = v
	}
	cfg.LocalNamespace = strings.TrimSpace(os.Getenv("LOCAL_NAMESPACE"))

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("REMOTE_BACKEND"))); v != "" {
		cfg.RemoteBackend = v
	}
	cfg.RemoteAPIURL = strings.TrimSpace(os.Getenv("REMOTE_API_URL"))
	cfg.RemoteAPIKey = strings.TrimSpace(os.Getenv("REMOTE_API_KEY"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.AuthJWTSecret = strings.TrimSpace(os.Getenv("AUTH_JWT_SECRET"))
	cfg.AuthToken = strings.TrimSpace(os.Getenv("AUTH_TOKEN"))

	if v := strings.TrimSpace(os.Getenv("REMOTE_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RemoteTimeout = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("REMOTE_RETRY_MAX")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RemoteRetryMax = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("AUTOSAVE_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AutosaveTimeout = time.Duration(n) * time.Second
		}
	}
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	switch cfg.LocalBackend {
	case LocalMemory, LocalSQLite:
	case LocalRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required")
		}
	default:
		return nil, fmt.Errorf("LOCAL_BACKEND %q is not supported", cfg.LocalBackend)
	}

	switch cfg.RemoteBackend {
	case RemoteNone:
	case RemoteHTTP:
		if cfg.RemoteAPIURL == "" {
			return nil, errors.New("REMOTE_API_URL is required")
		}
	case RemotePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required")
		}
		if cfg.AuthJWTSecret == "" {
			return nil, errors.New("AUTH_JWT_SECRET is required")
		}
	default:
		return nil, fmt.Errorf("REMOTE_BACKEND %q is not supported", cfg.RemoteBackend)
	}

	return cfg, nil
}
