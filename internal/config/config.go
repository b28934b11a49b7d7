package config

import (
	"os"
	"strconv"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	// DBReset opts in to dropping and recreating the drinks table at
	// startup. Destructive; never the default.
	DBReset bool

	AuthMode          string
	OIDCIssuerURL     string
	OIDCAudience      string
	OIDCJWKSURL       string
	OIDCClockSkewSecs int

	PolicyBundlePath string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:               addr,
		PostgresDSN:            os.Getenv("POSTGRES_DSN"),
		LogLevel:               envDefault("LOG_LEVEL", "info"),
		DBReset:                envBoolDefault("DB_RESET", false),
		AuthMode:               os.Getenv("AUTH_MODE"),
		OIDCIssuerURL:          os.Getenv("OIDC_ISSUER_URL"),
		OIDCAudience:           os.Getenv("OIDC_AUDIENCE"),
		OIDCJWKSURL:            os.Getenv("OIDC_JWKS_URL"),
		OIDCClockSkewSecs:      envIntDefault("OIDC_CLOCK_SKEW_SECONDS", 60),
		PolicyBundlePath:       os.Getenv("POLICY_BUNDLE_PATH"),
		RateLimitRequests:      envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds: envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitMaxKeys:       envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                envIntDefault("REDIS_DB", 0),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}
