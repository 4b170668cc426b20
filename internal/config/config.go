// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries everything the server reads from the environment. Load it
// once in main and pass the pieces down; nothing else touches os.Getenv.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// DatabaseURL is the Postgres connection string.
	DatabaseURL string

	// StreamAPIKey / StreamAPISecret authenticate against the hosted
	// chat/video platform. Both must be set; token issuance is a startup
	// precondition, not a per-request recoverable.
	StreamAPIKey    string
	StreamAPISecret string

	// RedisAddr enables the friendship event queue when nonempty.
	RedisAddr  string
	RedisDB    int
	EventQueue string

	// TokenTTL is the session token lifetime. Zero means never expire.
	TokenTTL time.Duration

	// ChatTokenTTL bounds the lifetime of chat platform tokens. It is
	// independent of the session lifetime; zero defers to the platform
	// default.
	ChatTokenTTL time.Duration

	// PrivateKeyPath / PublicKeyPath point at ed25519 key files. When empty
	// a fresh pair is generated at startup.
	PrivateKeyPath string
	PublicKeyPath  string
}

// Load reads the environment and applies defaults.
func Load() Config {
	return Config{
		Addr:            ":" + getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StreamAPIKey:    os.Getenv("STREAM_API_KEY"),
		StreamAPISecret: os.Getenv("STREAM_API_SECRET"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		EventQueue:      getEnv("EVENT_QUEUE_NAME", "peerlingo_events"),
		TokenTTL:        getEnvDuration("TOKEN_EXPIRE_TIME", 7*24*time.Hour),
		ChatTokenTTL:    getEnvDuration("CHAT_TOKEN_EXPIRE_TIME", 0),
		PrivateKeyPath:  os.Getenv("JWT_PRIVATE_KEY_PATH"),
		PublicKeyPath:   os.Getenv("JWT_PUBLIC_KEY_PATH"),
	}
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// getEnvDuration parses a duration env var. "never" and "0" disable expiry.
func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	switch s {
	case "":
		return def
	case "never", "0":
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
