package cmd

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration values for commands.
type Config struct {
	Port           int
	ProxyProtocol  bool
	MaxConnections int
	BufferSize     int

	Capture captureConfig
}

type captureConfig struct {
	Path     string
	KeyParam string

	RedisAddress  string
	RedisPassword string
	RedisPrefix   string
	RedisExpire   time.Duration
}

// GetConfigFromEnvironment creates a Config object based on the shell
// environment.
func GetConfigFromEnvironment() *Config {
	return &Config{
		Port:           int(envInt("PORT", 8080)),
		ProxyProtocol:  envBool("PROXY_PROTOCOL", false),
		MaxConnections: int(envInt("MAX_CONNECTIONS", 0)),
		BufferSize:     int(envInt("BUFFER_SIZE", 0)),

		Capture: captureConfig{
			Path:          env("CAPTURE_PATH", ""),
			KeyParam:      env("CAPTURE_KEY_PARAM", ""),
			RedisAddress:  env("CAPTURE_REDIS_ADDRESS", ""),
			RedisPassword: env("CAPTURE_REDIS_PASSWORD", ""),
			RedisPrefix:   env("CAPTURE_REDIS_PREFIX", "capture:"),
			RedisExpire:   time.Duration(envInt("CAPTURE_REDIS_EXPIRE", 0)) * time.Second,
		},
	}
}

func env(key string, def string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return def
}

func envInt(key string, def int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		i, _ := strconv.ParseInt(value, 10, 64)
		return i
	}

	return def
}

func envBool(key string, def bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		b, _ := strconv.ParseBool(value)
		return b
	}

	return def
}
