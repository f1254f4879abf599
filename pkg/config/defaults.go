// Package config provides centralized default values for LedgerCell
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Scheduling Configuration
	DebounceWindow   time.Duration
	DebounceCeiling  int
	ColumnBatchWidth int
	ColumnBatchMin   int
	RangeThreshold   int
	HeavyConcurrency int
	LightConcurrency int

	// Transition Guard
	GuardStaleness time.Duration

	// Remote Ledger Service
	RemoteBaseURL   string
	RemoteTimeout   time.Duration
	RemoteAuthToken string

	// Durable Cache
	CacheEpoch       int
	CacheBackend     string
	CacheSQLitePath  string
	CacheLibsqlURL   string
	CacheLibsqlToken string
	CacheRedisAddr   string

	// Workspaces
	MaxWorkspaces    int
	WorkspaceTimeout time.Duration

	// Auth
	JWTSecret string

	// Logging
	LogDirectory string
	LogVerbose   bool
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 120*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Scheduling
	DebounceWindow = getEnvDuration("DEBOUNCE_WINDOW", 25*time.Millisecond)
	DebounceCeiling = getEnvInt("DEBOUNCE_CEILING", 500)
	ColumnBatchWidth = getEnvInt("COLUMN_BATCH_WIDTH", 3)
	ColumnBatchMin = getEnvInt("COLUMN_BATCH_MIN", 3)
	RangeThreshold = getEnvInt("RANGE_THRESHOLD", 12)
	HeavyConcurrency = getEnvInt("HEAVY_CONCURRENCY", 4)
	LightConcurrency = getEnvInt("LIGHT_CONCURRENCY", 16)

	// Transition Guard
	GuardStaleness = getEnvDuration("GUARD_STALENESS", 30*time.Second)

	// Remote Ledger Service
	RemoteBaseURL = getEnvString("REMOTE_BASE_URL", "")
	RemoteTimeout = getEnvDuration("REMOTE_TIMEOUT", 90*time.Second)
	RemoteAuthToken = getEnvString("REMOTE_AUTH_TOKEN", "")

	// Durable Cache
	CacheEpoch = getEnvInt("CACHE_EPOCH", 1)
	CacheBackend = getEnvString("CACHE_BACKEND", "sqlite")
	CacheSQLitePath = getEnvString("CACHE_SQLITE_PATH", "data/balance-cache.db")
	CacheLibsqlURL = getEnvString("CACHE_LIBSQL_URL", "")
	CacheLibsqlToken = getEnvString("CACHE_LIBSQL_TOKEN", "")
	CacheRedisAddr = getEnvString("CACHE_REDIS_ADDR", "")

	// Workspaces
	MaxWorkspaces = getEnvInt("MAX_WORKSPACES", 25)
	WorkspaceTimeout = getEnvDuration("WORKSPACE_TIMEOUT", 4*time.Hour)

	// Auth
	JWTSecret = getEnvString("JWT_SECRET", "")

	// Logging
	LogDirectory = getEnvString("LOG_DIRECTORY", "logs")
	LogVerbose = getEnvString("LOG_VERBOSE", "false") == "true"
}
