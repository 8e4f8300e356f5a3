package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Load reads the .env file specified by PRACTICEDESK_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("PRACTICEDESK_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// StoreDriver selects the persistence adapter.
// Defaults to "postgres". Valid values: postgres, memory
func StoreDriver() string {
	switch d := os.Getenv("STORE_DRIVER"); d {
	case DriverMemory:
		return d
	default:
		return DriverPostgres
	}
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// MultiTenancyEnabled is the tenant isolation feature flag.
// Defaults to true; only an explicit false value disables it.
func MultiTenancyEnabled() bool {
	v := os.Getenv("MULTI_TENANCY_ENABLED")
	if v == "" {
		return true
	}
	enabled, err := cast.ToBoolE(v)
	if err != nil {
		return true
	}
	return enabled
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// AuditPersist enables the persisted audit trail.
func AuditPersist() bool {
	return cast.ToBool(os.Getenv("AUDIT_PERSIST"))
}

func AuditBuffer() int {
	n, err := strconv.Atoi(os.Getenv("AUDIT_BUFFER"))
	if err != nil || n <= 0 {
		return 1024
	}
	return n
}

// AuthCacheTTL is how long a resolved API key is cached.
// Accepts a Go duration or a number of seconds. Defaults to 60s.
func AuthCacheTTL() time.Duration {
	return durationEnv("AUTH_CACHE_TTL", 60*time.Second)
}

// BookingExpiryInterval is how often stale pending bookings are expired.
func BookingExpiryInterval() time.Duration {
	return durationEnv("BOOKING_EXPIRY_INTERVAL", 5*time.Minute)
}

func durationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return def
		}
		return time.Duration(secs) * time.Second
	}
	d, err := cast.ToDurationE(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
