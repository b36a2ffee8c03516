package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenPort      string        // ex: ":3000"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Attribution
	SessionTTL             time.Duration // how long a click stays matchable (default: 24h)
	SweepInterval          time.Duration // expired pending sweep period (0 = disabled)
	FallbackDelay          time.Duration // redirect page delay before the fallback URL
	AllowCustomFingerprint bool          // honour customFingerprint on check-deferred-link
	DebugRoutes            bool          // expose /debug/links and /debug/clear-data

	// Seed links
	SeedFile           string        // path to a links.yaml file (optional, empty = no seed)
	SeedReloadInterval time.Duration // interval to reload the seed file (default: 1h)

	// Rate limit on deferred lookups and link creation
	RateLimitBurst  int
	RateLimitPerMin int

	// Redis (optional link mirror, empty address = disabled)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict admin routes to specific Host headers
	AllowedCIDRS []string // optional, restrict admin and debug routes to specific IPs (e.g. "1.2.3.4, 10.0.0.0/8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	// A missing .env is fine; real environment variables always win.
	_ = godotenv.Load()

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("DEFERLINK_LISTEN_PORT", ":3000"),
		ShutdownTimeout: mustDuration("DEFERLINK_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("DEFERLINK_LOG_LEVEL", "info"),
		PrettyLog: mustBool("DEFERLINK_PRETTY_LOG", true),

		// Attribution
		SessionTTL:             mustDuration("DEFERLINK_SESSION_TTL", 24*time.Hour),
		SweepInterval:          mustDuration("DEFERLINK_SWEEP_INTERVAL", 10*time.Minute),
		FallbackDelay:          mustDuration("DEFERLINK_FALLBACK_DELAY", 3*time.Second),
		AllowCustomFingerprint: mustBool("DEFERLINK_ALLOW_CUSTOM_FINGERPRINT", true),
		DebugRoutes:            mustBool("DEFERLINK_DEBUG_ROUTES", true),

		// Seed file
		SeedFile:           getenv("DEFERLINK_SEED_FILE", ""),
		SeedReloadInterval: mustDuration("DEFERLINK_SEED_RELOAD_INTERVAL", time.Hour),

		RateLimitBurst:  getenvInt("DEFERLINK_RATE_LIMIT_BURST", 30),
		RateLimitPerMin: getenvInt("DEFERLINK_RATE_LIMIT_PER_MIN", 60),

		// Redis settings
		RedisAddr:             getenv("DEFERLINK_REDIS_ADDR", ""),
		RedisUser:             getenv("DEFERLINK_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("DEFERLINK_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("DEFERLINK_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("DEFERLINK_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("DEFERLINK_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("DEFERLINK_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("DEFERLINK_TRUST_PROXY", true),
	}

	cfg.validate()

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// RedisEnabled reports whether the link mirror is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// validate panics on values the service cannot run with.
func (c *Config) validate() {
	if c.SessionTTL <= 0 {
		panic(fmt.Sprintf("❌ FATAL: DEFERLINK_SESSION_TTL must be > 0, got %v", c.SessionTTL))
	}
	if c.SweepInterval < 0 {
		panic(fmt.Sprintf("❌ FATAL: DEFERLINK_SWEEP_INTERVAL must be >= 0, got %v", c.SweepInterval))
	}
	if c.FallbackDelay < 0 {
		panic(fmt.Sprintf("❌ FATAL: DEFERLINK_FALLBACK_DELAY must be >= 0, got %v", c.FallbackDelay))
	}
	if c.RateLimitBurst <= 0 || c.RateLimitPerMin <= 0 {
		panic(fmt.Sprintf("❌ FATAL: rate limit must be > 0, got burst=%d per_min=%d", c.RateLimitBurst, c.RateLimitPerMin))
	}
	if c.SeedFile != "" && c.SeedReloadInterval <= 0 {
		panic(fmt.Sprintf("❌ FATAL: DEFERLINK_SEED_RELOAD_INTERVAL must be > 0, got %v", c.SeedReloadInterval))
	}
	// Validate Redis password configuration
	if c.RedisEnabled() && c.RedisPasswordRequired && c.RedisPassword == "" {
		panic("❌ FATAL: DEFERLINK_REDIS_PASSWORD is required when DEFERLINK_REDIS_PASSWORD_REQUIRED=true")
	}
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: %s must be an integer, got %q", key, v))
	}
	return i
}

// mustBool panics on a value ParseBool rejects: a typo must not leave a
// switch such as DEFERLINK_ALLOW_CUSTOM_FINGERPRINT at its default.
func mustBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: %s must be a boolean, got %q", key, v))
	}
	return b
}

func mustDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: %s must be a duration, got %q", key, v))
	}
	return d
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
