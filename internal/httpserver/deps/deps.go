package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/deferlink/internal/attribution"
	"github.com/MrSnakeDoc/deferlink/internal/logger"
)

// SeedStatus reports the outcome of the last seed reload.
type SeedStatus interface {
	LastError() string
}

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	TimeNow   func() time.Time // for testing, defaults to time.Now

	Engine        *attribution.Engine // link registry, pending store and analytics
	FallbackDelay time.Duration       // redirect page delay before the fallback URL
	DebugRoutes   bool                // expose /debug/*

	RateLimitBurst  int // per-IP burst on create-link and check-deferred-link
	RateLimitPerMin int // per-IP refill rate

	AllowedHosts []string // Host headers allowed on admin routes
	AllowedCIDRS []string // IPs allowed on admin and debug routes
	TrustProxy   bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)

	RedisClient   *redis.Client // nil when the mirror is disabled
	SeedFile      string        // empty when no seed file is configured
	Seed          SeedStatus    // nil when no seed file is configured
	ReloadTrigger chan struct{} // manual seed reload, nil when no seed file is configured
}

// Now returns TimeNow() or time.Now().
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
