package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/deferlink/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
	Commit        string  `json:"commit,omitempty"`
	BuildDate     string  `json:"build_date,omitempty"`
	GoVersion     string  `json:"go_version,omitempty"`
}

func Healthz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthzResponse{
			Status:        "ok",
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
			UptimeSeconds: d.Now().Sub(d.StartTime).Seconds(),
		})
	}
}

type readyzResponse struct {
	Ready bool `json:"ready"`
}

// Readyz is ready as soon as the engine is wired. Redis is a mirror and never
// gates traffic.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Engine == nil {
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Ready: false})
			return
		}
		writeJSON(w, http.StatusOK, readyzResponse{Ready: true})
	}
}

type componentStatus struct {
	OK          bool   `json:"ok"`
	LinksLoaded *int   `json:"links_loaded,omitempty"`
	Pending     *int   `json:"pending,omitempty"`
	LastReload  string `json:"last_reload,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Impact      string `json:"impact,omitempty"`
	Error       string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	SessionTTL string                     `json:"session_ttl"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports every component the service depends on.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := d.Engine.Stats()

		lastReload := "never"
		if !stats.LastReload.IsZero() {
			lastReload = stats.LastReload.UTC().Format(time.RFC3339)
		}

		components := map[string]componentStatus{
			"links": {
				OK:          true,
				LinksLoaded: &stats.Links,
				LastReload:  lastReload,
			},
			"pending": {
				OK:      true,
				Pending: &stats.Pending,
			},
			"redis": checkRedis(r.Context(), d),
			"seed":  checkSeed(d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			SessionTTL: d.Engine.SessionTTL().String(),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	for _, c := range components {
		if !c.OK {
			return "degraded"
		}
	}
	return "optimal"
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     true,
			Mode:   "disabled",
			Impact: "links-lost-on-restart",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "unreachable",
			Impact: "mirror-writes-failing",
			Error:  err.Error(),
		}
	}

	return componentStatus{
		OK:   true,
		Mode: "mirroring",
	}
}

func checkSeed(d deps.Deps) componentStatus {
	if d.Seed == nil {
		return componentStatus{OK: true, Mode: "disabled"}
	}
	if msg := d.Seed.LastError(); msg != "" {
		return componentStatus{
			OK:     false,
			Mode:   d.SeedFile,
			Impact: "previous-links-kept",
			Error:  msg,
		}
	}
	return componentStatus{OK: true, Mode: d.SeedFile}
}
