package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/deferlink/internal/httpserver/deps"
)

type rootResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Endpoints map[string]string `json:"endpoints"`
}

type routeNotFoundResponse struct {
	Error  string `json:"error"`
	Path   string `json:"path"`
	Method string `json:"method"`
}

// Root is the service banner listing the public endpoints.
func Root(d deps.Deps) http.HandlerFunc {
	endpoints := map[string]string{
		"POST /create-link":         "Create a new trackable link",
		"GET /link/:linkId":         "Handle link redirect",
		"POST /check-deferred-link": "Check for deferred deep link",
		"GET /analytics/:linkId":    "Get link analytics",
		"GET /get-fingerprint":      "Get device fingerprint",
	}
	if d.DebugRoutes {
		endpoints["GET /debug/links"] = "Debug: List all links"
		endpoints["POST /debug/clear-data"] = "Debug: Clear all data"
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rootResponse{
			Message:   "Deferred deep link service is running!",
			Version:   d.Version,
			Timestamp: d.Now().UTC().Format(time.RFC3339Nano),
			Endpoints: endpoints,
		})
	}
}

func NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, routeNotFoundResponse{
			Error:  "Route not found",
			Path:   r.URL.Path,
			Method: r.Method,
		})
	}
}

func MethodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, routeNotFoundResponse{
			Error:  "Method not allowed",
			Path:   r.URL.Path,
			Method: r.Method,
		})
	}
}
