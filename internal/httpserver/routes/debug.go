package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/deferlink/internal/httpserver/deps"
	"github.com/MrSnakeDoc/deferlink/internal/httpserver/handlers"
)

func init() { Register(registerDebug, cidrOnly) }

func registerDebug(r chi.Router, d deps.Deps) {
	if !d.DebugRoutes {
		return
	}
	r.Get("/debug/links", handlers.DebugLinks(d))
	r.Post("/debug/clear-data", handlers.DebugClearData(d))
}
