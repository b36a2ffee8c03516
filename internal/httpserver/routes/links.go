package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/deferlink/internal/httpserver/deps"
	"github.com/MrSnakeDoc/deferlink/internal/httpserver/handlers"
)

func init() { Register(registerLinks) }

func registerLinks(r chi.Router, d deps.Deps) {
	r.Get("/", handlers.Root(d))
	r.Post("/create-link", handlers.CreateLink(d))
	r.Get("/link/{linkId}", handlers.Redirect(d))
	r.Get("/analytics/{linkId}", handlers.Analytics(d))
}
