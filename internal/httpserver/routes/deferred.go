package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/deferlink/internal/httpserver/deps"
	"github.com/MrSnakeDoc/deferlink/internal/httpserver/handlers"
)

func init() {
	// A caller-supplied fingerprint can claim any device's pending click,
	// so guessing must stay slow.
	Register(registerDeferredLookup, rateLimited)
	Register(registerFingerprint)
}

func registerDeferredLookup(r chi.Router, d deps.Deps) {
	r.Post("/check-deferred-link", handlers.CheckDeferredLink(d))
}

func registerFingerprint(r chi.Router, d deps.Deps) {
	r.Get("/get-fingerprint", handlers.Fingerprint(d))
}
