package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/deferlink/internal/domain"
	"github.com/MrSnakeDoc/deferlink/internal/httpserver/deps"
	"github.com/MrSnakeDoc/deferlink/internal/logger"
	"github.com/MrSnakeDoc/deferlink/internal/page"
	"github.com/MrSnakeDoc/deferlink/internal/utils"
)

// CreateLink registers a link and answers with its trackable URL.
func CreateLink(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var spec domain.LinkSpec
		if err := decodeJSON(w, r, &spec); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		reg, err := d.Engine.RegisterLink(r.Context(), spec, utils.BaseURL(r))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, reg)
	}
}

// Redirect records the click and serves the app-open page.
func Redirect(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		linkID := chi.URLParam(r, "linkId")

		redirect, err := d.Engine.RecordClickAndRedirect(r.Context(), linkID, requestContext(r, d))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		body, err := page.RenderRedirect(redirect.AppURL, redirect.FallbackURL, d.FallbackDelay)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(body); err != nil {
			d.Logger.Debug("failed to write response", logger.Error(err))
		}
	}
}

// Analytics reports the counters of one link.
func Analytics(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := d.Engine.GetAnalytics(chi.URLParam(r, "linkId"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
