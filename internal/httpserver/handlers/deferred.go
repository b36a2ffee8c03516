package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/deferlink/internal/attribution"
	"github.com/MrSnakeDoc/deferlink/internal/httpserver/deps"
	"github.com/MrSnakeDoc/deferlink/internal/utils"
)

type checkDeferredRequest struct {
	CustomFingerprint string `json:"customFingerprint,omitempty"`
}

type fingerprintResponse struct {
	Fingerprint string `json:"fingerprint"`
}

func requestContext(r *http.Request, d deps.Deps) attribution.RequestContext {
	return attribution.RequestContext{
		UserAgent: r.UserAgent(),
		ClientIP:  utils.FingerprintIP(r, d.TrustProxy),
	}
}

// CheckDeferredLink answers the app's first-open question.
func CheckDeferredLink(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkDeferredRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		res := d.Engine.ResolveDeferredAttribution(r.Context(), requestContext(r, d), req.CustomFingerprint)
		writeJSON(w, http.StatusOK, res)
	}
}

// Fingerprint returns the caller's device fingerprint.
func Fingerprint(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, fingerprintResponse{
			Fingerprint: d.Engine.Fingerprint(requestContext(r, d)),
		})
	}
}
