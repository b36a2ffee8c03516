package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/deferlink/internal/httpserver/deps"
	"github.com/MrSnakeDoc/deferlink/internal/logger"
	"github.com/MrSnakeDoc/deferlink/internal/utils"
)

// Reload queues a manual reload of the seed file. At most one reload waits in
// the queue; a second request while it is pending gets 429.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := utils.ClientIP(r, d.TrustProxy)

		if d.ReloadTrigger == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "No seed file configured"})
			return
		}

		select {
		case d.ReloadTrigger <- struct{}{}:
			d.Logger.Info("manual seed reload triggered via endpoint",
				logger.String("client_ip", clientIP))
			writeJSON(w, http.StatusAccepted, messageResponse{Message: "Reload triggered"})
		default:
			d.Logger.Warn("seed reload already queued",
				logger.String("client_ip", clientIP))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Reload already in progress, please wait"})
		}
	}
}
