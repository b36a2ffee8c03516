package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/deferlink/internal/httpserver/deps"
	"github.com/MrSnakeDoc/deferlink/internal/logger"
	"github.com/MrSnakeDoc/deferlink/internal/utils"
)

type messageResponse struct {
	Message string `json:"message"`
}

func DebugLinks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Engine.ListLinks())
	}
}

func DebugClearData(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Logger.Warn("clear-data requested",
			logger.String("client_ip", utils.ClientIP(r, d.TrustProxy)))
		d.Engine.ClearAll(r.Context())
		writeJSON(w, http.StatusOK, messageResponse{Message: "All data cleared"})
	}
}
