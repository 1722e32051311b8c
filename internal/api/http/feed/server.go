package feed

import (
	"encoding/json"
	"net/http"

	"github.com/oshokin/noise-monitor/internal/logger"
)

// Route paths.
const (
	MetricsPath = "/metrics"
	StatusPath  = "/status"
	FeedPath    = "/ws"
)

// NewHandler routes the metrics handler and the hub endpoints.
func NewHandler(metrics http.Handler, hub *Hub) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET "+MetricsPath, metrics)
	mux.Handle("GET "+FeedPath, hub)
	mux.HandleFunc("GET "+StatusPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := json.NewEncoder(w).Encode(hub.Last()); err != nil {
			logger.WarnKV(r.Context(), "Write status response failed", "error", err)
		}
	})

	return mux
}
