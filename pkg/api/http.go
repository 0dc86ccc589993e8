// Package api wires the HTTP surface: the snapshot read API, the REST
// submit endpoint and the websocket upgrade.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"threadchat/pkg/httpmw"
	"threadchat/pkg/hub"
)

// Options configures the router.
type Options struct {
	// PopulateDepth bounds reply-tree expansion on snapshot reads.
	PopulateDepth int
	// RPS/Burst configure the per-IP rate limit on mutating requests;
	// RPS <= 0 disables limiting.
	RPS   float64
	Burst int
}

// NewRouter builds the API router around the given hub.
func NewRouter(h *hub.Hub, opts Options) http.Handler {
	r := mux.NewRouter()
	r.Use(httpmw.Logging)
	r.Use(httpmw.RateLimit(opts.RPS, opts.Burst))

	registerMessages(r, h, opts.PopulateDepth)

	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		hub.ServeWS(h, w, req)
	}).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	return r
}
