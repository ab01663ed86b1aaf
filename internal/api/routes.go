package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Bots
	mux.Handle("GET /darkbot/bots", chain(http.HandlerFunc(h.ListBots)))
	mux.Handle("POST /darkbot/create/{bot_type}", chain(http.HandlerFunc(h.CreateBot)))
	mux.Handle("POST /darkbot/upload", chain(http.HandlerFunc(h.CreateUpload)))

	// Results
	mux.Handle("GET /darkbot/tasks/{message_id}/results", chain(http.HandlerFunc(h.GetTaskResults)))
	mux.Handle("GET /darkbot/dlq/parked", chain(http.HandlerFunc(h.ListParked)))

	mux.HandleFunc("GET /healthz", h.Health)
}
