package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID, h.withLogging, withGZip)

	router.Get("/api/version", h.getServerVersion)
	router.Get("/api/status", h.getStatus)
	router.Get("/api/clients", h.listClients)
	router.Get("/api/clients/{sessionID}", h.getClient)
	router.Get("/api/watches", h.listWatches)
	router.Get("/api/syncs", h.listSyncs)

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}
