package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/utils"
)

func (h *Handler) getServerVersion(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, h.info.GetBuildInfo(r.Context()), http.StatusOK)
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, h.fleet.Status(r.Context()), http.StatusOK)
}

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, h.fleet.Clients(r.Context()), http.StatusOK)
}

func (h *Handler) getClient(w http.ResponseWriter, r *http.Request) {
	client, err := h.fleet.Client(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, r, "*Handler.getClient", err)
		return
	}
	utils.WriteJSON(w, client, http.StatusOK)
}

func (h *Handler) listWatches(w http.ResponseWriter, r *http.Request) {
	watches, err := h.watches.ListWatches(r.Context())
	if err != nil {
		h.fail(w, r, "*Handler.listWatches", err)
		return
	}
	utils.WriteJSON(w, watches, http.StatusOK)
}

func (h *Handler) listSyncs(w http.ResponseWriter, r *http.Request) {
	var limit uint64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			h.fail(w, r, "*Handler.listSyncs", fmt.Errorf("%w: %q", ErrInvalidLimit, raw))
			return
		}
		limit = parsed
	}

	records, err := h.history.RecentSyncs(r.Context(), limit)
	if err != nil {
		h.fail(w, r, "*Handler.listSyncs", err)
		return
	}
	utils.WriteJSON(w, records, http.StatusOK)
}

// fail logs err and answers with the status it maps to. Server-side
// failures are reported without their cause.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, fn string, err error) {
	status := statusFromError(err)
	log := logger.FromRequest(r)

	message := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		log.Err(err).Str("func", fn).Msg("request failed")
		message = http.StatusText(status)
	} else {
		log.Debug().Err(err).Str("func", fn).Int("status", status).Msg("request rejected")
	}

	utils.WriteError(w, message, status)
}
