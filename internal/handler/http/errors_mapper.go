package http

import (
	"errors"
	"net/http"

	"github.com/tobert/halfremembered-launcher/internal/registry"
	"github.com/tobert/halfremembered-launcher/internal/service"
	"github.com/tobert/halfremembered-launcher/internal/store"
)

var errorStatusMap = map[error]int{
	ErrInvalidLimit:                http.StatusBadRequest,
	service.ErrInvalidHistoryLimit: http.StatusBadRequest,
	service.ErrStorageDisabled:     http.StatusNotImplemented,
	registry.ErrSessionNotFound:    http.StatusNotFound,
	store.ErrNotFound:              http.StatusNotFound,

	store.ErrBuildingSQLQuery: http.StatusInternalServerError,
	store.ErrExecutingQuery:   http.StatusInternalServerError,
	store.ErrScanningRow:      http.StatusInternalServerError,
	store.ErrScanningRows:     http.StatusInternalServerError,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}
