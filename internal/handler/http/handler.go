package http

import (
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/service"
)

// Handler answers the status API. Every route reads through one of the
// services below; none of them changes server state.
type Handler struct {
	info    service.AppInfoService
	fleet   service.FleetService
	watches service.WatchService
	history service.SyncHistoryService

	logger *logger.Logger
}

// NewHandler picks the services the routes read out of services. All four
// are required: a server without a database still passes watch and history
// services, which answer ErrStorageDisabled.
func NewHandler(services *service.Services, log *logger.Logger) (*Handler, error) {
	if services == nil || services.AppInfoService == nil || services.FleetService == nil ||
		services.WatchService == nil || services.SyncHistoryService == nil {
		return nil, ErrMissingService
	}

	log.Info().Msg("status API handler created")
	return &Handler{
		info:    services.AppInfoService,
		fleet:   services.FleetService,
		watches: services.WatchService,
		history: services.SyncHistoryService,
		logger:  log,
	}, nil
}
