package service

import (
	"fmt"

	"github.com/tobert/halfremembered-launcher/internal/clock"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/registry"
	"github.com/tobert/halfremembered-launcher/internal/store"
	"github.com/tobert/halfremembered-launcher/models"
)

type Services struct {
	AppInfoService     AppInfoService
	FleetService       FleetService
	WatchService       WatchService
	SyncHistoryService SyncHistoryService
}

// NewServices builds the status API services. repos may be nil when the
// server runs without a database.
func NewServices(hostname string, info models.AppBuildInfo, reg *registry.Registry, repos *store.Repositories, clk clock.Clock, logger *logger.Logger) (*Services, error) {
	appInfo, err := NewAppInfoService(info, logger)
	if err != nil {
		return nil, fmt.Errorf("creating app info service: %w", err)
	}

	fleet, err := NewFleetService(hostname, info.BuildVersion(), reg, clk, logger)
	if err != nil {
		return nil, fmt.Errorf("creating fleet service: %w", err)
	}

	var (
		watches store.WatchRepository
		history store.SyncHistoryRepository
	)
	if repos != nil {
		watches = repos.Watches
		history = repos.SyncHistory
	}

	return &Services{
		AppInfoService:     appInfo,
		FleetService:       fleet,
		WatchService:       NewWatchService(watches, logger),
		SyncHistoryService: NewSyncHistoryValidationService().Wrap(NewSyncHistoryService(history, logger)),
	}, nil
}
