package service

import (
	"context"

	"github.com/tobert/halfremembered-launcher/models"
)

type AppInfoService interface {
	GetAppVersion(ctx context.Context) string
	GetBuildInfo(ctx context.Context) models.BuildInfo
}

// FleetService reports the server and its registered daemon sessions.
type FleetService interface {
	Status(ctx context.Context) models.ServerStatus
	Clients(ctx context.Context) []models.ClientInfo
	Client(ctx context.Context, sessionID string) (models.ClientInfo, error)
}

type WatchService interface {
	ListWatches(ctx context.Context) ([]models.Watch, error)
}

// SyncHistoryService reads the persisted per-target sync outcomes, newest
// first. A zero limit selects the store's default page size.
type SyncHistoryService interface {
	RecentSyncs(ctx context.Context, limit uint64) ([]models.SyncRecord, error)
}

// SyncHistoryServiceWrapper decorates a SyncHistoryService with additional
// behavior such as validation.
type SyncHistoryServiceWrapper interface {
	Wrap(SyncHistoryService) SyncHistoryService
}
