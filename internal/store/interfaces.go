package store

import (
	"context"

	"github.com/tobert/halfremembered-launcher/models"
)

// WatchRepository persists directory-watch configurations. It satisfies
// the dispatcher's WatchStore.
type WatchRepository interface {
	AddWatch(ctx context.Context, w models.Watch) (models.Watch, error)
	RemoveWatch(ctx context.Context, path string) error
	ListWatches(ctx context.Context) ([]models.Watch, error)
}

// SyncHistoryRepository keeps one row per target of every sync fan-out. It
// satisfies the orchestrator's HistoryRecorder.
type SyncHistoryRepository interface {
	RecordSync(ctx context.Context, report models.SyncReport) error
	RecentSyncs(ctx context.Context, limit uint64) ([]models.SyncRecord, error)
}

// ErrorClassificator decides whether a failed database operation may be
// retried.
type ErrorClassificator interface {
	Classify(err error) ErrorClassification
}
