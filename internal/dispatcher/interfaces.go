package dispatcher

import (
	"context"

	"github.com/tobert/halfremembered-launcher/internal/orchestrator"
	"github.com/tobert/halfremembered-launcher/internal/registry"
	"github.com/tobert/halfremembered-launcher/internal/watch"
	"github.com/tobert/halfremembered-launcher/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/dispatcher_mock.go -package=mock -exclude_interfaces=Fleet

// Fleet runs operations across daemon sessions. *orchestrator.Orchestrator
// implements it.
type Fleet interface {
	Sync(ctx context.Context, req orchestrator.SyncRequest) (models.SyncReport, error)
	Exec(ctx context.Context, req orchestrator.ExecRequest) (models.ExecReport, error)
	Ping(ctx context.Context, sel registry.Selector) ([]models.PingOutcome, error)
	HandleWatchEvent(ctx context.Context, ev watch.Event) (models.SyncReport, error)
}

// WatchStore persists watch configurations.
type WatchStore interface {
	// AddWatch stores w, replacing any watch on the same path, and returns
	// it with ID and CreatedAt filled in.
	AddWatch(ctx context.Context, w models.Watch) (models.Watch, error)

	// RemoveWatch deletes the watch on path. It returns store.ErrNotFound
	// when there is none.
	RemoveWatch(ctx context.Context, path string) error

	ListWatches(ctx context.Context) ([]models.Watch, error)
}
