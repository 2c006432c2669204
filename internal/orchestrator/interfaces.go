package orchestrator

import (
	"context"

	"github.com/tobert/halfremembered-launcher/internal/registry"
	"github.com/tobert/halfremembered-launcher/internal/session"
	"github.com/tobert/halfremembered-launcher/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/orchestrator_mock.go -package=mock

// Targets resolves a selector to live sessions. *registry.Registry
// implements it.
type Targets interface {
	Select(sel registry.Selector) (targets []*session.Session, missing []string, err error)
}

// HistoryRecorder persists the outcome of every sync fan-out.
type HistoryRecorder interface {
	RecordSync(ctx context.Context, report models.SyncReport) error
}
