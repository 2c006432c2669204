package service

import (
	"context"

	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/store"
	"github.com/tobert/halfremembered-launcher/models"
)

type watchService struct {
	watchRepository store.WatchRepository

	logger *logger.Logger
}

// NewWatchService returns a WatchService over repo. A nil repo yields a
// service that reports ErrStorageDisabled.
func NewWatchService(repo store.WatchRepository, logger *logger.Logger) WatchService {
	return &watchService{
		watchRepository: repo,
		logger:          logger,
	}
}

func (w *watchService) ListWatches(ctx context.Context) ([]models.Watch, error) {
	if w.watchRepository == nil {
		return nil, ErrStorageDisabled
	}
	return w.watchRepository.ListWatches(ctx)
}
