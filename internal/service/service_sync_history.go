package service

import (
	"context"

	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/store"
	"github.com/tobert/halfremembered-launcher/models"
)

type syncHistoryService struct {
	historyRepository store.SyncHistoryRepository

	logger *logger.Logger
}

// NewSyncHistoryService returns a SyncHistoryService over repo. A nil repo
// yields a service that reports ErrStorageDisabled.
func NewSyncHistoryService(repo store.SyncHistoryRepository, logger *logger.Logger) SyncHistoryService {
	return &syncHistoryService{
		historyRepository: repo,
		logger:            logger,
	}
}

func (s *syncHistoryService) RecentSyncs(ctx context.Context, limit uint64) ([]models.SyncRecord, error) {
	if s.historyRepository == nil {
		return nil, ErrStorageDisabled
	}
	return s.historyRepository.RecentSyncs(ctx, limit)
}
