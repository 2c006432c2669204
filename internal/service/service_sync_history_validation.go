package service

import (
	"context"
	"fmt"

	"github.com/tobert/halfremembered-launcher/models"
)

// MaxHistoryLimit is the largest page of sync history a caller may ask for.
const MaxHistoryLimit = 500

type SyncHistoryValidationService struct {
	inner SyncHistoryService
}

func NewSyncHistoryValidationService() SyncHistoryServiceWrapper {
	return &SyncHistoryValidationService{}
}

func (v *SyncHistoryValidationService) Wrap(inner SyncHistoryService) SyncHistoryService {
	v.inner = inner
	return v
}

func (v *SyncHistoryValidationService) RecentSyncs(ctx context.Context, limit uint64) ([]models.SyncRecord, error) {
	if limit > MaxHistoryLimit {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrInvalidHistoryLimit, limit, MaxHistoryLimit)
	}
	return v.inner.RecentSyncs(ctx, limit)
}
