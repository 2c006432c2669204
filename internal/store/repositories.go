package store

import "github.com/tobert/halfremembered-launcher/internal/logger"

// Repositories groups the repositories backed by one database.
type Repositories struct {
	Watches     WatchRepository
	SyncHistory SyncHistoryRepository
}

func NewRepositories(db *DB, log *logger.Logger) *Repositories {
	return &Repositories{
		Watches:     NewWatchRepository(db, log),
		SyncHistory: NewSyncHistoryRepository(db, log),
	}
}
