package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/models"
)

const syncHistoryTable = "sync_history"

// defaultHistoryLimit caps RecentSyncs when the caller passes zero.
const defaultHistoryLimit = 50

type syncHistoryRepository struct {
	logger *logger.Logger
	db     *DB
}

func NewSyncHistoryRepository(db *DB, logger *logger.Logger) SyncHistoryRepository {
	logger.Debug().Msg("creating sync history repository")
	return &syncHistoryRepository{
		db:     db,
		logger: logger,
	}
}

// RecordSync writes one row per outcome of report inside a single
// transaction. A transient failure before the commit is attempted once
// more. The result wraps ErrHistoryUnavailable, ErrHistoryRejected or
// ErrHistoryCommitUncertain.
func (r *syncHistoryRepository) RecordSync(ctx context.Context, report models.SyncReport) error {
	if len(report.Outcomes) == 0 {
		return nil
	}

	err := r.recordSync(ctx, report)
	if err != nil && r.retryable(err) {
		logger.FromContext(ctx).Warn().Err(err).Str("func", "*syncHistoryRepository.RecordSync").
			Str("request_id", report.RequestID).Msg("sync history write failed, retrying once")
		err = r.recordSync(ctx, report)
	}
	return r.historyError(err)
}

// retryable reports whether a failed write may run again. A failed commit
// may still have landed, so it never is.
func (r *syncHistoryRepository) retryable(err error) bool {
	return !errors.Is(err, ErrCommitingTransaction) && r.db.classify(err) == Transient
}

func (r *syncHistoryRepository) historyError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrCommitingTransaction):
		return fmt.Errorf("%w: %w", ErrHistoryCommitUncertain, err)
	case r.db.classify(err) == Transient:
		return fmt.Errorf("%w: %w", ErrHistoryUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", ErrHistoryRejected, err)
	}
}

func (r *syncHistoryRepository) recordSync(ctx context.Context, report models.SyncReport) error {
	log := logger.FromContext(ctx)

	insert := r.db.builder().
		Insert(syncHistoryTable).
		Columns("request_id", "path", "destination", "session_id", "hostname", "success",
			"bytes_transferred", "checksum", "error", "duration_ns")
	for _, o := range report.Outcomes {
		insert = insert.Values(report.RequestID, report.Path, report.Destination, o.SessionID, o.Hostname, o.Success,
			o.BytesTransferred, o.Checksum, o.Error, int64(o.Duration))
	}

	query, args, err := insert.ToSql()
	if err != nil {
		log.Err(err).Str("func", "*syncHistoryRepository.RecordSync").Msg("error building query")
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "*syncHistoryRepository.RecordSync").Msg("error beginning transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).Str("func", "*syncHistoryRepository.RecordSync").Str("request_id", report.RequestID).Msg("error inserting sync history")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if err = tx.Commit(); err != nil {
		log.Err(err).Str("func", "*syncHistoryRepository.RecordSync").Msg("error committing transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return nil
}

// RecentSyncs returns at most limit history rows, newest first.
func (r *syncHistoryRepository) RecentSyncs(ctx context.Context, limit uint64) ([]models.SyncRecord, error) {
	log := logger.FromContext(ctx)

	if limit == 0 {
		limit = defaultHistoryLimit
	}

	query, args, err := r.db.builder().
		Select("id", "request_id", "path", "destination", "session_id", "hostname", "success",
			"bytes_transferred", "checksum", "error", "duration_ns", "recorded_at").
		From(syncHistoryTable).
		OrderBy("recorded_at DESC", "id DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		log.Err(err).Str("func", "*syncHistoryRepository.RecentSyncs").Msg("error building query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*syncHistoryRepository.RecentSyncs").Msg("error selecting sync history")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	return scanSyncRecords(rows)
}

func scanSyncRecords(rows *sql.Rows) ([]models.SyncRecord, error) {
	records := make([]models.SyncRecord, 0)
	for rows.Next() {
		var (
			rec      models.SyncRecord
			duration int64
		)
		err := rows.Scan(&rec.ID, &rec.RequestID, &rec.Path, &rec.Destination, &rec.SessionID, &rec.Hostname,
			&rec.Success, &rec.BytesTransferred, &rec.Checksum, &rec.Error, &duration, &rec.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		rec.Duration = time.Duration(duration)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}
	return records, nil
}
