package store

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/models"
)

const watchesTable = "watches"

var watchColumns = []string{"id", "path", "recursive", "include", "exclude", "destination", "created_at"}

// watchRepository stores watch configurations in the "watches" table, one
// row per watched path.
type watchRepository struct {
	logger *logger.Logger
	db     *DB
}

func NewWatchRepository(db *DB, logger *logger.Logger) WatchRepository {
	logger.Debug().Msg("creating watch repository")
	return &watchRepository{
		db:     db,
		logger: logger,
	}
}

// AddWatch inserts w, replacing the parameters of an existing watch on the
// same path. The returned watch carries the stored ID and creation time.
func (r *watchRepository) AddWatch(ctx context.Context, w models.Watch) (models.Watch, error) {
	log := logger.FromContext(ctx)

	include, err := encodeList(w.Include)
	if err != nil {
		return models.Watch{}, err
	}
	exclude, err := encodeList(w.Exclude)
	if err != nil {
		return models.Watch{}, err
	}

	query, args, err := r.db.builder().
		Insert(watchesTable).
		Columns("path", "recursive", "include", "exclude", "destination").
		Values(w.Path, w.Recursive, include, exclude, w.Destination).
		Suffix(`ON CONFLICT (path) DO UPDATE SET
			recursive = excluded.recursive,
			include = excluded.include,
			exclude = excluded.exclude,
			destination = excluded.destination
			RETURNING id, created_at`).
		ToSql()
	if err != nil {
		log.Err(err).Str("func", "*watchRepository.AddWatch").Msg("error building query")
		return models.Watch{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if err = r.db.QueryRowContext(ctx, query, args...).Scan(&w.ID, &w.CreatedAt); err != nil {
		log.Err(err).Str("func", "*watchRepository.AddWatch").Str("path", w.Path).Msg("error saving watch")
		return models.Watch{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return w, nil
}

// RemoveWatch deletes the watch on path. It returns [ErrNotFound] when no
// such watch exists.
func (r *watchRepository) RemoveWatch(ctx context.Context, path string) error {
	log := logger.FromContext(ctx)

	query, args, err := r.db.builder().
		Delete(watchesTable).
		Where(sq.Eq{"path": path}).
		ToSql()
	if err != nil {
		log.Err(err).Str("func", "*watchRepository.RemoveWatch").Msg("error building query")
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*watchRepository.RemoveWatch").Str("path", path).Msg("error deleting watch")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListWatches returns every stored watch ordered by path.
func (r *watchRepository) ListWatches(ctx context.Context) ([]models.Watch, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.db.builder().
		Select(watchColumns...).
		From(watchesTable).
		OrderBy("path").
		ToSql()
	if err != nil {
		log.Err(err).Str("func", "*watchRepository.ListWatches").Msg("error building query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*watchRepository.ListWatches").Msg("error selecting watches")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	watches := make([]models.Watch, 0)
	for rows.Next() {
		var (
			w                models.Watch
			include, exclude string
		)
		if err = rows.Scan(&w.ID, &w.Path, &w.Recursive, &include, &exclude, &w.Destination, &w.CreatedAt); err != nil {
			log.Err(err).Str("func", "*watchRepository.ListWatches").Msg("error scanning watch")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		if w.Include, err = decodeList(include); err != nil {
			return nil, err
		}
		if w.Exclude, err = decodeList(exclude); err != nil {
			return nil, err
		}
		watches = append(watches, w)
	}
	if err = rows.Err(); err != nil {
		log.Err(err).Str("func", "*watchRepository.ListWatches").Msg("error iterating watches")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return watches, nil
}

// encodeList stores a pattern list as a JSON array. A nil list is "[]".
func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncodingColumn, err)
	}
	return string(raw), nil
}

func decodeList(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodingColumn, err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list, nil
}
