package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrNotFound is returned when a query or delete targets a watch that
	// does not exist.
	ErrNotFound = errors.New("watch not found")

	// ErrUnsupportedDSN is returned by [Open] for a DSN naming neither a
	// PostgreSQL URL nor a SQLite file.
	ErrUnsupportedDSN = errors.New("unsupported database DSN")
)

// Outcomes of a failed RecordSync. Each wraps the underlying database error.
var (
	// ErrHistoryUnavailable means the database failed transiently on both
	// attempts; the report was not stored.
	ErrHistoryUnavailable = errors.New("sync history store unavailable")

	// ErrHistoryRejected means the database refused the rows; retrying the
	// same report will not help.
	ErrHistoryRejected = errors.New("sync history rows rejected")

	// ErrHistoryCommitUncertain means the commit failed, so the rows may or
	// may not be stored. It is not retried to avoid duplicate rows.
	ErrHistoryCommitUncertain = errors.New("sync history commit outcome unknown")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT against the
	// database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	ErrBeginningTransaction = errors.New("failed to begin transaction")
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when executing an INSERT, UPDATE or
	// DELETE fails.
	ErrExecutingStatement = errors.New("failed to execute statement")

	ErrScanningRow  = errors.New("failed to scan row")
	ErrScanningRows = errors.New("failed to iterate rows")

	// ErrEncodingColumn is returned when a list column cannot be encoded to
	// or decoded from its stored JSON form.
	ErrEncodingColumn = errors.New("failed to encode column")
)
