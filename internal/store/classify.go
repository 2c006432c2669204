package store

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// ErrorClassification says whether a failed history or watch write may be
// attempted again.
type ErrorClassification int

const (
	// Permanent failures come back to the caller unchanged: bad rows, schema
	// drift, a cancelled caller.
	Permanent ErrorClassification = iota

	// Transient failures left nothing behind and can clear on their own,
	// e.g. a dropped connection or a busy SQLite file.
	Transient
)

func (c ErrorClassification) String() string {
	if c == Transient {
		return "transient"
	}
	return "permanent"
}

// PostgresErrorClassifier treats lost connections, rolled back transactions
// and a server that is starting, restarting or out of connection slots as
// transient. A query cancelled on the caller's behalf is permanent.
type PostgresErrorClassifier struct{}

func NewPostgresErrorClassifier() *PostgresErrorClassifier {
	return &PostgresErrorClassifier{}
}

func (c *PostgresErrorClassifier) Classify(err error) ErrorClassification {
	if callerGone(err) {
		return Permanent
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return Permanent
	}

	switch code := pgErr.Code; {
	case code == pgerrcode.QueryCanceled:
		return Permanent
	case pgerrcode.IsConnectionException(code),
		pgerrcode.IsTransactionRollback(code),
		pgerrcode.IsOperatorIntervention(code),
		code == pgerrcode.TooManyConnections:
		return Transient
	}
	return Permanent
}

// SQLiteErrorClassifier treats a busy or locked database file as transient.
type SQLiteErrorClassifier struct{}

func NewSQLiteErrorClassifier() *SQLiteErrorClassifier {
	return &SQLiteErrorClassifier{}
}

func (c *SQLiteErrorClassifier) Classify(err error) ErrorClassification {
	if callerGone(err) {
		return Permanent
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return Transient
		}
	}
	return Permanent
}

func callerGone(err error) bool {
	return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
