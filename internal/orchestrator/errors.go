package orchestrator

import "errors"

var (
	ErrNoSource         = errors.New("sync request has neither a source path nor data")
	ErrNoDestination    = errors.New("sync request has no destination")
	ErrEmptyCommand     = errors.New("exec request has no command")
	ErrChecksumMismatch = errors.New("daemon reported a different checksum")
	ErrNoSuchSession    = errors.New("no session matches")
)
