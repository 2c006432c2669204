package registry

import "errors"

var (
	ErrNotDaemon        = errors.New("only daemon sessions can be registered")
	ErrDuplicateSession = errors.New("session id already registered")
	ErrSessionNotFound  = errors.New("session not found")
	ErrBadPattern       = errors.New("invalid hostname pattern")
	ErrNoTargets        = errors.New("no sessions match the selector")
)
