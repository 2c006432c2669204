package dispatcher

import "errors"

var (
	ErrUnsupportedCommand = errors.New("unsupported command")
	ErrNoWatchStore       = errors.New("watch storage is not configured")
	ErrPanic              = errors.New("internal error while handling command")
)
