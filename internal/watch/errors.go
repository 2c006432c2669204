package watch

import "errors"

var (
	ErrBadPattern  = errors.New("invalid glob pattern")
	ErrOutsideRoot = errors.New("path is outside the watched directory")
	ErrEmptyPath   = errors.New("watch path is empty")
)
