package executor

import "errors"

var (
	ErrEmptyCommand = errors.New("empty command")
	ErrStartFailed  = errors.New("command failed to start")
)
