package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrEmptyPath        = errors.New("path is required")
	ErrRelativePath     = errors.New("watch path must be absolute")
	ErrEmptyCommand     = errors.New("command is required")
	ErrEmptyTarget      = errors.New("target is required")
	ErrBadPattern       = errors.New("invalid glob pattern")
	ErrBadDestination   = errors.New("destination must stay inside the working directory")
	ErrEmptyDestination = errors.New("destination is required when data is sent inline")
	ErrInvalidEnv       = errors.New("environment variable names must be non-empty and contain no '='")
	ErrInvalidScope     = errors.New("invalid shutdown scope")
)
