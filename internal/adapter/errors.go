package adapter

import "errors"

var (
	ErrBadRequest          = errors.New("bad request")
	ErrNotFound            = errors.New("not found")
	ErrStorageDisabled     = errors.New("server has no storage configured")
	ErrInternalServerError = errors.New("internal server error")
	ErrUnavailable         = errors.New("status API unavailable")
)
