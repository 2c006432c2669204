package service

import "errors"

var (
	ErrVersionIsNotSpecified  = errors.New("app version is not specified")
	ErrHostnameIsNotSpecified = errors.New("server hostname is not specified")

	// ErrStorageDisabled is returned by the watch and history services when
	// the server runs without a database.
	ErrStorageDisabled = errors.New("storage is not configured")

	ErrInvalidHistoryLimit = errors.New("invalid sync history limit")
)
