package http

import "errors"

var (
	// ErrInvalidLimit is reported when the "limit" query parameter is not an
	// unsigned integer.
	ErrInvalidLimit = errors.New("invalid `limit` query parameter")

	// ErrMissingService is returned by NewHandler when a service a route
	// reads from is nil.
	ErrMissingService = errors.New("status API service is missing")
)
