package crypto

import "errors"

var (
	ErrNoAuthMethods   = errors.New("no ssh authentication method available")
	ErrUnauthorizedKey = errors.New("public key is not authorized")
	ErrEmptyKeyPath    = errors.New("key path is empty")
)
