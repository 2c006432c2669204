package daemon

import "errors"

var (
	ErrChecksumMismatch    = errors.New("checksum mismatch after applying delta")
	ErrWelcomeTimeout      = errors.New("no welcome from server")
	ErrPathEscapes         = errors.New("path escapes the working directory")
	ErrShutdownRequested   = errors.New("server requested shutdown")
	ErrDeltaTooLarge       = errors.New("delta exceeds the announced file size")
	ErrRegistrationRefused = errors.New("server refused registration")
)
