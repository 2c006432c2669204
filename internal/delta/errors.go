package delta

import "errors"

var (
	// ErrOutOfRange is returned by Apply when a copy operation references
	// bytes outside the base. It means the peer is corrupt or signed a
	// different base, and is never clamped.
	ErrOutOfRange = errors.New("delta: copy references bytes outside the base")

	// ErrBlockSizeMismatch is returned when a signature's block size does not
	// match the block size agreed for the transaction.
	ErrBlockSizeMismatch = errors.New("delta: block size mismatch")

	// ErrInvalidBlockSize is returned for non-positive block sizes.
	ErrInvalidBlockSize = errors.New("delta: invalid block size")

	// ErrMalformedDelta is returned by Unmarshal for truncated or unknown
	// encodings.
	ErrMalformedDelta = errors.New("delta: malformed encoding")

	// ErrUnknownCompression is returned for an unrecognised compression tag
	// or name.
	ErrUnknownCompression = errors.New("delta: unknown compression")

	// ErrSizeMismatch is returned when decompressed data does not have the
	// announced size.
	ErrSizeMismatch = errors.New("delta: decompressed size mismatch")
)
