package delta

const (
	// DefaultBlockSize is the block size used for files under 100 MB.
	DefaultBlockSize = 4 << 10

	// MinBlockSize and MaxBlockSize bound operator overrides.
	MinBlockSize = 512
	MaxBlockSize = 1 << 20
)

// ChooseBlockSize picks the signature block size for a file of the given
// length. Larger files use larger blocks to keep signatures small.
func ChooseBlockSize(size int64) int {
	switch {
	case size < 100<<20:
		return DefaultBlockSize
	case size < 500<<20:
		return 8 << 10
	default:
		return 16 << 10
	}
}

// ValidBlockSize reports whether n is usable as a block size.
func ValidBlockSize(n int) bool {
	return n >= MinBlockSize && n <= MaxBlockSize
}
