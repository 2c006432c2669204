package delta

import (
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// StrongSize is the length of a block's strong hash in bytes.
const StrongSize = 32

// BlockHash is the pair of checksums identifying one block of the base.
type BlockHash struct {
	_ struct{} `cbor:",toarray"`

	Weak   uint32
	Strong [StrongSize]byte
}

// Signature describes a base file block by block. An absent base is the
// zero-length signature with no blocks.
type Signature struct {
	BlockSize int         `json:"block_size"`
	Length    int64       `json:"length"`
	Blocks    []BlockHash `json:"blocks"`
}

// Empty reports whether the signature describes a zero-length base.
func (s Signature) Empty() bool {
	return s.Length == 0
}

// tailLength returns the length of the last block, which may be shorter than
// BlockSize.
func (s Signature) tailLength() int {
	if len(s.Blocks) == 0 {
		return 0
	}
	return int(s.Length - int64(len(s.Blocks)-1)*int64(s.BlockSize))
}

// Validate checks the signature's shape against the agreed block size.
func (s Signature) Validate(blockSize int) error {
	if s.BlockSize != blockSize {
		return fmt.Errorf("%w: signature uses %d, transaction uses %d", ErrBlockSizeMismatch, s.BlockSize, blockSize)
	}
	if blockSize <= 0 {
		return ErrInvalidBlockSize
	}

	want := (s.Length + int64(blockSize) - 1) / int64(blockSize)
	if s.Length < 0 || int64(len(s.Blocks)) != want {
		return fmt.Errorf("%w: %d blocks for %d bytes", ErrMalformedDelta, len(s.Blocks), s.Length)
	}

	return nil
}

// Sign reads base to EOF and returns its block signature.
func Sign(base io.Reader, blockSize int) (Signature, error) {
	if blockSize <= 0 {
		return Signature{}, ErrInvalidBlockSize
	}

	sig := Signature{BlockSize: blockSize}
	buf := make([]byte, blockSize)

	for {
		n, err := io.ReadFull(base, buf)
		if n > 0 {
			sig.Blocks = append(sig.Blocks, hashBlock(buf[:n]))
			sig.Length += int64(n)
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return sig, nil
		default:
			return Signature{}, fmt.Errorf("reading base: %w", err)
		}
	}
}

// SignBytes is Sign over an in-memory base.
func SignBytes(base []byte, blockSize int) Signature {
	sig := Signature{BlockSize: blockSize, Length: int64(len(base))}
	if blockSize <= 0 {
		return sig
	}

	for off := 0; off < len(base); off += blockSize {
		end := min(off+blockSize, len(base))
		sig.Blocks = append(sig.Blocks, hashBlock(base[off:end]))
	}

	return sig
}

func hashBlock(block []byte) BlockHash {
	return BlockHash{Weak: WeakSum(block), Strong: blake3.Sum256(block)}
}
