package delta

import (
	"bytes"
	"fmt"
	"io"
)

// Apply writes the content described by d to w, reading copied ranges from
// base. It returns the number of bytes written. A copy outside [0, baseLen)
// fails with ErrOutOfRange before anything for that op is written.
func Apply(base io.ReaderAt, baseLen int64, d Delta, w io.Writer) (int64, error) {
	var written int64

	for i, op := range d.Ops {
		switch op.Kind {
		case OpCopy:
			if op.Offset < 0 || op.Length < 0 || op.Offset > baseLen || op.Length > baseLen-op.Offset {
				return written, fmt.Errorf("%w: op %d copies [%d, %d) of %d bytes", ErrOutOfRange, i, op.Offset, op.Offset+op.Length, baseLen)
			}
			if op.Length > 0 && base == nil {
				return written, fmt.Errorf("%w: op %d copies from an absent base", ErrOutOfRange, i)
			}

			n, err := io.Copy(w, io.NewSectionReader(base, op.Offset, op.Length))
			written += n
			if err != nil {
				return written, fmt.Errorf("copying base range: %w", err)
			}
			if n != op.Length {
				return written, fmt.Errorf("%w: op %d short read %d of %d", ErrOutOfRange, i, n, op.Length)
			}

		case OpLiteral:
			n, err := w.Write(op.Data)
			written += int64(n)
			if err != nil {
				return written, fmt.Errorf("writing literal: %w", err)
			}

		default:
			return written, fmt.Errorf("%w: %s", ErrMalformedDelta, op.Kind)
		}
	}

	return written, nil
}

// ApplyBytes is Apply over an in-memory base. The output buffer is sized
// from the delta but never beyond the base plus the literal bytes it holds,
// since op lengths come off the wire.
func ApplyBytes(base []byte, d Delta) ([]byte, error) {
	var out bytes.Buffer
	if n := min(d.TargetSize(), int64(len(base))+d.LiteralBytes()); n > 0 {
		out.Grow(int(n))
	}

	if _, err := Apply(bytes.NewReader(base), int64(len(base)), d, &out); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}
