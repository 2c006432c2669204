package delta

import (
	"encoding/binary"
	"fmt"
)

// Marshal encodes d into the compact binary form carried by SyncData:
//
//	uvarint(block size)
//	0x01 uvarint(offset) uvarint(length)   for each copy
//	0x02 uvarint(length) bytes             for each literal
func Marshal(d Delta) []byte {
	out := make([]byte, 0, 16+d.LiteralBytes()+int64(len(d.Ops))*8)
	out = binary.AppendUvarint(out, uint64(d.BlockSize))

	for _, op := range d.Ops {
		out = append(out, byte(op.Kind))
		switch op.Kind {
		case OpCopy:
			out = binary.AppendUvarint(out, uint64(op.Offset))
			out = binary.AppendUvarint(out, uint64(op.Length))
		case OpLiteral:
			out = binary.AppendUvarint(out, uint64(len(op.Data)))
			out = append(out, op.Data...)
		}
	}

	return out
}

// EncodedSize returns len(Marshal(d)) without allocating the encoding.
func (d Delta) EncodedSize() int {
	n := uvarintLen(uint64(d.BlockSize))
	for _, op := range d.Ops {
		n++
		switch op.Kind {
		case OpCopy:
			n += uvarintLen(uint64(op.Offset)) + uvarintLen(uint64(op.Length))
		case OpLiteral:
			n += uvarintLen(uint64(len(op.Data))) + len(op.Data)
		}
	}
	return n
}

func uvarintLen(v uint64) int {
	var buf [binary.MaxVarintLen64]byte
	return binary.PutUvarint(buf[:], v)
}

// Unmarshal decodes the output of Marshal. Literal data aliases b.
func Unmarshal(b []byte) (Delta, error) {
	blockSize, n := binary.Uvarint(b)
	if n <= 0 {
		return Delta{}, fmt.Errorf("%w: block size", ErrMalformedDelta)
	}
	b = b[n:]

	d := Delta{BlockSize: int(blockSize)}
	for len(b) > 0 {
		kind := OpKind(b[0])
		b = b[1:]

		switch kind {
		case OpCopy:
			offset, n1 := binary.Uvarint(b)
			if n1 <= 0 {
				return Delta{}, fmt.Errorf("%w: copy offset", ErrMalformedDelta)
			}
			length, n2 := binary.Uvarint(b[n1:])
			if n2 <= 0 {
				return Delta{}, fmt.Errorf("%w: copy length", ErrMalformedDelta)
			}
			b = b[n1+n2:]
			d.Ops = append(d.Ops, CopyBlock(int64(offset), int64(length)))

		case OpLiteral:
			length, n1 := binary.Uvarint(b)
			if n1 <= 0 || uint64(len(b)-n1) < length {
				return Delta{}, fmt.Errorf("%w: literal", ErrMalformedDelta)
			}
			b = b[n1:]
			d.Ops = append(d.Ops, InsertLiteral(b[:length:length]))
			b = b[length:]

		default:
			return Delta{}, fmt.Errorf("%w: %s", ErrMalformedDelta, kind)
		}
	}

	return d, nil
}
