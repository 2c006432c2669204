package delta

import "fmt"

// OpKind discriminates delta operations.
type OpKind uint8

const (
	// OpCopy copies Length bytes starting at Offset of the base.
	OpCopy OpKind = 1
	// OpLiteral inserts Data verbatim.
	OpLiteral OpKind = 2
)

func (k OpKind) String() string {
	switch k {
	case OpCopy:
		return "copy"
	case OpLiteral:
		return "literal"
	default:
		return fmt.Sprintf("op(%d)", uint8(k))
	}
}

// Op is one delta operation. Offset and Length are meaningful for OpCopy,
// Data for OpLiteral.
type Op struct {
	Kind   OpKind
	Offset int64
	Length int64
	Data   []byte
}

// CopyBlock returns a copy operation.
func CopyBlock(offset, length int64) Op {
	return Op{Kind: OpCopy, Offset: offset, Length: length}
}

// InsertLiteral returns a literal operation.
func InsertLiteral(data []byte) Op {
	return Op{Kind: OpLiteral, Length: int64(len(data)), Data: data}
}

// Delta is an ordered list of operations that rebuilds a target from the base
// it was computed against.
type Delta struct {
	BlockSize int
	Ops       []Op
}

// TargetSize returns the length of the content the delta reconstructs.
func (d Delta) TargetSize() int64 {
	var n int64
	for _, op := range d.Ops {
		n += op.Length
	}
	return n
}

// LiteralBytes returns the number of bytes carried verbatim.
func (d Delta) LiteralBytes() int64 {
	var n int64
	for _, op := range d.Ops {
		if op.Kind == OpLiteral {
			n += int64(len(op.Data))
		}
	}
	return n
}

// CopyOnly reports whether the delta reuses the base without any literal.
func (d Delta) CopyOnly() bool {
	for _, op := range d.Ops {
		if op.Kind != OpCopy {
			return false
		}
	}
	return true
}

func (d *Delta) copyBlock(offset, length int64) {
	if n := len(d.Ops); n > 0 {
		last := &d.Ops[n-1]
		if last.Kind == OpCopy && last.Offset+last.Length == offset {
			last.Length += length
			return
		}
	}
	d.Ops = append(d.Ops, CopyBlock(offset, length))
}

func (d *Delta) literal(data []byte) {
	if len(data) == 0 {
		return
	}
	d.Ops = append(d.Ops, InsertLiteral(data))
}

// Compute returns the delta that turns the base described by sig into
// target. Weak checksum hits are confirmed with the strong hash before a
// block is reused.
func Compute(sig Signature, target []byte) (Delta, error) {
	if err := sig.Validate(sig.BlockSize); err != nil {
		return Delta{}, err
	}

	d := Delta{BlockSize: sig.BlockSize}
	if len(sig.Blocks) == 0 {
		d.literal(target)
		return d, nil
	}

	m := newMatcher(sig)
	bs := sig.BlockSize
	pos, pending := 0, 0
	next := -1 // block expected to follow the last match

	var rs rollingSum
	fresh := true

	for pos+bs <= len(target) {
		window := target[pos : pos+bs]
		if fresh {
			rs = newRollingSum(window)
			fresh = false
		}

		if idx, ok := m.find(rs.sum(), window, next); ok {
			d.literal(target[pending:pos])
			d.copyBlock(int64(idx)*int64(bs), int64(bs))
			pos += bs
			pending = pos
			next = idx + 1
			fresh = true
			continue
		}

		if pos+bs < len(target) {
			rs.roll(target[pos], target[pos+bs])
		}
		pos++
	}

	// A short final base block can only line up with the end of the target.
	if tail := sig.tailLength(); tail < bs && len(target)-tail >= pending {
		candidate := target[len(target)-tail:]
		if m.matchesTail(candidate) {
			d.literal(target[pending : len(target)-tail])
			d.copyBlock(sig.Length-int64(tail), int64(tail))
			return d, nil
		}
	}

	d.literal(target[pending:])
	return d, nil
}

type matcher struct {
	sig   Signature
	index map[uint32][]int
}

func newMatcher(sig Signature) *matcher {
	m := &matcher{sig: sig, index: make(map[uint32][]int, len(sig.Blocks))}

	full := len(sig.Blocks)
	if sig.tailLength() < sig.BlockSize {
		full--
	}
	for i := 0; i < full; i++ {
		w := sig.Blocks[i].Weak
		m.index[w] = append(m.index[w], i)
	}

	return m
}

// find returns the index of a full block equal to window. When several
// blocks match, preferred wins so consecutive copies coalesce.
func (m *matcher) find(weak uint32, window []byte, preferred int) (int, bool) {
	candidates, ok := m.index[weak]
	if !ok {
		return 0, false
	}

	strong := hashBlock(window).Strong
	found := -1
	for _, idx := range candidates {
		if m.sig.Blocks[idx].Strong != strong {
			continue
		}
		if idx == preferred {
			return idx, true
		}
		if found < 0 {
			found = idx
		}
	}

	return found, found >= 0
}

func (m *matcher) matchesTail(candidate []byte) bool {
	if len(candidate) == 0 {
		return false
	}
	last := m.sig.Blocks[len(m.sig.Blocks)-1]
	h := hashBlock(candidate)
	return h.Weak == last.Weak && h.Strong == last.Strong
}
