package delta

// rollingSum is the rsync weak checksum over a fixed window: a is the sum of
// the bytes and b the sum of the running a values, both taken mod 2^16.
// Arithmetic wraps mod 2^32 and is masked on read, which is equivalent.
type rollingSum struct {
	a, b uint32
	n    uint32
}

func newRollingSum(window []byte) rollingSum {
	var r rollingSum
	r.n = uint32(len(window))
	for i, c := range window {
		r.a += uint32(c)
		r.b += uint32(len(window)-i) * uint32(c)
	}
	return r
}

// roll slides the window one byte: out leaves at the front, in enters at the
// back.
func (r *rollingSum) roll(out, in byte) {
	r.a = r.a - uint32(out) + uint32(in)
	r.b = r.b - r.n*uint32(out) + r.a
}

func (r rollingSum) sum() uint32 {
	return (r.b&0xffff)<<16 | r.a&0xffff
}

// WeakSum returns the rolling checksum of block.
func WeakSum(block []byte) uint32 {
	return newRollingSum(block).sum()
}
