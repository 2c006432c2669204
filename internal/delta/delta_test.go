package delta

import (
	"bytes"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func randomBytes(r *rand.Rand, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(r.UintN(256))
	}
	return b
}

func roundTrip(t *testing.T, base, target []byte, blockSize int) Delta {
	t.Helper()

	sig := SignBytes(base, blockSize)
	d, err := Compute(sig, target)
	require.NoError(t, err)

	got, err := ApplyBytes(base, d)
	require.NoError(t, err)
	require.True(t, bytes.Equal(target, got), "reconstructed content differs from target")
	assert.Equal(t, int64(len(target)), d.TargetSize())

	return d
}

func numberedLines(n int, width int) []byte {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "line %04d %s\n", i, strings.Repeat("x", width))
	}
	return []byte(sb.String())
}

// ── round trip ───────────────────────────────────────────────────────────────

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	base := randomBytes(r, 50_000)

	mutated := append([]byte{}, base...)
	copy(mutated[10_000:], randomBytes(r, 300))
	mutated = append(mutated[:30_000], append(randomBytes(r, 777), mutated[30_000:]...)...)
	mutated = append(mutated[:5_000], mutated[9_000:]...)

	tests := []struct {
		name   string
		base   []byte
		target []byte
	}{
		{name: "empty base", base: nil, target: base},
		{name: "empty target", base: base, target: nil},
		{name: "both empty", base: nil, target: nil},
		{name: "identical", base: base, target: base},
		{name: "edited", base: base, target: mutated},
		{name: "unrelated", base: base, target: randomBytes(r, 12_345)},
		{name: "target shorter than a block", base: base, target: base[:100]},
		{name: "base shorter than a block", base: base[:100], target: base[:3_000]},
		{name: "appended", base: base, target: append(append([]byte{}, base...), 'z')},
	}

	for _, tt := range tests {
		for _, bs := range []int{MinBlockSize, 1024, DefaultBlockSize} {
			t.Run(fmt.Sprintf("%s/%d", tt.name, bs), func(t *testing.T) {
				roundTrip(t, tt.base, tt.target, bs)
			})
		}
	}
}

func TestCompute_EmptyBaseIsFullTransfer(t *testing.T) {
	target := []byte("brand new file\n")
	d := roundTrip(t, nil, target, DefaultBlockSize)

	want := []Op{InsertLiteral(target)}
	if diff := cmp.Diff(want, d.Ops); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_IdenticalIsCopyOnly(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))

	for _, size := range []int{1, 4095, 4096, 4097, 3*4096 + 17, 64 << 10} {
		t.Run(fmt.Sprint(size), func(t *testing.T) {
			base := randomBytes(r, size)
			d := roundTrip(t, base, base, DefaultBlockSize)

			require.True(t, d.CopyOnly())
			want := []Op{CopyBlock(0, int64(size))}
			if diff := cmp.Diff(want, d.Ops); diff != "" {
				t.Errorf("ops mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompute_InsertedLineIsSmallerThanTarget(t *testing.T) {
	base := numberedLines(2_000, 40)
	mid := bytes.Index(base, []byte("line 1000 "))
	require.Positive(t, mid)

	target := append(append(append([]byte{}, base[:mid]...), []byte("an inserted line\n")...), base[mid:]...)

	d := roundTrip(t, base, target, DefaultBlockSize)
	assert.Less(t, d.EncodedSize(), len(target))
	assert.Less(t, d.LiteralBytes(), int64(2*DefaultBlockSize))
}

// Five lines, lines 2-3 replaced and one appended, padded so the file spans
// several blocks.
func TestCompute_FiveLineScenario(t *testing.T) {
	pad := strings.Repeat("p", 3_000)
	base := []byte("one " + pad + "\ntwo " + pad + "\nthree " + pad + "\nfour " + pad + "\nfive " + pad + "\n")
	target := []byte("one " + pad + "\nTWO " + pad + "\nTHREE " + pad + "\nfour " + pad + "\nfive " + pad + "\nsix\n")

	d := roundTrip(t, base, target, 1024)
	assert.Less(t, d.EncodedSize(), len(target))
	assert.False(t, d.CopyOnly())
}

func TestCompute_RejectsMismatchedSignature(t *testing.T) {
	sig := SignBytes([]byte("hello"), 1024)
	sig.Blocks = append(sig.Blocks, BlockHash{})

	_, err := Compute(sig, []byte("hello"))
	assert.ErrorIs(t, err, ErrMalformedDelta)
}

// ── apply ────────────────────────────────────────────────────────────────────

func TestApply_OutOfRange(t *testing.T) {
	base := []byte("0123456789")

	tests := []struct {
		name string
		op   Op
	}{
		{name: "past end", op: CopyBlock(8, 4)},
		{name: "negative offset", op: CopyBlock(-1, 2)},
		{name: "offset beyond base", op: CopyBlock(11, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyBytes(base, Delta{Ops: []Op{tt.op}})
			assert.ErrorIs(t, err, ErrOutOfRange)
		})
	}
}

func TestApplyBytes_HugeOpLengthsDoNotPreallocate(t *testing.T) {
	base := []byte("0123456789")

	tests := []struct {
		name    string
		ops     []Op
		want    []byte
		wantErr error
	}{
		{
			name:    "copy length near max int64",
			ops:     []Op{CopyBlock(0, math.MaxInt64)},
			wantErr: ErrOutOfRange,
		},
		{
			name:    "lengths overflow to negative",
			ops:     []Op{CopyBlock(0, 4), CopyBlock(0, math.MaxInt64)},
			wantErr: ErrOutOfRange,
		},
		{
			name: "literal with a lying length",
			ops:  []Op{{Kind: OpLiteral, Length: math.MaxInt64, Data: []byte("ab")}, CopyBlock(0, 2)},
			want: []byte("ab01"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				got []byte
				err error
			)
			require.NotPanics(t, func() { got, err = ApplyBytes(base, Delta{Ops: tt.ops}) })
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply_CopyFromAbsentBase(t *testing.T) {
	_, err := Apply(nil, 0, Delta{Ops: []Op{CopyBlock(0, 1)}}, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

// ── signature ────────────────────────────────────────────────────────────────

func TestSign_MatchesSignBytes(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	base := randomBytes(r, 10_000)

	sig, err := Sign(bytes.NewReader(base), 1024)
	require.NoError(t, err)
	assert.Equal(t, SignBytes(base, 1024), sig)
	assert.Len(t, sig.Blocks, 10)
	assert.Equal(t, int64(10_000), sig.Length)
	require.NoError(t, sig.Validate(1024))
	assert.ErrorIs(t, sig.Validate(2048), ErrBlockSizeMismatch)
}

func TestSign_EmptyBase(t *testing.T) {
	sig, err := Sign(bytes.NewReader(nil), DefaultBlockSize)
	require.NoError(t, err)
	assert.True(t, sig.Empty())
	assert.Empty(t, sig.Blocks)
}

func TestSign_InvalidBlockSize(t *testing.T) {
	_, err := Sign(bytes.NewReader([]byte("x")), 0)
	assert.ErrorIs(t, err, ErrInvalidBlockSize)
}

func TestRollingSum_MatchesFreshSum(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 8))
	data := randomBytes(r, 4_000)
	const window = 700

	rs := newRollingSum(data[:window])
	for pos := 0; pos+window < len(data); pos++ {
		require.Equal(t, WeakSum(data[pos:pos+window]), rs.sum(), "position %d", pos)
		rs.roll(data[pos], data[pos+window])
	}
}

// ── encoding ─────────────────────────────────────────────────────────────────

func TestMarshal_RoundTrip(t *testing.T) {
	d := Delta{BlockSize: 4096, Ops: []Op{
		CopyBlock(0, 8192),
		InsertLiteral([]byte("fresh bytes")),
		CopyBlock(1<<40, 4096),
	}}

	encoded := Marshal(d)
	assert.Len(t, encoded, d.EncodedSize())

	got, err := Unmarshal(encoded)
	require.NoError(t, err)
	if diff := cmp.Diff(d, got); diff != "" {
		t.Errorf("delta mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshal_Malformed(t *testing.T) {
	tests := map[string][]byte{
		"empty":             {},
		"unknown op":        {0x80, 0x20, 0x09},
		"truncated copy":    {0x80, 0x20, byte(OpCopy), 0x05},
		"truncated literal": {0x80, 0x20, byte(OpLiteral), 0x05, 'a'},
	}

	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal(in)
			assert.ErrorIs(t, err, ErrMalformedDelta)
		})
	}
}

// ── misc ─────────────────────────────────────────────────────────────────────

func TestChooseBlockSize(t *testing.T) {
	assert.Equal(t, 4096, ChooseBlockSize(0))
	assert.Equal(t, 4096, ChooseBlockSize(100<<20-1))
	assert.Equal(t, 8192, ChooseBlockSize(100<<20))
	assert.Equal(t, 16384, ChooseBlockSize(500<<20))
	assert.True(t, ValidBlockSize(ChooseBlockSize(1<<40)))
	assert.False(t, ValidBlockSize(0))
}

func TestChecksum(t *testing.T) {
	const emptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	assert.Equal(t, emptySHA256, Checksum(nil))

	sum, n, err := ChecksumReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, emptySHA256, sum)
	assert.Zero(t, n)
}
