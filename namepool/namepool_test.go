// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package namepool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/stream"
)

// TestDedup implements scenario S2 from spec.md §8: reservations for
// "a", "bb", "a", "ccc" resolve to three distinct offsets, and both
// "a" reservations share one.
func TestDedup(t *testing.T) {
	p := New()
	w := stream.NewWriter(endian.Big, nil)

	ha := p.Reserve("a", 0, w, 0)
	hbb := p.Reserve("bb", 0, w, 4)
	ha2 := p.Reserve("a", 0, w, 8)
	hccc := p.Reserve("ccc", 0, w, 12)

	p.Pack(Bare)

	require.Equal(t, p.mapping[ha], p.mapping[ha2])
	assert.NotEqual(t, p.mapping[ha], p.mapping[hbb])
	assert.NotEqual(t, p.mapping[ha], p.mapping[hccc])
	assert.NotEqual(t, p.mapping[hbb], p.mapping[hccc])

	distinct := map[int]bool{}
	for _, h := range []Handle{ha, hbb, hccc} {
		distinct[p.mapping[h]] = true
	}
	assert.Len(t, distinct, 3)
}

func TestBarePacking(t *testing.T) {
	p := New()
	w := stream.NewWriter(endian.Big, nil)
	p.Reserve("ab", 0, w, 0)
	p.Reserve("c", 0, w, 4)
	blob := p.Pack(Bare)
	// sorted: "ab" then "c"
	assert.Equal(t, []byte{'a', 'b', 0, 'c', 0}, blob)
}

func TestNPrefixedPacking(t *testing.T) {
	p := New()
	w := stream.NewWriter(endian.Big, nil)
	p.Reserve("ab", 0, w, 0)
	blob := p.Pack(NPrefixed)
	// u32 length=2, "ab", NUL (7 bytes), padded to 4-byte boundary (8 bytes).
	assert.Equal(t, []byte{0, 0, 0, 2, 'a', 'b', 0, 0}, blob)
}

func TestResolveBackPatches(t *testing.T) {
	p := New()
	w := stream.NewWriter(endian.Big, nil)
	stream.Write(w, uint32(0xCCCCCCCC), endian.Current) // struct field at offset 0
	p.Reserve("foo", 0, w, 0)
	p.Pack(Bare)
	p.Resolve(4) // pretend the pool starts right after the 4-byte struct field

	r := stream.NewReader(w.Bytes(), endian.Big, nil)
	rel, err := stream.Read[int32](r, endian.Current, false)
	require.NoError(t, err)
	assert.Equal(t, int32(4), rel)
}
