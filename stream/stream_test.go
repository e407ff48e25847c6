// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/bmdtool/bmderr"
	"github.com/gviegas/bmdtool/endian"
)

func TestReadWriteRoundTrip(t *testing.T) {
	w := NewWriter(endian.Big, nil)
	Write(w, uint32(0xdeadbeef), endian.Current)
	Write(w, int16(-1), endian.Current)
	Write(w, float32(1.5), endian.Current)

	r := NewReader(w.Bytes(), endian.Big, nil)
	u, err := Read[uint32](r, endian.Current, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), u)

	i, err := Read[int16](r, endian.Current, false)
	require.NoError(t, err)
	assert.Equal(t, int16(-1), i)

	f, err := Read[float32](r, endian.Current, true) // at offset 6, not 4-byte aligned
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f)
}

func TestReadOutOfBounds(t *testing.T) {
	r := NewReader([]byte{1, 2, 3}, endian.Big, nil)
	r.SeekSet(2)
	_, err := Read[uint32](r, endian.Current, false)
	require.Error(t, err)
	var be *bmderr.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, bmderr.OutOfBounds, be.Kind)
	// Position must not advance past end_pos on a failed read.
	assert.Equal(t, int64(2), r.Tell())
}

func TestReadMisaligned(t *testing.T) {
	r := NewReader(make([]byte, 16), endian.Big, nil)
	r.SeekSet(1)
	_, err := Read[uint32](r, endian.Current, false)
	require.Error(t, err)
	var be *bmderr.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, bmderr.Misaligned, be.Kind)

	// Unaligned reads succeed at the same offset.
	_, err = Read[uint32](r, endian.Current, true)
	assert.NoError(t, err)
}

func TestPeekDoesNotAdvance(t *testing.T) {
	r := NewReader([]byte{0, 0, 0, 7, 9, 9, 9, 9}, endian.Big, nil)
	v, err := Peek[uint32](r, endian.Current, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), v)
	assert.Equal(t, int64(0), r.Tell())
}

func TestAlignToWithFiller(t *testing.T) {
	w := NewWriter(endian.Big, nil)
	var filled []byte
	w.SetFiller(func(buf []byte, begin int64) {
		filled = append([]byte(nil), buf...)
	})
	Write(w, uint8(1), endian.Current)
	w.AlignTo(4)
	require.Len(t, w.Bytes(), 4)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF}, filled)
}

func TestScopedRegionPoppedOnEveryExit(t *testing.T) {
	r := NewReader(make([]byte, 4), endian.Big, nil)
	func() {
		pop := r.ScopedRegion("outer")
		defer pop()
		func() {
			pop := r.ScopedRegion("inner")
			defer pop()
			assert.Equal(t, []string{"outer", "inner"}, r.regionStack())
		}()
		assert.Equal(t, []string{"outer"}, r.regionStack())
	}()
	assert.Empty(t, r.regionStack())
}

func TestBreakpointTrapsOverlappingAccess(t *testing.T) {
	r := NewReader(make([]byte, 16), endian.Big, nil)
	r.AddBreakpoint(Breakpoint{Begin: 4, End: 8})
	// Overlapping read should not error (breakpoints are diagnostic
	// only, non-mutating over normal operation, per spec.md §3).
	r.SeekSet(4)
	_, err := Read[uint32](r, endian.Current, false)
	assert.NoError(t, err)
}

func TestWriteLinkSentinel(t *testing.T) {
	w := NewWriter(endian.Big, nil)
	res := WriteLink[uint32](w, "to-symbol")
	assert.Equal(t, int64(0), res.Pos)
	assert.Equal(t, int64(4), res.Size)
	assert.Equal(t, []byte{0xCC, 0xCC, 0xCC, 0xCC}, w.Bytes())
	w.ResolveReservation(res, 32)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x20}, w.Bytes())
}
