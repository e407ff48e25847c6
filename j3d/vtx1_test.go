// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package j3d

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/bmdtool/dlcodec"
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

// encodeVTX1Section wraps EncodeVTX1 with an 8-byte filler standing in
// for the section's own magic+size header, matching how writeSection
// positions the reader for every other section's Decode function.
func encodeVTX1Section(t *testing.T, bufs []Buffer) (saferead.Reader, int64) {
	t.Helper()
	w := stream.NewWriter(endian.Big, nil)
	w.WriteBytes(make([]byte, 8))
	EncodeVTX1(w, bufs)
	buf := w.Bytes()
	r := saferead.New(stream.NewReader(buf, endian.Big, nil))
	r.S.Skip(8)
	return r, int64(len(buf)) - 8
}

func TestVTX1RoundTripPositionAndColor(t *testing.T) {
	bufs := []Buffer{
		{
			Attribute: dlcodec.Position,
			Format:    Format{CompCount: 2, CompType: CompF32},
			Floats:    []float32{1, 2, 3, -4, 5, 6, 7, 8, 9},
		},
		{
			Attribute: dlcodec.Color0,
			Format:    Format{CompCount: 1, CompType: CompU8},
			Colors:    [][4]byte{{255, 0, 0, 255}, {0, 255, 0, 255}},
		},
	}

	r, size := encodeVTX1Section(t, bufs)
	got, err := DecodeVTX1(r, size)
	require.NoError(t, err)
	require.Len(t, got, 2)

	var pos, col *Buffer
	for i := range got {
		switch got[i].Attribute {
		case dlcodec.Position:
			pos = &got[i]
		case dlcodec.Color0:
			col = &got[i]
		}
	}
	require.NotNil(t, pos)
	require.NotNil(t, col)
	assert.Equal(t, bufs[0].Floats, pos.Floats)
	assert.Equal(t, bufs[1].Colors, col.Colors)
}

func TestVTX1QuantizedFixedPoint(t *testing.T) {
	bufs := []Buffer{
		{
			Attribute: dlcodec.Texcoord0,
			Format:    Format{CompCount: 1, CompType: CompS16, FracBits: 8},
			Floats:    []float32{1.5, -2.25},
		},
	}
	r, size := encodeVTX1Section(t, bufs)
	got, err := DecodeVTX1(r, size)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Floats, 2)
	assert.InDelta(t, 1.5, got[0].Floats[0], 1.0/256)
	assert.InDelta(t, -2.25, got[0].Floats[1], 1.0/256)
}
