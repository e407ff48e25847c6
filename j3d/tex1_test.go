// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package j3d

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

func constSizer(n int) ImageSizer {
	return func(format byte, width, height uint16, mipCount byte) int { return n }
}

func TestTEX1RoundTrip(t *testing.T) {
	texs := []Texture{
		{Name: "tex_a", Format: 0, Width: 4, Height: 4, MipCount: 1, Pixels: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		{Name: "tex_b", Format: 0, Width: 4, Height: 4, MipCount: 1, Pixels: []byte{9, 10, 11, 12, 13, 14, 15, 16}},
	}

	w := stream.NewWriter(endian.Big, nil)
	EncodeTEX1(w, texs)
	r := saferead.New(stream.NewReader(w.Bytes(), endian.Big, nil))
	count, err := readCountHeader(r)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	got, err := DecodeTEX1(r, count, constSizer(8))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "tex_a", got[0].Name)
	assert.Equal(t, "tex_b", got[1].Name)
	assert.Equal(t, texs[0].Pixels, got[0].Pixels)
	assert.Equal(t, texs[1].Pixels, got[1].Pixels)
}

func TestTEX1DedupesSharedPixelBlobs(t *testing.T) {
	pixels := []byte{1, 2, 3, 4}
	texs := []Texture{
		{Name: "a", Pixels: pixels},
		{Name: "b", Pixels: pixels},
	}

	w := stream.NewWriter(endian.Big, nil)
	EncodeTEX1(w, texs)
	r := saferead.New(stream.NewReader(w.Bytes(), endian.Big, nil))
	count, err := readCountHeader(r)
	require.NoError(t, err)

	got, err := DecodeTEX1(r, count, constSizer(4))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, got[0].Pixels, got[1].Pixels)

	// Encoded size should not include the blob twice. The trailing name
	// table for "a" and "b" takes 16 bytes (4-byte header, two 4-byte
	// hash/offset pairs, "a\x00b\x00").
	buf := w.Bytes()
	assert.Less(t, len(buf), 4+2*btiHeaderSize+2*len(pixels)+16)
}
