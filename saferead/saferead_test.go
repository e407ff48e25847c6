// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package saferead

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/bmdtool/bmderr"
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/stream"
)

// TestStringOfs32 implements scenario S6 from spec.md §8: buffer at
// base=0x100 holds 00 00 00 14 at 0x100, and bytes 0x114..0x11A spell
// "hello\0".
func TestStringOfs32(t *testing.T) {
	buf := make([]byte, 0x11B)
	endian.PutBig(buf[0x100:], uint32(0x14))
	copy(buf[0x114:], "hello\x00")

	r := New(stream.NewReader(buf, endian.Big, nil))
	r.S.SeekSet(0x100)
	s, err := r.StringOfs32(0x100)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
	assert.Equal(t, int64(0x104), r.S.Tell())
}

func TestStringOfs32Zero(t *testing.T) {
	buf := make([]byte, 16)
	r := New(stream.NewReader(buf, endian.Big, nil))
	s, err := r.StringOfs32(0)
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestStringOfs32Truncated(t *testing.T) {
	buf := make([]byte, 8)
	endian.PutBig(buf[0:], uint32(4))
	copy(buf[4:], "abcd") // no NUL before the end of the buffer
	r := New(stream.NewReader(buf, endian.Big, nil))
	_, err := r.StringOfs32(0)
	require.Error(t, err)
	var be *bmderr.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, bmderr.TruncatedString, be.Kind)
}

func TestMagicMismatch(t *testing.T) {
	r := New(stream.NewReader([]byte("XXXX"), endian.Big, nil))
	err := r.Magic([]byte("J3D2"))
	require.Error(t, err)
	var be *bmderr.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, bmderr.MagicMismatch, be.Kind)
}

type colorKind uint32

const (
	colorRGB8 colorKind = iota
	colorRGBA8
)

func TestEnum32(t *testing.T) {
	w := stream.NewWriter(endian.Big, nil)
	stream.Write(w, uint32(1), endian.Current)
	r := New(stream.NewReader(w.Bytes(), endian.Big, nil))
	v, err := Enum32(r, colorRGB8, colorRGBA8)
	require.NoError(t, err)
	assert.Equal(t, colorRGBA8, v)
}

func TestEnum32Invalid(t *testing.T) {
	w := stream.NewWriter(endian.Big, nil)
	stream.Write(w, uint32(99), endian.Current)
	r := New(stream.NewReader(w.Bytes(), endian.Big, nil))
	_, err := Enum32(r, colorRGB8, colorRGBA8)
	require.Error(t, err)
	var be *bmderr.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, bmderr.InvalidEnum, be.Kind)
}
