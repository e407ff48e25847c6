// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package brres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constSizer(format byte, width, height uint16, mipCount byte) int {
	return int(width) * int(height)
}

// TestArchiveRoundTripModel checks a single bone-only model survives
// an encode/decode cycle through the 3DModels folder.
func TestArchiveRoundTripModel(t *testing.T) {
	arc := &Archive{
		Models: []Model{
			{
				Name: "course",
				Bones: []Bone{
					{Name: "root", ID: 0, ParentID: -1, Scale: [3]float32{1, 1, 1}},
					{Name: "child", ID: 1, ParentID: 0, Translate: [3]float32{0, 1, 0}},
				},
			},
		},
	}

	buf := Encode(arc)
	require.Equal(t, "bres", string(buf[:4]))

	got, err := Decode(buf, constSizer)
	require.NoError(t, err)
	require.Len(t, got.Models, 1)
	m := got.Models[0]
	assert.Equal(t, "course", m.Name)
	require.Len(t, m.Bones, 2)
	assert.Equal(t, "root", m.Bones[0].Name)
	assert.Equal(t, int32(-1), m.Bones[0].ParentID)
	assert.Equal(t, "child", m.Bones[1].Name)
	assert.Equal(t, int32(0), m.Bones[1].ParentID)
	assert.Equal(t, float32(1), m.Bones[1].Translate[1])
}

// TestArchiveRoundTripTextureAndAnimation exercises the Textures folder
// and one animation kind in the same archive.
func TestArchiveRoundTripTextureAndAnimation(t *testing.T) {
	arc := &Archive{
		Textures: []Texture{
			{Name: "kart", Format: 4, Width: 2, Height: 2, Pixels: []byte{1, 2, 3, 4}},
		},
		Srt0: []Animation{
			{
				Name:          "kart_srt",
				Kind:          KindSRT0,
				FrameDuration: 10,
				Loop:          true,
				Tracks: []Track{
					{Fixed: true, FixedValue: 1},
					{Keys: []Key{{Frame: 0, Value: 0, Slope: 0}, {Frame: 10, Value: 1, Slope: 0}}},
				},
			},
		},
	}

	buf := Encode(arc)
	got, err := Decode(buf, constSizer)
	require.NoError(t, err)

	require.Len(t, got.Textures, 1)
	assert.Equal(t, "kart", got.Textures[0].Name)
	assert.Equal(t, []byte{1, 2, 3, 4}, got.Textures[0].Pixels)

	require.Len(t, got.Srt0, 1)
	a := got.Srt0[0]
	assert.Equal(t, "kart_srt", a.Name)
	assert.True(t, a.Loop)
	require.Len(t, a.Tracks, 2)
	assert.True(t, a.Tracks[0].Fixed)
	assert.Equal(t, float32(1), a.Tracks[0].FixedValue)
	require.Len(t, a.Tracks[1].Keys, 2)
	assert.Equal(t, float32(10), a.Tracks[1].Keys[1].Frame)
}

// TestArchiveRoundTripEmpty checks that an archive with no populated
// folders still round-trips to an empty result.
func TestArchiveRoundTripEmpty(t *testing.T) {
	buf := Encode(&Archive{})
	got, err := Decode(buf, constSizer)
	require.NoError(t, err)
	assert.Empty(t, got.Models)
	assert.Empty(t, got.Textures)
	assert.Empty(t, got.Chr0)
}

// TestDecodeRejectsWrongMagic checks a buffer not starting with "bres"
// fails with a MagicMismatch rather than panicking.
func TestDecodeRejectsWrongMagic(t *testing.T) {
	_, err := Decode([]byte("NOPE0123456789012345678"), constSizer)
	assert.Error(t, err)
}
