// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package jpa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constSizer(format byte, width, height uint16, mipCount byte) int {
	return int(width) * int(height)
}

// TestContainerRoundTripMinimal builds the smallest valid JPAC2-10
// container (one effect with only BEM1+BSP1, no textures) and checks
// it survives an encode/decode cycle.
func TestContainerRoundTripMinimal(t *testing.T) {
	c := &Container{
		Resources: []Resource{
			{
				ID:   0,
				BEM1: &DynamicsBlock{EmitFlags: 0x0100, MaxFrame: 30},
				BSP1: &BaseShapeBlock{ShapeType: ShapeBillboard, BaseSize: [2]float32{1, 1}},
			},
		},
	}

	buf := Encode(c)
	require.Equal(t, "JPAC", string(buf[:4]))
	require.Equal(t, "2-10", string(buf[4:8]))

	got, err := Decode(buf, constSizer)
	require.NoError(t, err)
	require.Len(t, got.Resources, 1)
	require.NotNil(t, got.Resources[0].BEM1)
	assert.Equal(t, uint32(0x0100), got.Resources[0].BEM1.EmitFlags)
	assert.Equal(t, uint16(30), got.Resources[0].BEM1.MaxFrame)
	require.NotNil(t, got.Resources[0].BSP1)
	assert.Equal(t, ShapeBillboard, got.Resources[0].BSP1.ShapeType)
	assert.Equal(t, [2]float32{1, 1}, got.Resources[0].BSP1.BaseSize)
}

// TestContainerRoundTripFullResource exercises every optional block
// kind on a single effect, plus a texture-index database and one
// texture in the trailing table.
func TestContainerRoundTripFullResource(t *testing.T) {
	c := &Container{
		Resources: []Resource{
			{
				ID:   7,
				BEM1: &DynamicsBlock{EmitFlags: 0, VolumeSize: 10},
				BSP1: &BaseShapeBlock{ShapeType: ShapeStrip, BaseSize: [2]float32{2, 3}},
				ESP1: &ExtraShapeBlock{IsEnableScale: true, ScaleInValueX: 0.5},
				SSP1: &ChildShapeBlock{ShapeType: ShapePoint, Life: 20},
				ETX1: &ExTexBlock{SecondTextureIndex: -1, IndTextureID: 1},
				FLD1: []FieldBlock{
					{Type: FieldGravity, Mag: 9.8},
					{Type: FieldVortex, InnerSpeed: 1, OuterSpeed: 2},
				},
				KFA1: []KeyBlock{
					{Type: KeyRate, KeyValues: []float32{0, 1, 0, 0, 30, 0, 0, 0}},
				},
				TDB1: []uint16{0},
			},
		},
		Textures: []TextureBlock{
			{Name: "particle00", Format: 4, Width: 2, Height: 2, Pixels: []byte{1, 2, 3, 4}},
		},
	}

	buf := Encode(c)
	got, err := Decode(buf, constSizer)
	require.NoError(t, err)

	require.Len(t, got.Resources, 1)
	res := got.Resources[0]
	assert.Equal(t, uint16(7), res.ID)
	require.NotNil(t, res.BSP1)
	assert.Equal(t, ShapeStrip, res.BSP1.ShapeType)
	require.NotNil(t, res.ESP1)
	assert.True(t, res.ESP1.IsEnableScale)
	require.NotNil(t, res.SSP1)
	assert.Equal(t, uint16(20), res.SSP1.Life)
	require.NotNil(t, res.ETX1)
	assert.Equal(t, int32(-1), res.ETX1.SecondTextureIndex)
	require.Len(t, res.FLD1, 2)
	assert.Equal(t, FieldGravity, res.FLD1[0].Type)
	assert.InDelta(t, float32(9.8), res.FLD1[0].Mag, 1e-4)
	assert.Equal(t, float32(1), res.FLD1[1].InnerSpeed)
	require.Len(t, res.KFA1, 1)
	assert.Equal(t, []float32{0, 1, 0, 0, 30, 0, 0, 0}, res.KFA1[0].KeyValues)
	require.Equal(t, []uint16{0}, res.TDB1)

	require.Len(t, got.Textures, 1)
	assert.Equal(t, "particle00", got.Textures[0].Name)
	assert.Equal(t, []byte{1, 2, 3, 4}, got.Textures[0].Pixels)
}

// TestDecodeRejectsWrongMagic checks that a buffer not starting with
// "JPAC" fails with a MagicMismatch rather than panicking.
func TestDecodeRejectsWrongMagic(t *testing.T) {
	_, err := Decode([]byte("NOPE2-10"), constSizer)
	assert.Error(t, err)
}
