// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package j3d

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/linear"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

func TestJNT1RoundTrip(t *testing.T) {
	joints := []Joint{
		{
			Name:           "root",
			Scale:          linear.V3{1, 1, 1},
			Translate:      linear.V3{0, 10, 0},
			BoundingRadius: 5,
			AABBMin:        linear.V3{-1, -1, -1},
			AABBMax:        linear.V3{1, 1, 1},
		},
		{
			Name:      "child",
			Scale:     linear.V3{1, 1, 1},
			Translate: linear.V3{0, 5, 0},
			SSC:       true,
			Billboard: BillboardY,
		},
	}

	w := stream.NewWriter(endian.Big, nil)
	EncodeJNT1(w, joints)
	r := saferead.New(stream.NewReader(w.Bytes(), endian.Big, nil))
	count, err := readCountHeader(r)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	got, remap, err := DecodeJNT1(r, count)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, remap, 2)
	assert.Equal(t, "root", got[0].Name)
	assert.Equal(t, "child", got[1].Name)
	assert.Equal(t, joints[0].Translate, got[0].Translate)
	assert.True(t, got[1].SSC)
	assert.Equal(t, uint16(0), remap[0])
	assert.Equal(t, uint16(1), remap[1])
}

// TestEulerQuatRoundTrip checks the fixed-point Euler <-> quaternion
// conversion recovers angles within the format's own quantization
// error (spec.md §6's 1/182.04-degree fixed-point units).
func TestEulerQuatRoundTrip(t *testing.T) {
	rx, ry, rz := uint16(1000), uint16(2000), uint16(500)
	q := eulerToQuat(rx, ry, rz)
	gx, gy, gz := quatToEuler(q)
	const tol = 2
	assertCloseU16(t, rx, gx, tol)
	assertCloseU16(t, ry, gy, tol)
	assertCloseU16(t, rz, gz, tol)
}

func assertCloseU16(t *testing.T, want, got uint16, tol int32) {
	t.Helper()
	d := int32(int16(want)) - int32(int16(got))
	if d < 0 {
		d = -d
	}
	assert.LessOrEqual(t, d, tol, "want %d got %d", int16(want), int16(got))
}
