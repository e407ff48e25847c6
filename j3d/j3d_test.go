// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package j3d

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/bmdtool/dlcodec"
)

// TestModelRoundTripMinimal builds the smallest valid J3D model (one
// phantom joint, no geometry) and checks it survives an encode/decode
// cycle, exercising every section's write/read pair through the
// top-level orchestrator.
func TestModelRoundTripMinimal(t *testing.T) {
	m := &Model{
		SubVersion: BMD,
		Joints: []Joint{{Name: "root"}},
		Scene:  &SceneGraph{Joints: []JointNode{{ParentID: -1}}},
	}

	buf := EncodeModel(m, dlcodec.Descriptor{})
	require.Equal(t, "J3D2", string(buf[:4]))
	require.Equal(t, "bmd3", string(buf[4:8]))

	got, err := DecodeModel(buf, nil, nil)
	require.NoError(t, err)
	require.Len(t, got.Joints, 1)
	assert.Equal(t, "root", got.Joints[0].Name)
	require.NotNil(t, got.Scene)
	require.Len(t, got.Scene.Joints, 1)
	assert.Equal(t, -1, got.Scene.Joints[0].ParentID)
	assert.Equal(t, BMD, got.SubVersion)
}

func TestModelRoundTripBDLWritesMDL3(t *testing.T) {
	m := &Model{
		SubVersion: BDL,
		Joints:     []Joint{{Name: "root"}},
		Scene:      &SceneGraph{Joints: []JointNode{{ParentID: -1}}},
		MDL3:       []MDL3Entry{{Data: []byte{0xAA, 0xBB}}},
	}

	buf := EncodeModel(m, dlcodec.Descriptor{})
	require.Equal(t, "bdl4", string(buf[4:8]))

	got, err := DecodeModel(buf, nil, nil)
	require.NoError(t, err)
	require.Len(t, got.MDL3, 1)
	assert.Equal(t, []byte{0xAA, 0xBB}, got.MDL3[0].Data)
}
