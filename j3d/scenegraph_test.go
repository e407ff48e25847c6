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

// TestEncodeSceneGraphMatchesS5 encodes scenario S5 from spec.md §8:
// Root(0) → [A(1){Mat=0,Shp=0}, B(2) → C(3)], and checks the bytecode
// matches the documented stream token-for-token:
// Joint 0, Open, Joint 1, Open, Mat 0, Open, Shp 0, Close, Close, Close,
// Joint 2, Open, Joint 3, Close, Close, Terminate.
func TestEncodeSceneGraphMatchesS5(t *testing.T) {
	sg := &SceneGraph{Joints: []JointNode{
		{ParentID: -1, Children: []int{1, 2}},
		{ParentID: 0, Displays: []Display{{Material: 0, Shape: 0}}},
		{ParentID: 0, Children: []int{3}},
		{ParentID: 2},
	}}

	w := stream.NewWriter(endian.Big, nil)
	EncodeSceneGraph(w, sg)

	want := []int16{
		int16(opJoint), 0, int16(opOpen), 0,
		int16(opJoint), 1, int16(opOpen), 0,
		int16(opMaterial), 0, int16(opOpen), 0,
		int16(opShape), 0,
		int16(opClose), 0, int16(opClose), 0, int16(opClose), 0,
		int16(opJoint), 2, int16(opOpen), 0,
		int16(opJoint), 3,
		int16(opClose), 0, int16(opClose), 0,
		int16(opTerminate), 0,
	}
	r := stream.NewReader(w.Bytes(), endian.Big, nil)
	for i, tok := range want {
		got, err := stream.Read[int16](r, endian.Current, true)
		require.NoError(t, err)
		assert.Equal(t, tok, got, "token %d", i)
	}
}

// TestSceneGraphRoundTrip encodes scenario S5's hierarchy, decodes it
// back, and checks the hierarchy and display entries match.
func TestSceneGraphRoundTrip(t *testing.T) {
	sg := &SceneGraph{Joints: []JointNode{
		{ParentID: -1, Children: []int{1, 2}},
		{ParentID: 0, Displays: []Display{{Material: 0, Shape: 0}}},
		{ParentID: 0, Children: []int{3}},
		{ParentID: 2},
	}}

	w := stream.NewWriter(endian.Big, nil)
	EncodeSceneGraph(w, sg)

	r := stream.NewReader(w.Bytes(), endian.Big, nil)
	sr := saferead.New(r)
	got, err := DecodeSceneGraph(sr, 4)
	require.NoError(t, err)

	require.Len(t, got.Joints, 4)
	assert.Equal(t, -1, got.Joints[0].ParentID)
	assert.ElementsMatch(t, []int{1, 2}, got.Joints[0].Children)
	assert.Equal(t, 0, got.Joints[1].ParentID)
	assert.Equal(t, []Display{{Material: 0, Shape: 0}}, got.Joints[1].Displays)
	assert.Equal(t, 0, got.Joints[2].ParentID)
	assert.Equal(t, []int{3}, got.Joints[2].Children)
	assert.Equal(t, 2, got.Joints[3].ParentID)
	assert.Empty(t, got.Joints[3].Displays)
}

// TestSceneGraphPhantomLeaf checks that a joint with neither children
// nor displays round-trips with no Open/Close pair at all.
func TestSceneGraphPhantomLeaf(t *testing.T) {
	sg := &SceneGraph{Joints: []JointNode{{ParentID: -1}}}

	w := stream.NewWriter(endian.Big, nil)
	EncodeSceneGraph(w, sg)

	r := stream.NewReader(w.Bytes(), endian.Big, nil)

	op, err := stream.Read[int16](r, endian.Current, true)
	require.NoError(t, err)
	assert.Equal(t, int16(opJoint), op)

	idx, err := stream.Read[int16](r, endian.Current, true)
	require.NoError(t, err)
	assert.Equal(t, int16(0), idx)

	op, err = stream.Read[int16](r, endian.Current, true)
	require.NoError(t, err)
	assert.Equal(t, int16(opTerminate), op, "a joint with no content should be followed directly by Terminate")
}
