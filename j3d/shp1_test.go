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

// testDisplayListDecoder is a minimal stand-in for the external GX
// opcode walker (dlcodec.MeshDisplayListDecoder), built only to read
// back exactly what dlcodec.Encode produces: a run of LOAD INDX A
// commands followed by one or more draw commands, terminated by a
// NUL byte (dlcodec.Encode's own 32-byte NUL padding).
type testDisplayListDecoder struct{}

func (testDisplayListDecoder) Decode(r saferead.Reader, onDraw dlcodec.OnDrawFunc, onIndexedLoad dlcodec.OnIndexedLoadFunc) error {
	for {
		cmd, err := stream.Read[uint8](r.S, endian.Current, true)
		if err != nil {
			return err
		}
		switch cmd {
		case 0x00:
			return nil
		case 0x20, 0x28, 0x30:
			index, err := stream.Read[uint16](r.S, endian.Big, true)
			if err != nil {
				return err
			}
			lenAddr, err := stream.Read[uint16](r.S, endian.Big, true)
			if err != nil {
				return err
			}
			addr := lenAddr & 0x0FFF
			if err := onIndexedLoad(cmd, index, addr, lenAddr>>12+1); err != nil {
				return err
			}
		default:
			count, err := stream.Read[uint16](r.S, endian.Big, true)
			if err != nil {
				return err
			}
			if err := onDraw(cmd, int(count), r); err != nil {
				return err
			}
		}
	}
}

func TestShapesRoundTrip(t *testing.T) {
	desc := dlcodec.Descriptor{Entries: []dlcodec.Entry{
		{Attribute: dlcodec.Position, Source: dlcodec.Short},
	}}
	shapes := []Shape{{
		Mode:           ModeNormal,
		BoundingRadius: 1.5,
		Primitives: []dlcodec.MatrixPrimitive{{
			DrawMatrices: []uint16{0},
			Batches: []dlcodec.Batch{{
				Type: dlcodec.Triangles,
				Vertices: []dlcodec.Vertex{
					{Values: []uint32{10}},
					{Values: []uint32{20}},
					{Values: []uint32{30}},
				},
			}},
		}},
	}}
	drw := []DrawMatrix{{IsEnvelope: false, Index: 0}}

	w := stream.NewWriter(endian.Big, nil)
	w.WriteBytes(make([]byte, 8))
	EncodeShapes(w, shapes, desc)
	buf := w.Bytes()

	r := saferead.New(stream.NewReader(buf, endian.Big, nil))
	got, err := decodeShapes(r, section{start: 8, size: int64(len(buf)) - 8}, drw, testDisplayListDecoder{})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, ModeNormal, got[0].Mode)
	assert.Equal(t, float32(1.5), got[0].BoundingRadius)
	require.Len(t, got[0].Primitives, 1)
	assert.Equal(t, []uint16{0}, got[0].Primitives[0].DrawMatrices)
	require.Len(t, got[0].Primitives[0].Batches, 1)
	assert.Equal(t, dlcodec.Triangles, got[0].Primitives[0].Batches[0].Type)
	require.Len(t, got[0].Primitives[0].Batches[0].Vertices, 3)
	assert.Equal(t, uint32(10), got[0].Primitives[0].Batches[0].Vertices[0].Values[0])
	assert.Equal(t, uint32(30), got[0].Primitives[0].Batches[0].Vertices[2].Values[0])
}
