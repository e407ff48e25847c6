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

func TestMAT3RoundTrip(t *testing.T) {
	materials := []Material{
		{
			Name:     "mat_a",
			CullMode: 1,
			Channels: [2]ChannelControl{{Enable: true, MatSrc: 1, AmbSrc: 1}, {}},
			TexGenCount: 1,
			TexGens:     [8]TexGen{{Type: 0, Src: 0, Matrix: 0}},
			TevStageCount: 1,
			TevStages:     [16]TevStage{{TexMap: 0, TexCoord: 0, ColorOp: 0, AlphaOp: 0}},
			AlphaCompare: AlphaCompare{Comp0: 7, Ref0: 0},
			BlendMode:    BlendMode{Type: 0, SrcFact: 1, DstFact: 2},
			ZMode:        ZMode{Enable: true, Func: 3, Update: true},
			NBTScale:     1,
		},
		{
			Name:     "mat_b",
			CullMode: 1, // shares the same cull-mode pool entry as mat_a
			Channels: [2]ChannelControl{{Enable: false}, {}},
			TexGenCount: 1,
			TexGens:     [8]TexGen{{Type: 1, Src: 1, Matrix: 1}},
			TevStageCount: 1,
			TevStages:     [16]TevStage{{TexMap: 1, TexCoord: 1, ColorOp: 1, AlphaOp: 1}},
			AlphaCompare: AlphaCompare{Comp0: 7, Ref0: 128},
			BlendMode:    BlendMode{Type: 1, SrcFact: 3, DstFact: 4},
			ZMode:        ZMode{Enable: true, Func: 3, Update: false},
			NBTScale:     1,
		},
	}

	w := stream.NewWriter(endian.Big, nil)
	w.WriteBytes(make([]byte, 8)) // stand-in for the section's own magic+size header
	EncodeMAT3(w, materials)
	buf := w.Bytes()

	r := saferead.New(stream.NewReader(buf, endian.Big, nil))
	r.S.Skip(8)
	start := int64(8)
	got, err := DecodeMAT3(r, start, int64(len(buf))-8)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "mat_a", got[0].Name)
	assert.Equal(t, "mat_b", got[1].Name)
	assert.Equal(t, uint32(1), got[0].CullMode)
	assert.Equal(t, uint32(1), got[1].CullMode)
	assert.True(t, got[0].Channels[0].Enable)
	assert.False(t, got[1].Channels[0].Enable)
	assert.Equal(t, byte(7), got[0].AlphaCompare.Comp0)
	assert.Equal(t, byte(128), got[1].AlphaCompare.Ref0)
	assert.True(t, got[0].ZMode.Update)
	assert.False(t, got[1].ZMode.Update)
	assert.Equal(t, float32(1), got[0].NBTScale)
}

func TestMAT3PoolDeduplication(t *testing.T) {
	m := Material{Name: "x", CullMode: 2, BlendMode: BlendMode{Type: 1}}
	c := NewCache()
	c.Insert(&m)
	c.Insert(&m)
	assert.Len(t, c.cullModes.values, 1, "identical cull modes across materials should share one pool entry")
}
