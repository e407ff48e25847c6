// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package brresdict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/namepool"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

// TestOneEntry implements scenario S1 from spec.md §8: inserting "foo"
// produces total_size=0x28, entry_count=1, a sentinel node
// {id=0xFFFF, prev=0, next=1}, and a leaf node {prev=0, next=0}.
func TestOneEntry(t *testing.T) {
	d := New([]string{"foo"})
	d.Nodes[1].DataOffset = 0x30 // arbitrary payload position, set by caller

	w := stream.NewWriter(endian.Big, nil)
	pool := namepool.New()
	d.Encode(w, pool)
	blob := pool.Pack(namepool.Bare)
	pool.Resolve(w.Tell())
	w.WriteBytes(blob)

	buf := w.Bytes()
	r := stream.NewReader(buf, endian.Big, nil)

	totalSize, err := stream.Read[uint32](r, endian.Current, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x28), totalSize)

	entryCount, err := stream.Read[uint32](r, endian.Current, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), entryCount)

	// Sentinel.
	id, _ := stream.Read[uint16](r, endian.Current, false)
	flag, _ := stream.Read[uint16](r, endian.Current, false)
	prev, _ := stream.Read[uint16](r, endian.Current, false)
	next, _ := stream.Read[uint16](r, endian.Current, false)
	assert.Equal(t, uint16(0xFFFF), id)
	assert.Equal(t, uint16(0), flag)
	assert.Equal(t, uint16(0), prev)
	assert.Equal(t, uint16(1), next)
	r.Skip(8) // name_ofs, data_ofs

	// Leaf.
	id, _ = stream.Read[uint16](r, endian.Current, false)
	flag, _ = stream.Read[uint16](r, endian.Current, false)
	prev, _ = stream.Read[uint16](r, endian.Current, false)
	next, _ = stream.Read[uint16](r, endian.Current, false)
	assert.Equal(t, uint16(22), id) // 2<<3 | 6, per calc_brres_id("", "foo")
	assert.Equal(t, uint16(0), flag)
	assert.Equal(t, uint16(0), prev)
	assert.Equal(t, uint16(0), next)
}

func TestDecodeRoundTrip(t *testing.T) {
	d := New([]string{"alpha", "beta", "gamma"})
	for i := range d.Nodes[1:] {
		d.Nodes[i+1].DataOffset = int64(0x100 + i*4)
	}

	w := stream.NewWriter(endian.Big, nil)
	pool := namepool.New()
	d.Encode(w, pool)
	blob := pool.Pack(namepool.Bare)
	pool.Resolve(w.Tell())
	w.WriteBytes(blob)

	r := saferead.New(stream.NewReader(w.Bytes(), endian.Big, nil))
	got, err := Decode(r)
	require.NoError(t, err)
	require.Len(t, got.Nodes, 4)
	assert.Equal(t, "alpha", got.Nodes[1].Name)
	assert.Equal(t, "beta", got.Nodes[2].Name)
	assert.Equal(t, "gamma", got.Nodes[3].Name)
	assert.Equal(t, int64(0x100), got.Nodes[1].DataOffset)
}
