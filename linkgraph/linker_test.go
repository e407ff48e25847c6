// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package linkgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/bmdtool/bmderr"
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/stream"
)

// TestLinkerPlaceholder implements scenario S3 from spec.md §8: node A
// (begin=0, size=4, writes a u32 link to "B") and node B aligned to 32
// (begin=32). The written u32 at offset 0 must equal 32 − 0 = 32.
func TestLinkerPlaceholder(t *testing.T) {
	w := stream.NewWriter(endian.Big, nil)

	var aLink Link
	a := New("A", LinkingRestriction{Leaf: true}, func(w *stream.Writer) error {
		res := stream.WriteLink[uint32](w, &aLink)
		_ = res
		return nil
	})
	b := New("B", LinkingRestriction{Leaf: true, Alignment: 32}, func(w *stream.Writer) error {
		return nil
	})
	aLink = Link{
		From: Endpoint{Node: a, Relation: Begin},
		To:   Endpoint{Node: b, Relation: Begin},
	}

	root := New("root", LinkingRestriction{}, nil)
	root.AddChild(a)
	root.AddChild(b)

	l := NewLinker()
	require.NoError(t, l.Gather(root, ""))
	require.NoError(t, l.Write(w))

	r := stream.NewReader(w.Bytes(), endian.Big, nil)
	// Node root writes nothing itself, so A's placeholder starts at
	// offset 0.
	val, err := stream.Read[uint32](r, endian.Current, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(32), val)
}

func TestLinkerUnresolvedSymbol(t *testing.T) {
	w := stream.NewWriter(endian.Big, nil)
	var link Link
	a := New("A", LinkingRestriction{Leaf: true}, func(w *stream.Writer) error {
		stream.WriteLink[uint32](w, &link)
		return nil
	})
	link = Link{
		From: Endpoint{Node: a, Relation: Begin},
		To:   Endpoint{Symbol: "missing", Relation: Begin},
	}

	l := NewLinker()
	require.NoError(t, l.Gather(a, ""))
	err := l.Write(w)
	require.Error(t, err)
}

// TestLinkerOverflow checks that a delta exceeding a u8 placeholder's
// width is a fatal LinkerOverflow (spec.md §7) rather than a silently
// truncated byte.
func TestLinkerOverflow(t *testing.T) {
	w := stream.NewWriter(endian.Big, nil)

	var aLink Link
	a := New("A", LinkingRestriction{Leaf: true}, func(w *stream.Writer) error {
		stream.WriteLink[uint8](w, &aLink)
		return nil
	})
	b := New("B", LinkingRestriction{Leaf: true, Alignment: 256}, func(w *stream.Writer) error {
		return nil
	})
	aLink = Link{
		From: Endpoint{Node: a, Relation: Begin},
		To:   Endpoint{Node: b, Relation: Begin},
	}

	root := New("root", LinkingRestriction{}, nil)
	root.AddChild(a)
	root.AddChild(b)

	l := NewLinker()
	require.NoError(t, l.Gather(root, ""))
	err := l.Write(w)
	require.Error(t, err)
	var bmdErr *bmderr.Error
	require.ErrorAs(t, err, &bmdErr)
	assert.Equal(t, bmderr.LinkerOverflow, bmdErr.Kind)
}

// TestLinkerStrideMismatch checks that a delta not divisible by Stride
// is reported distinctly from LinkerOverflow, which spec.md §7 reserves
// for placeholder-width overflow.
func TestLinkerStrideMismatch(t *testing.T) {
	w := stream.NewWriter(endian.Big, nil)

	var aLink Link
	a := New("A", LinkingRestriction{Leaf: true}, func(w *stream.Writer) error {
		stream.WriteLink[uint32](w, &aLink)
		return nil
	})
	b := New("B", LinkingRestriction{Leaf: true, Alignment: 3}, func(w *stream.Writer) error {
		return nil
	})
	aLink = Link{
		From:   Endpoint{Node: a, Relation: Begin},
		To:     Endpoint{Node: b, Relation: Begin},
		Stride: 4,
	}

	root := New("root", LinkingRestriction{}, nil)
	root.AddChild(a)
	root.AddChild(b)

	l := NewLinker()
	require.NoError(t, l.Gather(root, ""))
	err := l.Write(w)
	require.Error(t, err)
	var bmdErr *bmderr.Error
	require.ErrorAs(t, err, &bmdErr)
	assert.Equal(t, bmderr.DecodeError, bmdErr.Kind)
}

// TestLinkerPadEnd checks that LinkingRestriction.PadEnd re-aligns
// after a node's own bytes, per spec.md §4.4 step 3.
func TestLinkerPadEnd(t *testing.T) {
	w := stream.NewWriter(endian.Big, nil)

	a := New("A", LinkingRestriction{Leaf: true, PadEnd: true, Alignment: 4}, func(w *stream.Writer) error {
		stream.Write(w, uint8(1), endian.Current)
		return nil
	})
	b := New("B", LinkingRestriction{Leaf: true}, func(w *stream.Writer) error {
		stream.Write(w, uint8(2), endian.Current)
		return nil
	})

	root := New("root", LinkingRestriction{}, nil)
	root.AddChild(a)
	root.AddChild(b)

	l := NewLinker()
	require.NoError(t, l.Gather(root, ""))
	require.NoError(t, l.Write(w))

	// A writes 1 byte then pads to a 4-byte boundary, so B must start
	// at offset 4.
	assert.Equal(t, byte(2), w.Bytes()[4])
}
