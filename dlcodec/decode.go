// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package dlcodec

import (
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

// MeshDisplayListDecoder is the external capability spec.md §4.9 calls
// out: something that walks the raw GX opcode stream and reports two
// kinds of event back to this package. This toolkit does not implement
// the opcode walk itself — only the assembly rule that turns the
// reported events into MatrixPrimitive values.
type MeshDisplayListDecoder interface {
	Decode(r saferead.Reader, onDraw OnDrawFunc, onIndexedLoad OnIndexedLoadFunc) error
}

// OnDrawFunc is called once per draw command: primType is the raw
// opcode byte, vertexCount is the decoded count, and r is positioned
// at the first attribute byte of the first vertex.
type OnDrawFunc func(primType byte, vertexCount int, r saferead.Reader) error

// OnIndexedLoadFunc is called once per matrix-load command: cmd is the
// raw opcode (0x20/0x28/0x30), index is the CPIndex field (the
// draw-matrix value), address and size describe the target XF region.
type OnIndexedLoadFunc func(cmd byte, index uint16, address, size uint16) error

// Assembler implements the matrix-primitive grouping rule from
// spec.md §4.9: consecutive LoadPosMtxIndx commands open a new
// MatrixPrimitive (each occupying the next target slot, i*3 apart);
// LoadNrmMtxIndx/LoadTexMtxIndx commands extend the current one; a
// draw command appends a Batch to the current MatrixPrimitive, or
// starts a default single-bind one if no load has been seen yet.
type Assembler struct {
	Desc Descriptor

	prims      []MatrixPrimitive
	lastWasPos bool
	nextSlot   int
}

// Primitives returns every MatrixPrimitive assembled so far.
func (a *Assembler) Primitives() []MatrixPrimitive { return a.prims }

// OnIndexedLoad is the OnIndexedLoadFunc to pass to a
// MeshDisplayListDecoder.
func (a *Assembler) OnIndexedLoad(cmd byte, index uint16, address, size uint16) error {
	switch cmd {
	case loadPosMtxIndx:
		wantAddr := uint16(a.nextSlot * 3)
		if !a.lastWasPos || address != wantAddr {
			a.prims = append(a.prims, MatrixPrimitive{})
			a.nextSlot = 0
		}
		a.prims[len(a.prims)-1].DrawMatrices = append(a.prims[len(a.prims)-1].DrawMatrices, index)
		a.nextSlot++
		a.lastWasPos = true
	case loadNrmMtxIndx, loadTexMtxIndx:
		// Extends the current primitive; this toolkit tracks only the
		// position-matrix binding list (see encode.go).
		a.lastWasPos = false
	}
	return nil
}

// OnDraw is the OnDrawFunc to pass to a MeshDisplayListDecoder.
func (a *Assembler) OnDraw(primType byte, vertexCount int, r saferead.Reader) error {
	if len(a.prims) == 0 {
		a.prims = append(a.prims, MatrixPrimitive{})
	}
	verts := make([]Vertex, vertexCount)
	for i := range verts {
		values := make([]uint32, len(a.Desc.Entries))
		for j, e := range a.Desc.Entries {
			v, err := readAttr(r, e.Source)
			if err != nil {
				return err
			}
			values[j] = v
		}
		verts[i] = Vertex{Values: values}
	}
	cur := &a.prims[len(a.prims)-1]
	cur.Batches = append(cur.Batches, Batch{Type: PrimitiveType(primType), Vertices: verts})
	a.lastWasPos = false
	return nil
}

// readAttr reads one attribute value directly off the reader's
// underlying stream, unaligned: the display-list stream is a raw
// GX command byte packing, not a struct layout, so attributes fall on
// arbitrary byte offsets (spec.md §4.9: "Direct writes an unaligned
// u8 matrix index").
func readAttr(r saferead.Reader, source SourceKind) (uint32, error) {
	switch source {
	case Direct, Byte:
		v, err := stream.Read[uint8](r.S, endian.Current, true)
		return uint32(v), err
	case Short:
		v, err := stream.Read[uint16](r.S, endian.Big, true)
		return uint32(v), err
	default:
		return 0, nil
	}
}
