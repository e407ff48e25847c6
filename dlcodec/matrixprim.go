// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package dlcodec

// PrimitiveType selects the GX draw topology a Batch assembles, using
// the real hardware opcode values directly as the underlying constant
// (spec.md §6: "one byte encoding (primitive_type | vat=0)").
type PrimitiveType byte

const (
	Quads         PrimitiveType = 0x80
	Triangles     PrimitiveType = 0x90
	TriangleStrip PrimitiveType = 0x98
	TriangleFan   PrimitiveType = 0xA0
	Lines         PrimitiveType = 0xA8
	LineStrip     PrimitiveType = 0xB0
	Points        PrimitiveType = 0xB8
)

// Vertex is one tuple of attribute values, in the same order as the
// owning Descriptor's Entries. A value's meaning depends on the
// corresponding Entry.Source: Direct/Byte values fit in the low byte,
// Short values use the full 16 bits.
type Vertex struct {
	Values []uint32
}

// Batch is a single draw command: a primitive type plus its vertices,
// each vertex shaped by the same Descriptor.
type Batch struct {
	Type     PrimitiveType
	Vertices []Vertex
}

// MatrixPrimitive groups one or more draw batches that share the same
// bound matrices. DrawMatrices is the ordered list of draw-matrix
// table indices (spec.md §4.9's "draw-matrices") bound via
// LoadPosMtxIndx before the batches are drawn; slot i is loaded at XF
// target i*3. Encode emits no normal or texture matrix loads.
type MatrixPrimitive struct {
	DrawMatrices []uint16
	Batches      []Batch
}
