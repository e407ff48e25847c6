// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package dlcodec implements the GX-style display-list / vertex-data
// codec described in spec.md §4.9: vertex descriptors, quantized
// attribute encoding, matrix-load commands, and the draw-command
// stream itself. The low-level bitstream walk on read is delegated to
// an external MeshDisplayListDecoder (spec.md §4.9's own wording: "the
// decoder is external"); this package owns only the encoder and the
// matrix-primitive assembly rule applied to the decoder's callbacks.
// Quantized-storage layout is grounded on engine/mesh/storage.go's
// buffer-cursor idiom, generalized from a GPU-backed span allocator to
// a plain byte-stream encoder.
package dlcodec

import "github.com/gviegas/bmdtool/bmderr"

// Attribute enumerates the GX vertex attributes a VertexDescriptor can
// carry, in the canonical VCD ordering used by the J3D/BRRES tool
// chain (matrix indices first, then position/normal/color, then
// texture coordinates).
type Attribute int

const (
	PositionMatrixIndex Attribute = iota
	Tex0MatrixIndex
	Tex1MatrixIndex
	Tex2MatrixIndex
	Tex3MatrixIndex
	Tex4MatrixIndex
	Tex5MatrixIndex
	Tex6MatrixIndex
	Tex7MatrixIndex
	Position
	Normal
	Color0
	Color1
	Texcoord0
	Texcoord1
	Texcoord2
	Texcoord3
	Texcoord4
	Texcoord5
	Texcoord6
	Texcoord7
)

// SourceKind selects how a given attribute is sourced for a vertex
// (spec.md §4 "Vertex descriptor").
type SourceKind int

const (
	// None means the attribute is not present on this descriptor.
	None SourceKind = iota
	// Direct writes an unaligned u8 matrix index; only legal for the
	// *MatrixIndex attributes (spec.md §4.9 "Strict checks").
	Direct
	// Byte writes a u8 value.
	Byte
	// Short writes a big-endian u16 value.
	Short
)

// Entry pairs one attribute with its source kind, preserving the
// order it contributes to the wire format.
type Entry struct {
	Attribute Attribute
	Source    SourceKind
}

// Descriptor is an ordered vertex attribute layout (VAT + VCD
// combined, matching this toolkit's single-descriptor-per-shape
// simplification of the original's separate VAT/VCD tables).
type Descriptor struct {
	Entries []Entry
}

func isMatrixIndex(a Attribute) bool {
	return a >= PositionMatrixIndex && a <= Tex7MatrixIndex
}

// Validate enforces spec.md §4.9's strict check: Direct is only legal
// for *MatrixIndex attributes.
func (d Descriptor) Validate() error {
	for _, e := range d.Entries {
		if e.Source == Direct && !isMatrixIndex(e.Attribute) {
			return bmderr.New(bmderr.DecodeError, "attribute %d cannot use Direct source", e.Attribute)
		}
	}
	return nil
}

// Bitfield returns the active-attribute summary: the invariant from
// spec.md §4 requires this to equal the set of attributes whose
// source kind is not None.
func (d Descriptor) Bitfield() uint32 {
	var bits uint32
	for _, e := range d.Entries {
		if e.Source != None {
			bits |= 1 << uint(e.Attribute)
		}
	}
	return bits
}
