// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package dlcodec

import (
	"github.com/gviegas/bmdtool/bmderr"
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/stream"
)

// Matrix-load opcodes (GX XF LOAD INDX family). Position matrices use
// A, normals use B, texture matrices use C; this toolkit only ever
// emits A for MatrixPrimitive.DrawMatrices (spec.md §4.9 names only
// LoadPosMtxIndx/LoadNrmMtx3x3Indx/LoadTexMtxIndx as the matrix-load
// family it models; this package always binds the position slot).
const (
	loadPosMtxIndx byte = 0x20
	loadNrmMtxIndx byte = 0x28
	loadTexMtxIndx byte = 0x30
)

// loadIndxLen is the XF word count occupied by one position matrix
// (3 rows of 4 floats).
const loadIndxLen = 12

// encodeMatrixLoad writes one LOAD INDX A command for drawMatrix bound
// at target slot, using address = slot*3 (spec.md §4.9's "target slot
// i·3") and a (length-1)<<12 | address length/address word. The exact
// packing of this word is this encoder's own reconstruction from the
// GX LOAD INDX command family; it has not been checked byte-for-byte
// against any literal reference stream (see DESIGN.md).
func encodeMatrixLoad(w *stream.Writer, slot int, drawMatrix uint16) {
	stream.Write(w, loadPosMtxIndx, endian.Current)
	stream.Write(w, drawMatrix, endian.Big)
	addr := uint16(slot * 3)
	lenAddr := uint16((loadIndxLen-1)<<12) | (addr & 0x0FFF)
	stream.Write(w, lenAddr, endian.Big)
}

// writeAttr writes one vertex's value for a single descriptor entry,
// per spec.md §4.9: Direct writes an unaligned u8, Byte writes u8,
// Short writes a big-endian u16, None writes nothing.
func writeAttr(w *stream.Writer, source SourceKind, value uint32) {
	switch source {
	case Direct, Byte:
		stream.Write(w, byte(value), endian.Current)
	case Short:
		stream.Write(w, uint16(value), endian.Big)
	case None:
	}
}

// Encode appends mp's matrix-load commands and draw batches to w,
// using desc to interpret each Vertex's Values, then pads with NUL
// bytes to the next 32-byte boundary (spec.md §4.9).
func Encode(w *stream.Writer, mp MatrixPrimitive, desc Descriptor) error {
	if err := desc.Validate(); err != nil {
		return err
	}
	for i, dm := range mp.DrawMatrices {
		encodeMatrixLoad(w, i, dm)
	}
	for _, b := range mp.Batches {
		stream.Write(w, byte(b.Type), endian.Current)
		stream.Write(w, uint16(len(b.Vertices)), endian.Big)
		for _, v := range b.Vertices {
			if len(v.Values) != len(desc.Entries) {
				return bmderr.New(bmderr.DecodeError,
					"descriptor has %d attributes but vertex supplies %d",
					len(desc.Entries), len(v.Values))
			}
			for i, e := range desc.Entries {
				writeAttr(w, e.Source, v.Values[i])
			}
		}
	}
	padNulTo32(w)
	return nil
}

// padNulTo32 pads w with NUL bytes up to the next 32-byte boundary.
// Unlike stream.Writer.AlignTo (which pads with 0xFF, matching the
// "stack trash" convention the other codecs rely on), the display-list
// stream is required to pad with zero (spec.md §4.9).
func padNulTo32(w *stream.Writer) {
	pos := w.Tell()
	pad := (32 - pos%32) % 32
	for i := int64(0); i < pad; i++ {
		stream.Write(w, byte(0), endian.Current)
	}
}
