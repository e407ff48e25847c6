// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package j3d

import (
	"github.com/gviegas/bmdtool/dlcodec"
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/linear"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

// ShapeMode is the drawing mode SHP1 stamps on a shape (spec.md §4:
// "Normal/BillboardXY/BillboardY/Skinned").
type ShapeMode byte

const (
	ModeNormal ShapeMode = iota
	ModeBillboardXY
	ModeBillboardY
	ModeSkinned
)

// Shape is one decoded SHP1 entry.
type Shape struct {
	Mode           ShapeMode
	Descriptor     dlcodec.Descriptor
	Primitives     []dlcodec.MatrixPrimitive
	BoundingRadius float32
	AABBMin        linear.V3
	AABBMax        linear.V3
}

// shapeHeader is SHP1's fixed-size per-shape record.
type shapeHeader struct {
	mode            byte
	matrixPrimCount uint16
	vcdOfs          uint16
	firstMatrixList uint16
	firstPacket     uint16
	radius          float32
	aabbMin, aabbMax linear.V3
}

func decodeShapeHeader(r saferead.Reader) (shapeHeader, error) {
	var h shapeHeader
	mode, err := r.U8()
	if err != nil {
		return h, err
	}
	h.mode = mode
	if _, err := r.U8(); err != nil { // padding
		return h, err
	}
	mpc, err := r.U16()
	if err != nil {
		return h, err
	}
	h.matrixPrimCount = mpc
	vcd, err := r.U16()
	if err != nil {
		return h, err
	}
	h.vcdOfs = vcd
	fml, err := r.U16()
	if err != nil {
		return h, err
	}
	h.firstMatrixList = fml
	fp, err := r.U16()
	if err != nil {
		return h, err
	}
	h.firstPacket = fp
	if _, err := r.U16(); err != nil { // padding
		return h, err
	}
	radius, err := r.F32()
	if err != nil {
		return h, err
	}
	h.radius = radius
	for i := range h.aabbMin {
		v, err := r.F32()
		if err != nil {
			return h, err
		}
		h.aabbMin[i] = v
	}
	for i := range h.aabbMax {
		v, err := r.F32()
		if err != nil {
			return h, err
		}
		h.aabbMax[i] = v
	}
	return h, nil
}

// matrixDataEntry is one slot in SHP1's matrix-data table, which a
// matrix primitive's index into that table resolves to the draw-matrix
// sublist it references.
type matrixDataEntry struct {
	currentMatrix int16
	listSize      uint16
	listStart     uint32
}

func decodeMatrixDataEntry(r saferead.Reader) (matrixDataEntry, error) {
	var e matrixDataEntry
	cur, err := r.S16()
	if err != nil {
		return e, err
	}
	e.currentMatrix = cur
	size, err := r.U16()
	if err != nil {
		return e, err
	}
	e.listSize = size
	start, err := r.U32()
	if err != nil {
		return e, err
	}
	e.listStart = start
	return e, nil
}

// DecodeShape assembles one Shape: it reads the shape header, walks
// each matrix primitive's (current_matrix, mtx_list_size,
// mtx_list_start) record at matrixDataStart+matrixDataIndex*8, pulls
// the corresponding draw-matrix indices from drw, then hands the
// display-list bytes at the packet region to decoder so the hardware
// opcode stream can be turned into dlcodec.MatrixPrimitive values
// (spec.md §6 SHP1, §4.9).
func DecodeShape(r saferead.Reader, h shapeHeader, matrixDataStart int64, drw []DrawMatrix, packetStart int64, packetSizes []uint32, desc dlcodec.Descriptor, decoder dlcodec.MeshDisplayListDecoder) (Shape, error) {
	s := Shape{Mode: ShapeMode(h.mode), Descriptor: desc, BoundingRadius: h.radius, AABBMin: h.aabbMin, AABBMax: h.aabbMax}

	for i := 0; i < int(h.matrixPrimCount); i++ {
		r.S.SeekSet(matrixDataStart + int64(int(h.firstMatrixList)+i)*8)
		mde, err := decodeMatrixDataEntry(r)
		if err != nil {
			return s, err
		}

		var draws []uint16
		for j := 0; j < int(mde.listSize); j++ {
			idx := int(mde.listStart)/2 + j
			if idx >= 0 && idx < len(drw) {
				draws = append(draws, drw[idx].Index)
			}
		}

		asm := &dlcodec.Assembler{Desc: desc}
		pktIdx := h.firstPacket + uint16(i)
		if int(pktIdx) < len(packetSizes) {
			r.S.SeekSet(packetStart)
			for k := 0; k < int(pktIdx); k++ {
				r.S.SeekSet(r.S.Tell() + int64(packetSizes[k]))
			}
			if err := decoder.Decode(r, asm.OnDraw, asm.OnIndexedLoad); err != nil {
				return s, err
			}
		}
		prims := asm.Primitives()
		for pi := range prims {
			if len(draws) > 0 {
				prims[pi].DrawMatrices = draws
			}
		}
		s.Primitives = append(s.Primitives, prims...)
	}
	return s, nil
}

// EncodeShapes writes a full SHP1 section body (the writer is
// positioned right after the section's own 8-byte magic+size header),
// mirroring decodeShapes's layout: a shape-header table, a shared VCD
// table, then the packet-size and matrix-data tables, then the
// packet byte stream itself (spec.md §6 "Writing" for SHP1/VTX1-style
// sections). Every shape is assumed to share desc, matching this
// toolkit's single-descriptor-per-section simplification (see
// dlcodec.Descriptor's doc comment).
func EncodeShapes(w *stream.Writer, shapes []Shape, desc dlcodec.Descriptor) {
	start := w.ReserveNext(28)
	ofsShapeData := w.Tell() - start
	shapeHdrStart := w.ReserveNext(int64(len(shapes)) * 40)
	ofsVCD := w.Tell() - start
	encodeVCD(w, desc)

	type packetData struct{ data []byte }
	type mtxEntry struct {
		currentMatrix int16
		listSize      uint16
		listStart     uint32
	}
	var packets []packetData
	var mtxEntries []mtxEntry
	firstMatrixList := make([]int, len(shapes))
	firstPacket := make([]int, len(shapes))

	drawIdx := 0
	for si, sh := range shapes {
		firstMatrixList[si] = len(mtxEntries)
		firstPacket[si] = len(packets)
		for _, prim := range sh.Primitives {
			scratch := stream.NewWriter(endian.Big, nil)
			_ = dlcodec.Encode(scratch, prim, desc)
			packets = append(packets, packetData{data: scratch.Bytes()})
			mtxEntries = append(mtxEntries, mtxEntry{
				currentMatrix: -1,
				listSize:      uint16(len(prim.DrawMatrices)),
				listStart:     uint32(drawIdx * 2),
			})
			drawIdx += len(prim.DrawMatrices)
		}
	}

	ofsPacketSizes := w.Tell() - start
	for _, p := range packets {
		stream.Write(w, uint32(len(p.data)), endian.Big)
	}
	ofsMatrixData := w.Tell() - start
	for _, e := range mtxEntries {
		stream.Write(w, e.currentMatrix, endian.Big)
		stream.Write(w, e.listSize, endian.Big)
		stream.Write(w, e.listStart, endian.Big)
	}
	ofsPacketData := w.Tell() - start
	for _, p := range packets {
		w.WriteBytes(p.data)
	}

	for si, sh := range shapes {
		hdrOfs := shapeHdrStart + int64(si)*40
		stream.WriteAt(w, hdrOfs, byte(sh.Mode), endian.Current)
		stream.WriteAt(w, hdrOfs+1, byte(0), endian.Current)
		stream.WriteAt(w, hdrOfs+2, uint16(len(sh.Primitives)), endian.Big)
		stream.WriteAt(w, hdrOfs+4, uint16(0), endian.Big) // per-shape vcd override, unused (shared VCD only)
		stream.WriteAt(w, hdrOfs+6, uint16(firstMatrixList[si]), endian.Big)
		stream.WriteAt(w, hdrOfs+8, uint16(firstPacket[si]), endian.Big)
		stream.WriteAt(w, hdrOfs+10, uint16(0), endian.Big)
		stream.WriteAt(w, hdrOfs+12, sh.BoundingRadius, endian.Big)
		for i, v := range sh.AABBMin {
			stream.WriteAt(w, hdrOfs+16+int64(i)*4, v, endian.Big)
		}
		for i, v := range sh.AABBMax {
			stream.WriteAt(w, hdrOfs+28+int64(i)*4, v, endian.Big)
		}
	}

	stream.WriteAt(w, start, uint16(len(shapes)), endian.Big)
	stream.WriteAt(w, start+2, uint16(0xFFFF), endian.Current)
	stream.WriteAt(w, start+4, uint32(ofsShapeData), endian.Big)
	stream.WriteAt(w, start+8, uint32(0), endian.Big)
	stream.WriteAt(w, start+12, uint32(ofsVCD), endian.Big)
	stream.WriteAt(w, start+16, uint32(ofsMatrixData), endian.Big)
	stream.WriteAt(w, start+20, uint32(ofsPacketData), endian.Big)
	stream.WriteAt(w, start+24, uint32(ofsPacketSizes), endian.Big)
}

func encodeVCD(w *stream.Writer, desc dlcodec.Descriptor) {
	for _, e := range desc.Entries {
		stream.Write(w, uint32(e.Attribute), endian.Big)
		stream.Write(w, uint32(e.Source), endian.Big)
	}
	stream.Write(w, uint32(0xFF), endian.Big)
}
