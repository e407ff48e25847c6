// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package j3d

import (
	"github.com/gviegas/bmdtool/bmderr"
	"github.com/gviegas/bmdtool/dlcodec"
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

// VTX1 stores every vertex buffer the model's shapes draw from, one
// slot per dlcodec.Attribute kind plus an unused NBT slot (spec.md §6:
// "{position, normal, NBT unused, color0, color1, texcoord0..7}").
const vtxSlotCount = 13

// ComponentType is a VTX1 buffer's wire component type.
type ComponentType byte

const (
	CompU8  ComponentType = 0
	CompS8  ComponentType = 1
	CompU16 ComponentType = 2
	CompS16 ComponentType = 3
	CompF32 ComponentType = 4
)

// ComponentCount is a VTX1 buffer's component-count code, whose
// meaning depends on the attribute (position is 2 or 3; color is RGB
// or RGBA; everything else is 1 or 2).
type ComponentCount byte

// Format is one VTX1 format-table line.
type Format struct {
	CompCount ComponentCount
	CompType  ComponentType
	FracBits  byte // fixed-point shift for integer component types
}

// Buffer is a single decoded VTX1 attribute buffer.
type Buffer struct {
	Attribute dlcodec.Attribute
	Format    Format
	// Floats holds decoded values for every non-color attribute
	// (position, normal, texcoord), CompCount*elementCount long.
	Floats []float32
	// Colors holds decoded RGBA8 values for color0/color1.
	Colors [][4]byte
}

func (f Format) stride() int {
	n := 1
	switch f.CompCount {
	case 0:
		n = 1
	case 1:
		n = 2
	case 2:
		n = 3
	case 3:
		n = 4
	}
	switch f.CompType {
	case CompU8, CompS8:
		return n
	case CompU16, CompS16:
		return n * 2
	case CompF32:
		return n * 4
	}
	return n
}

func (f Format) isColor(attr dlcodec.Attribute) bool {
	return attr == dlcodec.Color0 || attr == dlcodec.Color1
}

// vtx1Slots maps the 13-slot offset table to dlcodec.Attribute, slot 2
// (NBT) having no corresponding attribute.
var vtx1Slots = [vtxSlotCount]dlcodec.Attribute{
	dlcodec.Position, dlcodec.Normal, -1,
	dlcodec.Color0, dlcodec.Color1,
	dlcodec.Texcoord0, dlcodec.Texcoord1, dlcodec.Texcoord2, dlcodec.Texcoord3,
	dlcodec.Texcoord4, dlcodec.Texcoord5, dlcodec.Texcoord6, dlcodec.Texcoord7,
}

// DecodeVTX1 reads a VTX1 section, whose reader is positioned right
// after the 8-byte section header (spec.md §6).
func DecodeVTX1(r saferead.Reader, sectionSize int64) ([]Buffer, error) {
	start := r.S.Tell() - 8 // offsets in this section are relative to the section start
	var formatOfs [vtxSlotCount]uint32
	for i := range formatOfs {
		v, err := r.U32()
		if err != nil {
			return nil, err
		}
		formatOfs[i] = v
	}
	var dataOfs [vtxSlotCount]uint32
	for i := range dataOfs {
		v, err := r.U32()
		if err != nil {
			return nil, err
		}
		dataOfs[i] = v
	}

	var bufs []Buffer
	for slot := 0; slot < vtxSlotCount; slot++ {
		if dataOfs[slot] == 0 || vtx1Slots[slot] < 0 {
			continue
		}
		r.S.SeekSet(start + int64(formatOfs[slot]))
		ccount, err := r.U32()
		if err != nil {
			return nil, err
		}
		ctyp, err := r.U32()
		if err != nil {
			return nil, err
		}
		frac, err := r.U8()
		if err != nil {
			return nil, err
		}
		format := Format{
			CompCount: ComponentCount(ccount),
			CompType:  ComponentType(ctyp),
			FracBits:  frac,
		}
		attr := vtx1Slots[slot]

		next := nextNonzeroOffset(dataOfs[:], slot, uint32(sectionSize+8))
		stride := format.stride()
		if format.isColor(attr) {
			stride = 4
		}
		elemCount := int((next - dataOfs[slot])) / stride

		r.S.SeekSet(start + int64(dataOfs[slot]))
		buf := Buffer{Attribute: attr, Format: format}
		if format.isColor(attr) {
			buf.Colors = make([][4]byte, elemCount)
			for i := range buf.Colors {
				c, err := decodeColor(r, format)
				if err != nil {
					return nil, err
				}
				buf.Colors[i] = c
			}
		} else {
			n := componentCountOf(format.CompCount)
			buf.Floats = make([]float32, elemCount*n)
			for i := range buf.Floats {
				v, err := decodeComponent(r, format)
				if err != nil {
					return nil, err
				}
				buf.Floats[i] = v
			}
		}
		bufs = append(bufs, buf)
	}
	return bufs, nil
}

func componentCountOf(c ComponentCount) int {
	switch c {
	case 2:
		return 3
	case 1:
		return 2
	default:
		return 1
	}
}

func nextNonzeroOffset(ofs []uint32, slot int, sectionSize uint32) uint32 {
	for i := slot + 1; i < len(ofs); i++ {
		if ofs[i] != 0 {
			return ofs[i]
		}
	}
	return sectionSize
}

func decodeComponent(r saferead.Reader, f Format) (float32, error) {
	scale := float32(1)
	if f.FracBits > 0 {
		scale = 1.0 / float32(uint32(1)<<f.FracBits)
	}
	switch f.CompType {
	case CompU8:
		v, err := r.U8()
		return float32(v) * scale, err
	case CompS8:
		v, err := stream.Read[int8](r.S, endian.Current, false)
		return float32(v) * scale, err
	case CompU16:
		v, err := r.U16()
		return float32(v) * scale, err
	case CompS16:
		v, err := r.S16()
		return float32(v) * scale, err
	case CompF32:
		return r.F32()
	default:
		return 0, bmderr.New(bmderr.InvalidEnum, "VTX1 component type %d", f.CompType)
	}
}

func decodeColor(r saferead.Reader, f Format) ([4]byte, error) {
	var c [4]byte
	switch f.CompType {
	case CompU16: // RGBA4 or similar packed 16-bit formats are not modeled further; read as RGBA8 pairs
		r0, err := r.U8()
		if err != nil {
			return c, err
		}
		r1, err := r.U8()
		if err != nil {
			return c, err
		}
		c[0], c[1] = r0, r1
		r2, err := r.U8()
		if err != nil {
			return c, err
		}
		r3, err := r.U8()
		if err != nil {
			return c, err
		}
		c[2], c[3] = r2, r3
	default:
		for i := 0; i < 4; i++ {
			v, err := r.U8()
			if err != nil {
				return c, err
			}
			c[i] = v
		}
	}
	return c, nil
}

// slotOf returns bufs' vtx1Slots index for attr, or -1 if attr has no
// VTX1 slot.
func slotOf(attr dlcodec.Attribute) int {
	for i, a := range vtx1Slots {
		if a == attr {
			return i
		}
	}
	return -1
}

// EncodeVTX1 writes bufs' format table, slot offset table, then each
// buffer's quantized data, mirroring DecodeVTX1's layout (spec.md §6
// "Writing").
func EncodeVTX1(w *stream.Writer, bufs []Buffer) {
	// Matches DecodeVTX1's convention: offset-table entries are
	// relative to the section's own 8-byte magic+size header, not to
	// where the offset table itself begins.
	sectionStart := w.Tell() - 8
	tableStart := w.ReserveNext(int64(vtxSlotCount) * 4 * 2) // formatOfs[13] + dataOfs[13]

	var formatOfs, dataOfs [vtxSlotCount]int64
	for _, buf := range bufs {
		slot := slotOf(buf.Attribute)
		if slot < 0 {
			continue
		}
		formatOfs[slot] = w.Tell() - sectionStart
		stream.Write(w, uint32(buf.Format.CompCount), endian.Big)
		stream.Write(w, uint32(buf.Format.CompType), endian.Big)
		stream.Write(w, buf.Format.FracBits, endian.Current)
		w.AlignTo(4)
	}
	for i, buf := range bufsBySlot(bufs) {
		if buf == nil {
			continue
		}
		dataOfs[i] = w.Tell() - sectionStart
		encodeVTX1Data(w, *buf)
	}

	for i := range formatOfs {
		stream.WriteAt(w, tableStart+int64(i)*4, uint32(formatOfs[i]), endian.Big)
	}
	for i := range dataOfs {
		stream.WriteAt(w, tableStart+int64(vtxSlotCount)*4+int64(i)*4, uint32(dataOfs[i]), endian.Big)
	}
}

// bufsBySlot reorders bufs into vtx1Slots order, so EncodeVTX1 writes
// data regions in the same order DecodeVTX1 expects offsets to
// monotonically increase in.
func bufsBySlot(bufs []Buffer) [vtxSlotCount]*Buffer {
	var out [vtxSlotCount]*Buffer
	for i := range bufs {
		if slot := slotOf(bufs[i].Attribute); slot >= 0 {
			out[slot] = &bufs[i]
		}
	}
	return out
}

func encodeVTX1Data(w *stream.Writer, buf Buffer) {
	if buf.Colors != nil {
		for _, c := range buf.Colors {
			w.WriteBytes(c[:])
		}
		return
	}
	for _, f := range buf.Floats {
		encodeComponent(w, buf.Format, f)
	}
}

func encodeComponent(w *stream.Writer, f Format, v float32) {
	scale := float32(1)
	if f.FracBits > 0 {
		scale = float32(uint32(1) << f.FracBits)
	}
	switch f.CompType {
	case CompU8:
		stream.Write(w, uint8(v*scale), endian.Current)
	case CompS8:
		stream.Write(w, int8(v*scale), endian.Current)
	case CompU16:
		stream.Write(w, uint16(v*scale), endian.Big)
	case CompS16:
		stream.Write(w, int16(v*scale), endian.Big)
	case CompF32:
		stream.Write(w, v, endian.Big)
	}
}

// TrimToMaxIndex shortens buf so it holds exactly maxIndex+1 elements,
// discarding padding the original tool inserted for section alignment
// (spec.md §6: "trim each buffer to max_index_observed + 1").
func (b *Buffer) TrimToMaxIndex(maxIndex int) {
	n := maxIndex + 1
	if b.Colors != nil {
		if n < len(b.Colors) {
			b.Colors = b.Colors[:n]
		}
		return
	}
	perElem := componentCountOf(b.Format.CompCount)
	if n*perElem < len(b.Floats) {
		b.Floats = b.Floats[:n*perElem]
	}
}
