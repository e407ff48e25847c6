// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package brres

import (
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

// ImageSizer supplies compute_image_size for a Texture's pixel-data
// extent, mirroring j3d.ImageSizer (spec.md §1's external GX texture
// codec capability).
type ImageSizer func(format byte, width, height uint16, mipCount byte) int

// Texture is a BRRES TEX0 resource: a GX texture using the same pixel
// formats J3D's BTI blocks use, named via the folder dictionary
// rather than an inline name field. TextureIO.cpp was not present in
// the retrieval pack, so this header is this toolkit's own
// reconstruction, grounded on the sibling BTI layout this toolkit
// already implements in j3d (same console, same GX texture formats).
type Texture struct {
	Name string

	Format   byte
	Width    uint16
	Height   uint16
	MipCount byte
	WrapS    byte
	WrapT    byte
	MinFilter byte
	MagFilter byte

	Pixels []byte
}

const texHeaderSize = 0x10 // format, width, height, mipCount, wrapS/T, minFilter/magFilter, pad, dataOfs

func decodeTexture(r saferead.Reader, start int64, sizer ImageSizer) (Texture, error) {
	var t Texture
	peek8 := func(ofs int64) (uint8, error) { return stream.PeekAt[uint8](r.S, start+ofs, endian.Current, false) }
	peek16 := func(ofs int64) (uint16, error) { return stream.PeekAt[uint16](r.S, start+ofs, endian.Current, false) }
	peek32 := func(ofs int64) (uint32, error) { return stream.PeekAt[uint32](r.S, start+ofs, endian.Current, false) }

	var e error
	if t.Format, e = peek8(0); e != nil {
		return t, e
	}
	if t.Width, e = peek16(2); e != nil {
		return t, e
	}
	if t.Height, e = peek16(4); e != nil {
		return t, e
	}
	if t.MipCount, e = peek8(6); e != nil {
		return t, e
	}
	if t.WrapS, e = peek8(7); e != nil {
		return t, e
	}
	if t.WrapT, e = peek8(8); e != nil {
		return t, e
	}
	if t.MinFilter, e = peek8(9); e != nil {
		return t, e
	}
	if t.MagFilter, e = peek8(10); e != nil {
		return t, e
	}
	dataOfs, e := peek32(12)
	if e != nil {
		return t, e
	}

	n := sizer(t.Format, t.Width, t.Height, t.MipCount)
	dataStart := start + int64(dataOfs)
	pixels, err := r.S.Bytes(dataStart, dataStart+int64(n))
	if err != nil {
		return t, err
	}
	t.Pixels = append([]byte(nil), pixels...)
	return t, nil
}

func encodeTexture(w *stream.Writer, t Texture) int64 {
	start := w.ReserveNext(texHeaderSize)
	dataStart := w.Tell()
	w.WriteBytes(t.Pixels)

	stream.WriteAt(w, start+0, t.Format, endian.Current)
	stream.WriteAt(w, start+2, t.Width, endian.Current)
	stream.WriteAt(w, start+4, t.Height, endian.Current)
	stream.WriteAt(w, start+6, t.MipCount, endian.Current)
	stream.WriteAt(w, start+7, t.WrapS, endian.Current)
	stream.WriteAt(w, start+8, t.WrapT, endian.Current)
	stream.WriteAt(w, start+9, t.MinFilter, endian.Current)
	stream.WriteAt(w, start+10, t.MagFilter, endian.Current)
	stream.WriteAt(w, start+12, uint32(dataStart-start), endian.Current)
	return start
}
