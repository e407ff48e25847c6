// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package j3d

import (
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

// btiHeaderSize is the fixed size of a BTI header (spec.md §6:
// "a list of 0x20-byte BTI headers").
const btiHeaderSize = 0x20

// WrapMode is a sampler's S/T wrap mode.
type WrapMode byte

const (
	WrapClamp  WrapMode = 0
	WrapRepeat WrapMode = 1
	WrapMirror WrapMode = 2
)

// FilterMode is a sampler's minification/magnification filter.
type FilterMode byte

// Texture is one decoded TEX1 entry: a BTI header plus its pixel data
// and, once names are resolved, its name.
type Texture struct {
	Name string

	Format     byte
	Width      uint16
	Height     uint16
	WrapS      WrapMode
	WrapT      WrapMode
	MinFilter  FilterMode
	MagFilter  FilterMode
	MinLOD     float32
	MaxLOD     float32
	LODBias    float32
	MipCount   byte
	PaletteFmt byte

	// Pixels holds the raw, still-compressed image data; decoding it
	// to RGBA is the external GX texture codec's job (spec.md §1).
	Pixels []byte
}

type btiHeader struct {
	format     byte
	width      uint16
	height     uint16
	wrapS      byte
	wrapT      byte
	paletteFmt byte
	minFilter  byte
	magFilter  byte
	minLOD     float32
	maxLOD     float32
	lodBias    float32
	mipCount   byte
	dataOfs    uint32
}

// decodeBTIHeader reads the fixed 32-byte BTI header:
// {format:u8, pad:u8, width:u16, height:u16, wrapS:u8, wrapT:u8,
//  paletteFmt:u8, mipCount:u8, minFilter:u8, magFilter:u8,
//  minLOD:f32, maxLOD:f32, lodBias:f32, pad:u32, dataOfs:u32}.
func decodeBTIHeader(r saferead.Reader) (btiHeader, error) {
	var h btiHeader
	fmtByte, err := r.U8()
	if err != nil {
		return h, err
	}
	h.format = fmtByte
	if _, err := r.U8(); err != nil { // padding
		return h, err
	}
	w, err := r.U16()
	if err != nil {
		return h, err
	}
	h.width = w
	ht, err := r.U16()
	if err != nil {
		return h, err
	}
	h.height = ht
	wrapS, err := r.U8()
	if err != nil {
		return h, err
	}
	h.wrapS = wrapS
	wrapT, err := r.U8()
	if err != nil {
		return h, err
	}
	h.wrapT = wrapT
	pf, err := r.U8()
	if err != nil {
		return h, err
	}
	h.paletteFmt = pf
	mc, err := r.U8()
	if err != nil {
		return h, err
	}
	h.mipCount = mc
	minF, err := r.U8()
	if err != nil {
		return h, err
	}
	h.minFilter = minF
	magF, err := r.U8()
	if err != nil {
		return h, err
	}
	h.magFilter = magF
	minLOD, err := r.F32()
	if err != nil {
		return h, err
	}
	h.minLOD = minLOD
	maxLOD, err := r.F32()
	if err != nil {
		return h, err
	}
	h.maxLOD = maxLOD
	lodBias, err := r.F32()
	if err != nil {
		return h, err
	}
	h.lodBias = lodBias
	if _, err := r.U32(); err != nil { // padding
		return h, err
	}
	ofs, err := r.U32()
	if err != nil {
		return h, err
	}
	h.dataOfs = ofs
	return h, nil
}

// ImageSizer is the external GX texture codec capability spec.md §1
// calls out: "supplies compute_image_size(format, w, h, mips)".
type ImageSizer func(format byte, width, height uint16, mipCount byte) int

// DecodeTEX1 reads count BTI headers at r's current position, extracts
// each texture's pixel data using sizer to know how many bytes to keep,
// then reads the parallel J3D name table that follows the last pixel
// blob (the layout EncodeTEX1 writes).
func DecodeTEX1(r saferead.Reader, count int, sizer ImageSizer) ([]Texture, error) {
	start := r.S.Tell()
	headers := make([]btiHeader, count)
	for i := range headers {
		h, err := decodeBTIHeader(r)
		if err != nil {
			return nil, err
		}
		headers[i] = h
	}

	texs := make([]Texture, count)
	end := start + int64(count*btiHeaderSize)
	seen := make(map[int64]int) // absolute blob start -> first texture index sharing that blob
	for i, h := range headers {
		t := Texture{
			Format: h.format, Width: h.width, Height: h.height,
			WrapS: WrapMode(h.wrapS), WrapT: WrapMode(h.wrapT),
			MinFilter: FilterMode(h.minFilter), MagFilter: FilterMode(h.magFilter),
			MinLOD: h.minLOD, MaxLOD: h.maxLOD, LODBias: h.lodBias, MipCount: h.mipCount,
			PaletteFmt: h.paletteFmt,
		}
		blobStart := start + int64(i*btiHeaderSize) + int64(h.dataOfs)
		if first, ok := seen[blobStart]; ok {
			t.Pixels = texs[first].Pixels
		} else {
			n := sizer(h.format, h.width, h.height, h.mipCount)
			r.S.SeekSet(blobStart)
			buf := make([]byte, n)
			for j := range buf {
				b, err := r.U8()
				if err != nil {
					return nil, err
				}
				buf[j] = b
			}
			t.Pixels = buf
			seen[blobStart] = i
			if e := blobStart + int64(n); e > end {
				end = e
			}
		}
		texs[i] = t
	}

	r.S.SeekSet(end)
	names, err := DecodeNameTable(r)
	if err != nil {
		return nil, err
	}
	for i := range texs {
		if i < len(names) {
			texs[i].Name = names[i]
		}
	}
	return texs, nil
}

// EncodeTEX1 writes BTI headers, then unique pixel-data blobs (textures
// with byte-identical Pixels share one blob), then the name table
// (spec.md §6 "Writing"). Headers are reserved up front and patched
// once the blob offsets are known, since Writer only appends at its
// current end.
func EncodeTEX1(w *stream.Writer, texs []Texture) {
	stream.Write(w, uint16(len(texs)), endian.Big)
	stream.Write(w, uint16(0xFFFF), endian.Current)
	start := w.ReserveNext(int64(len(texs) * btiHeaderSize))

	dataOfs := make([]int64, len(texs))
	written := make(map[string]int64)
	for i, t := range texs {
		key := string(t.Pixels)
		if ofs, ok := written[key]; ok {
			dataOfs[i] = ofs
			continue
		}
		ofs := w.Tell()
		w.WriteBytes(t.Pixels)
		dataOfs[i] = ofs
		written[key] = ofs
	}

	for i := range texs {
		headerOfs := start + int64(i)*btiHeaderSize
		stream.WriteAt(w, headerOfs, texs[i].Format, endian.Current)
		stream.WriteAt(w, headerOfs+2, texs[i].Width, endian.Big)
		stream.WriteAt(w, headerOfs+4, texs[i].Height, endian.Big)
		stream.WriteAt(w, headerOfs+6, byte(texs[i].WrapS), endian.Current)
		stream.WriteAt(w, headerOfs+7, byte(texs[i].WrapT), endian.Current)
		stream.WriteAt(w, headerOfs+8, texs[i].PaletteFmt, endian.Current)
		stream.WriteAt(w, headerOfs+9, texs[i].MipCount, endian.Current)
		stream.WriteAt(w, headerOfs+10, byte(texs[i].MinFilter), endian.Current)
		stream.WriteAt(w, headerOfs+11, byte(texs[i].MagFilter), endian.Current)
		stream.WriteAt(w, headerOfs+12, texs[i].MinLOD, endian.Big)
		stream.WriteAt(w, headerOfs+16, texs[i].MaxLOD, endian.Big)
		stream.WriteAt(w, headerOfs+20, texs[i].LODBias, endian.Big)
		stream.WriteAt(w, headerOfs+28, uint32(dataOfs[i]-headerOfs), endian.Big)
	}

	names := make([]string, len(texs))
	for i, t := range texs {
		names[i] = t.Name
	}
	EncodeNameTable(w, names)
}
