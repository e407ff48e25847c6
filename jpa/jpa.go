// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package jpa implements the JPAC2-10 particle-effect container: the
// per-effect resource table (BEM1/BSP1/ESP1/SSP1/FLD1/KFA1/ETX1 blocks,
// decoded in blocks.go) and the texture table trailing it. Ported from
// librii::jparticle's JPAC2-10 reader/writer (JParticle.cpp), collapsing
// its two format-version loaders into the one this toolkit targets: see
// DESIGN.md's "## jpa" entry for why the legacy JEFFjpa1 container is
// out of scope.
package jpa

import (
	"github.com/gviegas/bmdtool/bmderr"
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

// ImageSizer supplies compute_image_size for a JPA texture block's
// pixel-data extent, mirroring j3d.ImageSizer (spec.md §1's external GX
// texture codec capability — not implemented by this toolkit).
type ImageSizer func(format byte, width, height uint16, mipCount byte) int

// Resource is one effect's full parameter set: exactly one BEM1, one
// BSP1, and optionally one ESP1/SSP1/ETX1, plus any number of FLD1/KFA1
// blocks. A nil pointer field means the effect's block table omitted
// that tag.
type Resource struct {
	ID uint16

	BEM1 *DynamicsBlock
	BSP1 *BaseShapeBlock
	ESP1 *ExtraShapeBlock
	SSP1 *ChildShapeBlock
	ETX1 *ExTexBlock
	FLD1 []FieldBlock
	KFA1 []KeyBlock

	// TDB1 indexes Container.Textures; the TexIdx fields of
	// BaseShapeBlock (BSP1) and ChildShapeBlock (SSP1) are indices into
	// this table, not
	// directly into Container.Textures.
	TDB1 []uint16
}

// Container is a fully decoded JPAC2-10 file.
type Container struct {
	Resources []Resource
	Textures  []TextureBlock
}

const (
	resourceTableStart = 0x10
	resourceHeaderSize = 0x08
)

// Decode parses a complete JPAC2-10 buffer. sizer supplies
// compute_image_size for each TEX1 texture block (see ImageSizer).
func Decode(buf []byte, sizer ImageSizer) (*Container, error) {
	sr := stream.NewReader(buf, endian.Big, nil)
	r := saferead.New(sr)

	if err := r.Magic([]byte("JPAC")); err != nil {
		return nil, err
	}
	subVersion, err := r.S.Bytes(r.S.Tell(), r.S.Tell()+4)
	if err != nil {
		return nil, err
	}
	if string(subVersion) != "2-10" {
		return nil, bmderr.At(bmderr.MagicMismatch, 4, "unsupported JPAC sub-version %q (only \"2-10\" is implemented)", subVersion)
	}
	r.S.Skip(4)

	effectCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	textureCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	textureTableOffs, err := r.U32()
	if err != nil {
		return nil, err
	}

	c := &Container{Resources: make([]Resource, 0, effectCount)}
	r.S.SeekSet(resourceTableStart)
	for i := 0; i < int(effectCount); i++ {
		res, err := decodeResource(r)
		if err != nil {
			return nil, err
		}
		c.Resources = append(c.Resources, res)
	}

	r.S.SeekSet(int64(textureTableOffs))
	c.Textures = make([]TextureBlock, 0, textureCount)
	for i := 0; i < int(textureCount); i++ {
		tagStart := r.S.Tell()
		name, err := r.S.Bytes(tagStart, tagStart+4)
		if err != nil {
			return nil, err
		}
		if string(name) != "TEX1" {
			return nil, bmderr.MagicMismatchError(tagStart, []byte("TEX1"), name)
		}
		tagSize, err := stream.PeekAt[uint32](r.S, tagStart+4, endian.Current, false)
		if err != nil {
			return nil, err
		}
		tex, err := decodeTextureBlock(r, tagStart, sizer)
		if err != nil {
			return nil, err
		}
		c.Textures = append(c.Textures, tex)
		r.S.SeekSet(tagStart + int64(tagSize))
	}

	return c, nil
}

// decodeResource reads one effect's resourceId/blockCount header at the
// reader's current position, then dispatches each of its blockCount
// tags by name. The original's two per-version loaders (one for
// JPAC2-10, one for legacy JEFFjpa1) differ only in which tag names
// they recognize; this single loop recognizes the union BEM1, BSP1,
// ESP1, SSP1, FLD1, KFA1, ETX1 and TDB1, so it already covers both
// without needing a version switch.
func decodeResource(r saferead.Reader) (Resource, error) {
	var res Resource

	id, err := r.U16()
	if err != nil {
		return res, err
	}
	res.ID = id
	blockCount, err := r.U16()
	if err != nil {
		return res, err
	}
	// fieldBlockCount, keyBlockCount, tdb1Count: redundant against the
	// per-tag counts this loop derives as it goes, so they are skipped
	// rather than re-derived.
	r.S.Skip(4)

	for i := 0; i < int(blockCount); i++ {
		tagStart := r.S.Tell()
		name, err := r.S.Bytes(tagStart, tagStart+4)
		if err != nil {
			return res, err
		}
		tagSize, err := stream.PeekAt[uint32](r.S, tagStart+4, endian.Current, false)
		if err != nil {
			return res, err
		}

		switch string(name) {
		case "BEM1":
			b, err := decodeBEM1(r, tagStart)
			if err != nil {
				return res, err
			}
			res.BEM1 = &b
		case "BSP1":
			b, err := decodeBSP1(r, tagStart)
			if err != nil {
				return res, err
			}
			res.BSP1 = &b
		case "ESP1":
			b, err := decodeESP1(r, tagStart)
			if err != nil {
				return res, err
			}
			res.ESP1 = &b
		case "SSP1":
			b, err := decodeSSP1(r, tagStart)
			if err != nil {
				return res, err
			}
			res.SSP1 = &b
		case "FLD1":
			b, err := decodeFLD1(r, tagStart)
			if err != nil {
				return res, err
			}
			res.FLD1 = append(res.FLD1, b)
		case "KFA1":
			// The legacy loader derives KeyType from a bitmask BEM1
			// carries; this toolkit instead recovers the key's parameter
			// identity from block order (the original always emits KFA1
			// blocks in KeyType order): the n-th KFA1 block of a
			// resource gets Type KeyType(n).
			b, err := decodeKFA1(r, tagStart, KeyRate)
			if err != nil {
				return res, err
			}
			b.Type = KeyType(len(res.KFA1))
			res.KFA1 = append(res.KFA1, b)
		case "ETX1":
			b, err := decodeETX1(r, tagStart)
			if err != nil {
				return res, err
			}
			res.ETX1 = &b
		case "TDB1":
			count := (tagSize - 8) / 2
			ids, err := stream.ReadBufferAt[uint16](r.S, int(count), tagStart+8, endian.Current, false)
			if err != nil {
				return res, err
			}
			res.TDB1 = ids
		default:
			r.S.WarnAt("unrecognized JPA block tag "+string(name), tagStart, tagStart+int64(tagSize))
		}

		r.S.SeekSet(tagStart + int64(tagSize))
	}

	return res, nil
}

// Encode serializes c back into a JPAC2-10 buffer.
func Encode(c *Container) []byte {
	w := stream.NewWriter(endian.Big, nil)
	w.WriteBytes([]byte("JPAC"))
	w.WriteBytes([]byte("2-10"))
	stream.Write(w, uint16(len(c.Resources)), endian.Current)
	stream.Write(w, uint16(len(c.Textures)), endian.Current)
	tableOfsPos := w.Tell()
	stream.Write(w, uint32(0), endian.Current)

	for _, res := range c.Resources {
		encodeResource(w, res)
	}

	w.AlignTo(4)
	textureTableOffs := w.Tell()
	for _, t := range c.Textures {
		encodeTextureBlock(w, t)
	}

	stream.WriteAt(w, tableOfsPos, uint32(textureTableOffs), endian.Current)
	return w.Bytes()
}

func encodeResource(w *stream.Writer, res Resource) {
	stream.Write(w, res.ID, endian.Current)
	countPos := w.Tell()
	stream.Write(w, uint16(0), endian.Current)
	stream.Write(w, uint8(len(res.FLD1)), endian.Current)
	stream.Write(w, uint8(len(res.KFA1)), endian.Current)
	stream.Write(w, uint8(len(res.TDB1)), endian.Current)
	stream.Write(w, uint8(0), endian.Current)

	var count int
	if res.BEM1 != nil {
		encodeBEM1(w, *res.BEM1)
		count++
	}
	if res.BSP1 != nil {
		encodeBSP1(w, *res.BSP1)
		count++
	}
	if res.ESP1 != nil {
		encodeESP1(w, *res.ESP1)
		count++
	}
	if res.SSP1 != nil {
		encodeSSP1(w, *res.SSP1)
		count++
	}
	for _, f := range res.FLD1 {
		encodeFLD1(w, f)
		count++
	}
	for _, k := range res.KFA1 {
		encodeKFA1(w, k)
		count++
	}
	if res.ETX1 != nil {
		encodeETX1(w, *res.ETX1)
		count++
	}
	if len(res.TDB1) > 0 {
		start := w.Tell()
		w.WriteBytes([]byte("TDB1"))
		sizePos := w.Tell()
		stream.Write(w, uint32(0), endian.Current)
		for _, id := range res.TDB1 {
			stream.Write(w, id, endian.Current)
		}
		stream.WriteAt(w, sizePos, uint32(w.Tell()-start), endian.Current)
		count++
	}

	stream.WriteAt(w, countPos, uint16(count), endian.Current)
}

// TextureBlock is a JPA TEX1 block: a BTI-style texture with its name
// embedded directly in the block instead of referenced through a
// shared name table, since JPA's texture table has no namepool
// alongside it. Layout ported from load_block_data_from_file's TEX1
// handling in JParticle.cpp.
type TextureBlock struct {
	Name string

	Format     byte
	Width      uint16
	Height     uint16
	WrapS      byte
	WrapT      byte
	PaletteFmt byte
	MipCount   byte
	MinFilter  byte
	MagFilter  byte
	MinLOD     float32
	MaxLOD     float32
	LODBias    float32

	Pixels []byte
}

const (
	jpaTexNameSize = 0x14
	jpaBTIHeaderSize = 0x20
)

func decodeTextureBlock(r saferead.Reader, tagStart int64, sizer ImageSizer) (TextureBlock, error) {
	var t TextureBlock

	nameBytes, err := r.S.Bytes(tagStart+8, tagStart+8+jpaTexNameSize)
	if err != nil {
		return t, err
	}
	t.Name = trimNUL(nameBytes)

	hdrStart := tagStart + 8 + jpaTexNameSize
	peek8 := func(ofs int64) (uint8, error) { return stream.PeekAt[uint8](r.S, hdrStart+ofs, endian.Current, false) }
	peek16 := func(ofs int64) (uint16, error) { return stream.PeekAt[uint16](r.S, hdrStart+ofs, endian.Current, false) }
	peekF := func(ofs int64) (float32, error) { return stream.PeekAt[float32](r.S, hdrStart+ofs, endian.Current, false) }
	peek32 := func(ofs int64) (uint32, error) { return stream.PeekAt[uint32](r.S, hdrStart+ofs, endian.Current, false) }

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
	if t.WrapS, e = peek8(6); e != nil {
		return t, e
	}
	if t.WrapT, e = peek8(7); e != nil {
		return t, e
	}
	if t.PaletteFmt, e = peek8(8); e != nil {
		return t, e
	}
	if t.MipCount, e = peek8(9); e != nil {
		return t, e
	}
	if t.MinFilter, e = peek8(10); e != nil {
		return t, e
	}
	if t.MagFilter, e = peek8(11); e != nil {
		return t, e
	}
	if t.MinLOD, e = peekF(12); e != nil {
		return t, e
	}
	if t.MaxLOD, e = peekF(16); e != nil {
		return t, e
	}
	if t.LODBias, e = peekF(20); e != nil {
		return t, e
	}
	dataOfs, e := peek32(28)
	if e != nil {
		return t, e
	}

	n := sizer(t.Format, t.Width, t.Height, t.MipCount)
	dataStart := hdrStart + int64(dataOfs)
	pixels, err := r.S.Bytes(dataStart, dataStart+int64(n))
	if err != nil {
		return t, err
	}
	t.Pixels = append([]byte(nil), pixels...)

	return t, nil
}

func encodeTextureBlock(w *stream.Writer, t TextureBlock) {
	start := w.Tell()
	w.WriteBytes([]byte("TEX1"))
	sizePos := w.Tell()
	stream.Write(w, uint32(0), endian.Current)

	var nameBuf [jpaTexNameSize]byte
	copy(nameBuf[:], t.Name)
	w.WriteBytes(nameBuf[:])

	hdrStart := w.ReserveNext(jpaBTIHeaderSize)
	dataStart := w.Tell()
	w.WriteBytes(t.Pixels)

	stream.WriteAt(w, hdrStart+0, t.Format, endian.Current)
	stream.WriteAt(w, hdrStart+2, t.Width, endian.Current)
	stream.WriteAt(w, hdrStart+4, t.Height, endian.Current)
	stream.WriteAt(w, hdrStart+6, t.WrapS, endian.Current)
	stream.WriteAt(w, hdrStart+7, t.WrapT, endian.Current)
	stream.WriteAt(w, hdrStart+8, t.PaletteFmt, endian.Current)
	stream.WriteAt(w, hdrStart+9, t.MipCount, endian.Current)
	stream.WriteAt(w, hdrStart+10, t.MinFilter, endian.Current)
	stream.WriteAt(w, hdrStart+11, t.MagFilter, endian.Current)
	stream.WriteAt(w, hdrStart+12, t.MinLOD, endian.Current)
	stream.WriteAt(w, hdrStart+16, t.MaxLOD, endian.Current)
	stream.WriteAt(w, hdrStart+20, t.LODBias, endian.Current)
	stream.WriteAt(w, hdrStart+28, uint32(dataStart-hdrStart), endian.Current)

	stream.WriteAt(w, sizePos, uint32(w.Tell()-start), endian.Current)
}

func trimNUL(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
