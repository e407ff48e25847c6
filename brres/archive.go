// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package brres implements the BRRES container format (spec.md §4.8):
// the GameCube/Wii sibling of this toolkit's J3D codec, sharing its
// stream/linker/name-pool infrastructure but organizing resources
// through a root dictionary of folders instead of a flat section list.
package brres

import (
	"sort"

	"github.com/gviegas/bmdtool/brresdict"
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/namepool"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

// Archive is a decoded BRRES file: the seven folders the format's root
// dictionary may name, each holding zero or more resources.
type Archive struct {
	Models   []Model
	Textures []Texture
	Chr0     []Animation
	Clr0     []Animation
	Pat0     []Animation
	Srt0     []Animation
	Vis0     []Animation
}

const (
	headerSize   = 0x10
	modelAlign   = 32
	textureAlign = 32
	srt0Align    = 1
)

// folderNames lists the names of the folders that hold at least one
// entry, in the fixed order spec.md §4.8's write plan emits them.
func (a *Archive) folderNames() []string {
	var names []string
	if len(a.Models) > 0 {
		names = append(names, "3DModels(NW4R)")
	}
	if len(a.Textures) > 0 {
		names = append(names, "Textures(NW4R)")
	}
	if len(a.Chr0) > 0 {
		names = append(names, KindCHR0.folderName())
	}
	if len(a.Clr0) > 0 {
		names = append(names, KindCLR0.folderName())
	}
	if len(a.Pat0) > 0 {
		names = append(names, KindPAT0.folderName())
	}
	if len(a.Srt0) > 0 {
		names = append(names, KindSRT0.folderName())
	}
	if len(a.Vis0) > 0 {
		names = append(names, KindVIS0.folderName())
	}
	return names
}

// Decode reads a complete BRRES archive from buf.
func Decode(buf []byte, sizer ImageSizer) (*Archive, error) {
	r := stream.NewReader(buf, endian.Big, nil)
	sr := saferead.New(r)

	if err := sr.Magic([]byte("bres")); err != nil {
		return nil, err
	}
	if _, err := sr.U16(); err != nil { // byte-order mark, unchecked: input is always big-endian
		return nil, err
	}
	if _, err := sr.U16(); err != nil { // revision
		return nil, err
	}
	if _, err := sr.U32(); err != nil { // file size, unused on decode
		return nil, err
	}
	dataOfs, err := sr.U16()
	if err != nil {
		return nil, err
	}
	if _, err := sr.U16(); err != nil { // section count, unused on decode
		return nil, err
	}

	r.SeekSet(int64(dataOfs))
	if err := sr.Magic([]byte("root")); err != nil {
		return nil, err
	}
	root, err := brresdict.Decode(sr)
	if err != nil {
		return nil, err
	}

	arc := &Archive{}
	for _, node := range root.Nodes[1:] {
		if node.DataOffset == 0 {
			continue
		}
		r.SeekSet(node.DataOffset)
		folder, err := brresdict.Decode(sr)
		if err != nil {
			return nil, err
		}
		if err := decodeFolder(sr, node.Name, folder, arc, sizer); err != nil {
			return nil, err
		}
	}
	return arc, nil
}

func decodeFolder(sr saferead.Reader, folderName string, folder *brresdict.Dictionary, arc *Archive, sizer ImageSizer) error {
	for _, entry := range folder.Nodes[1:] {
		if entry.DataOffset == 0 {
			continue
		}
		sr.S.SeekSet(entry.DataOffset)
		switch folderName {
		case "3DModels(NW4R)":
			m, err := decodeMDL0(sr, entry.Name)
			if err != nil {
				return err
			}
			arc.Models = append(arc.Models, *m)
		case "Textures(NW4R)":
			t, err := decodeTexture(sr, entry.DataOffset, sizer)
			if err != nil {
				return err
			}
			t.Name = entry.Name
			arc.Textures = append(arc.Textures, t)
		case KindCHR0.folderName():
			a, err := decodeAnimation(sr, entry.Name, KindCHR0)
			if err != nil {
				return err
			}
			arc.Chr0 = append(arc.Chr0, a)
		case KindCLR0.folderName():
			a, err := decodeAnimation(sr, entry.Name, KindCLR0)
			if err != nil {
				return err
			}
			arc.Clr0 = append(arc.Clr0, a)
		case KindPAT0.folderName():
			a, err := decodeAnimation(sr, entry.Name, KindPAT0)
			if err != nil {
				return err
			}
			arc.Pat0 = append(arc.Pat0, a)
		case KindSRT0.folderName():
			a, err := decodeAnimation(sr, entry.Name, KindSRT0)
			if err != nil {
				return err
			}
			arc.Srt0 = append(arc.Srt0, a)
		case KindVIS0.folderName():
			a, err := decodeAnimation(sr, entry.Name, KindVIS0)
			if err != nil {
				return err
			}
			arc.Vis0 = append(arc.Vis0, a)
		default:
			sr.S.WarnAt("unknown BRRES folder", entry.DataOffset, entry.DataOffset)
		}
	}
	return nil
}

// decodeMDL0 reads an MDL0 resource's own small header (magic, size,
// bone/envelope/draw-matrix counts) before handing off to DecodeModel.
func decodeMDL0(sr saferead.Reader, name string) (*Model, error) {
	start := sr.S.Tell()
	if err := sr.Magic([]byte("MDL0")); err != nil {
		return nil, err
	}
	if _, err := sr.U32(); err != nil { // size
		return nil, err
	}
	if _, err := sr.U32(); err != nil { // version
		return nil, err
	}
	if _, err := sr.U32(); err != nil { // offset back to the BRRES root, unused
		return nil, err
	}
	boneCount, err := sr.U32()
	if err != nil {
		return nil, err
	}
	envCount, err := sr.U32()
	if err != nil {
		return nil, err
	}
	drawCount, err := sr.U32()
	if err != nil {
		return nil, err
	}
	sr.S.SeekSet(start + 0x40) // bone array start, fixed by this toolkit's MDL0 layout
	return DecodeModel(sr, name, int(boneCount), int(envCount), int(drawCount))
}

// Encode writes arc following spec.md §4.8's write plan: header, root
// dictionary, one dictionary per non-empty folder, sub-resources in
// fixed folder order, then folder dictionaries back-patched from the
// recorded positions, then the root dictionary, then the shared name
// pool.
func Encode(arc *Archive) []byte {
	w := stream.NewWriter(endian.Big, nil)
	names := namepool.New()

	w.WriteBytes([]byte("bres"))
	stream.Write(w, uint16(0xFEFF), endian.Current)
	stream.Write(w, uint16(0), endian.Current) // revision
	fileSizePos := w.Tell()
	stream.Write(w, uint32(0), endian.Current) // file size, patched at the end
	stream.Write(w, uint16(headerSize), endian.Current)
	stream.Write(w, uint16(1), endian.Current) // section count: just the root group

	folderNames := arc.folderNames()
	w.WriteBytes([]byte("root"))
	rootDictStart := w.ReserveNext(brresdict.CalcDictionarySize(len(folderNames)))

	folderDictStart := make(map[string]int64, len(folderNames))
	for _, fn := range folderNames {
		n := folderEntryCount(arc, fn)
		folderDictStart[fn] = w.ReserveNext(brresdict.CalcDictionarySize(n))
	}

	type placed struct {
		name  string
		start int64
	}
	byFolder := make(map[string][]placed)

	if len(arc.Models) > 0 {
		for _, m := range arc.Models {
			w.AlignTo(modelAlign)
			start := encodeMDL0(w, names, m)
			byFolder["3DModels(NW4R)"] = append(byFolder["3DModels(NW4R)"], placed{m.Name, start})
		}
	}
	if len(arc.Textures) > 0 {
		for _, t := range arc.Textures {
			w.AlignTo(textureAlign)
			start := encodeTexture(w, t)
			byFolder["Textures(NW4R)"] = append(byFolder["Textures(NW4R)"], placed{t.Name, start})
		}
	}
	encodeAnimFolder := func(kind AnimKind, anims []Animation) {
		if len(anims) == 0 {
			return
		}
		align := int64(4)
		if kind == KindSRT0 {
			align = srt0Align
		}
		for _, a := range anims {
			w.AlignTo(align)
			start := w.Tell()
			encodeAnimation(w, a)
			byFolder[kind.folderName()] = append(byFolder[kind.folderName()], placed{a.Name, start})
		}
	}
	encodeAnimFolder(KindCHR0, arc.Chr0)
	encodeAnimFolder(KindCLR0, arc.Clr0)
	encodeAnimFolder(KindPAT0, arc.Pat0)
	encodeAnimFolder(KindSRT0, arc.Srt0)
	encodeAnimFolder(KindVIS0, arc.Vis0)

	for _, fn := range folderNames {
		items := byFolder[fn]
		sort.Slice(items, func(i, j int) bool { return items[i].name < items[j].name })
		entryNames := make([]string, len(items))
		for i, it := range items {
			entryNames[i] = it.name
		}
		d := brresdict.New(entryNames)
		for i, it := range items {
			d.Nodes[i+1].DataOffset = it.start
		}
		d.EncodeAt(w, names, folderDictStart[fn])
	}

	root := brresdict.New(folderNames)
	for i, fn := range folderNames {
		root.Nodes[i+1].DataOffset = folderDictStart[fn]
	}
	root.EncodeAt(w, names, rootDictStart)

	poolBase := w.Tell()
	w.WriteBytes(names.Pack(namepool.Bare))
	names.Resolve(poolBase)

	w.AlignTo(128)
	stream.WriteAt(w, fileSizePos, uint32(w.Tell()), endian.Current)
	return w.Bytes()
}

func folderEntryCount(arc *Archive, name string) int {
	switch name {
	case "3DModels(NW4R)":
		return len(arc.Models)
	case "Textures(NW4R)":
		return len(arc.Textures)
	case KindCHR0.folderName():
		return len(arc.Chr0)
	case KindCLR0.folderName():
		return len(arc.Clr0)
	case KindPAT0.folderName():
		return len(arc.Pat0)
	case KindSRT0.folderName():
		return len(arc.Srt0)
	case KindVIS0.folderName():
		return len(arc.Vis0)
	}
	return 0
}

// encodeMDL0 writes one MDL0 resource's own small header before handing
// off to EncodeModel, and returns its start position.
func encodeMDL0(w *stream.Writer, names *namepool.Pool, m Model) int64 {
	start := w.Tell()
	w.WriteBytes([]byte("MDL0"))
	sizePos := w.Tell()
	stream.Write(w, uint32(0), endian.Current)
	stream.Write(w, uint32(11), endian.Current) // version: matches the revision this toolkit's MDL0 layout targets
	stream.Write(w, int32(0), endian.Current)   // offset back to the BRRES root, unused by this toolkit
	stream.Write(w, uint32(len(m.Bones)), endian.Current)
	stream.Write(w, uint32(len(m.Envelopes)), endian.Current)
	stream.Write(w, uint32(len(m.DrawMatrices)+len(m.Envelopes)), endian.Current)
	w.WriteBytes(make([]byte, (start+0x40)-w.Tell()))

	EncodeModel(w, names, start, &m)
	stream.WriteAt(w, sizePos, uint32(w.Tell()-start), endian.Current)
	return start
}
