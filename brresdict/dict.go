// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package brresdict implements the BRRES balanced-tree directory
// described in spec.md §4.5 — the binary search structure every BRRES
// folder (3DModels, Textures, the Anm* folders) uses to map a name to
// a stream position. It is the Go counterpart of
// librii::g3d::Dictionary / DictionaryNode.
package brresdict

import (
	"github.com/gviegas/bmdtool/bmderr"
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/namepool"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

// Node is one 16-byte entry in a Dictionary, including the implicit
// root sentinel at index 0.
type Node struct {
	ID      uint16
	Flag    uint16
	IdxPrev uint16
	IdxNext uint16
	Name    string
	// DataOffset is the absolute stream position the entry points to;
	// 0 for the root sentinel or an as-yet-unresolved entry.
	DataOffset int64
}

// Dictionary is a BRRES directory: Nodes[0] is always the root
// sentinel (empty name, ID 0xFFFF once built); Nodes[1:] are the real
// entries in insertion order.
type Dictionary struct {
	Nodes []Node
}

// New creates a Dictionary with the given entry names (in insertion
// order) plus the implicit root sentinel.
func New(names []string) *Dictionary {
	d := &Dictionary{Nodes: make([]Node, len(names)+1)}
	for i, n := range names {
		d.Nodes[i+1].Name = n
	}
	return d
}

// get_highest_bit returns the index (7 down to 0) of the highest set
// bit in val, or 0 if val is zero. Ported from
// DictWriteIO.cpp's get_highest_bit.
func getHighestBit(val byte) uint16 {
	i := uint16(7)
	for i > 0 && val&0x80 == 0 {
		i--
		val <<= 1
	}
	return i
}

// calcBrresID ports calc_brres_id: it returns a value encoding the
// byte index and bit position of the first difference between
// objectName and subjectName, or ~0 if subjectName is a prefix of (or
// equal to) objectName.
func calcBrresID(objectName, subjectName string) uint16 {
	if len(objectName) < len(subjectName) {
		return uint16(len(subjectName)-1)<<3 | getHighestBit(subjectName[len(subjectName)-1])
	}
	for i := len(subjectName) - 1; i >= 0; i-- {
		ch := objectName[i] ^ subjectName[i]
		if ch != 0 {
			return uint16(i)<<3 | getHighestBit(ch)
		}
	}
	return 0xFFFF
}

// calcIdBit reports whether name has the bit identified by id (byte
// index id>>3, bit id&7) set; out-of-range indices are false.
func calcIdBit(name string, id uint16) bool {
	byteIdx := int(id >> 3)
	if byteIdx >= len(name) {
		return false
	}
	return name[byteIdx]&(1<<(id&7)) != 0
}

// calcNode inserts/recomputes the tree position of Nodes[idx] against
// every other already-placed node, following calc_brres_id's binary
// insertion walk. New entries start with both links pointing at the
// root (0); exactly one is overwritten by the post-walk decision,
// matching the root-pointing convention observed in reference BRRES
// output (spec.md §8 S1).
func (d *Dictionary) calcNode(idx int) {
	d.Nodes[idx].ID = calcBrresID("", d.Nodes[idx].Name)
	d.Nodes[idx].IdxPrev = 0
	d.Nodes[idx].IdxNext = 0

	prevIdx := 0
	currentIdx := int(d.Nodes[prevIdx].IdxPrev)
	isRight := true

	for d.Nodes[idx].ID <= d.Nodes[currentIdx].ID && d.Nodes[currentIdx].ID < d.Nodes[prevIdx].ID {
		if d.Nodes[idx].ID == d.Nodes[currentIdx].ID {
			d.Nodes[idx].ID = calcBrresID(d.Nodes[currentIdx].Name, d.Nodes[idx].Name)
			if calcIdBit(d.Nodes[currentIdx].Name, d.Nodes[idx].ID) {
				d.Nodes[idx].IdxPrev = uint16(idx)
				d.Nodes[idx].IdxNext = uint16(currentIdx)
			} else {
				d.Nodes[idx].IdxPrev = uint16(currentIdx)
				d.Nodes[idx].IdxNext = uint16(idx)
			}
		}

		prevIdx = currentIdx
		isRight = calcIdBit(d.Nodes[idx].Name, d.Nodes[currentIdx].ID)
		if isRight {
			currentIdx = int(d.Nodes[currentIdx].IdxNext)
		} else {
			currentIdx = int(d.Nodes[currentIdx].IdxPrev)
		}
	}

	if len(d.Nodes[currentIdx].Name) == len(d.Nodes[idx].Name) &&
		calcIdBit(d.Nodes[currentIdx].Name, d.Nodes[idx].ID) {
		d.Nodes[idx].IdxNext = uint16(currentIdx)
	} else {
		d.Nodes[idx].IdxPrev = uint16(currentIdx)
	}

	if isRight {
		d.Nodes[prevIdx].IdxNext = uint16(idx)
	} else {
		d.Nodes[prevIdx].IdxPrev = uint16(idx)
	}
}

// calcNodes rebuilds the tree from scratch in insertion order,
// mirroring Dictionary::calcNodes.
func (d *Dictionary) calcNodes() {
	d.Nodes[0].ID = 0xFFFF
	d.Nodes[0].IdxPrev = 0
	d.Nodes[0].IdxNext = 0
	for i := range d.Nodes {
		d.calcNode(i)
	}
}

// Encode recomputes the tree and writes the dictionary at the
// writer's current position: a 4-byte total-size placeholder, a
// 4-byte entry count (not including the root), then one 16-byte node
// per entry. Names are deferred through pool; callers resolve the
// pool separately, as usual. It mirrors Dictionary::write.
func (d *Dictionary) Encode(w *stream.Writer, pool *namepool.Pool) {
	d.calcNodes()

	groupStart := w.Tell()
	sizePos := w.Tell()
	stream.Write(w, uint32(0), endian.Current)
	stream.Write(w, uint32(len(d.Nodes)-1), endian.Current)

	for _, n := range d.Nodes {
		stream.Write(w, n.ID, endian.Current)
		stream.Write(w, n.Flag, endian.Current)
		stream.Write(w, n.IdxPrev, endian.Current)
		stream.Write(w, n.IdxNext, endian.Current)
		namepool.WriteForward(pool, w, groupStart, n.Name)
		rel := int32(0)
		if n.DataOffset != 0 {
			rel = int32(n.DataOffset - groupStart)
		}
		stream.Write(w, rel, endian.Current)
	}

	totalSize := uint32(w.Tell() - groupStart)
	stream.WriteAt(w, sizePos, totalSize, endian.Current)
}

// CalcDictionarySize returns the exact byte size a Dictionary with
// entryCount real entries (plus the implicit root) occupies on disk:
// an 8-byte header and 16 bytes per node, names and data offsets
// included (both are fixed-width fields; names are deferred through
// the pool). Mirrors CalcDictionarySize.
func CalcDictionarySize(entryCount int) int64 {
	return 8 + 16*int64(entryCount+1)
}

// EncodeAt writes the dictionary into an already-reserved region of w
// starting at at (typically produced by an earlier ReserveNext sized
// via CalcDictionarySize), patching each field in place instead of
// appending. Used for spec.md §4.8's write-planning order, where every
// folder's dictionary is reserved up front and only filled in once its
// entries' DataOffset fields are known.
func (d *Dictionary) EncodeAt(w *stream.Writer, pool *namepool.Pool, at int64) {
	d.calcNodes()

	stream.WriteAt(w, at, uint32(CalcDictionarySize(len(d.Nodes)-1)), endian.Current)
	stream.WriteAt(w, at+4, uint32(len(d.Nodes)-1), endian.Current)

	pos := at + 8
	for _, n := range d.Nodes {
		stream.WriteAt(w, pos, n.ID, endian.Current)
		stream.WriteAt(w, pos+2, n.Flag, endian.Current)
		stream.WriteAt(w, pos+4, n.IdxPrev, endian.Current)
		stream.WriteAt(w, pos+6, n.IdxNext, endian.Current)
		if n.Name == "" {
			stream.WriteAt(w, pos+8, uint32(0), endian.Current)
		} else {
			pool.Reserve(n.Name, at, w, pos+8)
		}
		rel := int32(0)
		if n.DataOffset != 0 {
			rel = int32(n.DataOffset - at)
		}
		stream.WriteAt(w, pos+12, rel, endian.Current)
		pos += 16
	}
}

// Decode reads a dictionary at the reader's current position,
// mirroring Dictionary::read.
func Decode(r saferead.Reader) (*Dictionary, error) {
	groupStart := r.S.Tell()
	totalSize, err := r.U32()
	if err != nil {
		return nil, err
	}
	nEntry, err := r.U32()
	if err != nil {
		return nil, err
	}
	if int64(totalSize) != CalcDictionarySize(int(nEntry)) {
		return nil, bmderr.At(bmderr.DecodeError, groupStart, "dictionary size %d does not match %d entries", totalSize, nEntry)
	}

	d := &Dictionary{Nodes: make([]Node, nEntry+1)}
	for i := range d.Nodes {
		id, err := r.U16()
		if err != nil {
			return nil, err
		}
		flag, err := r.U16()
		if err != nil {
			return nil, err
		}
		idxPrev, err := r.U16()
		if err != nil {
			return nil, err
		}
		idxNext, err := r.U16()
		if err != nil {
			return nil, err
		}
		name, err := r.StringOfs32(groupStart)
		if err != nil {
			return nil, err
		}
		dataOfs, err := r.S32()
		if err != nil {
			return nil, err
		}
		dataDest := groupStart + int64(dataOfs)
		if dataDest == groupStart {
			dataDest = 0
		}
		d.Nodes[i] = Node{
			ID: id, Flag: flag, IdxPrev: idxPrev, IdxNext: idxNext,
			Name: name, DataOffset: dataDest,
		}
	}
	return d, nil
}
