// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package namepool implements the write-time name bag described in
// spec.md §4.3: callers reserve a name against a struct position and a
// placeholder write position, the pool later dedups and packs every
// reserved name into one blob, and each reservation is back-patched
// with the relative offset from its struct to its (possibly shared)
// pool entry. It is the Go counterpart of RiiStudio's
// librii::g3d::NameTable.
package namepool

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/stream"
)

// Handle identifies a reservation made against the pool.
type Handle int

// entry records one reservation: the name itself, the struct position
// it is relative to, and where in the writer the resolved offset must
// eventually be back-patched.
type entry struct {
	name      string
	structPos int64
	writer    *stream.Writer
	writePos  int64
	handle    Handle
}

// Pool accumulates name reservations across an entire write pass and
// resolves them once the final layout (and thus the pool's own
// position) is known.
type Pool struct {
	entries []entry
	counter Handle
	mapping map[Handle]int // handle -> byte offset within packedPool, post poolNames
	packed  []byte
}

// New returns an empty Pool.
func New() *Pool {
	return &Pool{mapping: make(map[Handle]int)}
}

// Reserve records that name must be packed into the pool, and that
// the relative offset from structPos to the pooled name must later be
// written at writePos in w. It mirrors NameTable::reserve.
func (p *Pool) Reserve(name string, structPos int64, w *stream.Writer, writePos int64) Handle {
	h := p.counter
	p.counter++
	p.entries = append(p.entries, entry{
		name:      name,
		structPos: structPos,
		writer:    w,
		writePos:  writePos,
		handle:    h,
	})
	return h
}

// WriteForward writes a placeholder u32(0) when name is empty (spec.md
// §4.3: the empty name never dereferences into the pool), or reserves
// the name and returns its handle. It mirrors writeNameForward.
func WriteForward(p *Pool, w *stream.Writer, structPos int64, name string) *Handle {
	if name == "" {
		stream.Write(w, uint32(0), endian.Current)
		return nil
	}
	pos := w.Tell()
	stream.Write(w, uint32(0xCCCCCCCC), endian.Current) // placeholder, back-patched by Resolve
	h := p.Reserve(name, structPos, w, pos)
	return &h
}

// Encoding selects the N-prefixed (u32 length + NUL + pad-to-4)
// encoding versus the bare NUL-terminated blob encoding for a pool's
// names. Both encodings exist in the wild; this toolkit always uses the
// bare encoding unless asked otherwise, matching the more common BMD
// tool output. The encoding is chosen per call, as Pack's argument.
type Encoding int

const (
	// Bare encodes each name as <bytes><NUL>, unpadded.
	Bare Encoding = iota
	// NPrefixed encodes each name as <u32 length><bytes><NUL>, then
	// pads with zero bytes to a 4-byte boundary.
	NPrefixed
)

// Pack sorts and dedups every reserved name, builds the packed blob in
// the given encoding, and records each handle's offset into that blob.
// It mirrors NameTable::poolNames.
func (p *Pool) Pack(enc Encoding) []byte {
	p.mapping = make(map[Handle]int)
	p.packed = nil

	sorted := make([]entry, len(p.entries))
	copy(sorted, p.entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })

	type poolName struct {
		name string
		ofs  int
	}
	var pool []poolName
	seen := mapset.NewSet[string]()
	byName := make(map[string]int)

	for _, e := range sorted {
		if !seen.Contains(e.name) {
			seen.Add(e.name)
			byName[e.name] = len(pool)
			pool = append(pool, poolName{name: e.name})
		}
	}

	for i := range pool {
		ofs := len(p.packed)
		if enc == NPrefixed {
			sz := uint32(len(pool[i].name))
			p.packed = append(p.packed,
				byte(sz>>24), byte(sz>>16), byte(sz>>8), byte(sz))
		}
		pool[i].ofs = ofs
		p.packed = append(p.packed, []byte(pool[i].name)...)
		p.packed = append(p.packed, 0)
		if enc == NPrefixed {
			for len(p.packed)%4 != 0 {
				p.packed = append(p.packed, 0)
			}
		}
	}

	for _, e := range sorted {
		idx := byName[e.name]
		p.mapping[e.handle] = pool[idx].ofs
	}

	return p.packed
}

// Resolve back-patches every reservation's write position with the
// relative offset from its struct position to poolBase plus the
// entry's packed offset, then clears the reservation list. It mirrors
// NameTable::resolve/resolveName.
func (p *Pool) Resolve(poolBase int64) {
	for _, e := range p.entries {
		entryOfs := poolBase + int64(p.mapping[e.handle])
		rel := entryOfs - e.structPos
		stream.WriteAt(e.writer, e.writePos, int32(rel), endian.Current)
	}
	p.entries = nil
}

// Len reports how many reservations are pending, counting every Reserve
// call (duplicate names included).
func (p *Pool) Len() int { return len(p.entries) }
