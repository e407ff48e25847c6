// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package j3d

import (
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

// mdl3HeaderSize is MDL3's fixed preamble: entry_count, a 0xFFFF
// filler, then five section-relative offsets (dl table, dl-handle
// table, shape-remap-matrix index, lut, name table).
const mdl3HeaderSize = 24

// MDL3Entry is one material's precomputed GX register display list, a
// BDL-only optimization cache that lets a runtime skip recomputing a
// material's bp/xf writes from MAT3 at load time. The original
// writer's own register-emission routines are left unimplemented
// (stubbed "TODO" calls for every BP/XF command), so there is no
// verified byte-for-byte semantics to reproduce; Data is kept opaque
// rather than decoded into GX state.
type MDL3Entry struct {
	Data []byte
}

// DecodeMDL3 reads the MDL3 section at r's current position (right
// after its 8-byte magic+size header).
func DecodeMDL3(r saferead.Reader, sectionStart int64) ([]MDL3Entry, error) {
	count, err := r.U16()
	if err != nil {
		return nil, err
	}
	if _, err := r.U16(); err != nil { // 0xFFFF filler
		return nil, err
	}
	if _, err := r.U32(); err != nil { // ofsDls, unused by readers
		return nil, err
	}
	ofsDlHdrs, err := r.U32()
	if err != nil {
		return nil, err
	}
	for i := 0; i < 3; i++ { // ofsSrMtxIdx, ofsLut, ofsNameTable
		if _, err := r.U32(); err != nil {
			return nil, err
		}
	}

	r.S.SeekSet(sectionStart + int64(ofsDlHdrs))
	starts := make([]uint32, count)
	sizes := make([]uint32, count)
	for i := range starts {
		s, err := r.U32()
		if err != nil {
			return nil, err
		}
		starts[i] = s
		sz, err := r.U32()
		if err != nil {
			return nil, err
		}
		sizes[i] = sz
	}

	entries := make([]MDL3Entry, count)
	for i := range entries {
		r.S.SeekSet(sectionStart + int64(starts[i]))
		buf := make([]byte, sizes[i])
		for j := range buf {
			b, err := r.U8()
			if err != nil {
				return nil, err
			}
			buf[j] = b
		}
		entries[i].Data = buf
	}
	return entries, nil
}

// EncodeMDL3 writes entries as a fresh handle table followed by their
// raw blobs, 32-byte-aligned per entry to match the original tool's
// display-list alignment. It does not attempt to regenerate real GX
// register contents for entries with nil Data; callers that only care
// about BMD round-tripping should skip MDL3 entirely (it is BDL-only).
func EncodeMDL3(w *stream.Writer, entries []MDL3Entry) {
	sectionStart := w.Tell()
	stream.Write(w, uint16(len(entries)), endian.Big)
	stream.Write(w, uint16(0xFFFF), endian.Current)
	stream.Write(w, uint32(mdl3HeaderSize+len(entries)*8), endian.Big)
	stream.Write(w, uint32(mdl3HeaderSize), endian.Big)
	stream.Write(w, uint32(0), endian.Big)
	stream.Write(w, uint32(0), endian.Big)
	stream.Write(w, uint32(0), endian.Big)

	handlesStart := w.Tell()
	for range entries {
		stream.Write(w, uint32(0), endian.Big) // start, patched below
		stream.Write(w, uint32(0), endian.Big) // size, patched below
	}

	for i, e := range entries {
		dataStart := w.Tell()
		w.WriteBytes(e.Data)
		size := w.Tell() - dataStart
		for w.Tell()%32 != 0 {
			w.WriteBytes([]byte{0})
		}
		stream.WriteAt(w, handlesStart+int64(i)*8, uint32(dataStart-sectionStart), endian.Big)
		stream.WriteAt(w, handlesStart+int64(i)*8+4, uint32(size), endian.Big)
	}
}
