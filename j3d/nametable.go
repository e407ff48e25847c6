// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package j3d

import (
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

// nameTableHash folds a string into the 16-bit hash J3D name tables
// index by: acc starts at 0, each byte c updates acc = acc*3 + c.
func nameTableHash(s string) uint16 {
	var acc uint16
	for i := 0; i < len(s); i++ {
		acc = acc*3 + uint16(s[i])
	}
	return acc
}

// EncodeNameTable writes a J3D name table at w's current position:
// {count:u16, 0xFFFF, (hash:u16, ofs:u16)*count, strings...}, offsets
// relative to the table start (spec.md §6).
func EncodeNameTable(w *stream.Writer, names []string) {
	start := w.Tell()
	stream.Write(w, uint16(len(names)), endian.Current)
	stream.Write(w, uint16(0xFFFF), endian.Current)

	entryPos := make([]int64, len(names))
	for i := range names {
		stream.Write(w, nameTableHash(names[i]), endian.Current)
		entryPos[i] = w.Tell()
		stream.Write(w, uint16(0), endian.Current) // offset, patched below
	}

	for i, n := range names {
		ofs := uint16(w.Tell() - start)
		stream.WriteAt(w, entryPos[i], ofs, endian.Current)
		w.WriteBytes([]byte(n))
		stream.Write(w, byte(0), endian.Current)
	}
}

// DecodeNameTable reads a J3D name table at r's current position.
func DecodeNameTable(r saferead.Reader) ([]string, error) {
	start := r.S.Tell()
	count, err := r.U16()
	if err != nil {
		return nil, err
	}
	if _, err := r.U16(); err != nil { // 0xFFFF sentinel
		return nil, err
	}
	names := make([]string, count)
	for i := range names {
		if _, err := r.U16(); err != nil { // hash, unused on read
			return nil, err
		}
		ofs, err := r.U16()
		if err != nil {
			return nil, err
		}
		name, err := readCString(r, start+int64(ofs))
		if err != nil {
			return nil, err
		}
		names[i] = name
	}
	return names, nil
}

// readCString reads a NUL-terminated string at an absolute position,
// restoring the reader's position afterwards.
func readCString(r saferead.Reader, at int64) (string, error) {
	save := r.S.Tell()
	r.S.SeekSet(at)
	defer r.S.SeekSet(save)

	var b []byte
	for {
		c, err := r.U8()
		if err != nil {
			return "", err
		}
		if c == 0 {
			break
		}
		b = append(b, c)
	}
	return string(b), nil
}
