// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package saferead implements the Result-shaped facade over
// stream.Reader described in spec.md §4.2 — the Go-native counterpart
// of RiiStudio's rsl::SafeReader, where every accessor returns
// (T, error) instead of throwing, and every error carries the stream
// offset at which the fault occurred.
package saferead

import (
	"bytes"

	"github.com/gviegas/bmdtool/bmderr"
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/stream"
)

// Reader wraps a *stream.Reader, exposing the same primitive reads
// but as (T, error) pairs.
type Reader struct {
	S *stream.Reader
}

// New wraps r.
func New(r *stream.Reader) Reader { return Reader{S: r} }

func (r Reader) U8() (uint8, error)   { return stream.Read[uint8](r.S, endian.Current, false) }
func (r Reader) S8() (int8, error)    { return stream.Read[int8](r.S, endian.Current, false) }
func (r Reader) U16() (uint16, error) { return stream.Read[uint16](r.S, endian.Current, false) }
func (r Reader) S16() (int16, error)  { return stream.Read[int16](r.S, endian.Current, false) }
func (r Reader) U32() (uint32, error) { return stream.Read[uint32](r.S, endian.Current, false) }
func (r Reader) S32() (int32, error)  { return stream.Read[int32](r.S, endian.Current, false) }
func (r Reader) F32() (float32, error) { return stream.Read[float32](r.S, endian.Current, false) }

// Magic reads len(expected) bytes and fails with MagicMismatch if they
// don't match.
func (r Reader) Magic(expected []byte) error {
	at := r.S.Tell()
	got, err := r.S.Bytes(at, at+int64(len(expected)))
	if err != nil {
		return err
	}
	if !bytes.Equal(got, expected) {
		return bmderr.MagicMismatchError(at, expected, got)
	}
	r.S.Skip(int64(len(expected)))
	return nil
}

// Enum32 is implemented as a free function (methods cannot be
// type-parameterized in Go): it reads a u32 and reflects it against
// the set of permitted values.
func Enum32[E ~uint32](r Reader, allowed ...E) (E, error) {
	at := r.S.Tell()
	v, err := r.U32()
	if err != nil {
		return 0, err
	}
	e := E(v)
	for _, a := range allowed {
		if a == e {
			return e, nil
		}
	}
	return 0, bmderr.At(bmderr.InvalidEnum, at, "value %d not in %v", v, allowed)
}

// StringOfs32 reads a signed relative offset from the current
// position (relative to base), validates it against the underlying
// buffer, scans for a NUL terminator within bounds, and returns an
// owned string. An offset of 0 means the empty string and never
// dereferences (spec.md §4.2).
func (r Reader) StringOfs32(base int64) (string, error) {
	at := r.S.Tell()
	ofs, err := r.S32()
	if err != nil {
		return "", err
	}
	if ofs == 0 {
		return "", nil
	}
	strAt := base + int64(ofs)
	if strAt < 0 || strAt > r.S.Len() {
		return "", bmderr.OutOfBoundsError("string_ofs32", strAt, 0, r.S.Len())
	}
	end := strAt
	for {
		if end >= r.S.Len() {
			return "", bmderr.At(bmderr.TruncatedString, at, "no NUL terminator before end of stream")
		}
		b, err := r.S.Bytes(end, end+1)
		if err != nil {
			return "", err
		}
		if b[0] == 0 {
			break
		}
		end++
	}
	raw, err := r.S.Bytes(strAt, end)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
