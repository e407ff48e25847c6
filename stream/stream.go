// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package stream implements the endian-aware, bounds-checked byte
// stream layer that every format codec in this toolkit reads and
// writes through (spec.md §4.1). It is the Go-native reshaping of
// oishii::BinaryReader/Writer from the original RiiStudio sources,
// collapsing the original's two parallel reader/writer namespaces
// (oishii:: and oishii::v2::) into one, per Design Note 9.
package stream

import (
	"github.com/gviegas/bmdtool/bmderr"
	"github.com/gviegas/bmdtool/diagnostics"
	"github.com/gviegas/bmdtool/endian"
)

// Breakpoint is a half-open byte range [Begin, End) that traps reads
// and writes overlapping it.
type Breakpoint struct {
	Begin, End int64
}

func (b Breakpoint) overlaps(begin, end int64) bool {
	return begin < b.End && end > b.Begin
}

// region is a frame pushed by ScopedRegion.
type region struct {
	name  string
	start int64
}

// Reader is a bounded, endian-aware cursor over an in-memory byte
// buffer.
type Reader struct {
	buf         []byte
	pos         int64
	order       endian.Order
	breakpoints []Breakpoint
	regions     []region
	diag        *diagnostics.Sink
}

// NewReader creates a Reader over buf using the given default byte
// order. diag may be nil, in which case diagnostics.Default() is used.
func NewReader(buf []byte, order endian.Order, diag *diagnostics.Sink) *Reader {
	if diag == nil {
		diag = diagnostics.Default()
	}
	return &Reader{buf: buf, order: order, diag: diag}
}

// Tell returns the current position.
func (r *Reader) Tell() int64 { return r.pos }

// EndPos returns the length of the underlying buffer.
func (r *Reader) EndPos() int64 { return int64(len(r.buf)) }

// SeekSet moves the cursor to an absolute position. It does not
// itself bounds-check; out-of-range positions are only diagnosed on
// the next read.
func (r *Reader) SeekSet(pos int64) { r.pos = pos }

// Skip advances the cursor by delta bytes (delta may be negative).
func (r *Reader) Skip(delta int64) { r.pos += delta }

// SetOrder changes the reader's default byte order.
func (r *Reader) SetOrder(o endian.Order) { r.order = o }

// Order returns the reader's current default byte order.
func (r *Reader) Order() endian.Order { return r.order }

// AddBreakpoint registers a trapped byte range.
func (r *Reader) AddBreakpoint(bp Breakpoint) { r.breakpoints = append(r.breakpoints, bp) }

func (r *Reader) checkBreakpoints(begin, end int64, op string) {
	for _, bp := range r.breakpoints {
		if bp.overlaps(begin, end) {
			r.diag.Trap(op, begin, end)
		}
	}
}

// ScopedRegion pushes a named debug frame and returns a function that
// pops it. Callers must defer the returned function so the region is
// popped on every exit path, including error returns (spec.md §5).
func (r *Reader) ScopedRegion(name string) func() {
	r.regions = append(r.regions, region{name: name, start: r.pos})
	return func() {
		if len(r.regions) > 0 {
			r.regions = r.regions[:len(r.regions)-1]
		}
	}
}

// regionStack returns the names of the currently open regions,
// outermost first.
func (r *Reader) regionStack() []string {
	names := make([]string, len(r.regions))
	for i, reg := range r.regions {
		names[i] = reg.name
	}
	return names
}

// WarnAt emits a diagnostic for the byte range [begin, end), including
// the current region stack.
func (r *Reader) WarnAt(msg string, begin, end int64) {
	r.diag.Region(msg, begin, r.regionStack())
	_ = end
}

func sizeofOrder(order endian.Order, r *Reader) endian.Order {
	if order == endian.Current {
		return r.order
	}
	return order
}

// boundsCheck verifies that [at, at+size) lies within the buffer.
func (r *Reader) boundsCheck(at, size int64) error {
	if at < 0 || at+size > int64(len(r.buf)) {
		return bmderr.OutOfBoundsError("read", at, size, int64(len(r.buf))-at)
	}
	return nil
}

// alignmentCheck verifies that at is a multiple of size, unless
// unaligned reads were requested.
func (r *Reader) alignmentCheck(at, size int64, unaligned bool) error {
	if unaligned || size <= 1 {
		return nil
	}
	if at%size != 0 {
		return bmderr.MisalignedError(at, int(size))
	}
	return nil
}

// Read decodes a T at the current position, in the reader's default
// order unless order overrides it, advancing the cursor only on
// success.
func Read[T endian.Value](r *Reader, order endian.Order, unaligned bool) (T, error) {
	var zero T
	size := int64(endian.Sizeof[T]())
	if err := r.boundsCheck(r.pos, size); err != nil {
		return zero, err
	}
	if err := r.alignmentCheck(r.pos, size, unaligned); err != nil {
		return zero, err
	}
	r.checkBreakpoints(r.pos, r.pos+size, "read")
	v := endian.Get[T](r.buf[r.pos:r.pos+size], sizeofOrder(order, r))
	r.pos += size
	return v, nil
}

// PeekAt decodes a T at an absolute position without advancing the
// cursor.
func PeekAt[T endian.Value](r *Reader, at int64, order endian.Order, unaligned bool) (T, error) {
	var zero T
	size := int64(endian.Sizeof[T]())
	if err := r.boundsCheck(at, size); err != nil {
		return zero, err
	}
	if err := r.alignmentCheck(at, size, unaligned); err != nil {
		return zero, err
	}
	r.checkBreakpoints(at, at+size, "peek")
	return endian.Get[T](r.buf[at:at+size], sizeofOrder(order, r)), nil
}

// Peek decodes a T at the current position without advancing the
// cursor.
func Peek[T endian.Value](r *Reader, order endian.Order, unaligned bool) (T, error) {
	return PeekAt[T](r, r.pos, order, unaligned)
}

// ReadBuffer bulk-reads count Ts starting at the current position,
// applying the bounds/alignment checks once to the whole region.
func ReadBuffer[T endian.Value](r *Reader, count int, order endian.Order, unaligned bool) ([]T, error) {
	return ReadBufferAt[T](r, count, r.pos, order, unaligned)
}

// ReadBufferAt bulk-reads count Ts starting at an absolute position,
// without moving the cursor.
func ReadBufferAt[T endian.Value](r *Reader, count int, at int64, order endian.Order, unaligned bool) ([]T, error) {
	size := int64(endian.Sizeof[T]())
	total := size * int64(count)
	if err := r.boundsCheck(at, total); err != nil {
		return nil, err
	}
	if err := r.alignmentCheck(at, size, unaligned); err != nil {
		return nil, err
	}
	r.checkBreakpoints(at, at+total, "readBuffer")
	out := make([]T, count)
	o := sizeofOrder(order, r)
	for i := 0; i < count; i++ {
		out[i] = endian.Get[T](r.buf[at+int64(i)*size:], o)
	}
	if at == r.pos {
		r.pos += total
	}
	return out, nil
}

// Bytes returns the raw byte slice [begin, end) without interpreting
// it, bounds-checked.
func (r *Reader) Bytes(begin, end int64) ([]byte, error) {
	if err := r.boundsCheck(begin, end-begin); err != nil {
		return nil, err
	}
	return r.buf[begin:end], nil
}

// Len returns the length of the underlying buffer.
func (r *Reader) Len() int64 { return int64(len(r.buf)) }
