// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package stream

import (
	"os"

	"github.com/gviegas/bmdtool/diagnostics"
	"github.com/gviegas/bmdtool/endian"
)

// Filler is invoked by Writer.AlignTo over the padded byte range, so
// tools can stamp a constant string into alignment padding instead of
// leaving it as the default filler byte.
type Filler func(buf []byte, begin int64)

// Reservation records a write-time placeholder left by WriteLink: the
// position it was written at, its encoded width, and the namespace/
// block the link was registered under. The linker package consumes
// these through Writer.Reservations/ResolveReservation.
type Reservation struct {
	Pos       int64
	Size      int64
	Namespace string
	BlockName string
	// Link carries an opaque payload supplied by the caller (the
	// linkgraph package's *linkgraph.Link); stream itself does not
	// know how to resolve it.
	Link any
}

// Writer is a growable, endian-aware byte buffer with padding and
// placeholder-reservation support (spec.md §4.1).
type Writer struct {
	buf          []byte
	order        endian.Order
	filler       Filler
	reservations []Reservation
	namespace    string
	blockName    string
	breakpoints  []Breakpoint
	diag         *diagnostics.Sink
}

// NewWriter creates an empty Writer using the given default byte
// order. diag may be nil, in which case diagnostics.Default() is
// used.
func NewWriter(order endian.Order, diag *diagnostics.Sink) *Writer {
	if diag == nil {
		diag = diagnostics.Default()
	}
	return &Writer{order: order, diag: diag}
}

// Tell returns the current write position (the buffer's length).
func (w *Writer) Tell() int64 { return int64(len(w.buf)) }

// SetFiller installs a callback invoked over padding ranges written
// by AlignTo.
func (w *Writer) SetFiller(f Filler) { w.filler = f }

// SetNamespace records the namespace/block the writer is currently
// emitting under; the linker reads this back when resolving
// Reservations registered through WriteLink.
func (w *Writer) SetNamespace(namespace, blockName string) {
	w.namespace = namespace
	w.blockName = blockName
}

// Order returns the writer's current default byte order.
func (w *Writer) Order() endian.Order { return w.order }

func (w *Writer) checkBreakpoints(begin, end int64) {
	for _, bp := range w.breakpoints {
		if bp.overlaps(begin, end) {
			w.diag.Trap("write", begin, end)
		}
	}
}

// AddBreakpoint registers a trapped byte range.
func (w *Writer) AddBreakpoint(bp Breakpoint) { w.breakpoints = append(w.breakpoints, bp) }

// grow extends the buffer to at least n bytes, zero-filling the new
// extent.
func (w *Writer) grow(n int64) {
	if int64(len(w.buf)) >= n {
		return
	}
	w.buf = append(w.buf, make([]byte, n-int64(len(w.buf)))...)
}

// ReserveNext grows the buffer by n bytes and returns the start of
// the reserved region.
func (w *Writer) ReserveNext(n int64) int64 {
	start := int64(len(w.buf))
	w.grow(start + n)
	return start
}

// WriteAt writes v at an absolute position that must already lie
// within the buffer (typically produced by an earlier ReserveNext or
// Write call), using the given order (Current uses the writer's
// default).
func WriteAt[T endian.Value](w *Writer, at int64, v T, order endian.Order) {
	size := int64(endian.Sizeof[T]())
	w.grow(at + size)
	w.checkBreakpoints(at, at+size)
	endian.Put(w.buf[at:at+size], v, sizeofWOrder(order, w))
}

func sizeofWOrder(order endian.Order, w *Writer) endian.Order {
	if order == endian.Current {
		return w.order
	}
	return order
}

// Write appends v at the current position, growing the buffer as
// needed, in the writer's default order unless order overrides it.
func Write[T endian.Value](w *Writer, v T, order endian.Order) {
	at := int64(len(w.buf))
	WriteAt(w, at, v, order)
}

// WriteBuffer appends a slice of Ts at the current position.
func WriteBuffer[T endian.Value](w *Writer, vs []T, order endian.Order) {
	for _, v := range vs {
		Write(w, v, order)
	}
}

// WriteBytes appends raw bytes at the current position.
func (w *Writer) WriteBytes(b []byte) {
	at := int64(len(w.buf))
	w.grow(at + int64(len(b)))
	copy(w.buf[at:], b)
}

// AlignTo pads with 0xFF (or the installed Filler) until
// position % n == 0, then invokes the filler over the padded range if
// one is set (spec.md §4.1).
func (w *Writer) AlignTo(n int64) {
	if n <= 1 {
		return
	}
	begin := int64(len(w.buf))
	pad := (n - begin%n) % n
	if pad == 0 {
		return
	}
	end := begin + pad
	w.grow(end)
	for i := begin; i < end; i++ {
		w.buf[i] = 0xFF
	}
	if w.filler != nil {
		w.filler(w.buf[begin:end], begin)
	}
}

// WriteLink records a placeholder reservation of sizeof(T) at the
// current position, writes a sentinel value, and returns the
// Reservation so the caller (linkgraph.Linker) can later resolve it.
// The sentinel is 0xCCCCCCCC truncated/widened to T's width, matching
// the original oishii writer's "uninitialized" marker.
func WriteLink[T endian.Value](w *Writer, link any) Reservation {
	pos := int64(len(w.buf))
	var sentinel T
	switch any(sentinel).(type) {
	case uint8, int8:
		sentinel = endian.Get[T]([]byte{0xCC}, endian.Big)
	case uint16, int16:
		sentinel = endian.Get[T]([]byte{0xCC, 0xCC}, endian.Big)
	default:
		sentinel = endian.Get[T]([]byte{0xCC, 0xCC, 0xCC, 0xCC}, endian.Big)
	}
	Write(w, sentinel, endian.Current)
	r := Reservation{
		Pos:       pos,
		Size:      int64(endian.Sizeof[T]()),
		Namespace: w.namespace,
		BlockName: w.blockName,
		Link:      link,
	}
	w.reservations = append(w.reservations, r)
	return r
}

// Reservations returns every placeholder reservation recorded so far.
func (w *Writer) Reservations() []Reservation { return w.reservations }

// ResolveReservation rewrites the bytes at r.Pos with val, narrowed to
// r.Size bytes big-endian (the link graph always resolves placeholders
// in the container's wire order).
func (w *Writer) ResolveReservation(r Reservation, val int64) {
	switch r.Size {
	case 1:
		WriteAt(w, r.Pos, int8(val), endian.Big)
	case 2:
		WriteAt(w, r.Pos, int16(val), endian.Big)
	default:
		WriteAt(w, r.Pos, int32(val), endian.Big)
	}
}

// TakeBytes returns the writer's internal buffer and clears it.
func (w *Writer) TakeBytes() []byte {
	b := w.buf
	w.buf = nil
	return b
}

// Bytes returns the writer's internal buffer without clearing it.
func (w *Writer) Bytes() []byte { return w.buf }

// SaveToDisk writes the accumulated buffer to path.
func (w *Writer) SaveToDisk(path string) error {
	return os.WriteFile(path, w.buf, 0o644)
}
