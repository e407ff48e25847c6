// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package bmderr defines the error taxonomy shared by the stream,
// saferead, namepool, linkgraph and format-codec packages (spec.md §7).
package bmderr

import "fmt"

// Kind identifies which of the taxonomy's error classes an Error
// belongs to.
type Kind int

const (
	OutOfBounds Kind = iota
	Misaligned
	MagicMismatch
	InvalidEnum
	TruncatedString
	UnknownSection
	LinkerUnresolved
	LinkerOverflow
	DecodeError
)

func (k Kind) String() string {
	switch k {
	case OutOfBounds:
		return "OutOfBounds"
	case Misaligned:
		return "Misaligned"
	case MagicMismatch:
		return "MagicMismatch"
	case InvalidEnum:
		return "InvalidEnum"
	case TruncatedString:
		return "TruncatedString"
	case UnknownSection:
		return "UnknownSection"
	case LinkerUnresolved:
		return "LinkerUnresolved"
	case LinkerOverflow:
		return "LinkerOverflow"
	case DecodeError:
		return "DecodeError"
	default:
		return "Unknown"
	}
}

// Error is the single error type produced by this toolkit. Every
// instance carries the Kind from spec.md §7 and, where applicable, the
// stream offset at which the fault occurred.
type Error struct {
	Kind    Kind
	Offset  int64  // -1 when not applicable (e.g. LinkerUnresolved).
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at 0x%x: %s", e.Kind, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New creates an Error with no stream offset.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Offset: -1, Message: fmt.Sprintf(format, args...)}
}

// At creates an Error tagged with a stream offset.
func At(kind Kind, offset int64, format string, args ...any) *Error {
	return &Error{Kind: kind, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a causal error to a new Error of the given kind.
func Wrap(kind Kind, offset int64, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Offset: offset, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// OutOfBoundsError reports an access past the end of a stream.
func OutOfBoundsError(op string, at, needed, available int64) *Error {
	return At(OutOfBounds, at, "%s needs %d bytes but only %d available", op, needed, available)
}

// MisalignedError reports an aligned access to a non-aligned offset.
func MisalignedError(at int64, align int) *Error {
	return At(Misaligned, at, "not %d-byte aligned", align)
}

// MagicMismatchError reports a section, file, or sentinel magic mismatch.
func MagicMismatchError(at int64, expected, got []byte) *Error {
	return At(MagicMismatch, at, "expected magic %q, got %q", expected, got)
}
