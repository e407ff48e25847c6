// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package brres

import (
	"github.com/gviegas/bmdtool/bmderr"
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

// Key is one keyframe of an animation track: frame position, sampled
// value, and the Hermite tangent driving interpolation to the next key
// (spec.md §3 "Animation streams").
type Key struct {
	Frame float32
	Value float32
	Slope float32
}

// Track is one animated attribute — a texture-matrix component, a
// bone-transform component, a color channel, a texture-pattern index,
// or a visibility bit, depending on which of CHR0/CLR0/PAT0/SRT0/VIS0
// owns it. A Fixed track stores a single constant instead of a key
// stream (spec.md §3: "a 'fixed' attribute stores a single f32 in
// place of a key stream").
type Track struct {
	Fixed      bool
	FixedValue float32
	Keys       []Key
	Step       uint16 // cached cursor into Keys, as the original readers maintain per-track
}

// validate checks the non-decreasing-frame invariant spec.md §3 states
// for every key-backed track.
func (t Track) validate() error {
	if t.Fixed {
		return nil
	}
	for i := 1; i < len(t.Keys); i++ {
		if t.Keys[i].Frame < t.Keys[i-1].Frame {
			return bmderr.New(bmderr.DecodeError, "animation track frame %g precedes %g", t.Keys[i].Frame, t.Keys[i-1].Frame)
		}
	}
	return nil
}

func decodeTrack(r saferead.Reader) (Track, error) {
	var t Track
	fixedFlag, err := r.U8()
	if err != nil {
		return t, err
	}
	t.Fixed = fixedFlag != 0
	// Track fields are packed with no padding (see encodeTrack), so
	// they are read unaligned.
	step, err := stream.Read[uint16](r.S, endian.Current, true)
	if err != nil {
		return t, err
	}
	t.Step = step
	if t.Fixed {
		v, err := stream.Read[float32](r.S, endian.Current, true)
		if err != nil {
			return t, err
		}
		t.FixedValue = v
		return t, nil
	}
	count, err := stream.Read[uint16](r.S, endian.Current, true)
	if err != nil {
		return t, err
	}
	t.Keys = make([]Key, count)
	for i := range t.Keys {
		frame, err := stream.Read[float32](r.S, endian.Current, true)
		if err != nil {
			return t, err
		}
		value, err := stream.Read[float32](r.S, endian.Current, true)
		if err != nil {
			return t, err
		}
		slope, err := stream.Read[float32](r.S, endian.Current, true)
		if err != nil {
			return t, err
		}
		t.Keys[i] = Key{Frame: frame, Value: value, Slope: slope}
	}
	return t, t.validate()
}

func encodeTrack(w *stream.Writer, t Track) {
	var fixedFlag uint8
	if t.Fixed {
		fixedFlag = 1
	}
	stream.Write(w, fixedFlag, endian.Current)
	stream.Write(w, t.Step, endian.Current)
	if t.Fixed {
		stream.Write(w, t.FixedValue, endian.Current)
		return
	}
	stream.Write(w, uint16(len(t.Keys)), endian.Current)
	for _, k := range t.Keys {
		stream.Write(w, k.Frame, endian.Current)
		stream.Write(w, k.Value, endian.Current)
		stream.Write(w, k.Slope, endian.Current)
	}
}

// Animation is the shared shape of the five key-framed resource kinds
// the root dictionary's AnmChr/AnmClr/AnmTexPat/AnmTexSrt/AnmVis
// folders hold (spec.md §3). Kind distinguishes which folder — and
// thus which semantics for Tracks — an Animation belongs to; the wire
// encoding itself is identical across all five.
type Animation struct {
	Name         string
	Kind         AnimKind
	FrameDuration float32
	Loop         bool
	Tracks       []Track
}

// AnimKind names which of the five animation folders an Animation was
// read from or should be written to.
type AnimKind byte

const (
	KindCHR0 AnimKind = iota
	KindCLR0
	KindPAT0
	KindSRT0
	KindVIS0
)

func (k AnimKind) folderName() string {
	switch k {
	case KindCHR0:
		return "AnmChr(NW4R)"
	case KindCLR0:
		return "AnmClr(NW4R)"
	case KindPAT0:
		return "AnmTexPat(NW4R)"
	case KindSRT0:
		return "AnmTexSrt(NW4R)"
	default:
		return "AnmVis(NW4R)"
	}
}

// validate checks spec.md §3's "declared frame_duration matches the
// last keyframe" invariant against every non-fixed track.
func (a Animation) validate() error {
	for _, t := range a.Tracks {
		if t.Fixed || len(t.Keys) == 0 {
			continue
		}
		last := t.Keys[len(t.Keys)-1].Frame
		if last > a.FrameDuration {
			return bmderr.New(bmderr.DecodeError, "animation %q: track ends at frame %g past declared duration %g", a.Name, last, a.FrameDuration)
		}
	}
	return nil
}

func decodeAnimation(r saferead.Reader, name string, kind AnimKind) (Animation, error) {
	a := Animation{Name: name, Kind: kind}
	// SRT0 resources are only 1-byte aligned and the header is packed
	// with no padding, so its fields are read unaligned.
	dur, err := stream.Read[float32](r.S, endian.Current, true)
	if err != nil {
		return a, err
	}
	a.FrameDuration = dur
	loop, err := r.U8()
	if err != nil {
		return a, err
	}
	a.Loop = loop != 0
	trackCount, err := stream.Read[uint16](r.S, endian.Current, true)
	if err != nil {
		return a, err
	}
	a.Tracks = make([]Track, trackCount)
	for i := range a.Tracks {
		t, err := decodeTrack(r)
		if err != nil {
			return a, err
		}
		a.Tracks[i] = t
	}
	return a, a.validate()
}

func encodeAnimation(w *stream.Writer, a Animation) {
	stream.Write(w, a.FrameDuration, endian.Current)
	var loop uint8
	if a.Loop {
		loop = 1
	}
	stream.Write(w, loop, endian.Current)
	stream.Write(w, uint16(len(a.Tracks)), endian.Current)
	for _, t := range a.Tracks {
		encodeTrack(w, t)
	}
}
