// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package j3d

import (
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/linear"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

// Weight is one bone's influence on an envelope.
type Weight struct {
	BoneID uint16
	Weight float32
}

// Envelope is a variable-length weighted bone list paired with an
// inverse-bind matrix (spec.md "Envelope / draw-matrix table").
type Envelope struct {
	Weights []Weight
	IBM     linear.M4
}

// DrawMatrix is one entry of the unified draw-matrix vector DRW1
// builds: either a single-bind bone reference (IsEnvelope false) or a
// multi-weight envelope reference (IsEnvelope true).
type DrawMatrix struct {
	IsEnvelope bool
	Index      uint16
}

// DecodeEVP1 reads count envelopes at r's current position, in
// sequence: one weight count per envelope, then every envelope's bone
// ids, then every envelope's weights, then one inverse-bind matrix per
// envelope.
func DecodeEVP1(r saferead.Reader, count int) ([]Envelope, error) {
	counts := make([]byte, count)
	for i := range counts {
		v, err := r.U8()
		if err != nil {
			return nil, err
		}
		counts[i] = v
	}

	envs := make([]Envelope, count)
	for i := range envs {
		envs[i].Weights = make([]Weight, counts[i])
	}
	for i := range envs {
		for j := range envs[i].Weights {
			id, err := r.U16()
			if err != nil {
				return nil, err
			}
			envs[i].Weights[j].BoneID = id
		}
	}
	for i := range envs {
		for j := range envs[i].Weights {
			w, err := r.F32()
			if err != nil {
				return nil, err
			}
			envs[i].Weights[j].Weight = w
		}
	}
	for i := range envs {
		m, err := decodeMatrix3x4(r)
		if err != nil {
			return nil, err
		}
		envs[i].IBM = m
	}
	return envs, nil
}

// decodeMatrix3x4 reads the 3x4 row-major affine matrix J3D stores
// for inverse-bind transforms, expanding it to a full linear.M4.
func decodeMatrix3x4(r saferead.Reader) (linear.M4, error) {
	var rows [3][4]float32
	for i := range rows {
		for j := range rows[i] {
			v, err := r.F32()
			if err != nil {
				return linear.M4{}, err
			}
			rows[i][j] = v
		}
	}
	var m linear.M4
	m.I()
	for col := 0; col < 4; col++ {
		for row := 0; row < 3; row++ {
			m[col][row] = rows[row][col]
		}
	}
	return m, nil
}

// DecodeDRW1 reads the DRW1 section, correcting the original tool's
// declared-count over-counting by envelopeCount (spec.md §9).
func DecodeDRW1(r saferead.Reader, declaredCount, envelopeCount int) ([]DrawMatrix, error) {
	count := declaredCount - envelopeCount
	if count < 0 {
		count = 0
	}
	flags := make([]byte, count)
	for i := range flags {
		v, err := r.U8()
		if err != nil {
			return nil, err
		}
		flags[i] = v
	}
	dms := make([]DrawMatrix, count)
	for i := range dms {
		idx, err := r.U16()
		if err != nil {
			return nil, err
		}
		dms[i] = DrawMatrix{IsEnvelope: flags[i] == 0, Index: idx}
	}
	return dms, nil
}

// EncodeDRW1 writes dms, restoring the original tool's over-count
// (declaredCount = len(dms) + envelopeCount) so self-authored files
// round-trip bit-exact through readers that apply the same
// correction.
func EncodeDRW1(w *stream.Writer, dms []DrawMatrix, envelopeCount int) {
	stream.Write(w, uint16(len(dms)+envelopeCount), endian.Big)
	stream.Write(w, uint16(0xFFFF), endian.Current)
	for _, d := range dms {
		flag := byte(1)
		if d.IsEnvelope {
			flag = 0
		}
		stream.Write(w, flag, endian.Current)
	}
	for _, d := range dms {
		stream.Write(w, d.Index, endian.Big)
	}
}

// EncodeEVP1 writes a list of envelopes in EVP1's layout.
func EncodeEVP1(w *stream.Writer, envs []Envelope) {
	stream.Write(w, uint16(len(envs)), endian.Big)
	stream.Write(w, uint16(0xFFFF), endian.Current)
	for _, e := range envs {
		stream.Write(w, byte(len(e.Weights)), endian.Current)
	}
	for _, e := range envs {
		for _, wt := range e.Weights {
			stream.Write(w, wt.BoneID, endian.Big)
		}
	}
	for _, e := range envs {
		for _, wt := range e.Weights {
			stream.Write(w, wt.Weight, endian.Big)
		}
	}
	for _, e := range envs {
		encodeMatrix3x4(w, e.IBM)
	}
}

func encodeMatrix3x4(w *stream.Writer, m linear.M4) {
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			stream.Write(w, m[col][row], endian.Big)
		}
	}
}
