// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package brres

import (
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/j3d"
	"github.com/gviegas/bmdtool/linear"
	"github.com/gviegas/bmdtool/namepool"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

// Bone is one MDL0 bone: transform, AABB, and the flat parent id this
// toolkit keeps instead of the original's redundant child/sibling
// links — BoneIO.cpp's own reader discards those on read ("Skip
// sibling and child links -- we recompute it all"), so this toolkit
// recomputes them only at encode time, from ParentID alone.
type Bone struct {
	Name          string
	ID            uint32
	MatrixID      uint32
	Flag          uint32
	BillboardType uint32

	Scale, Rotate, Translate linear.V3
	AABBMin, AABBMax         linear.V3

	ParentID int32 // -1 for a root bone

	ModelMtx, InverseModelMtx linear.M4
}

// Model is a decoded MDL0 resource: its bone hierarchy and the
// envelope/draw-matrix table binding vertices to those bones. MDL0's
// material and shape sub-sections are out of scope (DESIGN.md):
// modeling them would duplicate J3D's MAT3/SHP1 domain in a second
// binary format rather than exercise anything BRRES-specific.
type Model struct {
	Name         string
	Bones        []Bone
	Envelopes    []j3d.Envelope
	DrawMatrices []j3d.DrawMatrix
}

const boneStructSize = 0xD0

// computeHierarchy derives child-first/sibling-right/sibling-left ids
// from a flat per-bone ParentID array, matching what BoneIO.cpp itself
// recomputes on every read rather than trusting the stored links.
func computeHierarchy(parent []int32) (childFirst, siblingRight, siblingLeft []int32) {
	n := len(parent)
	childFirst = make([]int32, n)
	siblingRight = make([]int32, n)
	siblingLeft = make([]int32, n)
	for i := range childFirst {
		childFirst[i] = -1
		siblingRight[i] = -1
		siblingLeft[i] = -1
	}
	lastChild := make(map[int32]int32)
	for i := 0; i < n; i++ {
		p := parent[i]
		if last, ok := lastChild[p]; ok {
			siblingRight[last] = int32(i)
			siblingLeft[i] = last
		} else if p >= 0 {
			childFirst[p] = int32(i)
		}
		lastChild[p] = int32(i)
	}
	return
}

func readVec3(r saferead.Reader) (linear.V3, error) {
	var v linear.V3
	x, err := r.F32()
	if err != nil {
		return v, err
	}
	y, err := r.F32()
	if err != nil {
		return v, err
	}
	z, err := r.F32()
	if err != nil {
		return v, err
	}
	return linear.V3{x, y, z}, nil
}

func writeVec3(w *stream.Writer, v linear.V3) {
	for _, c := range v {
		stream.Write(w, c, endian.Current)
	}
}

// decodeBone reads one fixed-size 0xD0-byte bone struct at the
// reader's current position, per BinaryBoneData::read.
func decodeBone(r saferead.Reader) (Bone, error) {
	var b Bone
	start := r.S.Tell()
	r.S.Skip(8) // size, mdl offset

	name, err := r.StringOfs32(start)
	if err != nil {
		return b, err
	}
	b.Name = name

	if b.ID, err = r.U32(); err != nil {
		return b, err
	}
	if b.MatrixID, err = r.U32(); err != nil {
		return b, err
	}
	if b.Flag, err = r.U32(); err != nil {
		return b, err
	}
	if b.BillboardType, err = r.U32(); err != nil {
		return b, err
	}
	r.S.Skip(4) // ancestorBillboardBone: unused by this toolkit

	if b.Scale, err = readVec3(r); err != nil {
		return b, err
	}
	if b.Rotate, err = readVec3(r); err != nil {
		return b, err
	}
	if b.Translate, err = readVec3(r); err != nil {
		return b, err
	}
	if b.AABBMin, err = readVec3(r); err != nil {
		return b, err
	}
	if b.AABBMax, err = readVec3(r); err != nil {
		return b, err
	}

	parentOfs, err := r.S32()
	if err != nil {
		return b, err
	}
	if parentOfs == 0 {
		b.ParentID = -1
	} else {
		at := start + int64(parentOfs) + 12
		id, err := stream.PeekAt[int32](r.S, at, endian.Current, false)
		if err != nil {
			return b, err
		}
		b.ParentID = id
	}
	r.S.Skip(12) // child_first/sibling_right/sibling_left offsets: recomputed, not kept

	r.S.SeekSet(start + 0x70) // skip user-data offset

	for col := 0; col < 4; col++ {
		for row := 0; row < 3; row++ {
			v, err := r.F32()
			if err != nil {
				return b, err
			}
			b.ModelMtx[col][row] = v
		}
	}
	for col := 0; col < 4; col++ {
		for row := 0; row < 3; row++ {
			v, err := r.F32()
			if err != nil {
				return b, err
			}
			b.InverseModelMtx[col][row] = v
		}
	}

	r.S.SeekSet(start + boneStructSize)
	return b, nil
}

// encodeBone writes one bone struct. The four hierarchy offsets
// (parent/child-first/sibling-right/sibling-left, each relative to
// this bone's own struct start, or 0 when absent) come from
// computeHierarchy by way of EncodeModel; BoneIO.cpp discards them on
// read, recomputing the same way, so their exact values only matter to
// readers outside this toolkit.
func encodeBone(w *stream.Writer, names *namepool.Pool, mdlStart int64, b Bone, parentOfs, childOfs, sibRightOfs, sibLeftOfs int32) {
	start := w.Tell()
	stream.Write(w, uint32(boneStructSize), endian.Current)
	stream.Write(w, int32(mdlStart-start), endian.Current)
	namepool.WriteForward(names, w, start, b.Name)

	stream.Write(w, b.ID, endian.Current)
	stream.Write(w, b.MatrixID, endian.Current)
	stream.Write(w, b.Flag, endian.Current)
	stream.Write(w, b.BillboardType, endian.Current)
	stream.Write(w, uint32(0), endian.Current) // ancestorBillboardBone

	writeVec3(w, b.Scale)
	writeVec3(w, b.Rotate)
	writeVec3(w, b.Translate)
	writeVec3(w, b.AABBMin)
	writeVec3(w, b.AABBMax)

	stream.Write(w, parentOfs, endian.Current)
	stream.Write(w, childOfs, endian.Current)
	stream.Write(w, sibRightOfs, endian.Current)
	stream.Write(w, sibLeftOfs, endian.Current)

	w.WriteBytes(make([]byte, (start+0x70)-w.Tell())) // user-data offset + pad to 0x70

	for col := 0; col < 4; col++ {
		for row := 0; row < 3; row++ {
			stream.Write(w, b.ModelMtx[col][row], endian.Current)
		}
	}
	for col := 0; col < 4; col++ {
		for row := 0; row < 3; row++ {
			stream.Write(w, b.InverseModelMtx[col][row], endian.Current)
		}
	}

	w.WriteBytes(make([]byte, (start+boneStructSize)-w.Tell()))
}

// DecodeModel reads a Model's bone list and envelope/draw-matrix table
// starting at r's current position: boneCount fixed-size bone structs,
// then EVP1-shaped envelope data (envelopeCount entries), then
// DRW1-shaped draw-matrix data (declaredDrawCount entries before the
// over-count correction spec.md §9 documents for J3D and which BRRES's
// writer reproduces identically).
func DecodeModel(r saferead.Reader, name string, boneCount, envelopeCount, declaredDrawCount int) (*Model, error) {
	m := &Model{Name: name}
	m.Bones = make([]Bone, boneCount)
	for i := range m.Bones {
		b, err := decodeBone(r)
		if err != nil {
			return nil, err
		}
		m.Bones[i] = b
	}

	if envelopeCount > 0 {
		if err := skipCountHeader(r); err != nil {
			return nil, err
		}
		envs, err := j3d.DecodeEVP1(r, envelopeCount)
		if err != nil {
			return nil, err
		}
		m.Envelopes = envs
	}
	if declaredDrawCount > 0 {
		if err := skipCountHeader(r); err != nil {
			return nil, err
		}
		dms, err := j3d.DecodeDRW1(r, declaredDrawCount, envelopeCount)
		if err != nil {
			return nil, err
		}
		m.DrawMatrices = dms
	}
	return m, nil
}

// skipCountHeader consumes the u16 count + u16 padding pair
// j3d.EncodeEVP1/EncodeDRW1 each write ahead of their body — the same
// 4-byte header j3d.go's own decoder skips via its unexported
// readCountHeader before calling into the same Decode functions.
func skipCountHeader(r saferead.Reader) error {
	if _, err := r.U16(); err != nil {
		return err
	}
	if _, err := r.U16(); err != nil {
		return err
	}
	return nil
}

// EncodeModel writes m's bone list and envelope/draw-matrix table.
// mdlStart is the position of MDL0's own header, used for each bone's
// mdl-relative back-reference.
func EncodeModel(w *stream.Writer, names *namepool.Pool, mdlStart int64, m *Model) {
	parent := make([]int32, len(m.Bones))
	for i, b := range m.Bones {
		parent[i] = b.ParentID
	}
	childFirst, sibRight, sibLeft := computeHierarchy(parent)

	boneStart := make([]int64, len(m.Bones))
	for i, b := range m.Bones {
		thisStart := w.Tell()
		boneStart[i] = thisStart

		var parentOfs, childOfs, sibRightOfs, sibLeftOfs int32
		if b.ParentID >= 0 {
			parentOfs = int32(boneStart[b.ParentID] - thisStart)
		}
		// Forward references (a child/sibling not yet written) are left
		// as 0; BoneIO.cpp's reader never follows them back anyway.
		if int(childFirst[i]) >= 0 && int(childFirst[i]) < i {
			childOfs = int32(boneStart[childFirst[i]] - thisStart)
		}
		if int(sibRight[i]) >= 0 && int(sibRight[i]) < i {
			sibRightOfs = int32(boneStart[sibRight[i]] - thisStart)
		}
		if int(sibLeft[i]) >= 0 && int(sibLeft[i]) < i {
			sibLeftOfs = int32(boneStart[sibLeft[i]] - thisStart)
		}
		encodeBone(w, names, mdlStart, b, parentOfs, childOfs, sibRightOfs, sibLeftOfs)
	}

	if len(m.Envelopes) > 0 {
		j3d.EncodeEVP1(w, m.Envelopes)
	}
	if len(m.DrawMatrices) > 0 {
		j3d.EncodeDRW1(w, m.DrawMatrices, len(m.Envelopes))
	}
}
