// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package j3d

import (
	"math"

	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/linear"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

// BillboardType is a joint's billboard mode.
type BillboardType byte

const (
	BillboardNone BillboardType = 0
	BillboardXY   BillboardType = 2
	BillboardY    BillboardType = 3
)

// Joint is one JNT1 entry: a pre-decomposed TRS transform plus the
// fields the scene graph later hangs a hierarchy off of (spec.md §6:
// "Parent/child pointers are derived later by SceneGraph").
type Joint struct {
	Name      string
	Scale     linear.V3
	Rotation  linear.Q
	Translate linear.V3
	Billboard BillboardType
	// SSC (Segment Scale Compensate) disables the usual
	// parent-scale inheritance for this joint.
	SSC bool

	BoundingRadius float32
	AABBMin        linear.V3
	AABBMax        linear.V3
}

// DecodeJNT1 reads count JNT1 entries plus their remap table, each
// entry's name coming from the section's trailing name table.
func DecodeJNT1(r saferead.Reader, count int) ([]Joint, []uint16, error) {
	joints := make([]Joint, count)
	for i := range joints {
		j, err := decodeJointEntry(r)
		if err != nil {
			return nil, nil, err
		}
		joints[i] = j
	}
	remap := make([]uint16, count)
	for i := range remap {
		v, err := r.U16()
		if err != nil {
			return nil, nil, err
		}
		remap[i] = v
	}
	names, err := DecodeNameTable(r)
	if err != nil {
		return nil, nil, err
	}
	for i := range joints {
		if i < len(names) {
			joints[i].Name = names[i]
		}
	}
	return joints, remap, nil
}

func decodeJointEntry(r saferead.Reader) (Joint, error) {
	var j Joint
	if _, err := r.U16(); err != nil { // unknown/flags field, preserved only structurally
		return j, err
	}
	ssc, err := r.U8()
	if err != nil {
		return j, err
	}
	j.SSC = ssc != 0
	if _, err := r.U8(); err != nil { // padding
		return j, err
	}

	sx, err := r.F32()
	if err != nil {
		return j, err
	}
	sy, err := r.F32()
	if err != nil {
		return j, err
	}
	sz, err := r.F32()
	if err != nil {
		return j, err
	}
	j.Scale = linear.V3{sx, sy, sz}

	rx, err := r.U16()
	if err != nil {
		return j, err
	}
	ry, err := r.U16()
	if err != nil {
		return j, err
	}
	rz, err := r.U16()
	if err != nil {
		return j, err
	}
	j.Rotation = eulerToQuat(rx, ry, rz)
	if _, err := r.U16(); err != nil { // padding
		return j, err
	}

	tx, err := r.F32()
	if err != nil {
		return j, err
	}
	ty, err := r.F32()
	if err != nil {
		return j, err
	}
	tz, err := r.F32()
	if err != nil {
		return j, err
	}
	j.Translate = linear.V3{tx, ty, tz}

	radius, err := r.F32()
	if err != nil {
		return j, err
	}
	j.BoundingRadius = radius

	var min, max linear.V3
	for i := range min {
		v, err := r.F32()
		if err != nil {
			return j, err
		}
		min[i] = v
	}
	for i := range max {
		v, err := r.F32()
		if err != nil {
			return j, err
		}
		max[i] = v
	}
	j.AABBMin, j.AABBMax = min, max
	return j, nil
}

// eulerToQuat converts J3D's 16-bit fixed-point (1/182.04 degrees per
// unit) Euler angles into a quaternion, applied X then Y then Z.
func eulerToQuat(rx, ry, rz uint16) linear.Q {
	const scale = 180.0 / 32768.0
	toRad := func(v int16) float64 { return float64(v) * scale * (math.Pi / 180.0) }
	qx := axisAngle(linear.V3{1, 0, 0}, toRad(int16(rx)))
	qy := axisAngle(linear.V3{0, 1, 0}, toRad(int16(ry)))
	qz := axisAngle(linear.V3{0, 0, 1}, toRad(int16(rz)))
	var q linear.Q
	q.Mul(&qy, &qx)
	q.Mul(&qz, &q)
	return q
}

func axisAngle(axis linear.V3, rad float64) linear.Q {
	half := rad / 2
	s := float32(math.Sin(half))
	c := float32(math.Cos(half))
	return linear.Q{V: linear.V3{axis[0] * s, axis[1] * s, axis[2] * s}, R: c}
}

// EncodeJNT1 writes joints and their identity remap table.
func EncodeJNT1(w *stream.Writer, joints []Joint) {
	stream.Write(w, uint16(len(joints)), endian.Big)
	stream.Write(w, uint16(0xFFFF), endian.Current)
	for _, j := range joints {
		stream.Write(w, uint16(0), endian.Current)
		ssc := byte(0)
		if j.SSC {
			ssc = 1
		}
		stream.Write(w, ssc, endian.Current)
		stream.Write(w, byte(0xFF), endian.Current)
		stream.Write(w, j.Scale[0], endian.Big)
		stream.Write(w, j.Scale[1], endian.Big)
		stream.Write(w, j.Scale[2], endian.Big)
		rx, ry, rz := quatToEuler(j.Rotation)
		stream.Write(w, rx, endian.Big)
		stream.Write(w, ry, endian.Big)
		stream.Write(w, rz, endian.Big)
		stream.Write(w, uint16(0xFFFF), endian.Current)
		stream.Write(w, j.Translate[0], endian.Big)
		stream.Write(w, j.Translate[1], endian.Big)
		stream.Write(w, j.Translate[2], endian.Big)
		stream.Write(w, j.BoundingRadius, endian.Big)
		for _, v := range j.AABBMin {
			stream.Write(w, v, endian.Big)
		}
		for _, v := range j.AABBMax {
			stream.Write(w, v, endian.Big)
		}
	}
	for i := range joints {
		stream.Write(w, uint16(i), endian.Big)
	}
	names := make([]string, len(joints))
	for i, j := range joints {
		names[i] = j.Name
	}
	EncodeNameTable(w, names)
}

// quatToEuler is the inverse of eulerToQuat, used when re-encoding a
// freshly-built (not round-tripped) Joint. Extracts the X/Y/Z angles
// matching the X-then-Y-then-Z composition eulerToQuat builds.
func quatToEuler(q linear.Q) (uint16, uint16, uint16) {
	const scale = 32768.0 / 180.0
	w, x, y, z := float64(q.R), float64(q.V[0]), float64(q.V[1]), float64(q.V[2])

	sinX := 2 * (w*x + y*z)
	cosX := 1 - 2*(x*x+y*y)
	rx := math.Atan2(sinX, cosX)

	sinY := 2 * (w*y - z*x)
	if sinY > 1 {
		sinY = 1
	} else if sinY < -1 {
		sinY = -1
	}
	ry := math.Asin(sinY)

	sinZ := 2 * (w*z + x*y)
	cosZ := 1 - 2*(y*y+z*z)
	rz := math.Atan2(sinZ, cosZ)

	toFixed := func(rad float64) uint16 {
		deg := rad * (180.0 / math.Pi)
		return uint16(int16(deg * scale))
	}
	return toFixed(rx), toFixed(ry), toFixed(rz)
}
