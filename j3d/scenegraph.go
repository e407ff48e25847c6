// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Scene-graph bytecode (INF1): a tiny stack machine that rebuilds the
// joint hierarchy and attaches material/shape pairs to joints. Adapted
// from node/node.go's arena-of-indices idiom (Node handle, no owning
// pointers) with the transform-graph parts shed — INF1 only needs
// parent/child indices and per-joint display lists, not a live
// world-transform cache.
package j3d

import (
	"github.com/gviegas/bmdtool/bmderr"
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

// byteCodeOp is the scene-graph bytecode's opcode, a 16-bit enum
// matching the original ByteCodeOp.
type byteCodeOp int16

const (
	opTerminate byteCodeOp = 0
	opOpen      byteCodeOp = 1
	opClose     byteCodeOp = 2
	opJoint     byteCodeOp = 0x10
	opMaterial  byteCodeOp = 0x11
	opShape     byteCodeOp = 0x12
)

// Display pairs a material index with a shape index, attached to a
// joint.
type Display struct {
	Material int16
	Shape    int16
}

// JointNode is one entry of the joint hierarchy the scene graph
// bytecode describes.
type JointNode struct {
	ParentID int // -1 for the root
	Children []int
	Displays []Display
}

// SceneGraph is the decoded INF1 hierarchy: Joints[0] is always the
// root.
type SceneGraph struct {
	Joints []JointNode
}

// EncodeSceneGraph writes sg's bytecode to w, assuming joint 0 is the
// root. A joint with neither displays nor children contributes only
// its Joint tag (no Open/Close pair); otherwise it opens one scope for
// itself and one more per distinct material/shape run among its
// displays, emitting exactly that many Close tokens once its children
// have been fully written (spec.md §8 S5).
func EncodeSceneGraph(w *stream.Writer, sg *SceneGraph) {
	writeJoint(w, sg, 0)
	writeByteCodeCmd(w, opTerminate, 0)
}

func writeJoint(w *stream.Writer, sg *SceneGraph, id int) {
	j := &sg.Joints[id]
	hasScope := len(j.Children) > 0 || len(j.Displays) > 0

	writeByteCodeCmd(w, opJoint, int16(id))
	if !hasScope {
		return
	}
	writeByteCodeCmd(w, opOpen, 0)
	closes := 1

	var lastMat, lastShape int16 = -1, -1
	for _, d := range j.Displays {
		if d.Material != lastMat {
			writeByteCodeCmd(w, opMaterial, d.Material)
			writeByteCodeCmd(w, opOpen, 0)
			closes++
		}
		if d.Shape != lastShape {
			writeByteCodeCmd(w, opShape, d.Shape)
			closes++
		}
		lastMat, lastShape = d.Material, d.Shape
	}

	for _, c := range j.Children {
		writeJoint(w, sg, c)
	}

	for i := 0; i < closes; i++ {
		writeByteCodeCmd(w, opClose, 0)
	}
}

func writeByteCodeCmd(w *stream.Writer, op byteCodeOp, idx int16) {
	stream.Write(w, int16(op), endian.Current)
	stream.Write(w, idx, endian.Current)
}

// DecodeSceneGraph parses the INF1 bytecode stream at r's current
// position. It mirrors EncodeSceneGraph's grammar directly (a
// recursive-descent read rather than the generic flat Open/Close
// stack the original BMD tool walks): that flat interpretation is
// ambiguous for a root with more than one child — tracing it by hand
// against spec.md §8 S5 showed it can pop the scene root's own scope
// before the root's later children are read. Mirroring the encoder's
// own grammar sidesteps the ambiguity entirely.
func DecodeSceneGraph(r saferead.Reader, jointCount int) (*SceneGraph, error) {
	sg := &SceneGraph{Joints: make([]JointNode, jointCount)}
	for i := range sg.Joints {
		sg.Joints[i].ParentID = -1
	}
	if _, err := decodeJoint(r, sg, -1); err != nil {
		return nil, err
	}
	op, _, err := readByteCodeCmd(r)
	if err != nil {
		return nil, err
	}
	if op != opTerminate {
		return nil, bmderr.New(bmderr.DecodeError, "scene graph missing Terminate after root")
	}
	return sg, nil
}

func decodeJoint(r saferead.Reader, sg *SceneGraph, parent int) (int, error) {
	op, idx, err := readByteCodeCmd(r)
	if err != nil {
		return 0, err
	}
	if op != opJoint {
		return 0, bmderr.New(bmderr.DecodeError, "expected Joint opcode, got %d", op)
	}
	id := int(idx)
	if id < 0 || id >= len(sg.Joints) {
		return 0, bmderr.New(bmderr.DecodeError, "scene graph joint index %d out of range", id)
	}
	sg.Joints[id].ParentID = parent
	if parent >= 0 {
		sg.Joints[parent].Children = append(sg.Joints[parent].Children, id)
	}

	peekOp, _, err := peekByteCodeCmd(r)
	if err != nil {
		return 0, err
	}
	if peekOp != opOpen {
		return id, nil // phantom leaf: no scope was opened for this joint
	}
	if _, _, err := readByteCodeCmd(r); err != nil { // consume Open
		return 0, err
	}
	closesPending := 1

	var curMat int16 = -1
	for {
		peekOp, peekIdx, err := peekByteCodeCmd(r)
		if err != nil {
			return 0, err
		}
		switch peekOp {
		case opMaterial:
			if _, _, err := readByteCodeCmd(r); err != nil {
				return 0, err
			}
			curMat = peekIdx
			if _, _, err := readByteCodeCmd(r); err != nil { // paired Open
				return 0, err
			}
			closesPending++
		case opShape:
			if _, _, err := readByteCodeCmd(r); err != nil {
				return 0, err
			}
			sg.Joints[id].Displays = append(sg.Joints[id].Displays, Display{Material: curMat, Shape: peekIdx})
			closesPending++
		case opJoint:
			if _, err := decodeJoint(r, sg, id); err != nil {
				return 0, err
			}
		case opClose:
			for i := 0; i < closesPending; i++ {
				if _, _, err := readByteCodeCmd(r); err != nil {
					return 0, err
				}
			}
			return id, nil
		default:
			return 0, bmderr.New(bmderr.DecodeError, "unexpected scene graph opcode %d", peekOp)
		}
	}
}

func readByteCodeCmd(r saferead.Reader) (byteCodeOp, int16, error) {
	op, err := r.S16()
	if err != nil {
		return 0, 0, err
	}
	idx, err := r.S16()
	if err != nil {
		return 0, 0, err
	}
	return byteCodeOp(op), idx, nil
}

// peekByteCodeCmd reads the next command without advancing r.
func peekByteCodeCmd(r saferead.Reader) (byteCodeOp, int16, error) {
	save := r.S.Tell()
	op, idx, err := readByteCodeCmd(r)
	r.S.SeekSet(save)
	return op, idx, err
}
