// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package linkgraph implements the write-time data-block graph and
// deferred symbol linker described in spec.md §4.4: a tree of Nodes
// that know how to write themselves, placeholder Links left behind by
// WriteLink reservations, and a Linker that lays the tree out, then
// resolves every placeholder in one pass. It is the Go counterpart of
// RiiStudio's oishii::Node / oishii::Linker, collapsed per Design
// Note 9 into a single non-virtual Node (no Box<dyn WritableNode>
// needed: a struct holding a write-self closure plays the same role
// as a trait object with one method).
package linkgraph

import (
	"github.com/google/uuid"

	"github.com/gviegas/bmdtool/stream"
)

// LinkingRestriction mirrors oishii::LinkingRestriction: constraints
// the linker must honor when laying nodes out.
type LinkingRestriction struct {
	// Static requires this node to be laid out immediately after the
	// node preceding it in traversal order.
	Static bool
	// Post marks a node whose references must only point backward
	// (unimplemented upstream; carried here for parity).
	Post bool
	// Leaf signals this node cannot have children and therefore gets
	// no EndOfChildren marker.
	Leaf bool
	// PadEnd re-applies Alignment after the node's own bytes are
	// written, padding its end as well as its start (spec.md §4.4 step
	// 3: "if pad_end and alignment, pad again to alignment").
	PadEnd bool
	// Alignment is the required alignment in bytes, 0 to disable.
	Alignment int64
}

// WriteFunc emits a node's own bytes (not its children's) to w.
type WriteFunc func(w *stream.Writer) error

// Node is one block in the write-time graph.
type Node struct {
	ID          string
	Restriction LinkingRestriction
	Children    []*Node
	WriteSelf   WriteFunc
}

// New creates a Node. An empty id is replaced with a freshly generated
// unique one, matching the original's "blank ID signals a random
// unique ID" constructor comment on oishii::Node.
func New(id string, restriction LinkingRestriction, write WriteFunc) *Node {
	if id == "" {
		id = uuid.NewString()
	}
	return &Node{ID: id, Restriction: restriction, WriteSelf: write}
}

// NewLeaf creates a childless Node; convenience for the common case of
// toLeaf().
func NewLeaf(id string, write WriteFunc) *Node {
	return New(id, LinkingRestriction{Leaf: true}, write)
}

// AddChild appends a child node. The linker's gather pass descends into
// a node's children whether or not the node is a leaf, and reports
// neither a warning nor an error for a leaf that has children.
func (n *Node) AddChild(child *Node) {
	n.Children = append(n.Children, child)
}
