// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package linkgraph

import (
	"fmt"
	"math"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/gviegas/bmdtool/bmderr"
	"github.com/gviegas/bmdtool/stream"
)

// RelativePosition selects which edge of a resolved node a Link
// endpoint refers to, mirroring oishii::Hook::RelativePosition.
type RelativePosition int

const (
	Begin RelativePosition = iota
	End
	// EndOfChildren resolves against the implicit marker Gather
	// appends after every non-leaf node's subtree.
	EndOfChildren
)

// Endpoint names one side of a Link: either a direct Node (resolved
// by identity once the layout is known) or a symbolic name resolved
// through the three-pass namespace search in findNamespacedID.
type Endpoint struct {
	Node     *Node
	Symbol   string
	Relation RelativePosition
	Offset   int64
}

// Link is a write-time placeholder whose value (to − from) / Stride
// is back-patched once layout is known (spec.md GLOSSARY "Link").
type Link struct {
	From, To Endpoint
	// Stride divides the resolved byte delta; 0 or 1 means "no
	// division", matching the common "the placeholder holds a byte
	// offset, not an element index" case.
	Stride int64
}

type layoutElement struct {
	node      *Node
	namespace string
}

type mapEntry struct {
	symbol string
	begin  int64
	end    int64
	restr  LinkingRestriction
}

// Linker lays out a Node tree, then resolves every stream.Reservation
// carrying a *Link payload. It is the Go counterpart of oishii::Linker.
type Linker struct {
	layout []layoutElement
	mp     []mapEntry
}

// NewLinker returns an empty Linker.
func NewLinker() *Linker { return &Linker{} }

// Gather performs the depth-first traversal that builds the write
// order: the node itself, then each child under a namespace extended
// by the node's own ID, then (unless the node is a Leaf) an implicit
// EndOfChildren marker. It mirrors Linker::gather.
func (l *Linker) Gather(root *Node, namespace string) error {
	return l.gather(root, namespace, mapset.NewSet[*Node]())
}

func (l *Linker) gather(root *Node, namespace string, visited mapset.Set[*Node]) error {
	if visited.Contains(root) {
		return bmderr.New(bmderr.DecodeError, "cycle detected at node %q", root.ID)
	}
	visited.Add(root)

	l.layout = append(l.layout, layoutElement{node: root, namespace: namespace})

	childNS := root.ID
	if namespace != "" {
		childNS = namespace + "::" + root.ID
	}
	for _, child := range root.Children {
		if err := l.gather(child, childNS, visited); err != nil {
			return err
		}
	}

	if !root.Restriction.Leaf {
		marker := &Node{ID: "EndOfChildren", Restriction: LinkingRestriction{Leaf: true}}
		l.layout = append(l.layout, layoutElement{node: marker, namespace: childNS})
	}

	return nil
}

func symbolOf(e layoutElement) string {
	if e.namespace == "" {
		return e.node.ID
	}
	return e.namespace + "::" + e.node.ID
}

// findNamespacedID performs the three-pass lookup from
// LinkerHelper::findNamespacedID: same level, then children, then a
// global pass. The global pass is ported as-is from the original,
// which compares the candidate's *namespace* against the symbol
// (rather than its full name) — a quirk preserved here for byte-exact
// parity with blocks written by the reference tool.
func (l *Linker) findNamespacedID(symbol, namespace, blockName string) (string, error) {
	nsSymbol := symbol
	if namespace != "" {
		nsSymbol = namespace + "::" + symbol
	}
	for _, e := range l.layout {
		if symbolOf(e) == nsSymbol {
			return nsSymbol, nil
		}
	}

	prefix := ""
	if namespace != "" {
		prefix = namespace + "::"
	}
	if blockName != "" {
		prefix += blockName + "::"
	}
	childSymbol := prefix + symbol
	for _, e := range l.layout {
		if symbolOf(e) == childSymbol {
			return childSymbol, nil
		}
	}

	for _, e := range l.layout {
		if e.namespace == symbol {
			return symbol, nil
		}
	}

	return "", bmderr.New(bmderr.LinkerUnresolved, "failed namespaced symbol lookup for %q", symbol)
}

// resolveSymbolFor resolves an Endpoint down to the fully-namespaced
// symbol string the map was keyed on at write time.
func (l *Linker) resolveSymbolFor(ep Endpoint, namespace, blockName string) (string, error) {
	if ep.Node != nil {
		for _, e := range l.layout {
			if e.node == ep.Node {
				return symbolOf(e), nil
			}
		}
		return "", bmderr.New(bmderr.LinkerUnresolved, "node %q was never written to stream", ep.Node.ID)
	}
	return l.findNamespacedID(ep.Symbol, namespace, blockName)
}

// resolveHook mirrors LinkerHelper::resolveHook: looks the symbol's
// recorded [begin, end) up in the write-pass map, appending
// "::EndOfChildren" when pos asks for that marker.
func (l *Linker) resolveHook(symbol string, pos RelativePosition, offset int64) (int64, error) {
	sym := symbol
	if pos == EndOfChildren {
		if sym != "" {
			sym += "::"
		}
		sym += "EndOfChildren"
	}
	for _, e := range l.mp {
		if e.symbol == sym {
			switch pos {
			case Begin, EndOfChildren:
				return e.begin + offset, nil
			case End:
				return e.end + offset, nil
			}
		}
	}
	return 0, bmderr.New(bmderr.LinkerUnresolved, "cannot resolve symbol %q", sym)
}

// fitsWidth reports whether val fits the signed range
// Writer.ResolveReservation narrows to for a placeholder of the given
// byte size (spec.md §7 LinkerOverflow: "resolved value does not fit
// the placeholder width").
func fitsWidth(val, size int64) bool {
	switch size {
	case 1:
		return val >= math.MinInt8 && val <= math.MaxInt8
	case 2:
		return val >= math.MinInt16 && val <= math.MaxInt16
	default:
		return val >= math.MinInt32 && val <= math.MaxInt32
	}
}

// Write lays every gathered node out in traversal order (honoring
// per-node alignment), records each one's [begin, end) under its
// namespaced symbol, then resolves every stream.Reservation on w whose
// Link payload is a *Link. It mirrors Linker::write.
func (l *Linker) Write(w *stream.Writer) error {
	for _, e := range l.layout {
		if a := e.node.Restriction.Alignment; a > 0 {
			w.AlignTo(a)
		}

		sym := symbolOf(e)
		w.SetNamespace(e.namespace, e.node.ID)
		begin := w.Tell()
		if e.node.WriteSelf != nil {
			if err := e.node.WriteSelf(w); err != nil {
				return fmt.Errorf("writing node %q: %w", e.node.ID, err)
			}
		}
		end := w.Tell()
		l.mp = append(l.mp, mapEntry{symbol: sym, begin: begin, end: end, restr: e.node.Restriction})

		if e.node.Restriction.PadEnd {
			if a := e.node.Restriction.Alignment; a > 0 {
				w.AlignTo(a)
			}
		}
	}

	for _, res := range w.Reservations() {
		link, ok := res.Link.(*Link)
		if !ok {
			continue
		}

		fromSym, err := l.resolveSymbolFor(link.From, res.Namespace, res.BlockName)
		if err != nil {
			return err
		}
		toSym, err := l.resolveSymbolFor(link.To, res.Namespace, res.BlockName)
		if err != nil {
			return err
		}

		fromAddr, err := l.resolveHook(fromSym, link.From.Relation, link.From.Offset)
		if err != nil {
			return err
		}
		toAddr, err := l.resolveHook(toSym, link.To.Relation, link.To.Offset)
		if err != nil {
			return err
		}

		val := toAddr - fromAddr
		if link.Stride > 1 {
			if val%link.Stride != 0 {
				return bmderr.New(bmderr.DecodeError, "delta %d not a multiple of stride %d", val, link.Stride)
			}
			val /= link.Stride
		}
		if !fitsWidth(val, res.Size) {
			return bmderr.New(bmderr.LinkerOverflow, "resolved value %d does not fit %d-byte placeholder", val, res.Size)
		}
		w.ResolveReservation(res, val)
	}

	return nil
}
