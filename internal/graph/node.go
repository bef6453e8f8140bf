package graph

import (
	"fmt"
	"strings"

	"github.com/roach88/slotgraph/internal/ir"
)

// Node owns a set of top-level slots and the strategy that declares its
// internal dependencies.
type Node struct {
	graph    *Graph
	name     string
	slots    []SlotID
	declarer DependencyDeclarer
	removed  bool
}

// Name returns the node name.
func (n *Node) Name() string { return n.name }

// Graph returns the graph the node belongs to.
func (n *Node) Graph() *Graph { return n.graph }

// Removed reports whether the node has been removed from its graph.
func (n *Node) Removed() bool { return n.removed }

// Declarer returns the node's dependency declaration strategy.
func (n *Node) Declarer() DependencyDeclarer { return n.declarer }

// Slots returns the node's top-level slots in declaration order.
func (n *Node) Slots() []SlotID {
	return append([]SlotID(nil), n.slots...)
}

// AllSlots returns every slot of the node, compound slots before their
// children, in declaration order.
func (n *Node) AllSlots() []SlotID {
	var out []SlotID
	for _, top := range n.slots {
		n.graph.walk(top, func(id SlotID) {
			out = append(out, id)
		})
	}
	return out
}

// Owns reports whether id is a live slot of this node.
func (n *Node) Owns(id SlotID) bool {
	return n.graph.Valid(id) && n.graph.slots[id].node == n
}

// Slot resolves a dotted path relative to the node, e.g. "out.one".
func (n *Node) Slot(path string) (SlotID, bool) {
	level := n.slots
	found := NoSlot
	for _, part := range strings.Split(path, ".") {
		found = NoSlot
		for _, id := range level {
			if n.graph.slots[id].name == part {
				found = id
				break
			}
		}
		if found == NoSlot {
			return NoSlot, false
		}
		level = n.graph.slots[found].children
	}
	return found, true
}

// MustSlot is like Slot but panics if the path does not exist.
// Intended for declarers and tests that build their own nodes.
func (n *Node) MustSlot(path string) SlotID {
	id, ok := n.Slot(path)
	if !ok {
		panic(fmt.Sprintf("graph: node %s has no slot %q", n.name, path))
	}
	return id
}

// Value returns the effective value of one of the node's leaf slots.
func (n *Node) Value(id SlotID) ir.IRValue {
	if !n.Owns(id) {
		return nil
	}
	return n.graph.Value(id)
}

// AddSlot adds a top-level slot. def is the slot's default; it is
// discarded if the slot later gains children.
func (n *Node) AddSlot(name string, dir ir.Direction, def ir.IRValue) (SlotID, error) {
	if n.removed {
		return NoSlot, &BuildError{Path: n.name, Message: "node has been removed"}
	}
	if err := n.checkNewSlot(n.slots, n.name+"."+name, name, dir); err != nil {
		return NoSlot, err
	}
	id := n.graph.newSlot(n, NoSlot, name, dir, def)
	n.slots = append(n.slots, id)
	return id, nil
}

// AddChild adds a child under parent, making parent compound. The child
// must share the parent's direction, and a connected leaf cannot gain
// children.
func (n *Node) AddChild(parent SlotID, name string, dir ir.Direction, def ir.IRValue) (SlotID, error) {
	if !n.Owns(parent) {
		return NoSlot, &BuildError{Path: n.name, Message: fmt.Sprintf("parent slot %d does not belong to node", parent)}
	}
	g := n.graph
	p := &g.slots[parent]
	path := g.FullName(parent) + "." + name
	if err := n.checkNewSlot(p.children, path, name, dir); err != nil {
		return NoSlot, err
	}
	if dir != p.direction {
		return NoSlot, &BuildError{Path: path, Message: fmt.Sprintf("child direction %q differs from parent direction %q", dir, p.direction)}
	}
	if p.input != NoSlot || len(p.outputs) > 0 {
		return NoSlot, &BuildError{Path: path, Message: "connected slot cannot become compound"}
	}

	id := g.newSlot(n, parent, name, dir, def)
	// newSlot may grow the arena; re-take the parent pointer.
	p = &g.slots[parent]
	p.children = append(p.children, id)
	p.def, p.local = nil, nil
	return id, nil
}

func (n *Node) checkNewSlot(siblings []SlotID, path, name string, dir ir.Direction) error {
	if err := checkName(name); err != nil {
		return &BuildError{Path: path, Message: err.Error()}
	}
	if !ir.ValidDirections[dir] {
		return &BuildError{Path: path, Message: fmt.Sprintf("invalid direction %q", dir)}
	}
	for _, id := range siblings {
		if n.graph.slots[id].name == name {
			return &BuildError{Path: path, Message: "slot already exists"}
		}
	}
	return nil
}

func (g *Graph) newSlot(n *Node, parent SlotID, name string, dir ir.Direction, def ir.IRValue) SlotID {
	if def == nil {
		def = ir.IRNull{}
	}
	g.slots = append(g.slots, slot{
		name:      name,
		direction: dir,
		node:      n,
		parent:    parent,
		def:       def,
		local:     def,
		input:     NoSlot,
	})
	return SlotID(len(g.slots) - 1)
}
