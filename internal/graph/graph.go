package graph

import (
	"fmt"
	"strings"

	"github.com/roach88/slotgraph/internal/ir"
)

// SlotID is the stable arena index of a slot within one Graph.
type SlotID int

// NoSlot is the zero reference: no parent, no connection.
const NoSlot SlotID = -1

// slot is one arena entry. Compound slots have children and never carry a
// value or a connection.
type slot struct {
	name      string
	direction ir.Direction
	node      *Node
	parent    SlotID
	children  []SlotID

	def   ir.IRValue // value restored by Reset
	local ir.IRValue // value held while unconnected

	input   SlotID   // upstream output leaf, or NoSlot
	outputs []SlotID // downstream input leaves in connection order

	removed bool
}

// Graph owns the nodes and the slot arena of one node graph.
type Graph struct {
	slots  []slot
	nodes  []*Node
	byName map[string]*Node
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		byName: make(map[string]*Node),
	}
}

// AddNode creates a node. A nil declarer declares no dependencies.
func (g *Graph) AddNode(name string, declarer DependencyDeclarer) (*Node, error) {
	if err := checkName(name); err != nil {
		return nil, &BuildError{Path: name, Message: err.Error()}
	}
	if _, exists := g.byName[name]; exists {
		return nil, &BuildError{Path: name, Message: "node already exists"}
	}
	if declarer == nil {
		declarer = NoDependencies
	}

	n := &Node{graph: g, name: name, declarer: declarer}
	g.nodes = append(g.nodes, n)
	g.byName[name] = n
	return n, nil
}

// Node returns the live node with the given name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.byName[name]
	return n, ok
}

// Nodes returns live nodes in creation order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.byName))
	for _, n := range g.nodes {
		if !n.removed {
			out = append(out, n)
		}
	}
	return out
}

// Edge is one connection, from output leaf Src into input leaf Dst.
type Edge struct {
	Dst SlotID
	Src SlotID
}

// RemoveNode severs every connection touching the node's slots and then
// tombstones the node. It returns the connections into other nodes that
// were broken, in the order they were severed. No propagation happens
// here; the engine drives dirtying for those inputs.
func (g *Graph) RemoveNode(name string) ([]Edge, error) {
	n, ok := g.byName[name]
	if !ok {
		return nil, &BuildError{Path: name, Message: "node not found"}
	}

	all := n.AllSlots()
	var severed []Edge
	for _, leaf := range all {
		if !g.IsLeaf(leaf) {
			continue
		}
		s := &g.slots[leaf]
		if s.input != NoSlot {
			g.unlink(leaf)
		}
		for len(s.outputs) > 0 {
			dst := s.outputs[0]
			g.unlink(dst)
			if g.slots[dst].node != n {
				severed = append(severed, Edge{Dst: dst, Src: leaf})
			}
		}
	}

	for _, id := range all {
		g.slots[id].removed = true
	}
	n.removed = true
	delete(g.byName, name)
	return severed, nil
}

// Lookup resolves a full name such as "n1.out.one".
func (g *Graph) Lookup(fullName string) (SlotID, error) {
	nodeName, rest, ok := strings.Cut(fullName, ".")
	if !ok {
		return NoSlot, &InvalidTargetError{Code: ErrCodeUnknownSlot, Message: "full name must be <node>.<slot>", Slot: fullName}
	}
	n, found := g.byName[nodeName]
	if !found {
		return NoSlot, &InvalidTargetError{Code: ErrCodeUnknownSlot, Message: "node not found", Slot: fullName}
	}
	id, found := n.Slot(rest)
	if !found {
		return NoSlot, &InvalidTargetError{Code: ErrCodeUnknownSlot, Message: "slot not found", Slot: fullName}
	}
	return id, nil
}

// Valid reports whether id refers to a live slot.
func (g *Graph) Valid(id SlotID) bool {
	return id >= 0 && int(id) < len(g.slots) && !g.slots[id].removed
}

// Name returns the slot's own name.
func (g *Graph) Name(id SlotID) string {
	if !g.inRange(id) {
		return ""
	}
	return g.slots[id].name
}

// RelativeName returns the dotted path of the slot below its node,
// e.g. "out.one".
func (g *Graph) RelativeName(id SlotID) string {
	if !g.inRange(id) {
		return ""
	}
	var parts []string
	for cur := id; cur != NoSlot; cur = g.slots[cur].parent {
		parts = append(parts, g.slots[cur].name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// FullName returns "<node>.<relative name>".
func (g *Graph) FullName(id SlotID) string {
	if !g.inRange(id) {
		return fmt.Sprintf("<slot %d>", id)
	}
	return g.slots[id].node.name + "." + g.RelativeName(id)
}

// NodeOf returns the node that owns the slot.
func (g *Graph) NodeOf(id SlotID) *Node {
	if !g.inRange(id) {
		return nil
	}
	return g.slots[id].node
}

// Direction returns the slot's direction.
func (g *Graph) Direction(id SlotID) ir.Direction {
	if !g.inRange(id) {
		return ""
	}
	return g.slots[id].direction
}

// Parent returns the slot's parent, or NoSlot for a top-level slot.
func (g *Graph) Parent(id SlotID) SlotID {
	if !g.inRange(id) {
		return NoSlot
	}
	return g.slots[id].parent
}

// Children returns the slot's children in declaration order.
func (g *Graph) Children(id SlotID) []SlotID {
	if !g.inRange(id) {
		return nil
	}
	return append([]SlotID(nil), g.slots[id].children...)
}

// IsLeaf reports whether the slot has no children.
func (g *Graph) IsLeaf(id SlotID) bool {
	return g.inRange(id) && len(g.slots[id].children) == 0
}

// IsAncestorOf reports whether b is a or is nested under a.
func (g *Graph) IsAncestorOf(a, b SlotID) bool {
	if !g.inRange(a) || !g.inRange(b) {
		return false
	}
	for cur := b; cur != NoSlot; cur = g.slots[cur].parent {
		if cur == a {
			return true
		}
	}
	return false
}

// Leaves returns the leaf descendants of id in depth-first declaration
// order, or id itself if it is a leaf.
func (g *Graph) Leaves(id SlotID) []SlotID {
	if !g.inRange(id) {
		return nil
	}
	var out []SlotID
	g.walk(id, func(cur SlotID) {
		if len(g.slots[cur].children) == 0 {
			out = append(out, cur)
		}
	})
	return out
}

// Input returns the output leaf connected into id, or NoSlot.
func (g *Graph) Input(id SlotID) SlotID {
	if !g.inRange(id) {
		return NoSlot
	}
	return g.slots[id].input
}

// Outputs returns the input leaves connected from id, in connection order.
func (g *Graph) Outputs(id SlotID) []SlotID {
	if !g.inRange(id) {
		return nil
	}
	return append([]SlotID(nil), g.slots[id].outputs...)
}

// Value returns the effective value of a leaf: the upstream value when
// connected, else the local value. Compound slots have no value.
func (g *Graph) Value(id SlotID) ir.IRValue {
	if !g.IsLeaf(id) {
		return nil
	}
	seen := make(map[SlotID]bool)
	for cur := id; ; {
		s := g.slots[cur]
		if s.input == NoSlot || seen[cur] {
			return s.local
		}
		seen[cur] = true
		cur = s.input
	}
}

// Default returns the leaf's declared default value.
func (g *Graph) Default(id SlotID) ir.IRValue {
	if !g.IsLeaf(id) {
		return nil
	}
	return g.slots[id].def
}

// Len returns the number of arena entries, including tombstones.
func (g *Graph) Len() int {
	return len(g.slots)
}

// walk visits id and its descendants in pre-order.
func (g *Graph) walk(id SlotID, fn func(SlotID)) {
	fn(id)
	for _, c := range g.slots[id].children {
		g.walk(c, fn)
	}
}

func (g *Graph) inRange(id SlotID) bool {
	return id >= 0 && int(id) < len(g.slots)
}

func checkName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("name is required")
	case strings.Contains(name, "."):
		return fmt.Errorf("name %q must not contain '.'", name)
	}
	return nil
}
