package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/slotgraph/internal/graph"
	"github.com/roach88/slotgraph/internal/ir"
)

// TableDeclarer answers Affects from a compiled node type's affects table.
//
// Compound paths in the table are expanded when the declarer is bound to a
// node: a compound key applies to each of its input leaves and a compound
// output stands for all of its leaves. Affects therefore always returns
// leaves, in table order, without duplicates.
type TableDeclarer struct {
	rules []ir.AffectsRule
	table map[graph.SlotID][]graph.SlotID
}

// NewTableDeclarer creates an unbound declarer for spec.
func NewTableDeclarer(spec ir.NodeTypeSpec) *TableDeclarer {
	return &TableDeclarer{rules: spec.Affects}
}

// Affects implements graph.DependencyDeclarer.
func (d *TableDeclarer) Affects(n *graph.Node, input graph.SlotID) []graph.SlotID {
	return d.table[input]
}

// bind resolves every path in the rules against n's slots.
func (d *TableDeclarer) bind(n *graph.Node) error {
	g := n.Graph()
	d.table = make(map[graph.SlotID][]graph.SlotID)

	for _, rule := range d.rules {
		in, ok := n.Slot(rule.Input)
		if !ok {
			return &graph.BuildError{Path: n.Name() + "." + rule.Input, Message: "affects input not found"}
		}

		var outs []graph.SlotID
		for _, path := range rule.Outputs {
			out, ok := n.Slot(path)
			if !ok {
				return &graph.BuildError{Path: n.Name() + "." + path, Message: "affects output not found"}
			}
			outs = append(outs, g.Leaves(out)...)
		}

		for _, leaf := range g.Leaves(in) {
			d.table[leaf] = appendUnique(d.table[leaf], outs...)
		}
	}
	return nil
}

func appendUnique(dst []graph.SlotID, ids ...graph.SlotID) []graph.SlotID {
	for _, id := range ids {
		dup := false
		for _, have := range dst {
			if have == id {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, id)
		}
	}
	return dst
}

// Instantiate adds a node named name to g with the slots and dependencies
// of spec.
func Instantiate(g *graph.Graph, name string, spec ir.NodeTypeSpec) (*graph.Node, error) {
	decl := NewTableDeclarer(spec)
	n, err := g.AddNode(name, decl)
	if err != nil {
		return nil, err
	}

	for _, s := range spec.Slots {
		id, err := n.AddSlot(s.Name, s.Direction, s.Default)
		if err != nil {
			return nil, err
		}
		if err := addChildren(n, id, s.Children); err != nil {
			return nil, err
		}
	}

	if err := decl.bind(n); err != nil {
		return nil, err
	}
	return n, nil
}

func addChildren(n *graph.Node, parent graph.SlotID, children []ir.SlotSpec) error {
	for _, c := range children {
		id, err := n.AddChild(parent, c.Name, c.Direction, c.Default)
		if err != nil {
			return err
		}
		if err := addChildren(n, id, c.Children); err != nil {
			return err
		}
	}
	return nil
}

// Library indexes compiled node types by name.
type Library struct {
	types map[string]ir.NodeTypeSpec
	order []string
}

// NewLibrary validates specs and indexes them.
func NewLibrary(specs []ir.NodeTypeSpec) (*Library, error) {
	if errs := ValidateAll(specs); len(errs) > 0 {
		return nil, errs[0]
	}
	lib := &Library{types: make(map[string]ir.NodeTypeSpec, len(specs))}
	for _, s := range specs {
		lib.types[s.Name] = s
		lib.order = append(lib.order, s.Name)
	}
	return lib, nil
}

// Names returns node type names in declaration order.
func (l *Library) Names() []string {
	return append([]string(nil), l.order...)
}

// Type returns the named node type.
func (l *Library) Type(name string) (ir.NodeTypeSpec, bool) {
	s, ok := l.types[name]
	return s, ok
}

// Instantiate adds a node of the named type to g.
func (l *Library) Instantiate(g *graph.Graph, nodeName, typeName string) (*graph.Node, error) {
	spec, ok := l.types[typeName]
	if !ok {
		return nil, fmt.Errorf("unknown node type %q (known: %s)", typeName, strings.Join(l.Names(), ", "))
	}
	return Instantiate(g, nodeName, spec)
}
