package graph

import (
	"fmt"

	"github.com/roach88/slotgraph/internal/ir"
)

// DependencyDeclarer answers, for one input leaf of a node, which output
// leaves of the same node depend on it.
//
// Implementations must return leaves only; a compound output is a protocol
// violation, as is any slot the node does not own or any input slot.
// Affects is never called with a compound slot.
type DependencyDeclarer interface {
	Affects(n *Node, input SlotID) []SlotID
}

// DeclarerFunc adapts a function to the DependencyDeclarer interface.
type DeclarerFunc func(n *Node, input SlotID) []SlotID

// Affects calls f(n, input).
func (f DeclarerFunc) Affects(n *Node, input SlotID) []SlotID {
	return f(n, input)
}

// NoDependencies declares that no input affects any output.
var NoDependencies DependencyDeclarer = DeclarerFunc(func(*Node, SlotID) []SlotID {
	return nil
})

// Affects queries the owning node's declarer for an input leaf and
// validates both the question and the answer. It is the only path by which
// the engine consults a declarer.
func (g *Graph) Affects(input SlotID) ([]SlotID, error) {
	if !g.Valid(input) {
		return nil, &ProtocolViolationError{Code: ErrCodeForeignSlot, Message: fmt.Sprintf("slot %d does not exist", input)}
	}
	n := g.NodeOf(input)
	if !g.IsLeaf(input) {
		return nil, &ProtocolViolationError{
			Code:    ErrCodeCompoundArgument,
			Message: "dependencies are declared for leaves only",
			Node:    n.name,
			Slot:    g.FullName(input),
		}
	}

	results := n.declarer.Affects(n, input)
	for _, out := range results {
		if !n.Owns(out) {
			return nil, &ProtocolViolationError{
				Code:    ErrCodeForeignSlot,
				Message: fmt.Sprintf("declared slot %s does not belong to the node", g.FullName(out)),
				Node:    n.name,
				Slot:    g.FullName(input),
			}
		}
		if !g.IsLeaf(out) {
			return nil, &ProtocolViolationError{
				Code:    ErrCodeCompoundResult,
				Message: fmt.Sprintf("declared slot %s is compound; declare its leaves", g.FullName(out)),
				Node:    n.name,
				Slot:    g.FullName(input),
			}
		}
		if g.slots[out].direction != ir.DirectionOut {
			return nil, &ProtocolViolationError{
				Code:    ErrCodeInputResult,
				Message: fmt.Sprintf("declared slot %s is an input", g.FullName(out)),
				Node:    n.name,
				Slot:    g.FullName(input),
			}
		}
	}
	return results, nil
}
