package engine

import (
	"github.com/roach88/slotgraph/internal/graph"
	"github.com/roach88/slotgraph/internal/ir"
)

// propagate runs the breadth-first walk from seeds, emitting one dirtied
// notification per slot in discovery order and appending its full name to
// rec.Dirtied.
//
// For each popped slot S not yet notified:
//   - an input leaf enqueues the leaves of every slot its node declares
//     affected by S
//   - an output leaf enqueues every input connected from it
//   - any slot enqueues its compound parent
//
// Compound slots never query a declarer and never cross connections.
// Notifications are emitted as slots are popped, so if a declarer violates
// its protocol the notifications already delivered stand.
func (e *Engine) propagate(seeds []graph.SlotID, rec *ir.PassRecord) error {
	g := e.graph
	q := newSlotQueue(seeds...)
	notified := make(map[graph.SlotID]bool)

	enqueue := func(id graph.SlotID) {
		if !notified[id] {
			q.Push(id)
		}
	}

	for {
		s, ok := q.Pop()
		if !ok {
			return nil
		}
		if notified[s] {
			continue
		}
		notified[s] = true
		rec.Dirtied = append(rec.Dirtied, g.FullName(s))
		e.signals.emitDirtied(s)

		if g.IsLeaf(s) {
			switch g.Direction(s) {
			case ir.DirectionIn:
				affected, err := g.Affects(s)
				if err != nil {
					return err
				}
				for _, out := range affected {
					for _, leaf := range g.Leaves(out) {
						enqueue(leaf)
					}
				}
			case ir.DirectionOut:
				for _, dst := range g.Outputs(s) {
					enqueue(dst)
				}
			}
		}

		if parent := g.Parent(s); parent != graph.NoSlot {
			enqueue(parent)
		}
	}
}
