package engine

import "github.com/roach88/slotgraph/internal/graph"

// slotQueue is the FIFO work queue of one propagation pass.
//
// It is owned by a single pass and needs no locking; the engine lock
// already serializes passes.
type slotQueue struct {
	items []graph.SlotID
	head  int
}

// newSlotQueue creates a queue seeded with the given slots.
func newSlotQueue(seed ...graph.SlotID) *slotQueue {
	q := &slotQueue{items: make([]graph.SlotID, 0, 16)}
	q.items = append(q.items, seed...)
	return q
}

// Push adds a slot to the back of the queue.
func (q *slotQueue) Push(id graph.SlotID) {
	q.items = append(q.items, id)
}

// Pop removes and returns the front slot.
// Returns (graph.NoSlot, false) if the queue is empty.
func (q *slotQueue) Pop() (graph.SlotID, bool) {
	if q.head >= len(q.items) {
		return graph.NoSlot, false
	}
	id := q.items[q.head]
	q.head++

	// Reset when drained so the backing array is reused.
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return id, true
}

// Len returns the number of queued slots.
func (q *slotQueue) Len() int {
	return len(q.items) - q.head
}
