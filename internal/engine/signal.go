package engine

import (
	"sync"

	"github.com/roach88/slotgraph/internal/graph"
	"github.com/roach88/slotgraph/internal/ir"
)

// DirtiedFunc receives one dirtied notification.
type DirtiedFunc func(slot graph.SlotID)

// SetFunc receives the direct target of a value set or a disconnect.
type SetFunc func(slot graph.SlotID)

// PassFunc receives the summary of a finished or aborted pass.
type PassFunc func(rec ir.PassRecord)

// signals holds subscriber lists. Handlers are called in subscription
// order; emission works on a snapshot so a handler may subscribe or
// unsubscribe without deadlocking.
type signals struct {
	mu      sync.Mutex
	nextID  int
	dirtied []subscriber[DirtiedFunc]
	set     []subscriber[SetFunc]
	pass    []subscriber[PassFunc]
}

type subscriber[F any] struct {
	id int
	fn F
}

func subscribe[F any](s *signals, list *[]subscriber[F], fn F) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	*list = append(*list, subscriber[F]{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range *list {
			if sub.id == id {
				*list = append((*list)[:i:i], (*list)[i+1:]...)
				return
			}
		}
	}
}

func snapshot[F any](s *signals, list *[]subscriber[F]) []F {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]F, len(*list))
	for i, sub := range *list {
		out[i] = sub.fn
	}
	return out
}

func (s *signals) emitDirtied(slot graph.SlotID) {
	for _, fn := range snapshot(s, &s.dirtied) {
		fn(slot)
	}
}

func (s *signals) emitSet(slot graph.SlotID) {
	for _, fn := range snapshot(s, &s.set) {
		fn(slot)
	}
}

func (s *signals) emitPass(rec ir.PassRecord) {
	for _, fn := range snapshot(s, &s.pass) {
		fn(rec)
	}
}
