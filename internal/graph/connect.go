package graph

import (
	"fmt"
	"slices"

	"github.com/roach88/slotgraph/internal/ir"
)

// CheckSettable reports whether a value may be assigned to id.
func (g *Graph) CheckSettable(id SlotID) error {
	if !g.Valid(id) {
		return &InvalidTargetError{Code: ErrCodeUnknownSlot, Message: fmt.Sprintf("slot %d does not exist", id)}
	}
	s := g.slots[id]
	name := g.FullName(id)
	switch {
	case len(s.children) > 0:
		return &InvalidTargetError{Code: ErrCodeCompoundTarget, Message: "cannot set a value on a compound slot", Slot: name}
	case s.direction != ir.DirectionIn:
		return &InvalidTargetError{Code: ErrCodeNotSettable, Message: "cannot set a value on an output slot", Slot: name}
	case s.input != NoSlot:
		return &InvalidTargetError{Code: ErrCodeNotSettable, Message: "cannot set a value on a connected slot", Slot: name}
	}
	return nil
}

// CheckConnection reports whether src may drive dst. A NoSlot source is
// a disconnect request and only requires dst to be an input leaf.
func (g *Graph) CheckConnection(dst, src SlotID) error {
	if !g.Valid(dst) {
		return &InvalidTargetError{Code: ErrCodeUnknownSlot, Message: fmt.Sprintf("slot %d does not exist", dst)}
	}
	dstName := g.FullName(dst)
	if !g.IsLeaf(dst) {
		return &InvalidTargetError{Code: ErrCodeCompoundTarget, Message: "cannot connect a compound slot", Slot: dstName}
	}
	if g.slots[dst].direction != ir.DirectionIn {
		return &InvalidTargetError{Code: ErrCodeDirectionMismatch, Message: "connection destination must be an input", Slot: dstName}
	}
	if src == NoSlot {
		return nil
	}

	if !g.Valid(src) {
		return &InvalidTargetError{Code: ErrCodeUnknownSlot, Message: fmt.Sprintf("source slot %d does not exist", src), Slot: dstName}
	}
	srcName := g.FullName(src)
	if !g.IsLeaf(src) {
		return &InvalidTargetError{Code: ErrCodeCompoundTarget, Message: "cannot connect from a compound slot", Slot: dstName, Source: srcName}
	}
	if g.slots[src].direction != ir.DirectionOut {
		return &InvalidTargetError{Code: ErrCodeDirectionMismatch, Message: "connection source must be an output", Slot: dstName, Source: srcName}
	}
	return nil
}

// SetLocalValue assigns the local value of an unconnected input leaf.
// It reports false when the value equals the current one and nothing
// changed.
func (g *Graph) SetLocalValue(id SlotID, v ir.IRValue) (bool, error) {
	if err := g.CheckSettable(id); err != nil {
		return false, err
	}
	if v == nil {
		v = ir.IRNull{}
	}
	s := &g.slots[id]
	if ir.Equal(s.local, v) {
		return false, nil
	}
	s.local = v
	return true, nil
}

// ResetValue restores a leaf's local value to its default.
func (g *Graph) ResetValue(id SlotID) (bool, error) {
	if !g.IsLeaf(id) {
		return false, g.CheckSettable(id)
	}
	return g.SetLocalValue(id, g.slots[id].def)
}

// Connect makes src drive dst, replacing any prior connection. It returns
// the previous source (NoSlot if there was none). Connecting the same
// pair again changes nothing and reports changed=false.
func (g *Graph) Connect(dst, src SlotID) (prev SlotID, changed bool, err error) {
	if src == NoSlot {
		return g.Disconnect(dst)
	}
	if err := g.CheckConnection(dst, src); err != nil {
		return NoSlot, false, err
	}
	prev = g.slots[dst].input
	if prev == src {
		return prev, false, nil
	}
	if prev != NoSlot {
		g.unlink(dst)
	}
	g.slots[dst].input = src
	g.slots[src].outputs = append(g.slots[src].outputs, dst)
	return prev, true, nil
}

// Disconnect breaks the connection into dst. The slot's local value,
// untouched while connected, becomes its effective value again.
func (g *Graph) Disconnect(dst SlotID) (prev SlotID, changed bool, err error) {
	if err := g.CheckConnection(dst, NoSlot); err != nil {
		return NoSlot, false, err
	}
	prev = g.slots[dst].input
	if prev == NoSlot {
		return NoSlot, false, nil
	}
	g.unlink(dst)
	return prev, true, nil
}

// unlink removes the edge into dst from both endpoints.
func (g *Graph) unlink(dst SlotID) {
	src := g.slots[dst].input
	if src == NoSlot {
		return
	}
	outs := g.slots[src].outputs
	if i := slices.Index(outs, dst); i >= 0 {
		g.slots[src].outputs = slices.Delete(outs, i, i+1)
	}
	g.slots[dst].input = NoSlot
}

// PairLeaves matches the leaves of two slots by relative path below each
// slot. Both must have the same shape: identical child names at every
// level. Leaf slots pair with each other directly.
func (g *Graph) PairLeaves(dst, src SlotID) ([][2]SlotID, error) {
	if !g.Valid(dst) || !g.Valid(src) {
		return nil, &InvalidTargetError{Code: ErrCodeUnknownSlot, Message: "slot does not exist", Slot: g.FullName(dst), Source: g.FullName(src)}
	}
	var pairs [][2]SlotID
	var match func(d, s SlotID) error
	match = func(d, s SlotID) error {
		dc, sc := g.slots[d].children, g.slots[s].children
		if len(dc) != len(sc) {
			return &InvalidTargetError{
				Code:    ErrCodeStructureMismatch,
				Message: fmt.Sprintf("%d children versus %d", len(dc), len(sc)),
				Slot:    g.FullName(d),
				Source:  g.FullName(s),
			}
		}
		if len(dc) == 0 {
			pairs = append(pairs, [2]SlotID{d, s})
			return nil
		}
		for i := range dc {
			if g.slots[dc[i]].name != g.slots[sc[i]].name {
				return &InvalidTargetError{
					Code:    ErrCodeStructureMismatch,
					Message: fmt.Sprintf("child %q does not match %q", g.slots[dc[i]].name, g.slots[sc[i]].name),
					Slot:    g.FullName(dc[i]),
					Source:  g.FullName(sc[i]),
				}
			}
			if err := match(dc[i], sc[i]); err != nil {
				return err
			}
		}
		return nil
	}
	if err := match(dst, src); err != nil {
		return nil, err
	}
	return pairs, nil
}
