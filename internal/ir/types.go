package ir

import "strings"

// Direction is the data flow direction of a slot.
type Direction string

const (
	// DirectionIn marks a slot that receives values or connections.
	DirectionIn Direction = "in"
	// DirectionOut marks a slot whose value is produced by its node.
	DirectionOut Direction = "out"
)

// ValidDirections defines the allowed directions.
var ValidDirections = map[Direction]bool{
	DirectionIn:  true,
	DirectionOut: true,
}

// NodeTypeSpec represents a compiled node type declaration.
type NodeTypeSpec struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Slots       []SlotSpec    `json:"slots"`
	Affects     []AffectsRule `json:"affects,omitempty"`
}

// SlotSpec declares a slot. A slot with children is compound and carries
// no default of its own.
type SlotSpec struct {
	Name      string     `json:"name"`
	Direction Direction  `json:"direction"`
	Default   IRValue    `json:"default,omitempty"`
	Children  []SlotSpec `json:"children,omitempty"`
}

// IsCompound reports whether the slot groups child slots.
func (s SlotSpec) IsCompound() bool {
	return len(s.Children) > 0
}

// AffectsRule declares that a change to the leaf input at path Input
// dirties each slot in Outputs. Paths are dot separated and relative to
// the node, e.g. "in.one".
type AffectsRule struct {
	Input   string   `json:"input"`
	Outputs []string `json:"outputs"`
}

// Find returns the slot spec at a dotted path relative to the node.
func (n NodeTypeSpec) Find(path string) (SlotSpec, bool) {
	parts := strings.Split(path, ".")
	slots := n.Slots
	var found SlotSpec
	for _, part := range parts {
		ok := false
		for _, s := range slots {
			if s.Name == part {
				found, ok = s, true
				break
			}
		}
		if !ok {
			return SlotSpec{}, false
		}
		slots = found.Children
	}
	return found, true
}

// PassKind identifies the mutation that triggered a propagation pass.
type PassKind string

const (
	// PassKindSet is a value assignment to a leaf input.
	PassKindSet PassKind = "set"
	// PassKindConnect is a connection made at a leaf input.
	PassKindConnect PassKind = "connect"
	// PassKindDisconnect is a connection broken at a leaf input.
	PassKindDisconnect PassKind = "disconnect"
)

// PassRecord summarises one propagation pass. Slots are identified by
// full name ("Node.slot.child").
type PassRecord struct {
	ID        string   `json:"id"`
	Token     string   `json:"token"`
	Seq       int64    `json:"seq"`
	Kind      PassKind `json:"kind"`
	Trigger   string   `json:"trigger"`
	Source    string   `json:"source,omitempty"`
	Set       []string `json:"set,omitempty"`
	Dirtied   []string `json:"dirtied"`
	ErrorCode string   `json:"error_code,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Aborted reports whether the pass stopped on a protocol violation.
func (r PassRecord) Aborted() bool {
	return r.ErrorCode != ""
}
