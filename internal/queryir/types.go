package queryir

import "github.com/roach88/slotgraph/internal/ir"

// Query represents an abstract query over the pass journal.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in backend compilers.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition on journaled passes.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: pass column = literal value
//   - Touches: the pass delivered a signal to a slot
//   - Aborted: the pass stopped on a protocol violation
//   - After: the pass was journaled after a sequence number
//   - And: all predicates must be true
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Pass columns that Equals may compare against.
const (
	FieldToken     = "token"
	FieldKind      = "kind"
	FieldTrigger   = "trigger_slot"
	FieldSource    = "source_slot"
	FieldErrorCode = "error_code"
	FieldSeq       = "seq"
)

// Signals that Touches may match.
const (
	SignalSet     = "set"
	SignalDirtied = "dirtied"
)

// Select selects journaled passes.
//
// Semantics:
//
//	SELECT <pass> FROM passes WHERE <filter> ORDER BY seq, id LIMIT <limit>
//
// Example:
//
//	Select{
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Field: FieldKind, Value: ir.IRString("disconnect")},
//	    Touches{Signal: SignalDirtied, Slot: "N2.sum"},
//	  }},
//	  Limit: 10,
//	}
//
// selects the first ten disconnect passes that dirtied N2.sum.
// Results are always in journal order; there is no other ordering.
type Select struct {
	Filter Predicate // WHERE conditions (nil = every pass)
	Limit  int       // maximum rows (0 = no limit)
}

func (Select) queryNode() {}

// Equals represents a column-equals-literal predicate.
//
// Value must be an ir.IRInt for FieldSeq and an ir.IRString for every
// other field.
type Equals struct {
	Field string     // One of the Field* constants
	Value ir.IRValue // Literal value
}

func (Equals) predicateNode() {}

// Touches matches passes that delivered Signal to the slot with full
// name Slot, at any position in the pass.
type Touches struct {
	Signal string // SignalSet or SignalDirtied
	Slot   string // Full slot name, e.g. "N2.sum"
}

func (Touches) predicateNode() {}

// Aborted matches passes that journaled an error code.
type Aborted struct{}

func (Aborted) predicateNode() {}

// After matches passes whose seq is greater than Seq.
type After struct {
	Seq int64
}

func (After) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// An empty And matches every pass.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// AllOf returns the conjunction of the non-nil predicates in ps, or nil
// when there are none.
func AllOf(ps ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range ps {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return And{Predicates: kept}
}
