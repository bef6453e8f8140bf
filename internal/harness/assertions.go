package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/slotgraph/internal/graph"
	"github.com/roach88/slotgraph/internal/ir"
	"github.com/roach88/slotgraph/internal/queryir"
	"github.com/roach88/slotgraph/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] step %d: %s\n", i+1, event.Step, event)
		}
	}

	return buf.String()
}

// assertDirtiedContains checks that the slot was notified dirty at least once.
func assertDirtiedContains(result *Result, assertion Assertion) error {
	for _, name := range result.Dirtied() {
		if name == assertion.Slot {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertDirtiedContains,
		Expected: fmt.Sprintf("%s dirtied", assertion.Slot),
		Actual:   "not found in trace",
		Trace:    result.Trace,
	}
}

// assertDirtiedOrder checks that the slots' first dirtied notifications
// appear in the given order. Other notifications may intervene.
func assertDirtiedOrder(result *Result, assertion Assertion) error {
	first := make(map[string]int)
	for i, name := range result.Dirtied() {
		if _, ok := first[name]; !ok {
			first[name] = i
		}
	}

	prev := -1
	for _, slot := range assertion.Slots {
		pos, ok := first[slot]
		if !ok {
			return &AssertionError{
				Type:     AssertDirtiedOrder,
				Expected: fmt.Sprintf("order %v", assertion.Slots),
				Actual:   fmt.Sprintf("%s not dirtied", slot),
				Trace:    result.Trace,
			}
		}
		if pos < prev {
			return &AssertionError{
				Type:     AssertDirtiedOrder,
				Expected: fmt.Sprintf("order %v", assertion.Slots),
				Actual:   fmt.Sprintf("%s dirtied before its predecessor", slot),
				Trace:    result.Trace,
			}
		}
		prev = pos
	}
	return nil
}

// assertDirtiedCount checks that the slot was notified dirty exactly Count
// times across all steps.
func assertDirtiedCount(result *Result, assertion Assertion) error {
	n := 0
	for _, name := range result.Dirtied() {
		if name == assertion.Slot {
			n++
		}
	}
	if n != assertion.Count {
		return &AssertionError{
			Type:     AssertDirtiedCount,
			Expected: fmt.Sprintf("%s dirtied %d times", assertion.Slot, assertion.Count),
			Actual:   fmt.Sprintf("%d times", n),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertFinalValue checks the slot's resolved value after all steps.
func assertFinalValue(g *graph.Graph, assertion Assertion) error {
	id, err := g.Lookup(assertion.Slot)
	if err != nil {
		return fmt.Errorf("final_value: %w", err)
	}
	want, err := convertToIRValue(assertion.Value)
	if err != nil {
		return fmt.Errorf("final_value %s: %w", assertion.Slot, err)
	}

	got := g.Value(id)
	if !ir.Equal(want, got) {
		return &AssertionError{
			Type:     AssertFinalValue,
			Expected: fmt.Sprintf("%s = %s", assertion.Slot, formatValue(want)),
			Actual:   formatValue(got),
		}
	}
	return nil
}

// assertJournalCount checks how many passes journaled after afterSeq
// dirtied the slot. Setup passes are journaled too.
func assertJournalCount(ctx context.Context, st *store.Store, afterSeq int64, assertion Assertion) error {
	recs, err := st.QueryPasses(ctx, queryir.Select{Filter: queryir.AllOf(
		queryir.Touches{Signal: queryir.SignalDirtied, Slot: assertion.Slot},
		queryir.After{Seq: afterSeq},
	)})
	if err != nil {
		return fmt.Errorf("journal_count: %w", err)
	}
	if len(recs) != assertion.Count {
		return &AssertionError{
			Type:     AssertJournalCount,
			Expected: fmt.Sprintf("%d journaled passes dirtying %s", assertion.Count, assertion.Slot),
			Actual:   fmt.Sprintf("%d", len(recs)),
		}
	}
	return nil
}

func formatValue(v ir.IRValue) string {
	switch v.(type) {
	case nil:
		return "<unset>"
	case ir.IRNull:
		return "null"
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// AssertionContext provides the graph and journal for assertions that
// inspect final state.
type AssertionContext struct {
	Ctx   context.Context
	Graph *graph.Graph
	Store *store.Store

	// AfterSeq limits journal assertions to passes with a greater seq,
	// i.e. to the current run in a shared journal.
	AfterSeq int64
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertDirtiedContains:
			err = assertDirtiedContains(result, assertion)
		case AssertDirtiedOrder:
			err = assertDirtiedOrder(result, assertion)
		case AssertDirtiedCount:
			err = assertDirtiedCount(result, assertion)
		case AssertFinalValue:
			if actx == nil || actx.Graph == nil {
				err = fmt.Errorf("assertion[%d]: final_value requires a graph", i)
			} else {
				err = assertFinalValue(actx.Graph, assertion)
			}
		case AssertJournalCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: journal_count requires database context", i)
			} else {
				err = assertJournalCount(actx.Ctx, actx.Store, actx.AfterSeq, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
