package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/slotgraph/internal/ir"
)

// TraceEvent is one propagation pass observed during a measured step.
//
// Seq counts passes from the start of the run, setup passes included, so
// traces do not depend on what a shared journal already holds. The pass's
// journal seq is Result.BaseSeq + Seq.
type TraceEvent struct {
	Step    int         `json:"step"`
	Seq     int64       `json:"seq"`
	Kind    ir.PassKind `json:"kind"`
	Trigger string      `json:"trigger"`
	Source  string      `json:"source,omitempty"`
	Set     []string    `json:"set,omitempty"`
	Dirtied []string    `json:"dirtied"`
	Error   string      `json:"error,omitempty"`
}

func newTraceEvent(step int, base int64, rec ir.PassRecord) TraceEvent {
	return TraceEvent{
		Step:    step,
		Seq:     rec.Seq - base,
		Kind:    rec.Kind,
		Trigger: rec.Trigger,
		Source:  rec.Source,
		Set:     rec.Set,
		Dirtied: rec.Dirtied,
		Error:   rec.ErrorCode,
	}
}

func (e TraceEvent) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Kind, e.Trigger)
	if e.Source != "" {
		fmt.Fprintf(&b, " <- %s", e.Source)
	}
	fmt.Fprintf(&b, ": %s", strings.Join(e.Dirtied, ", "))
	if e.Error != "" {
		fmt.Fprintf(&b, " [%s]", e.Error)
	}
	return b.String()
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains the passes of all measured steps in order.
	Trace []TraceEvent `json:"trace"`

	// BaseSeq is the journal's last seq before the run started.
	BaseSeq int64 `json:"base_seq"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Dirtied returns every dirtied notification of the trace in order.
func (r *Result) Dirtied() []string {
	var out []string
	for _, e := range r.Trace {
		out = append(out, e.Dirtied...)
	}
	return out
}
