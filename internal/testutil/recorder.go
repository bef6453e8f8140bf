package testutil

import (
	"sync"

	"github.com/roach88/slotgraph/internal/engine"
	"github.com/roach88/slotgraph/internal/graph"
	"github.com/roach88/slotgraph/internal/ir"
)

// Recorder collects the notifications an engine emits, by full slot name.
//
// Unlike the trace the harness keeps, a Recorder sees every pass including
// setup, and can be reset between the steps of a test.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Recorder struct {
	mu      sync.Mutex
	g       *graph.Graph
	set     []string
	dirtied []string
	passes  []ir.PassRecord
	cancel  []func()
}

// Record subscribes a new Recorder to e.
func Record(e *engine.Engine) *Recorder {
	r := &Recorder{g: e.Graph()}
	r.cancel = []func(){
		e.OnSet(func(s graph.SlotID) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.set = append(r.set, r.g.FullName(s))
		}),
		e.OnDirtied(func(s graph.SlotID) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.dirtied = append(r.dirtied, r.g.FullName(s))
		}),
		e.OnPass(func(rec ir.PassRecord) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.passes = append(r.passes, rec)
		}),
	}
	return r
}

// Set returns the set notifications received so far.
func (r *Recorder) Set() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.set...)
}

// Dirtied returns the dirtied notifications received so far.
func (r *Recorder) Dirtied() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.dirtied...)
}

// Passes returns the pass records received so far.
func (r *Recorder) Passes() []ir.PassRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ir.PassRecord(nil), r.passes...)
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set, r.dirtied, r.passes = nil, nil, nil
}

// Stop unsubscribes the recorder. Recorded notifications stay readable.
func (r *Recorder) Stop() {
	for _, cancel := range r.cancel {
		cancel()
	}
	r.cancel = nil
}
