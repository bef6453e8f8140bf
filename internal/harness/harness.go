package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/roach88/slotgraph/internal/compiler"
	"github.com/roach88/slotgraph/internal/engine"
	"github.com/roach88/slotgraph/internal/graph"
	"github.com/roach88/slotgraph/internal/ir"
	"github.com/roach88/slotgraph/internal/metrics"
	"github.com/roach88/slotgraph/internal/store"
)

// DefaultTokenPrefix is used when a scenario sets no token_prefix.
const DefaultTokenPrefix = "pass"

// Option configures a scenario run.
type Option func(*Harness)

// WithStore journals passes into s instead of a private in-memory store.
// The caller keeps ownership of s.
func WithStore(s *store.Store) Option {
	return func(h *Harness) {
		h.store = s
	}
}

// WithMetrics records every pass in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(h *Harness) {
		h.metrics = reg
	}
}

// WithLogger sets the logger for the harness and its engine. Logs are
// discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// Harness executes one scenario against a fresh graph with a deterministic
// clock and pass token sequence.
type Harness struct {
	graph   *graph.Graph
	engine  *engine.Engine
	store   *store.Store
	metrics *metrics.Registry
	logger  *slog.Logger

	// pending collects the passes of the step being executed.
	pending []ir.PassRecord
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Compile the scenario's node types and instantiate its nodes
//  2. Execute setup steps (must succeed, not traced)
//  3. Execute steps, checking each step's expect clause
//  4. Evaluate assertions against the trace, the graph and the journal
//  5. Verify the journal's integrity
//
// Infrastructure failures return an error; expectation failures are
// reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.store == nil {
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
		h.store = st
	}

	if err := h.build(scenario); err != nil {
		return nil, err
	}
	h.logger.Debug("graph built",
		"scenario", scenario.Name,
		"nodes", len(h.graph.Nodes()),
		"slots", h.graph.Len(),
	)

	ctx := context.Background()
	prefix := scenario.TokenPrefix
	if prefix == "" {
		prefix = DefaultTokenPrefix
	}
	// Resume numbering after passes already in the journal so runs that
	// share a store never reuse a seq.
	base, err := h.store.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("read journal seq: %w", err)
	}
	h.engine = engine.New(h.graph,
		engine.WithLogger(h.logger),
		engine.WithPassTokens(engine.NewSequenceGeneratorAt(prefix, base)),
		engine.WithClock(engine.NewClockAt(base)),
	)

	journal := store.NewJournal(ctx, h.store, h.logger)
	h.engine.OnPass(func(rec ir.PassRecord) {
		h.pending = append(h.pending, rec)
	})
	h.engine.OnPass(journal.Record)
	if h.metrics != nil {
		h.engine.OnPass(h.metrics.RecordPass)
	}

	for i, step := range scenario.Setup {
		if err := h.apply(ctx, step); err != nil {
			return nil, fmt.Errorf("setup step %d (%s): %w", i, step, err)
		}
	}
	h.pending = nil

	result := NewResult()
	result.BaseSeq = base
	for i, step := range scenario.Steps {
		h.pending = nil
		err := h.apply(ctx, step)
		for _, rec := range h.pending {
			result.Trace = append(result.Trace, newTraceEvent(i, base, rec))
		}
		h.checkStep(i, step, err, result)

		h.logger.Info("step completed",
			"step", i,
			"op", step.String(),
			"passes", len(h.pending),
		)
	}

	actx := &AssertionContext{
		Ctx:      ctx,
		Graph:    h.graph,
		Store:    h.store,
		AfterSeq: base,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	if err := journal.Err(); err != nil {
		result.AddError(fmt.Sprintf("journal: %v", err))
	} else if ran := h.engine.Clock().Current() - base; int64(journal.Written()) != ran {
		result.AddError(fmt.Sprintf("journal: %d of %d passes written", journal.Written(), ran))
	}
	mismatches, err := h.store.Verify(ctx)
	if err != nil {
		return nil, fmt.Errorf("verify journal: %w", err)
	}
	for _, m := range mismatches {
		result.AddError(fmt.Sprintf("journal: pass %s at seq %d does not match its content", m.ID, m.Seq))
	}

	return result, nil
}

// build compiles node types and instantiates the scenario's nodes.
func (h *Harness) build(scenario *Scenario) error {
	var files []string
	for _, p := range scenario.Types {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("types path: %w", err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := compiler.FindCUEFiles(p)
		if err != nil {
			return fmt.Errorf("scan types %s: %w", p, err)
		}
		files = append(files, found...)
	}

	specs, err := compiler.CompileFiles(files...)
	if err != nil {
		return fmt.Errorf("compile types: %w", err)
	}
	lib, err := compiler.NewLibrary(specs)
	if err != nil {
		return fmt.Errorf("compile types: %w", err)
	}

	h.graph = graph.New()
	for _, n := range scenario.Nodes {
		if _, err := lib.Instantiate(h.graph, n.Name, n.Type); err != nil {
			return fmt.Errorf("node %s: %w", n.Name, err)
		}
	}
	return nil
}

// apply performs one step's mutation through the engine.
func (h *Harness) apply(ctx context.Context, step Step) error {
	op, target := step.Op()

	if op == OpRemove {
		return h.engine.RemoveNode(ctx, target)
	}

	slot, err := h.graph.Lookup(target)
	if err != nil {
		return err
	}

	switch op {
	case OpSet:
		v, err := convertToIRValue(step.Value)
		if err != nil {
			return fmt.Errorf("value: %w", err)
		}
		return h.engine.SetValue(ctx, slot, v)
	case OpReset:
		return h.engine.ResetValue(ctx, slot)
	case OpDisconnect:
		return h.engine.SetConnection(ctx, slot, graph.NoSlot)
	case OpConnect, OpConnectLeaves:
		src, err := h.graph.Lookup(step.From)
		if err != nil {
			return err
		}
		if op == OpConnect {
			return h.engine.SetConnection(ctx, slot, src)
		}
		return h.engine.ConnectLeaves(ctx, slot, src)
	}
	return fmt.Errorf("step has no operation")
}

// checkStep compares the step's outcome and passes with its expect clause.
func (h *Harness) checkStep(i int, step Step, err error, result *Result) {
	prefix := fmt.Sprintf("step %d (%s)", i, step)
	exp := step.Expect

	switch {
	case exp != nil && exp.Error != "":
		if err == nil {
			result.AddError(fmt.Sprintf("%s: expected error %s, got none", prefix, exp.Error))
		} else if code := ErrorCode(err); code != exp.Error {
			result.AddError(fmt.Sprintf("%s: expected error %s, got %s: %v", prefix, exp.Error, code, err))
		}
	case err != nil:
		result.AddError(fmt.Sprintf("%s: unexpected error: %v", prefix, err))
	}

	if exp == nil {
		return
	}

	var set, dirtied []string
	for _, rec := range h.pending {
		set = append(set, rec.Set...)
		dirtied = append(dirtied, rec.Dirtied...)
	}

	if exp.Set != nil && !slices.Equal(exp.Set, set) {
		result.AddError(fmt.Sprintf("%s: set\n  Expected: %v\n  Actual: %v", prefix, exp.Set, set))
	}
	if exp.Dirtied != nil && !slices.Equal(exp.Dirtied, dirtied) {
		result.AddError(fmt.Sprintf("%s: dirtied\n  Expected: %v\n  Actual: %v", prefix, exp.Dirtied, dirtied))
	}
	if exp.Passes != nil && *exp.Passes != len(h.pending) {
		result.AddError(fmt.Sprintf("%s: expected %d passes, got %d", prefix, *exp.Passes, len(h.pending)))
	}
}

// ErrorCode returns the code scenarios use to name err: the invalid target
// or protocol violation code, BUILD_ERROR for graph construction errors,
// or UNKNOWN.
func ErrorCode(err error) string {
	if code := graph.ProtocolViolationCodeOf(err); code != "" {
		return string(code)
	}
	if code := graph.InvalidTargetCodeOf(err); code != "" {
		return string(code)
	}
	var be *graph.BuildError
	if errors.As(err, &be) {
		return "BUILD_ERROR"
	}
	return "UNKNOWN"
}

// convertToIRValue converts a YAML-decoded value to an IRValue.
// YAML null becomes IRNull; floats are rejected.
func convertToIRValue(val any) (ir.IRValue, error) {
	if val == nil {
		return ir.IRNull{}, nil
	}

	switch v := val.(type) {
	case string:
		return ir.IRString(v), nil
	case int:
		return ir.IRInt(int64(v)), nil
	case int64:
		return ir.IRInt(v), nil
	case uint64:
		if v > 1<<63-1 {
			return nil, fmt.Errorf("integer %d overflows int64", v)
		}
		return ir.IRInt(int64(v)), nil
	case float64:
		if v == float64(int64(v)) {
			return ir.IRInt(int64(v)), nil
		}
		return nil, fmt.Errorf("floats are forbidden in IR: %v", v)
	case bool:
		return ir.IRBool(v), nil
	case []any:
		arr := make(ir.IRArray, len(v))
		for i, elem := range v {
			irElem, err := convertToIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(ir.IRObject, len(v))
		for key, elem := range v {
			irElem, err := convertToIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			obj[key] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", val)
	}
}
