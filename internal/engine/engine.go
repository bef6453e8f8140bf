package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/slotgraph/internal/graph"
	"github.com/roach88/slotgraph/internal/ir"
)

// Engine drives dirty propagation for one graph.
//
// Thread-safety model:
//   - SetValue, ResetValue, SetConnection, ConnectLeaves, RemoveNode: safe
//     from any goroutine, serialized by the engine lock
//   - OnDirtied, OnSet, OnPass: safe from any goroutine, including from
//     inside a handler
//   - Graph construction (AddNode, AddSlot, ...) is not locked; finish
//     building before mutating through the engine
type Engine struct {
	mu      sync.Mutex
	graph   *graph.Graph
	clock   *Clock
	tokens  PassTokenGenerator
	logger  *slog.Logger
	signals signals
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the logger used for pass diagnostics.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithPassTokens sets the pass token generator.
// Default: UUIDv7Generator. Use NewFixedGenerator for golden traces.
func WithPassTokens(gen PassTokenGenerator) EngineOption {
	return func(e *Engine) {
		e.tokens = gen
	}
}

// WithClock sets the logical clock, e.g. NewClockAt to resume numbering
// after passes already journaled.
func WithClock(clock *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = clock
	}
}

// New creates an Engine for g.
func New(g *graph.Graph, opts ...EngineOption) *Engine {
	e := &Engine{
		graph:  g,
		clock:  NewClock(),
		tokens: UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Graph returns the graph the engine propagates over.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// OnDirtied subscribes fn to dirtied notifications. The returned function
// unsubscribes.
func (e *Engine) OnDirtied(fn DirtiedFunc) (cancel func()) {
	return subscribe(&e.signals, &e.signals.dirtied, fn)
}

// OnSet subscribes fn to value-set notifications. They fire once for the
// direct target of SetValue, ResetValue or a disconnect, before any dirtied
// notification of the same pass.
func (e *Engine) OnSet(fn SetFunc) (cancel func()) {
	return subscribe(&e.signals, &e.signals.set, fn)
}

// OnPass subscribes fn to pass summaries, delivered after the last
// dirtied notification of every pass, including aborted ones.
func (e *Engine) OnPass(fn PassFunc) (cancel func()) {
	return subscribe(&e.signals, &e.signals.pass, fn)
}

// SetValue assigns v to an unconnected input leaf and propagates.
// Assigning a value equal to the current one does nothing.
func (e *Engine) SetValue(ctx context.Context, slot graph.SlotID, v ir.IRValue) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	changed, err := e.graph.SetLocalValue(slot, v)
	if err != nil {
		return fmt.Errorf("set value: %w", err)
	}
	if !changed {
		e.logger.Debug("value unchanged", "slot", e.graph.FullName(slot))
		return nil
	}
	return e.runPass(ir.PassKindSet, slot, graph.NoSlot)
}

// ResetValue restores an unconnected input leaf to its default value.
func (e *Engine) ResetValue(ctx context.Context, slot graph.SlotID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	changed, err := e.graph.ResetValue(slot)
	if err != nil {
		return fmt.Errorf("reset value: %w", err)
	}
	if !changed {
		return nil
	}
	return e.runPass(ir.PassKindSet, slot, graph.NoSlot)
}

// SetConnection connects source into input, replacing any previous
// connection. A source of graph.NoSlot breaks the existing connection,
// which counts as a value set on input. Re-making the same connection, or
// breaking one that does not exist, does nothing.
func (e *Engine) SetConnection(ctx context.Context, input, source graph.SlotID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.setConnection(input, source)
}

// ConnectLeaves connects every leaf of src into the leaf at the same
// relative path below dst. Both slots must have the same shape. A src of
// graph.NoSlot disconnects every leaf of dst.
//
// All pairs are validated and connected before anything propagates; the
// leaves that changed then seed a single pass whose trigger is dst, so a
// downstream slot is dirtied once however many leaves it depends on.
func (e *Engine) ConnectLeaves(ctx context.Context, dst, src graph.SlotID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var pairs []graph.Edge
	if src == graph.NoSlot {
		for _, leaf := range e.graph.Leaves(dst) {
			pairs = append(pairs, graph.Edge{Dst: leaf, Src: graph.NoSlot})
		}
	} else {
		matched, err := e.graph.PairLeaves(dst, src)
		if err != nil {
			return fmt.Errorf("connect leaves: %w", err)
		}
		for _, p := range matched {
			pairs = append(pairs, graph.Edge{Dst: p[0], Src: p[1]})
		}
	}
	if len(pairs) == 0 {
		return fmt.Errorf("connect leaves: %w", e.graph.CheckConnection(dst, src))
	}

	for _, p := range pairs {
		if err := e.graph.CheckConnection(p.Dst, p.Src); err != nil {
			return fmt.Errorf("connect leaves: %w", err)
		}
	}

	ps := pass{kind: ir.PassKindConnect, trigger: dst, source: src}
	if src == graph.NoSlot {
		ps.kind = ir.PassKindDisconnect
	}
	for _, p := range pairs {
		var changed bool
		var err error
		if p.Src == graph.NoSlot {
			_, changed, err = e.graph.Disconnect(p.Dst)
		} else {
			_, changed, err = e.graph.Connect(p.Dst, p.Src)
		}
		if err != nil {
			return fmt.Errorf("connect leaves: %w", err)
		}
		if !changed {
			continue
		}
		ps.seeds = append(ps.seeds, p.Dst)
		if ps.kind == ir.PassKindDisconnect {
			ps.set = append(ps.set, p.Dst)
		}
	}
	if len(ps.seeds) == 0 {
		return nil
	}
	return e.run(ps)
}

// RemoveNode removes a node from the graph. Each connection from the node
// into another node is broken first and propagates like a disconnect.
func (e *Engine) RemoveNode(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	severed, err := e.graph.RemoveNode(name)
	if err != nil {
		return fmt.Errorf("remove node: %w", err)
	}
	e.logger.Debug("node removed", "node", name, "severed", len(severed))

	for _, edge := range severed {
		if err := e.runPass(ir.PassKindDisconnect, edge.Dst, edge.Src); err != nil {
			return err
		}
	}
	return nil
}

// setConnection is SetConnection without locking.
func (e *Engine) setConnection(input, source graph.SlotID) error {
	if source == graph.NoSlot {
		prev, changed, err := e.graph.Disconnect(input)
		if err != nil {
			return fmt.Errorf("disconnect: %w", err)
		}
		if !changed {
			return nil
		}
		return e.runPass(ir.PassKindDisconnect, input, prev)
	}

	_, changed, err := e.graph.Connect(input, source)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if !changed {
		return nil
	}
	return e.runPass(ir.PassKindConnect, input, source)
}

// pass describes one propagation pass before it is stamped.
type pass struct {
	kind    ir.PassKind
	trigger graph.SlotID // slot named in the record, compound for ConnectLeaves
	source  graph.SlotID
	set     []graph.SlotID // slots announced through OnSet
	seeds   []graph.SlotID // leaves the walk starts from, in order
}

// runPass runs a pass triggered by one leaf. Every kind but connect
// announces the trigger through OnSet.
func (e *Engine) runPass(kind ir.PassKind, trigger, source graph.SlotID) error {
	ps := pass{kind: kind, trigger: trigger, source: source, seeds: []graph.SlotID{trigger}}
	if kind != ir.PassKindConnect {
		ps.set = []graph.SlotID{trigger}
	}
	return e.run(ps)
}

// run stamps a pass, fires OnSet, runs propagation and publishes the
// PassRecord. Called with e.mu held.
func (e *Engine) run(ps pass) error {
	g := e.graph
	rec := ir.PassRecord{
		Token:   e.tokens.Generate(),
		Seq:     e.clock.Next(),
		Kind:    ps.kind,
		Trigger: g.FullName(ps.trigger),
		Dirtied: []string{},
	}
	if ps.source != graph.NoSlot {
		rec.Source = g.FullName(ps.source)
	}
	id, err := ir.PassID(rec.Token, rec.Kind, rec.Trigger, rec.Source, rec.Seq)
	if err != nil {
		return fmt.Errorf("pass id: %w", err)
	}
	rec.ID = id

	for _, s := range ps.set {
		rec.Set = append(rec.Set, g.FullName(s))
		e.signals.emitSet(s)
	}

	err = e.propagate(ps.seeds, &rec)
	if err != nil {
		rec.ErrorCode = errorCode(err)
		rec.Error = err.Error()
		e.logger.Error("pass aborted",
			"token", rec.Token,
			"seq", rec.Seq,
			"kind", rec.Kind,
			"trigger", rec.Trigger,
			"notified", len(rec.Dirtied),
			"error", err,
		)
		e.signals.emitPass(rec)
		return &PassError{
			Token:    rec.Token,
			Trigger:  rec.Trigger,
			Notified: len(rec.Dirtied),
			Err:      err,
		}
	}

	e.logger.Debug("pass complete",
		"token", rec.Token,
		"seq", rec.Seq,
		"kind", rec.Kind,
		"trigger", rec.Trigger,
		"dirtied", len(rec.Dirtied),
	)
	e.signals.emitPass(rec)
	return nil
}
