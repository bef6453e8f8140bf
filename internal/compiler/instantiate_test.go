package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotgraph/internal/graph"
	"github.com/roach88/slotgraph/internal/ir"
	"github.com/roach88/slotgraph/internal/testutil"
)

func TestInstantiateBuildsSlots(t *testing.T) {
	g := graph.New()
	n, err := Instantiate(g, "p", validSpec())
	require.NoError(t, err)

	assert.Equal(t, "p", n.Name())
	assert.Len(t, n.Slots(), 2)
	assert.Len(t, n.AllSlots(), 6)
	assert.Equal(t, ir.IRInt(1), g.Value(n.MustSlot("in.one")))
	assert.Equal(t, ir.IRNull{}, g.Value(n.MustSlot("in.two")))
	assert.Equal(t, ir.DirectionOut, g.Direction(n.MustSlot("out.two")))
}

func TestTableDeclarerExpandsCompoundPaths(t *testing.T) {
	g := graph.New()
	n, err := Instantiate(g, "p", validSpec())
	require.NoError(t, err)

	// in.one -> out.one explicitly, then in -> out adds out.two.
	got, err := g.Affects(n.MustSlot("in.one"))
	require.NoError(t, err)
	assert.Equal(t, []graph.SlotID{n.MustSlot("out.one"), n.MustSlot("out.two")}, got)

	got, err = g.Affects(n.MustSlot("in.two"))
	require.NoError(t, err)
	assert.Equal(t, []graph.SlotID{n.MustSlot("out.one"), n.MustSlot("out.two")}, got)
}

func TestTableDeclarerNoRule(t *testing.T) {
	spec := validSpec()
	spec.Affects = []ir.AffectsRule{{Input: "in.one", Outputs: []string{"out.two"}}}

	g := graph.New()
	n, err := Instantiate(g, "p", spec)
	require.NoError(t, err)

	got, err := g.Affects(n.MustSlot("in.two"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInstantiateDuplicateNode(t *testing.T) {
	g := graph.New()
	_, err := Instantiate(g, "p", validSpec())
	require.NoError(t, err)

	_, err = Instantiate(g, "p", validSpec())
	var be *graph.BuildError
	assert.ErrorAs(t, err, &be)
}

func TestInstantiateUnresolvedAffects(t *testing.T) {
	spec := validSpec()
	spec.Affects = []ir.AffectsRule{{Input: "in.one", Outputs: []string{"elsewhere"}}}

	_, err := Instantiate(graph.New(), "p", spec)
	var be *graph.BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "p.elsewhere", be.Path)
}

func TestLibrary(t *testing.T) {
	specs, err := CompileString(adderSrc+compoundSrc, "types.cue")
	require.NoError(t, err)

	lib, err := NewLibrary(specs)
	require.NoError(t, err)
	assert.Equal(t, []string{"Adder", "Pair"}, lib.Names())

	_, ok := lib.Type("Adder")
	assert.True(t, ok)

	g := graph.New()
	_, err = lib.Instantiate(g, "a", "Adder")
	require.NoError(t, err)
	_, err = lib.Instantiate(g, "x", "Nope")
	assert.EqualError(t, err, `unknown node type "Nope" (known: Adder, Pair)`)

	_, err = NewLibrary([]ir.NodeTypeSpec{{Name: "Empty"}})
	assert.Error(t, err)
}

// Compiled node types drive the engine the same way hand-written declarers do.
func TestCompiledTypesPropagate(t *testing.T) {
	specs, err := CompileString(adderSrc, "types.cue")
	require.NoError(t, err)
	lib, err := NewLibrary(specs)
	require.NoError(t, err)

	g := graph.New()
	n1, err := lib.Instantiate(g, "N1", "Adder")
	require.NoError(t, err)
	n2, err := lib.Instantiate(g, "N2", "Adder")
	require.NoError(t, err)

	e := testutil.NewEngine(g)
	r := testutil.Record(e)

	ctx := context.Background()
	require.NoError(t, e.SetConnection(ctx, n2.MustSlot("op1"), n1.MustSlot("sum")))
	require.NoError(t, e.SetValue(ctx, n1.MustSlot("op2"), ir.IRInt(3)))

	assert.Equal(t, []string{"N2.op1", "N2.sum", "N1.op2", "N1.sum", "N2.op1", "N2.sum"}, r.Dirtied())
	assert.Equal(t, []string{"N1.op2"}, r.Set(), "connect passes emit no set")
	require.Len(t, r.Passes(), 2)
	assert.Equal(t, ir.PassKindConnect, r.Passes()[0].Kind)
}
