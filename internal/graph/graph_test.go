package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotgraph/internal/ir"
)

// buildPair creates a node with a compound input "in" {one, two} and a
// compound output "out" {one, two}, plus a plain leaf input "x".
func buildPair(t *testing.T, g *Graph, name string) *Node {
	t.Helper()
	n, err := g.AddNode(name, nil)
	require.NoError(t, err)

	in, err := n.AddSlot("in", ir.DirectionIn, nil)
	require.NoError(t, err)
	_, err = n.AddChild(in, "one", ir.DirectionIn, ir.IRInt(1))
	require.NoError(t, err)
	_, err = n.AddChild(in, "two", ir.DirectionIn, ir.IRInt(2))
	require.NoError(t, err)

	out, err := n.AddSlot("out", ir.DirectionOut, nil)
	require.NoError(t, err)
	_, err = n.AddChild(out, "one", ir.DirectionOut, nil)
	require.NoError(t, err)
	_, err = n.AddChild(out, "two", ir.DirectionOut, nil)
	require.NoError(t, err)

	_, err = n.AddSlot("x", ir.DirectionIn, ir.IRString("hello"))
	require.NoError(t, err)
	return n
}

// =============================================================================
// Construction
// =============================================================================

func TestAddNode_DuplicateName(t *testing.T) {
	g := New()
	_, err := g.AddNode("n", nil)
	require.NoError(t, err)

	_, err = g.AddNode("n", nil)
	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "n", be.Path)
}

func TestAddNode_InvalidNames(t *testing.T) {
	g := New()
	for _, name := range []string{"", "a.b"} {
		_, err := g.AddNode(name, nil)
		assert.Error(t, err, "name %q", name)
	}
}

func TestAddSlot_DuplicateSibling(t *testing.T) {
	g := New()
	n, err := g.AddNode("n", nil)
	require.NoError(t, err)

	_, err = n.AddSlot("a", ir.DirectionIn, nil)
	require.NoError(t, err)
	_, err = n.AddSlot("a", ir.DirectionOut, nil)
	assert.Error(t, err)
}

func TestAddSlot_InvalidDirection(t *testing.T) {
	g := New()
	n, err := g.AddNode("n", nil)
	require.NoError(t, err)

	_, err = n.AddSlot("a", ir.Direction("sideways"), nil)
	assert.Error(t, err)
}

func TestAddChild_DirectionMustMatchParent(t *testing.T) {
	g := New()
	n, err := g.AddNode("n", nil)
	require.NoError(t, err)
	in, err := n.AddSlot("in", ir.DirectionIn, nil)
	require.NoError(t, err)

	_, err = n.AddChild(in, "c", ir.DirectionOut, nil)
	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "n.in.c", be.Path)
}

func TestAddChild_ConnectedLeafCannotBecomeCompound(t *testing.T) {
	g := New()
	a := buildPair(t, g, "a")
	b := buildPair(t, g, "b")

	_, _, err := g.Connect(b.MustSlot("x"), a.MustSlot("out.one"))
	require.NoError(t, err)

	_, err = b.AddChild(b.MustSlot("x"), "c", ir.DirectionIn, nil)
	assert.Error(t, err)
}

func TestAddChild_ClearsParentValue(t *testing.T) {
	g := New()
	n, err := g.AddNode("n", nil)
	require.NoError(t, err)
	p, err := n.AddSlot("p", ir.DirectionIn, ir.IRInt(5))
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(5), g.Value(p))

	_, err = n.AddChild(p, "c", ir.DirectionIn, nil)
	require.NoError(t, err)
	assert.Nil(t, g.Value(p), "compound slots carry no value")
}

func TestAddChild_ForeignParent(t *testing.T) {
	g := New()
	a := buildPair(t, g, "a")
	b := buildPair(t, g, "b")

	_, err := b.AddChild(a.MustSlot("in"), "c", ir.DirectionIn, nil)
	assert.Error(t, err)
}

// =============================================================================
// Hierarchy queries
// =============================================================================

func TestHierarchy_Queries(t *testing.T) {
	g := New()
	n := buildPair(t, g, "n")

	in := n.MustSlot("in")
	one := n.MustSlot("in.one")
	two := n.MustSlot("in.two")

	assert.Equal(t, []SlotID{one, two}, g.Children(in))
	assert.Empty(t, g.Children(one))
	assert.Equal(t, in, g.Parent(one))
	assert.Equal(t, NoSlot, g.Parent(in))

	assert.True(t, g.IsLeaf(one))
	assert.False(t, g.IsLeaf(in))

	assert.True(t, g.IsAncestorOf(in, one))
	assert.True(t, g.IsAncestorOf(in, in))
	assert.False(t, g.IsAncestorOf(one, in))
	assert.False(t, g.IsAncestorOf(in, n.MustSlot("out.one")))

	assert.Equal(t, "n.in.two", g.FullName(two))
	assert.Equal(t, "in.two", g.RelativeName(two))
	assert.Equal(t, "two", g.Name(two))
	assert.Equal(t, ir.DirectionIn, g.Direction(two))
	assert.Same(t, n, g.NodeOf(two))
}

func TestLeaves_DepthFirstOrder(t *testing.T) {
	g := New()
	n, err := g.AddNode("n", nil)
	require.NoError(t, err)

	root, err := n.AddSlot("r", ir.DirectionOut, nil)
	require.NoError(t, err)
	a, err := n.AddChild(root, "a", ir.DirectionOut, nil)
	require.NoError(t, err)
	a1, err := n.AddChild(a, "a1", ir.DirectionOut, nil)
	require.NoError(t, err)
	a2, err := n.AddChild(a, "a2", ir.DirectionOut, nil)
	require.NoError(t, err)
	b, err := n.AddChild(root, "b", ir.DirectionOut, nil)
	require.NoError(t, err)

	assert.Equal(t, []SlotID{a1, a2, b}, g.Leaves(root))
	assert.Equal(t, []SlotID{b}, g.Leaves(b), "a leaf enumerates itself")
	assert.Equal(t, []SlotID{root, a, a1, a2, b}, n.AllSlots())
}

func TestLookup(t *testing.T) {
	g := New()
	n := buildPair(t, g, "n")

	id, err := g.Lookup("n.out.two")
	require.NoError(t, err)
	assert.Equal(t, n.MustSlot("out.two"), id)

	tests := []string{"n", "missing.in", "n.in.three", "n.nope"}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := g.Lookup(name)
			assert.Equal(t, ErrCodeUnknownSlot, InvalidTargetCodeOf(err))
		})
	}
}

func TestMustSlot_Panics(t *testing.T) {
	g := New()
	n := buildPair(t, g, "n")
	assert.Panics(t, func() { n.MustSlot("none") })
}

// =============================================================================
// Values and connections
// =============================================================================

func TestValue_DefaultsAndLocal(t *testing.T) {
	g := New()
	n := buildPair(t, g, "n")
	x := n.MustSlot("x")

	assert.Equal(t, ir.IRString("hello"), g.Value(x))
	assert.Equal(t, ir.IRNull{}, g.Value(n.MustSlot("out.one")), "no default means null")

	changed, err := g.SetLocalValue(x, ir.IRString("bye"))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, ir.IRString("bye"), n.Value(x))
	assert.Equal(t, ir.IRString("hello"), g.Default(x))

	changed, err = g.SetLocalValue(x, ir.IRString("bye"))
	require.NoError(t, err)
	assert.False(t, changed, "equal value is a no-op")

	changed, err = g.ResetValue(x)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, ir.IRString("hello"), g.Value(x))
}

func TestCheckSettable(t *testing.T) {
	g := New()
	a := buildPair(t, g, "a")
	b := buildPair(t, g, "b")

	_, _, err := g.Connect(b.MustSlot("in.one"), a.MustSlot("out.one"))
	require.NoError(t, err)

	tests := []struct {
		name string
		slot SlotID
		code InvalidTargetCode
	}{
		{"compound", a.MustSlot("in"), ErrCodeCompoundTarget},
		{"output", a.MustSlot("out.one"), ErrCodeNotSettable},
		{"connected input", b.MustSlot("in.one"), ErrCodeNotSettable},
		{"unknown", SlotID(9999), ErrCodeUnknownSlot},
		{"ok", a.MustSlot("in.one"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.CheckSettable(tt.slot)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsInvalidTarget(err))
			assert.Equal(t, tt.code, InvalidTargetCodeOf(err))
		})
	}
}

func TestCheckConnection(t *testing.T) {
	g := New()
	a := buildPair(t, g, "a")
	b := buildPair(t, g, "b")

	tests := []struct {
		name     string
		dst, src SlotID
		code     InvalidTargetCode
	}{
		{"compound destination", b.MustSlot("in"), a.MustSlot("out.one"), ErrCodeCompoundTarget},
		{"compound source", b.MustSlot("in.one"), a.MustSlot("out"), ErrCodeCompoundTarget},
		{"output destination", b.MustSlot("out.one"), a.MustSlot("out.one"), ErrCodeDirectionMismatch},
		{"input source", b.MustSlot("in.one"), a.MustSlot("in.two"), ErrCodeDirectionMismatch},
		{"unknown source", b.MustSlot("in.one"), SlotID(9999), ErrCodeUnknownSlot},
		{"disconnect request", b.MustSlot("in.one"), NoSlot, ""},
		{"ok", b.MustSlot("in.one"), a.MustSlot("out.one"), ""},
		{"same node", a.MustSlot("in.one"), a.MustSlot("out.one"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.CheckConnection(tt.dst, tt.src)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.code, InvalidTargetCodeOf(err))
		})
	}
}

func TestConnect_ReplacesAndResolves(t *testing.T) {
	g := New()
	a := buildPair(t, g, "a")
	b := buildPair(t, g, "b")
	dst := b.MustSlot("x")
	one := a.MustSlot("out.one")
	two := a.MustSlot("out.two")

	prev, changed, err := g.Connect(dst, one)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, NoSlot, prev)
	assert.Equal(t, one, g.Input(dst))
	assert.Equal(t, []SlotID{dst}, g.Outputs(one))
	assert.Equal(t, ir.IRNull{}, g.Value(dst), "value resolves through the connection")

	prev, changed, err = g.Connect(dst, one)
	require.NoError(t, err)
	assert.False(t, changed, "same connection is a no-op")
	assert.Equal(t, one, prev)

	prev, changed, err = g.Connect(dst, two)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, one, prev)
	assert.Empty(t, g.Outputs(one), "replaced connection is removed from the old source")
	assert.Equal(t, []SlotID{dst}, g.Outputs(two))
}

func TestDisconnect_RestoresLocalValue(t *testing.T) {
	g := New()
	a := buildPair(t, g, "a")
	b := buildPair(t, g, "b")
	dst := b.MustSlot("x")

	_, err := g.SetLocalValue(dst, ir.IRString("static"))
	require.NoError(t, err)
	_, _, err = g.Connect(dst, a.MustSlot("out.one"))
	require.NoError(t, err)
	assert.Equal(t, ir.IRNull{}, g.Value(dst))

	prev, changed, err := g.Disconnect(dst)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, a.MustSlot("out.one"), prev)
	assert.Equal(t, ir.IRString("static"), g.Value(dst))

	_, changed, err = g.Disconnect(dst)
	require.NoError(t, err)
	assert.False(t, changed, "clearing an absent connection is a no-op")
}

func TestOutputs_ConnectionOrder(t *testing.T) {
	g := New()
	a := buildPair(t, g, "a")
	b := buildPair(t, g, "b")
	c := buildPair(t, g, "c")
	src := a.MustSlot("out.one")

	for _, dst := range []SlotID{c.MustSlot("x"), b.MustSlot("in.two"), b.MustSlot("x")} {
		_, _, err := g.Connect(dst, src)
		require.NoError(t, err)
	}
	assert.Equal(t, []SlotID{c.MustSlot("x"), b.MustSlot("in.two"), b.MustSlot("x")}, g.Outputs(src))
}

func TestPairLeaves(t *testing.T) {
	g := New()
	a := buildPair(t, g, "a")
	b := buildPair(t, g, "b")

	pairs, err := g.PairLeaves(b.MustSlot("in"), a.MustSlot("out"))
	require.NoError(t, err)
	assert.Equal(t, [][2]SlotID{
		{b.MustSlot("in.one"), a.MustSlot("out.one")},
		{b.MustSlot("in.two"), a.MustSlot("out.two")},
	}, pairs)

	_, err = g.PairLeaves(b.MustSlot("x"), a.MustSlot("out"))
	assert.Equal(t, ErrCodeStructureMismatch, InvalidTargetCodeOf(err))
}

// =============================================================================
// Node removal
// =============================================================================

func TestRemoveNode_SeversConnections(t *testing.T) {
	g := New()
	a := buildPair(t, g, "a")
	b := buildPair(t, g, "b")
	c := buildPair(t, g, "c")

	_, _, err := g.Connect(a.MustSlot("x"), c.MustSlot("out.two"))
	require.NoError(t, err)
	_, _, err = g.Connect(b.MustSlot("in.one"), a.MustSlot("out.one"))
	require.NoError(t, err)
	_, _, err = g.Connect(b.MustSlot("x"), a.MustSlot("out.two"))
	require.NoError(t, err)

	removedSlot := a.MustSlot("out.one")
	severed, err := g.RemoveNode("a")
	require.NoError(t, err)
	assert.Equal(t, []Edge{
		{Dst: b.MustSlot("in.one"), Src: removedSlot},
		{Dst: b.MustSlot("x"), Src: a.MustSlot("out.two")},
	}, severed)

	assert.Equal(t, NoSlot, g.Input(b.MustSlot("in.one")))
	assert.Empty(t, g.Outputs(c.MustSlot("out.two")), "upstream edge is severed too")
	assert.False(t, g.Valid(removedSlot))
	assert.True(t, a.Removed())

	_, ok := g.Node("a")
	assert.False(t, ok)
	assert.Len(t, g.Nodes(), 2)

	_, err = g.Lookup("a.x")
	assert.Error(t, err)
	_, err = g.RemoveNode("a")
	assert.Error(t, err)
}

func TestRemoveNode_IDsNotReused(t *testing.T) {
	g := New()
	buildPair(t, g, "a")
	before := g.Len()

	_, err := g.RemoveNode("a")
	require.NoError(t, err)
	n := buildPair(t, g, "a")

	assert.GreaterOrEqual(t, int(n.MustSlot("in")), before)
}
