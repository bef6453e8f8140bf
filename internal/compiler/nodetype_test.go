package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotgraph/internal/ir"
)

const adderSrc = `
nodetype: Adder: {
	description: "sums two inputs"
	slots: {
		op1: {direction: "in", default: 0}
		op2: {direction: "in", default: 0}
		sum: {direction: "out"}
	}
	affects: {
		op1: ["sum"]
		op2: ["sum"]
	}
}
`

const compoundSrc = `
nodetype: Pair: {
	slots: {
		"in": {
			children: {
				one: {default: 1}
				two: {default: 2}
			}
		}
		out: {
			direction: "out"
			children: {
				one: {}
				two: {}
			}
		}
	}
	affects: {
		"in.one": ["out.one", "out.two"]
		"in.two": ["out"]
	}
}
`

func compileOne(t *testing.T, src, path string) (*ir.NodeTypeSpec, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileNodeType(v.LookupPath(cue.ParsePath(path)))
}

func TestCompileNodeTypeBasic(t *testing.T) {
	spec, err := compileOne(t, adderSrc, "nodetype.Adder")
	require.NoError(t, err)

	assert.Equal(t, "Adder", spec.Name)
	assert.Equal(t, "sums two inputs", spec.Description)
	require.Len(t, spec.Slots, 3)
	assert.Equal(t, []string{"op1", "op2", "sum"}, []string{spec.Slots[0].Name, spec.Slots[1].Name, spec.Slots[2].Name})
	assert.Equal(t, ir.DirectionIn, spec.Slots[0].Direction)
	assert.Equal(t, ir.DirectionOut, spec.Slots[2].Direction)
	assert.Equal(t, ir.IRInt(0), spec.Slots[0].Default)
	assert.Nil(t, spec.Slots[2].Default)

	assert.Equal(t, []ir.AffectsRule{
		{Input: "op1", Outputs: []string{"sum"}},
		{Input: "op2", Outputs: []string{"sum"}},
	}, spec.Affects)
}

func TestCompileNodeTypeCompound(t *testing.T) {
	spec, err := compileOne(t, compoundSrc, "nodetype.Pair")
	require.NoError(t, err)

	in, ok := spec.Find("in")
	require.True(t, ok)
	assert.True(t, in.IsCompound())
	assert.Equal(t, ir.DirectionIn, in.Direction, "top-level direction defaults to in")

	outTwo, ok := spec.Find("out.two")
	require.True(t, ok)
	assert.Equal(t, ir.DirectionOut, outTwo.Direction, "children inherit the parent's direction")

	inOne, ok := spec.Find("in.one")
	require.True(t, ok)
	assert.Equal(t, ir.IRInt(1), inOne.Default)

	require.Len(t, spec.Affects, 2)
	assert.Equal(t, "in.one", spec.Affects[0].Input)
	assert.Empty(t, Validate(*spec))
}

func TestCompileNodeTypeDefaults(t *testing.T) {
	spec, err := compileOne(t, `
nodetype: D: slots: {
	s: {default: "text"}
	b: {default: true}
	n: {default: null}
	l: {default: [1, "two", false]}
	o: {default: {k: 1, nested: {x: "y"}}}
}
`, "nodetype.D")
	require.NoError(t, err)

	want := []ir.IRValue{
		ir.IRString("text"),
		ir.IRBool(true),
		ir.IRNull{},
		ir.IRArray{ir.IRInt(1), ir.IRString("two"), ir.IRBool(false)},
		ir.IRObject{"k": ir.IRInt(1), "nested": ir.IRObject{"x": ir.IRString("y")}},
	}
	require.Len(t, spec.Slots, len(want))
	for i, w := range want {
		assert.True(t, ir.Equal(w, spec.Slots[i].Default), "slot %s", spec.Slots[i].Name)
	}
}

func TestCompileNodeTypeRejectsFloatDefault(t *testing.T) {
	_, err := compileOne(t, `nodetype: F: slots: x: default: 1.5`, "nodetype.F")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "slots.x.default", ce.Field)
	assert.Contains(t, ce.Message, "float")
}

func TestCompileNodeTypeRejectsFloatInsideList(t *testing.T) {
	_, err := compileOne(t, `nodetype: F: slots: x: default: [1, 2.5]`, "nodetype.F")
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "slots.x.default[1]", ce.Field)
}

func TestCompileNodeTypeRejectsIncompleteDefault(t *testing.T) {
	_, err := compileOne(t, `nodetype: F: slots: x: default: int`, "nodetype.F")
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Message, "concrete")
}

func TestCompileNodeTypeMissingSlots(t *testing.T) {
	_, err := compileOne(t, `nodetype: Empty: description: "nothing"`, "nodetype.Empty")
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "slots", ce.Field)
}

func TestCompileNodeTypeAffectsNotList(t *testing.T) {
	_, err := compileOne(t, `
nodetype: A: {
	slots: {i: {}, o: {direction: "out"}}
	affects: i: "o"
}`, "nodetype.A")
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "affects.i", ce.Field)
}

func TestCompileNodeTypeNonExistentPath(t *testing.T) {
	_, err := compileOne(t, adderSrc, "nodetype.Missing")
	assert.Error(t, err)
}

func TestCompileNodeTypesOrderAndValidation(t *testing.T) {
	specs, err := CompileString(adderSrc+compoundSrc, "types.cue")
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "Adder", specs[0].Name)
	assert.Equal(t, "Pair", specs[1].Name)

	_, err = CompileString(`
nodetype: Bad: {
	slots: {i: {}}
	affects: i: ["missing"]
}`, "bad.cue")
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ErrAffectsUnknownSlot, ve.Code)
}

func TestCompileStringNoNodeTypes(t *testing.T) {
	_, err := CompileString(`other: 1`, "x.cue")
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "nodetype", ce.Field)
}

func TestCompileStringSyntaxErrorHasPosition(t *testing.T) {
	_, err := CompileString("nodetype: A: {\n\tslots: {\n", "broken.cue")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "slots", Message: "slots are required"}
	assert.Equal(t, "slots: slots are required", err.Error())
}
