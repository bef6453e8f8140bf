package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/slotgraph/internal/ir"
)

// CompileNodeType parses a CUE value into a NodeTypeSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the node type struct itself, e.g.:
//
//	nodetype: Adder: {
//		description: "sums two inputs"
//		slots: {
//			op1: {direction: "in", default: 0}
//			op2: {direction: "in", default: 0}
//			sum: {direction: "out"}
//		}
//		affects: {
//			op1: ["sum"]
//			op2: ["sum"]
//		}
//	}
//
// Slot direction defaults to "in" for top-level slots and to the parent's
// direction for children. Structural rules are checked by Validate, not
// here.
func CompileNodeType(v cue.Value) (*ir.NodeTypeSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !v.Exists() {
		return nil, &CompileError{Field: "nodetype", Message: "node type not found", Pos: v.Pos()}
	}

	spec := &ir.NodeTypeSpec{Name: labelName(v)}

	descVal := v.LookupPath(cue.ParsePath("description"))
	if descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Description = desc
	}

	slotsVal := v.LookupPath(cue.ParsePath("slots"))
	if !slotsVal.Exists() {
		return nil, &CompileError{
			Field:   "slots",
			Message: "slots are required",
			Pos:     v.Pos(),
		}
	}
	slots, err := parseSlots(slotsVal, "", "slots")
	if err != nil {
		return nil, err
	}
	spec.Slots = slots

	affects, err := parseAffects(v)
	if err != nil {
		return nil, err
	}
	spec.Affects = affects

	return spec, nil
}

// CompileNodeTypes compiles every field of the top-level "nodetype" struct
// in declaration order and validates the result.
func CompileNodeTypes(root cue.Value) ([]ir.NodeTypeSpec, error) {
	if err := root.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	typesVal := root.LookupPath(cue.ParsePath("nodetype"))
	if !typesVal.Exists() {
		return nil, &CompileError{Field: "nodetype", Message: "no node types declared", Pos: root.Pos()}
	}

	iter, err := typesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []ir.NodeTypeSpec
	for iter.Next() {
		spec, err := CompileNodeType(iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, *spec)
	}

	if errs := ValidateAll(specs); len(errs) > 0 {
		return nil, errs[0]
	}
	return specs, nil
}

// CompileString compiles node types from CUE source text. filename is used
// only for error positions.
func CompileString(src, filename string) ([]ir.NodeTypeSpec, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return CompileNodeTypes(v)
}

// parseSlots parses a struct of slot declarations in declaration order.
func parseSlots(v cue.Value, inherited ir.Direction, path string) ([]ir.SlotSpec, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var slots []ir.SlotSpec
	for iter.Next() {
		name := fieldName(iter)
		slotVal := iter.Value()
		fieldPath := path + "." + name

		slot := ir.SlotSpec{Name: name, Direction: inherited}
		if slot.Direction == "" {
			slot.Direction = ir.DirectionIn
		}

		dirVal := slotVal.LookupPath(cue.ParsePath("direction"))
		if dirVal.Exists() {
			dir, err := dirVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			slot.Direction = ir.Direction(dir)
		}

		defVal := slotVal.LookupPath(cue.ParsePath("default"))
		if defVal.Exists() {
			def, err := parseValue(defVal, fieldPath+".default")
			if err != nil {
				return nil, err
			}
			slot.Default = def
		}

		childVal := slotVal.LookupPath(cue.ParsePath("children"))
		if childVal.Exists() {
			children, err := parseSlots(childVal, slot.Direction, fieldPath+".children")
			if err != nil {
				return nil, err
			}
			slot.Children = children
		}

		slots = append(slots, slot)
	}
	return slots, nil
}

// parseAffects reads the affects table: input path to list of output paths.
func parseAffects(v cue.Value) ([]ir.AffectsRule, error) {
	affVal := v.LookupPath(cue.ParsePath("affects"))
	if !affVal.Exists() {
		return nil, nil
	}

	iter, err := affVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var rules []ir.AffectsRule
	for iter.Next() {
		rule := ir.AffectsRule{Input: fieldName(iter)}

		outIter, err := iter.Value().List()
		if err != nil {
			return nil, &CompileError{
				Field:   "affects." + rule.Input,
				Message: "affects entries must be lists of slot paths",
				Pos:     iter.Value().Pos(),
			}
		}
		for outIter.Next() {
			out, err := outIter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			rule.Outputs = append(rule.Outputs, out)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// parseValue converts a concrete CUE value into an IRValue.
// Floats are forbidden so defaults survive canonical encoding.
func parseValue(v cue.Value, field string) (ir.IRValue, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !v.IsConcrete() {
		return nil, &CompileError{Field: field, Message: "default must be a concrete value", Pos: v.Pos()}
	}

	switch v.Kind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRInt(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.IRArray{}
		for i := 0; iter.Next(); i++ {
			elem, err := parseValue(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			key := fieldName(iter)
			elem, err := parseValue(iter.Value(), field+"."+key)
			if err != nil {
				return nil, err
			}
			obj[key] = elem
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   field,
			Message: "float values are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// labelName returns the last path selector of v, unquoted.
func labelName(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return unquoteLabel(sels[len(sels)-1].String())
}

// fieldName returns the current field label of iter. Labels such as "in"
// or "in.one" must be quoted in CUE source.
func fieldName(iter *cue.Iterator) string {
	return unquoteLabel(iter.Selector().String())
}

func unquoteLabel(name string) string {
	if strings.HasPrefix(name, `"`) {
		if unq, err := strconv.Unquote(name); err == nil {
			return unq
		}
	}
	return name
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
