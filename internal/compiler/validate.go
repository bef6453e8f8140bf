package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/slotgraph/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Slot declaration errors (E101-E109)
	ErrNoSlots          = "E101" // at least one slot required
	ErrDuplicateName    = "E102" // duplicate node type or sibling slot name
	ErrInvalidDirection = "E103" // direction is not "in" or "out"
	ErrChildDirection   = "E104" // child direction differs from parent
	ErrCompoundDefault  = "E105" // compound slot declares a default
	ErrFloatForbidden   = "E106" // float default value
	ErrInvalidName      = "E107" // empty name or name containing '.'

	// Affects table errors (E110-E119)
	ErrAffectsUnknownSlot = "E110" // path does not name a slot
	ErrAffectsNotInput    = "E111" // affects key is not an input
	ErrAffectsNotOutput   = "E112" // affected slot is not an output
	ErrAffectsEmpty       = "E113" // affects entry lists no outputs
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateAll validates a set of node types, including name uniqueness
// across the set. Returns all errors found (does not fail-fast).
func ValidateAll(specs []ir.NodeTypeSpec) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i, spec := range specs {
		if seen[spec.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("nodetype[%d].name", i),
				Message: fmt.Sprintf("duplicate node type name: %q", spec.Name),
				Code:    ErrDuplicateName,
			})
		}
		seen[spec.Name] = true
		errs = append(errs, Validate(spec)...)
	}
	return errs
}

// Validate validates one compiled node type.
// Returns all errors found (does not fail-fast).
func Validate(spec ir.NodeTypeSpec) []ValidationError {
	var errs []ValidationError
	prefix := "nodetype." + spec.Name

	if err := checkName(spec.Name); err != "" {
		errs = append(errs, ValidationError{Field: prefix, Message: err, Code: ErrInvalidName})
	}

	// E101: at least one slot
	if len(spec.Slots) == 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".slots",
			Message: "at least one slot is required",
			Code:    ErrNoSlots,
		})
	}

	errs = append(errs, validateSlots(spec.Slots, "", prefix+".slots")...)
	errs = append(errs, validateAffects(spec, prefix+".affects")...)
	return errs
}

func validateSlots(slots []ir.SlotSpec, parentDir ir.Direction, path string) []ValidationError {
	var errs []ValidationError
	names := make(map[string]bool)

	for _, slot := range slots {
		field := path + "." + slot.Name

		if err := checkName(slot.Name); err != "" {
			errs = append(errs, ValidationError{Field: field, Message: err, Code: ErrInvalidName})
		}

		// E102: sibling names unique
		if names[slot.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate slot name: %q", slot.Name),
				Code:    ErrDuplicateName,
			})
		}
		names[slot.Name] = true

		// E103: direction
		if !ir.ValidDirections[slot.Direction] {
			errs = append(errs, ValidationError{
				Field:   field + ".direction",
				Message: fmt.Sprintf("invalid direction %q, must be \"in\" or \"out\"", slot.Direction),
				Code:    ErrInvalidDirection,
			})
		}

		// E104: children share the parent's direction
		if parentDir != "" && slot.Direction != parentDir {
			errs = append(errs, ValidationError{
				Field:   field + ".direction",
				Message: fmt.Sprintf("direction %q differs from parent direction %q", slot.Direction, parentDir),
				Code:    ErrChildDirection,
			})
		}

		if slot.IsCompound() {
			// E105: compound slots hold no value
			if slot.Default != nil {
				errs = append(errs, ValidationError{
					Field:   field + ".default",
					Message: "compound slots cannot declare a default",
					Code:    ErrCompoundDefault,
				})
			}
			errs = append(errs, validateSlots(slot.Children, slot.Direction, field+".children")...)
		}
	}
	return errs
}

// validateAffects checks every affects path. Inputs may name a compound
// input (covering all its leaves); outputs may name a compound output
// (expanded to its leaves when the node is instantiated).
func validateAffects(spec ir.NodeTypeSpec, path string) []ValidationError {
	var errs []ValidationError

	for _, rule := range spec.Affects {
		field := path + "." + rule.Input

		in, ok := spec.Find(rule.Input)
		switch {
		case !ok:
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("unknown slot %q", rule.Input),
				Code:    ErrAffectsUnknownSlot,
			})
		case in.Direction != ir.DirectionIn:
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("slot %q is not an input", rule.Input),
				Code:    ErrAffectsNotInput,
			})
		}

		if len(rule.Outputs) == 0 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "affects entry must list at least one output",
				Code:    ErrAffectsEmpty,
			})
		}

		for i, outPath := range rule.Outputs {
			outField := fmt.Sprintf("%s[%d]", field, i)
			out, ok := spec.Find(outPath)
			switch {
			case !ok:
				errs = append(errs, ValidationError{
					Field:   outField,
					Message: fmt.Sprintf("unknown slot %q", outPath),
					Code:    ErrAffectsUnknownSlot,
				})
			case out.Direction != ir.DirectionOut:
				errs = append(errs, ValidationError{
					Field:   outField,
					Message: fmt.Sprintf("slot %q is not an output", outPath),
					Code:    ErrAffectsNotOutput,
				})
			}
		}
	}
	return errs
}

func checkName(name string) string {
	switch {
	case strings.TrimSpace(name) == "":
		return "name is required"
	case strings.Contains(name, "."):
		return fmt.Sprintf("name %q must not contain '.'", name)
	}
	return ""
}
