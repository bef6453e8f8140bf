package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/slotgraph/internal/ir"
)

// ValidationResult lists the problems found in a query.
type ValidationResult struct {
	// Valid is true when Errors is empty.
	Valid bool

	// Errors lists every problem found, in traversal order.
	Errors []string
}

// Err returns nil for a valid query, or one error joining every problem.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("invalid query: %s", strings.Join(r.Errors, "; "))
}

// validFields maps each comparable column to the IR kind of its values.
var validFields = map[string]string{
	FieldToken:     "string",
	FieldKind:      "string",
	FieldTrigger:   "string",
	FieldSource:    "string",
	FieldErrorCode: "string",
	FieldSeq:       "int",
}

var validKinds = map[ir.PassKind]bool{
	ir.PassKindSet:        true,
	ir.PassKindConnect:    true,
	ir.PassKindDisconnect: true,
}

// Validate checks a query before it is compiled.
//
// Rules:
//  1. Equals names a known column, with a value of that column's type
//  2. kind comparisons name a real pass kind
//  3. Touches names a known signal and a non-empty slot
//  4. After names a non-negative seq
//  5. Limit is not negative
//
// Column names reach the backend as identifiers, so rule 1 is what keeps
// compiled SQL free of caller-controlled text outside parameters.
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{errors: []string{}}
	v.validateQuery(query)

	return ValidationResult{
		Valid:  len(v.errors) == 0,
		Errors: v.errors,
	}
}

// validator accumulates errors during traversal.
type validator struct {
	errors []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addError("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addError("nil query")
			return
		}
		v.validateSelect(*query)
	default:
		v.addError("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if sel.Limit < 0 {
		v.addError("limit must not be negative, got %d", sel.Limit)
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		// nil predicates are valid (no filter)
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case Touches:
		v.validateTouches(pred)
	case *Touches:
		v.validateTouches(*pred)
	case Aborted, *Aborted:
	case After:
		v.validateAfter(pred)
	case *After:
		v.validateAfter(*pred)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	default:
		v.addError("unknown predicate type: %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	want, ok := validFields[eq.Field]
	if !ok {
		v.addError("unknown field %q", eq.Field)
		return
	}

	switch val := eq.Value.(type) {
	case ir.IRString:
		if want != "string" {
			v.addError("field %q compares to int values, got string", eq.Field)
			return
		}
		if eq.Field == FieldKind && !validKinds[ir.PassKind(val)] {
			v.addError("unknown pass kind %q", string(val))
		}
	case ir.IRInt:
		if want != "int" {
			v.addError("field %q compares to string values, got int", eq.Field)
		}
	default:
		v.addError("field %q compared to unsupported value %T", eq.Field, eq.Value)
	}
}

func (v *validator) validateTouches(t Touches) {
	if t.Signal != SignalSet && t.Signal != SignalDirtied {
		v.addError("unknown signal %q", t.Signal)
	}
	if t.Slot == "" {
		v.addError("touches requires a slot")
	}
}

func (v *validator) validateAfter(a After) {
	if a.Seq < 0 {
		v.addError("after seq must not be negative, got %d", a.Seq)
	}
}

func (v *validator) validateAnd(and And) {
	for _, subPred := range and.Predicates {
		v.validatePredicate(subPred)
	}
}
