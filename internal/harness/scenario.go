package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Scenario defines a propagation test scenario: node types to compile, the
// nodes to build from them, and a sequence of mutations whose notifications
// are checked step by step and then asserted on as a whole.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name" validate:"required,excludesall=/"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" validate:"required"`

	// Types lists CUE files or directories declaring node types.
	// Relative paths are resolved against the base path given to
	// LoadScenarioWithBasePath.
	Types []string `yaml:"types" validate:"required,min=1,dive,required"`

	// Nodes are instantiated in order before any step runs.
	Nodes []NodeDecl `yaml:"nodes" validate:"required,min=1,dive"`

	// Setup steps wire the graph before the measured steps. They must
	// succeed and their passes are not traced.
	Setup []Step `yaml:"setup,omitempty" validate:"dive"`

	// Steps are the measured mutations.
	Steps []Step `yaml:"steps" validate:"required,min=1,dive"`

	// Assertions validate the trace of all steps and the final graph.
	Assertions []Assertion `yaml:"assertions,omitempty" validate:"dive"`

	// TokenPrefix seeds deterministic pass tokens ("<prefix>-1", ...).
	// Defaults to "pass".
	TokenPrefix string `yaml:"token_prefix,omitempty"`
}

// NodeDecl instantiates one node from a compiled node type.
type NodeDecl struct {
	Name string `yaml:"name" validate:"required,excludesall=."`
	Type string `yaml:"type" validate:"required"`
}

// Step is a single graph mutation. Exactly one operation field is set.
type Step struct {
	// Set assigns Value to a leaf input.
	Set   string `yaml:"set,omitempty"`
	Value any    `yaml:"value,omitempty"`

	// Reset restores a leaf input's declared default.
	Reset string `yaml:"reset,omitempty"`

	// Connect connects the leaf input to From.
	Connect string `yaml:"connect,omitempty"`

	// ConnectLeaves pairs the leaves of a compound input with From.
	ConnectLeaves string `yaml:"connect_leaves,omitempty"`

	// From is the source slot for Connect and ConnectLeaves.
	From string `yaml:"from,omitempty"`

	// Disconnect clears the leaf input's connection.
	Disconnect string `yaml:"disconnect,omitempty"`

	// Remove deletes a node, severing its connections.
	Remove string `yaml:"remove,omitempty"`

	// Expect checks the notifications of this step. Nil checks only that
	// the step succeeds.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Step operation names.
const (
	OpSet           = "set"
	OpReset         = "reset"
	OpConnect       = "connect"
	OpConnectLeaves = "connect_leaves"
	OpDisconnect    = "disconnect"
	OpRemove        = "remove"
)

// Op returns the step's operation name and target, or "" if none is set.
func (s Step) Op() (op, target string) {
	switch {
	case s.Set != "":
		return OpSet, s.Set
	case s.Reset != "":
		return OpReset, s.Reset
	case s.Connect != "":
		return OpConnect, s.Connect
	case s.ConnectLeaves != "":
		return OpConnectLeaves, s.ConnectLeaves
	case s.Disconnect != "":
		return OpDisconnect, s.Disconnect
	case s.Remove != "":
		return OpRemove, s.Remove
	}
	return "", ""
}

func (s Step) String() string {
	op, target := s.Op()
	if s.From != "" {
		return fmt.Sprintf("%s %s <- %s", op, target, s.From)
	}
	return op + " " + target
}

// Expect lists the notifications a step must produce. Nil lists are not
// checked; an empty list requires that nothing was notified.
type Expect struct {
	// Set is the expected OnSet order across the step's passes.
	Set []string `yaml:"set,omitempty"`

	// Dirtied is the expected OnDirtied order across the step's passes.
	Dirtied []string `yaml:"dirtied,omitempty"`

	// Passes is the expected number of passes. Nil is not checked.
	Passes *int `yaml:"passes,omitempty" validate:"omitempty,min=0"`

	// Error is the expected error code, e.g. COMPOUND_RESULT.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the trace or the final graph.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type" validate:"required,oneof=dirtied_contains dirtied_order dirtied_count final_value journal_count"`

	// Slot is the full slot name (all types but dirtied_order).
	Slot string `yaml:"slot,omitempty"`

	// Slots is the expected order (dirtied_order).
	Slots []string `yaml:"slots,omitempty"`

	// Count is the expected number of occurrences (dirtied_count,
	// journal_count).
	Count int `yaml:"count,omitempty" validate:"min=0"`

	// Value is the expected resolved value (final_value).
	Value any `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertDirtiedContains = "dirtied_contains"
	AssertDirtiedOrder    = "dirtied_order"
	AssertDirtiedCount    = "dirtied_count"
	AssertFinalValue      = "final_value"
	AssertJournalCount    = "journal_count"
)

// scenarioValidate is the validator instance for scenario files.
var scenarioValidate *validator.Validate

func init() {
	scenarioValidate = validator.New()
	scenarioValidate.RegisterStructValidation(validateStep, Step{})
	scenarioValidate.RegisterStructValidation(validateAssertionFields, Assertion{})
}

// validateStep requires exactly one operation and a From only where it
// is meaningful.
func validateStep(sl validator.StructLevel) {
	s := sl.Current().Interface().(Step)

	ops := 0
	for _, f := range []string{s.Set, s.Reset, s.Connect, s.ConnectLeaves, s.Disconnect, s.Remove} {
		if f != "" {
			ops++
		}
	}
	if ops != 1 {
		sl.ReportError(s.Set, "Set", "set", "oneop", "")
		return
	}

	op, _ := s.Op()
	needsFrom := op == OpConnect || op == OpConnectLeaves
	if needsFrom && s.From == "" {
		sl.ReportError(s.From, "From", "from", "required_for_connect", "")
	}
	if !needsFrom && s.From != "" {
		sl.ReportError(s.From, "From", "from", "excluded_without_connect", "")
	}
}

func validateAssertionFields(sl validator.StructLevel) {
	a := sl.Current().Interface().(Assertion)
	switch a.Type {
	case AssertDirtiedOrder:
		if len(a.Slots) == 0 {
			sl.ReportError(a.Slots, "Slots", "slots", "required_for_order", "")
		}
	default:
		if a.Slot == "" {
			sl.ReportError(a.Slot, "Slot", "slot", "required", "")
		}
	}
}

// LoadScenario reads and parses a scenario YAML file. Relative type paths
// are resolved against the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving type paths relative to basePath.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or fails validation.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	for i, p := range scenario.Types {
		if !filepath.IsAbs(p) && basePath != "" {
			scenario.Types[i] = filepath.Join(basePath, p)
		}
	}
	for _, p := range scenario.Types {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("invalid scenario: types path not found: %s", p)
		}
	}

	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML. Type paths are left
// as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := ValidateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// ValidateScenario checks required fields and step shapes.
func ValidateScenario(s *Scenario) error {
	if err := scenarioValidate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}
	return nil
}

// formatValidationErrors renders validator errors as "field: rule" lines
// using scenario field paths, e.g. "Steps[2].From: required_for_connect".
func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Scenario.")
		if fe.Param() != "" {
			msgs[i] = fmt.Sprintf("%s: %s=%s", field, fe.Tag(), fe.Param())
		} else {
			msgs[i] = fmt.Sprintf("%s: %s", field, fe.Tag())
		}
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
