package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const adderCUE = `
nodetype: Adder: {
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

// writeTypes writes the Adder node type to a temp dir and returns its path.
func writeTypes(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "adder.cue")
	require.NoError(t, os.WriteFile(path, []byte(adderCUE), 0644))
	return path
}

// parseWithTypes parses scenario YAML whose types list is filled in with
// a freshly written Adder type.
func parseWithTypes(t *testing.T, body string) *Scenario {
	t.Helper()
	scenario, err := ParseScenario([]byte("types: [" + writeTypes(t) + "]\n" + body))
	require.NoError(t, err)
	return scenario
}

// scenarioPath returns the path of a shared scenario under testdata.
func scenarioPath(name string) string {
	return filepath.Join("..", "..", "testdata", "scenarios", name+".yaml")
}
