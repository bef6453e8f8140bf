package ir

// Version constants for the IR schema and engine.
const (
	// IRVersion is the schema version of compiled node types and pass records.
	IRVersion = "1"

	// EngineVersion is the slotgraph engine version.
	EngineVersion = "0.1.0"
)
