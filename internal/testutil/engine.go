package testutil

import (
	"io"
	"log/slog"

	"github.com/roach88/slotgraph/internal/engine"
	"github.com/roach88/slotgraph/internal/graph"
)

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewEngine creates an engine over g with a quiet logger, "pass-N" tokens
// and a fresh clock, so the same test produces the same pass records on
// every run. opts are applied after the defaults.
func NewEngine(g *graph.Graph, opts ...engine.EngineOption) *engine.Engine {
	opts = append([]engine.EngineOption{
		engine.WithLogger(DiscardLogger()),
		engine.WithPassTokens(engine.NewSequenceGenerator("pass")),
		engine.WithClock(engine.NewClock()),
	}, opts...)
	return engine.New(g, opts...)
}
