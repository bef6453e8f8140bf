package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/slotgraph/internal/ir"
	"github.com/roach88/slotgraph/internal/queryir"
	"github.com/roach88/slotgraph/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Token    string // optional - filter to one pass token
	Kind     string // optional - filter to one pass kind
	Slot     string // optional - filter to passes that dirtied this slot
	Aborted  bool   // optional - only aborted passes
	Verify   bool   // check journal integrity
	Top      int    // number of most-dirtied slots to show
}

// TracePass is one journaled pass in the timeline.
type TracePass struct {
	Seq       int64    `json:"seq"`
	ID        string   `json:"id"`
	Token     string   `json:"token"`
	Kind      string   `json:"kind"`
	Trigger   string   `json:"trigger"`
	Source    string   `json:"source,omitempty"`
	Set       []string `json:"set,omitempty"`
	Dirtied   []string `json:"dirtied"`
	ErrorCode string   `json:"error_code,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Timeline   []TracePass       `json:"timeline"`
	HotSlots   []store.SlotCount `json:"hot_slots"`
	Mismatches []store.Mismatch  `json:"mismatches,omitempty"`
	Stats      TraceStats        `json:"stats"`
}

// TraceStats holds summary statistics for the selected passes.
type TraceStats struct {
	Passes        int   `json:"passes"`
	Aborted       int   `json:"aborted"`
	Sets          int   `json:"sets"`
	Notifications int   `json:"notifications"`
	LastSeq       int64 `json:"last_seq"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show journaled propagation passes",
		Long: `Show the passes journaled in a database by "slotgraph test --db".

The output includes:
- Timeline: passes in seq order with their set and dirtied notifications
- Hot slots: the slots dirtied most often across the whole journal
- Stats: pass, abort and notification counts for the selection

With --verify, every pass ID is recomputed from its content and
mismatches fail the command.

Examples:
  slotgraph trace --db journal.db
  slotgraph trace --db journal.db --pass pass-3
  slotgraph trace --db journal.db --slot N2.sum
  slotgraph trace --db journal.db --kind disconnect --slot N2.op1
  slotgraph trace --db journal.db --aborted --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Token, "pass", "", "filter to a pass token")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to a pass kind (set|connect|disconnect)")
	cmd.Flags().StringVar(&opts.Slot, "slot", "", "filter to passes that dirtied a slot")
	cmd.Flags().BoolVar(&opts.Aborted, "aborted", false, "only show aborted passes")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "verify journal integrity")
	cmd.Flags().IntVar(&opts.Top, "top", 5, "number of most-dirtied slots to show")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	// store.Open creates missing files; trace only reads existing journals.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	passes, err := selectPasses(ctx, st, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read passes", err)
	}

	hot, err := st.CountDirtied(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count notifications", err)
	}
	if opts.Top >= 0 && len(hot) > opts.Top {
		hot = hot[:opts.Top]
	}

	lastSeq, err := st.LastSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read last seq", err)
	}

	result := TraceResult{
		Timeline: buildTimeline(passes),
		HotSlots: hot,
		Stats:    buildStats(passes, lastSeq),
	}

	if opts.Verify {
		result.Mismatches, err = st.Verify(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to verify journal", err)
		}
	}

	if opts.Format == "json" {
		if err := outputTraceJSON(cmd, result); err != nil {
			return err
		}
	} else {
		outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
	}

	if len(result.Mismatches) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("journal verification found %d mismatch(es)", len(result.Mismatches)))
	}
	return nil
}

// selectPasses reads the passes matching every filter, in seq order.
func selectPasses(ctx context.Context, st *store.Store, opts *TraceOptions) ([]ir.PassRecord, error) {
	return st.QueryPasses(ctx, traceQuery(opts))
}

// traceQuery translates the filter flags to a journal query.
func traceQuery(opts *TraceOptions) queryir.Select {
	var filters []queryir.Predicate
	if opts.Token != "" {
		filters = append(filters, queryir.Equals{Field: queryir.FieldToken, Value: ir.IRString(opts.Token)})
	}
	if opts.Kind != "" {
		filters = append(filters, queryir.Equals{Field: queryir.FieldKind, Value: ir.IRString(opts.Kind)})
	}
	if opts.Slot != "" {
		filters = append(filters, queryir.Touches{Signal: queryir.SignalDirtied, Slot: opts.Slot})
	}
	if opts.Aborted {
		filters = append(filters, queryir.Aborted{})
	}
	return queryir.Select{Filter: queryir.AllOf(filters...)}
}

// buildTimeline converts journaled passes to timeline entries.
func buildTimeline(passes []ir.PassRecord) []TracePass {
	timeline := make([]TracePass, 0, len(passes))
	for _, rec := range passes {
		timeline = append(timeline, TracePass{
			Seq:       rec.Seq,
			ID:        rec.ID,
			Token:     rec.Token,
			Kind:      string(rec.Kind),
			Trigger:   rec.Trigger,
			Source:    rec.Source,
			Set:       rec.Set,
			Dirtied:   rec.Dirtied,
			ErrorCode: rec.ErrorCode,
			Error:     rec.Error,
		})
	}
	return timeline
}

func buildStats(passes []ir.PassRecord, lastSeq int64) TraceStats {
	stats := TraceStats{Passes: len(passes), LastSeq: lastSeq}
	for _, rec := range passes {
		if rec.Aborted() {
			stats.Aborted++
		}
		stats.Sets += len(rec.Set)
		stats.Notifications += len(rec.Dirtied)
	}
	return stats
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	status := "ok"
	var cliErr *CLIError
	if len(result.Mismatches) > 0 {
		status = "error"
		cliErr = &CLIError{
			Code:    "E_JOURNAL_MISMATCH",
			Message: fmt.Sprintf("%d pass(es) do not match their content", len(result.Mismatches)),
		}
	}

	formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	return formatter.Response(CLIResponse{
		Status: status,
		Data:   result,
		Error:  cliErr,
	})
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no passes)")
	} else {
		for _, p := range result.Timeline {
			formatTimelinePass(w, p, verbose)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Hot Slots ===")
	if len(result.HotSlots) == 0 {
		fmt.Fprintln(w, "  (no notifications)")
	} else {
		for _, c := range result.HotSlots {
			fmt.Fprintf(w, "  %-24s %d\n", c.Slot, c.Count)
		}
	}
	fmt.Fprintln(w)

	if len(result.Mismatches) > 0 {
		fmt.Fprintln(w, "=== Journal Mismatches ===")
		for _, m := range result.Mismatches {
			fmt.Fprintf(w, "  [%d] %s (expected %s)\n", m.Seq, truncateID(m.ID), truncateID(m.Expected))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Passes:        %d\n", result.Stats.Passes)
	fmt.Fprintf(w, "  Aborted:       %d\n", result.Stats.Aborted)
	fmt.Fprintf(w, "  Sets:          %d\n", result.Stats.Sets)
	fmt.Fprintf(w, "  Notifications: %d\n", result.Stats.Notifications)
	fmt.Fprintf(w, "  Last Seq:      %d\n", result.Stats.LastSeq)
}

// formatTimelinePass formats a single pass for text output.
func formatTimelinePass(w io.Writer, p TracePass, verbose bool) {
	head := fmt.Sprintf("  [%d] %s %s %s", p.Seq, p.Token, strings.ToUpper(p.Kind), p.Trigger)
	if p.Source != "" {
		head += " <- " + p.Source
	}
	if p.ErrorCode != "" {
		head += " ABORTED " + p.ErrorCode
	}
	fmt.Fprintln(w, head)
	fmt.Fprintf(w, "       Dirtied: %s\n", strings.Join(p.Dirtied, ", "))
	if verbose {
		if len(p.Set) > 0 {
			fmt.Fprintf(w, "       Set: %s\n", strings.Join(p.Set, ", "))
		}
		if p.Error != "" {
			fmt.Fprintf(w, "       Error: %s\n", p.Error)
		}
		fmt.Fprintf(w, "       ID: %s\n", truncateID(p.ID))
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
