package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/cspkit/xcsp2cpo/internal/cli/output"
	"github.com/cspkit/xcsp2cpo/internal/state"
)

// RunsOptions holds options for the runs command.
type RunsOptions struct {
	Limit       int
	Diagnostics bool
}

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	opts := &RunsOptions{}
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show conversion run history",
		Long: `List recent conversion runs from the state ledger, or show the
per-file details of one run.`,
		Example: `  # Recent runs
  xcsp2cpo runs

  # Details of one run
  xcsp2cpo runs 4f1c...

  # Include the diagnostics a run produced
  xcsp2cpo runs 4f1c... --diagnostics`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return showRun(cmd, args[0], opts)
			}
			return listRuns(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "Number of runs to list")
	cmd.Flags().BoolVar(&opts.Diagnostics, "diagnostics", false, "Show the diagnostics recorded for the run")
	return cmd
}

func openStore(cmd *cobra.Command) (*state.SQLiteStore, error) {
	cmdCtx := NewCommandContext(cmd)
	if cmdCtx.Config.StatePath == "" {
		return nil, fmt.Errorf("no state ledger configured")
	}
	store := state.NewSQLiteStore(cmdCtx.Logger)
	if err := store.Open(cmdCtx.Config.StatePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func listRuns(cmd *cobra.Command, opts *RunsOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(opts.Limit)
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(runs)
	case output.ModeYAML:
		return r.YAML(runs)
	}

	if len(runs) == 0 {
		r.Println("No runs recorded yet.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Status", "Started", "Converted", "Skipped", "Failed"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			shortID(run.ID),
			string(run.Status),
			run.StartedAt.Local().Format(time.DateTime),
			run.Converted, run.Skipped, run.Failed,
		})
	}
	t.Render()
	return nil
}

func showRun(cmd *cobra.Command, id string, opts *RunsOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer
	styles := r.Styles()

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.GetRun(id)
	if err != nil {
		return err
	}
	conversions, err := store.ListConversions(run.ID)
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON, output.ModeYAML:
		detail := struct {
			Run         *state.Run               `json:"run" yaml:"run"`
			Conversions []*state.Conversion      `json:"conversions" yaml:"conversions"`
			Diagnostics []state.DiagnosticRecord `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
		}{Run: run, Conversions: conversions}
		if opts.Diagnostics {
			if detail.Diagnostics, err = store.ListDiagnostics(run.ID); err != nil {
				return err
			}
		}
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(detail)
		}
		return r.YAML(detail)
	}

	r.Println(styles.Header1.Render("Run " + run.ID))
	r.Printf("  %s: %s\n", styles.Bold.Render("Status"), string(run.Status))
	r.Printf("  %s: %s\n", styles.Bold.Render("Started"), run.StartedAt.Local().Format(time.DateTime))
	if run.CompletedAt != nil {
		r.Printf("  %s: %s\n", styles.Bold.Render("Elapsed"), run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	r.Printf("  %s: %d converted, %d skipped, %d failed\n",
		styles.Bold.Render("Files"), run.Converted, run.Skipped, run.Failed)
	if run.Error != "" {
		r.Println(styles.Error.Render("  " + run.Error))
	}

	if len(conversions) > 0 {
		r.Println("")
		t := table.NewWriter()
		t.SetOutputMirror(r.Writer())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Input", "Status", "Diagnostics"})
		for _, c := range conversions {
			t.AppendRow(table.Row{c.Input, string(c.Status), c.Diagnostics})
		}
		t.Render()
	}

	if opts.Diagnostics {
		diags, err := store.ListDiagnostics(run.ID)
		if err != nil {
			return err
		}
		for _, d := range diags {
			r.Printf("  %s %s %s: %s\n",
				styles.Warning.Render(d.Severity), d.Input, d.Constraint, d.Message)
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
