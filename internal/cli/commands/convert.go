package commands

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/cspkit/xcsp2cpo/internal/cli/output"
	"github.com/cspkit/xcsp2cpo/internal/engine"
	"github.com/cspkit/xcsp2cpo/internal/state"
	"github.com/cspkit/xcsp2cpo/pkg/cpo"
	"github.com/cspkit/xcsp2cpo/pkg/ir"
	"github.com/cspkit/xcsp2cpo/pkg/parser"
	"github.com/cspkit/xcsp2cpo/pkg/transform"
)

// ConvertOptions holds options for the convert command.
type ConvertOptions struct {
	Legacy bool
	Strict bool
	Force  bool
	Jobs   int
	Watch  bool
}

// NewConvertCommand creates the convert command.
func NewConvertCommand() *cobra.Command {
	opts := &ConvertOptions{}
	cmd := &cobra.Command{
		Use:   "convert [inputs...]",
		Short: "Convert XCSP3 instances to CP Optimizer models",
		Long: `Convert XCSP3 instance files to CP Optimizer model text.

Inputs may be .xml or .xml.lzma files, or directories searched
recursively. Pass "-" to read one instance from stdin and write the
model to stdout.

Unchanged inputs are skipped using content hashes from the state
ledger; --force converts them anyway. Constraints the target cannot
express are flagged in diagnostics and emitted as marker comments
unless --strict is set.`,
		Example: `  # Convert one instance
  xcsp2cpo convert queens.xml

  # Convert a directory into out/
  xcsp2cpo convert instances/ --out-dir out

  # Pipe through stdin/stdout
  cat queens.xml | xcsp2cpo convert -

  # Refuse output when anything is unsupported
  xcsp2cpo convert instances/ --strict

  # Keep converting as files change
  xcsp2cpo convert instances/ --watch`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && args[0] == "-" {
				return convertStdin(cmd, opts)
			}
			return convertBatch(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Legacy, "legacy", false, "Skip decomposition and rewriting, emit source constraint shapes")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Refuse output for instances with unsupported constraints")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Convert even when the input content is unchanged")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "Parallel conversions (0 = one per CPU)")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Watch inputs and re-convert on change")

	return cmd
}

// convertStdin converts a single instance from stdin to stdout.
// Diagnostics go to stderr so the model text stays pipeable.
func convertStdin(cmd *cobra.Command, opts *ConvertOptions) error {
	cmdCtx := NewCommandContext(cmd)
	// The model goes to stdout; diagnostics go to stderr so the output
	// stays pipeable.
	r := output.NewRenderer(cmd.ErrOrStderr(), cmd.ErrOrStderr(), output.Mode(cmdCtx.Config.OutputFormat))

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	inst, diags, err := parser.ParseString(string(data))
	if err != nil {
		return err
	}

	pipeline := transform.Pipeline{Vocab: cpo.Optimizer, Legacy: opts.Legacy || cmdCtx.Config.Legacy}
	pipeDiags, err := pipeline.Transform(inst)
	diags = append(diags, pipeDiags...)
	if err != nil {
		return err
	}
	renderDiagnostics(r, "-", diags)

	if inst.Incomplete && (opts.Strict || cmdCtx.Config.Strict) {
		return fmt.Errorf("unsupported constraints remain and strict mode is on")
	}
	return cpo.Optimizer.Write(cmd.OutOrStdout(), inst)
}

// convertBatch converts file and directory inputs through the engine.
func convertBatch(cmd *cobra.Command, args []string, opts *ConvertOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Config

	eng, err := engine.New(engine.Config{
		OutDir:    cfg.OutDir,
		StatePath: cfg.StatePath,
		Legacy:    opts.Legacy || cfg.Legacy,
		Strict:    opts.Strict || cfg.Strict,
		Force:     opts.Force || cfg.Force,
		Jobs:      pickJobs(opts.Jobs, cfg.Jobs),
		Logger:    cmdCtx.Logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	if opts.Watch {
		return eng.Watch(cmd.Context(), args, func(s *engine.Summary) {
			renderSummary(cmdCtx.Renderer, s)
		})
	}

	inputs, err := engine.DiscoverInputs(args)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no .xml or .xml.lzma inputs found")
	}

	summary, err := eng.ConvertAll(cmd.Context(), inputs)
	if err != nil {
		return err
	}
	if err := renderSummary(cmdCtx.Renderer, summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", summary.Failed, len(inputs))
	}
	return nil
}

func pickJobs(flag, cfg int) int {
	if flag > 0 {
		return flag
	}
	return cfg
}

// ConvertJSONOutput is the JSON shape of a batch summary.
type ConvertJSONOutput struct {
	RunID      string              `json:"run_id,omitempty"`
	Converted  int                 `json:"converted"`
	Skipped    int                 `json:"skipped"`
	Failed     int                 `json:"failed"`
	Incomplete int                 `json:"incomplete"`
	Files      []ConvertJSONResult `json:"files"`
}

// ConvertJSONResult is the JSON shape of one file outcome.
type ConvertJSONResult struct {
	Input       string   `json:"input"`
	Output      string   `json:"output,omitempty"`
	Status      string   `json:"status"`
	Diagnostics []string `json:"diagnostics,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func summaryJSON(s *engine.Summary) ConvertJSONOutput {
	out := ConvertJSONOutput{
		RunID:      s.RunID,
		Converted:  s.Converted,
		Skipped:    s.Skipped,
		Failed:     s.Failed,
		Incomplete: s.Incomplete,
	}
	for _, res := range s.Results {
		jr := ConvertJSONResult{
			Input:  res.Input,
			Output: res.Output,
			Status: string(res.Status),
		}
		for _, d := range res.Diagnostics {
			jr.Diagnostics = append(jr.Diagnostics, fmt.Sprintf("%s: %s", d.Constraint, d.Message))
		}
		if res.Err != nil {
			jr.Error = res.Err.Error()
		}
		out.Files = append(out.Files, jr)
	}
	return out
}

func renderSummary(r *output.Renderer, s *engine.Summary) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(summaryJSON(s))
	case output.ModeYAML:
		return r.YAML(summaryJSON(s))
	default:
		return renderSummaryTable(r, s)
	}
}

func renderSummaryTable(r *output.Renderer, s *engine.Summary) error {
	styles := r.Styles()

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Input", "Status", "Output", "Diagnostics"})
	for _, res := range s.Results {
		status := string(res.Status)
		switch res.Status {
		case state.ConversionFailed:
			status = styles.Error.Render(status)
		case state.ConversionIncomplete:
			status = styles.Warning.Render(status)
		case state.ConversionConverted:
			status = styles.Success.Render(status)
		}
		out := res.Output
		if res.Status == state.ConversionFailed {
			out = ""
		}
		t.AppendRow(table.Row{res.Input, status, out, len(res.Diagnostics)})
	}
	t.Render()

	for _, res := range s.Results {
		renderDiagnostics(r, res.Input, res.Diagnostics)
		if res.Err != nil {
			r.Println(styles.Error.Render("  " + res.Err.Error()))
		}
	}

	r.Printf("%d converted (%d incomplete), %d skipped, %d failed in %s\n",
		s.Converted, s.Incomplete, s.Skipped, s.Failed, s.Elapsed.Round(1e6))
	return nil
}

// renderDiagnostics prints one file's diagnostics, severity-styled.
func renderDiagnostics(r *output.Renderer, input string, diags []ir.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	styles := r.Styles()
	r.Println(styles.Bold.Render(input))
	for _, d := range diags {
		sev := severityStyle(styles, d.Severity).Render(d.Severity.String())
		r.Printf("  %s %s: %s\n", sev, d.Constraint, d.Message)
	}
}

func severityStyle(styles *output.Styles, sev ir.Severity) lipgloss.Style {
	switch sev {
	case ir.SeverityError:
		return styles.Error
	case ir.SeverityWarning:
		return styles.Warning
	case ir.SeverityInfo:
		return styles.Info
	default:
		return styles.Muted
	}
}
