package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cspkit/xcsp2cpo/internal/cli/output"
	"github.com/cspkit/xcsp2cpo/internal/engine"
	"github.com/cspkit/xcsp2cpo/pkg/cpo"
	"github.com/cspkit/xcsp2cpo/pkg/ir"
	"github.com/cspkit/xcsp2cpo/pkg/parser"
	"github.com/cspkit/xcsp2cpo/pkg/transform"
)

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	Strict bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}
	cmd := &cobra.Command{
		Use:   "validate [inputs...]",
		Short: "Check XCSP3 instances without writing output",
		Long: `Parse and transform XCSP3 instances, reporting anything that would
go wrong during conversion, without writing any model files.

The exit status is non-zero when an instance is malformed. With
--strict it is also non-zero when any constraint has no CP Optimizer
form.`,
		Example: `  # Validate one instance
  xcsp2cpo validate queens.xml

  # Validate a directory, failing on unsupported constraints
  xcsp2cpo validate instances/ --strict`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Fail when unsupported constraints remain")
	return cmd
}

// ValidateJSONResult is the JSON shape of one validated input.
type ValidateJSONResult struct {
	Input       string   `json:"input"`
	Valid       bool     `json:"valid"`
	Incomplete  bool     `json:"incomplete"`
	Diagnostics []string `json:"diagnostics,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string, opts *ValidateOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	inputs, err := engine.DiscoverInputs(args)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no .xml or .xml.lzma inputs found")
	}

	pipeline := transform.Pipeline{Vocab: cpo.Optimizer, Legacy: cmdCtx.Config.Legacy}
	var results []ValidateJSONResult
	failed := 0
	for _, input := range inputs {
		res := ValidateJSONResult{Input: input, Valid: true}

		inst, diags, err := parser.ParseFile(input)
		if err == nil {
			var pipeDiags []ir.Diagnostic
			pipeDiags, err = pipeline.Transform(inst)
			diags = append(diags, pipeDiags...)
		}
		if err != nil {
			res.Valid = false
			res.Error = err.Error()
			failed++
		} else if inst.Incomplete {
			res.Incomplete = true
			if opts.Strict {
				res.Valid = false
				failed++
			}
		}
		for _, d := range diags {
			res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("%s: %s", d.Constraint, d.Message))
		}
		results = append(results, res)

		if r.EffectiveMode() != output.ModeJSON && r.EffectiveMode() != output.ModeYAML {
			renderValidateResult(r, res, diags)
		}
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(results); err != nil {
			return err
		}
	case output.ModeYAML:
		if err := r.YAML(results); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed validation", failed, len(inputs))
	}
	return nil
}

func renderValidateResult(r *output.Renderer, res ValidateJSONResult, diags []ir.Diagnostic) {
	styles := r.Styles()
	switch {
	case !res.Valid && res.Error != "":
		r.Printf("%s %s: %s\n", styles.Error.Render("✗"), res.Input, res.Error)
	case res.Incomplete:
		r.Printf("%s %s: valid, with unsupported constraints\n", styles.Warning.Render("!"), res.Input)
	default:
		r.Printf("%s %s\n", styles.Success.Render("✓"), res.Input)
	}
	renderDiagnostics(r, res.Input, diags)
}
