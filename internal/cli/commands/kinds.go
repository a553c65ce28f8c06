package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cspkit/xcsp2cpo/internal/cli/output"
	"github.com/cspkit/xcsp2cpo/pkg/cpo"
	"github.com/cspkit/xcsp2cpo/pkg/ir"
)

// kindSupport describes how the converter handles one constraint kind.
type kindSupport struct {
	Kind    string `json:"kind"`
	Group   string `json:"group"`
	Support string `json:"support"` // direct, decomposed, unsupported
}

// kindGroups assigns each XCSP3 constraint kind to its catalogue group,
// in display order.
var kindGroups = []struct {
	group string
	kinds []string
}{
	{"generic", []string{"intension", "extension"}},
	{"comparison", []string{"allDifferent", "allEqual", "ordered"}},
	{"counting", []string{"sum", "count", "nValues", "cardinality"}},
	{"connection", []string{"minimum", "maximum", "element", "channel"}},
	{"elementary", []string{"instantiation"}},
	{"scheduling", []string{"cumulative", "noOverlap", "stretch"}},
	{"graph", []string{"circuit", "path", "tree"}},
	{"packing", []string{"binPacking", "knapsack"}},
	{"language", []string{"regular", "mdd"}},
}

// NewKindsCommand creates the kinds command.
func NewKindsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "Show constraint-kind support",
		Long: `List every XCSP3 constraint kind the converter knows about and how
it is handled: rendered directly as one CP Optimizer construct,
decomposed into supported constraints, or flagged as unsupported.`,
		Example: `  # Show the support table
  xcsp2cpo kinds

  # Machine-readable
  xcsp2cpo kinds -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runKinds(cmd)
		},
	}
}

func supportOf(kind string) string {
	k := ir.Kind(kind)
	if cpo.Optimizer.Supports(k) {
		return "direct"
	}
	for _, e := range cpo.Optimizer.Expansions() {
		if e == k {
			return "decomposed"
		}
	}
	return "unsupported"
}

func allKinds() []kindSupport {
	var out []kindSupport
	for _, g := range kindGroups {
		for _, kind := range g.kinds {
			out = append(out, kindSupport{Kind: kind, Group: g.group, Support: supportOf(kind)})
		}
	}
	return out
}

func runKinds(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer
	kinds := allKinds()

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(kinds)
	case output.ModeYAML:
		return r.YAML(kinds)
	case output.ModeMarkdown:
		return renderKindsMarkdown(r, kinds)
	default:
		return renderKindsText(r, kinds)
	}
}

func renderKindsText(r *output.Renderer, kinds []kindSupport) error {
	styles := r.Styles()
	titleCaser := cases.Title(language.English)

	r.Println("")
	r.Println(styles.Header1.Render("Constraint Kinds"))

	currentGroup := ""
	var t table.Writer
	flush := func() {
		if t != nil {
			t.Render()
		}
	}
	for _, k := range kinds {
		if k.Group != currentGroup {
			flush()
			currentGroup = k.Group
			r.Println("")
			r.Println(styles.Header2.Render(titleCaser.String(currentGroup)))
			t = table.NewWriter()
			t.SetOutputMirror(r.Writer())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Kind", "Support"})
		}
		support := k.Support
		switch support {
		case "direct":
			support = styles.Success.Render(support)
		case "decomposed":
			support = styles.Info.Render(support)
		default:
			support = styles.Warning.Render(support)
		}
		t.AppendRow(table.Row{k.Kind, support})
	}
	flush()

	r.Println("")
	r.Println(styles.Muted.Render("decomposed kinds are rewritten into conjunctions of direct kinds"))
	return nil
}

func renderKindsMarkdown(r *output.Renderer, kinds []kindSupport) error {
	titleCaser := cases.Title(language.English)

	r.Println("# Constraint Kinds")
	currentGroup := ""
	for _, k := range kinds {
		if k.Group != currentGroup {
			currentGroup = k.Group
			r.Println("")
			r.Println("## " + titleCaser.String(currentGroup))
			r.Println("")
			r.Println("| Kind | Support |")
			r.Println("| --- | --- |")
		}
		r.Printf("| %s | %s |\n", k.Kind, k.Support)
	}
	r.Println("")
	return nil
}
