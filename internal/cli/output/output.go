// Package output renders command results in terminal, markdown, and
// machine-readable formats. The auto mode picks styled text on a TTY
// and markdown when output is piped.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Mode selects an output format.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
	ModeYAML     Mode = "yaml"
)

// ValidModes lists the accepted --output values.
func ValidModes() []string {
	return []string{string(ModeAuto), string(ModeText), string(ModeMarkdown), string(ModeJSON), string(ModeYAML)}
}

// Renderer writes command output in the selected mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	styles *Styles
}

// NewRenderer creates a renderer. An unknown mode falls back to auto.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	switch mode {
	case ModeText, ModeMarkdown, ModeJSON, ModeYAML:
	default:
		mode = ModeAuto
	}
	return &Renderer{out: out, errOut: errOut, mode: mode, styles: DefaultStyles()}
}

// EffectiveMode resolves auto against the output destination: styled
// text for a terminal, markdown otherwise.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if f, ok := r.out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return ModeText
	}
	return ModeMarkdown
}

// Writer returns the destination writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the error destination writer.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

// Styles returns the lipgloss styles used in text mode.
func (r *Renderer) Styles() *Styles { return r.styles }

// Println writes a line to the output.
func (r *Renderer) Println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

// Printf writes formatted output.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Errorf writes formatted output to the error destination.
func (r *Renderer) Errorf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.errOut, format, args...)
}

// JSON encodes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML encodes v as YAML.
func (r *Renderer) YAML(v any) error {
	enc := yaml.NewEncoder(r.out)
	defer func() { _ = enc.Close() }()
	return enc.Encode(v)
}
