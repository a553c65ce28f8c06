package transform

import "github.com/cspkit/xcsp2cpo/pkg/ir"

// Pipeline runs the transformation stages over one instance in order:
// Normalize, Decompose, Rewrite. Legacy mode stops after normalization,
// leaving constraints in their source shape.
type Pipeline struct {
	Vocab  Vocabulary
	Legacy bool
}

// Transform mutates the instance in place and returns the diagnostics
// accumulated by the stages. A non-nil error means the instance is
// structurally unusable and no output should be produced for it.
func (p Pipeline) Transform(inst *ir.Instance) ([]ir.Diagnostic, error) {
	if err := Normalize(inst); err != nil {
		return nil, err
	}
	if p.Legacy {
		return nil, nil
	}
	diags, err := Decompose(inst, p.Vocab)
	if err != nil {
		return diags, err
	}
	Rewrite(inst, p.Vocab)
	return diags, nil
}
