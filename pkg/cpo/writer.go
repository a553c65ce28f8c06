package cpo

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cspkit/xcsp2cpo/pkg/ir"
)

// Write renders the instance and writes it to w. The output always ends
// with a newline.
func (t *Target) Write(w io.Writer, inst *ir.Instance) error {
	s, err := t.Format(inst)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}

// Format renders the instance as a complete model text: a variables
// section, a constraints section, and an objective section when the
// instance carries one.
func (t *Target) Format(inst *ir.Instance) (string, error) {
	var b strings.Builder
	p := &printer{inst: inst}

	b.WriteString("// Variables\n")
	for _, v := range inst.Variables {
		if v.Owner != "" {
			continue
		}
		fmt.Fprintf(&b, "%s = intVar(%s);\n", v.ID, domainString(v.Domain))
	}
	for _, a := range inst.Arrays {
		b.WriteString(arrayDecl(p, a))
		b.WriteByte('\n')
	}

	b.WriteString("\n// Constraints\n")
	for _, c := range inst.Constraints {
		if u, ok := c.(*ir.Unsupported); ok {
			kind := u.RawKind
			if kind == "" {
				kind = "unknown"
			}
			b.WriteString("// unsupported: " + kind + "\n")
			continue
		}
		fn, ok := t.renderer(c.Kind())
		if !ok {
			return "", fmt.Errorf("no %s rendering for constraint kind %q", t.name, c.Kind())
		}
		lines, err := fn(p, c)
		if err != nil {
			return "", err
		}
		for _, line := range lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	if inst.Objective != nil && inst.Objective.Target != nil {
		b.WriteString("\n// Objective\n")
		fn := "maximize"
		if inst.Objective.Minimize {
			fn = "minimize"
		}
		b.WriteString(fn + "(" + p.expr(inst.Objective.Target) + ");\n")
	}

	return b.String(), nil
}

// Format renders the instance with the Optimizer target.
func Format(inst *ir.Instance) (string, error) {
	return Optimizer.Format(inst)
}

// arrayDecl renders an array as one positional declaration. Cell
// domains come from the expanded cell variables when the normalizer has
// run; otherwise the declared array domain repeats.
func arrayDecl(p *printer, a *ir.Array) string {
	var cells []string
	if len(a.Cells) > 0 {
		cells = make([]string, 0, len(a.Cells))
		for _, id := range a.Cells {
			d := a.Domain
			if v, ok := p.inst.Variable(id); ok {
				d = v.Domain
			}
			cells = append(cells, "intVar("+domainString(d)+")")
		}
	} else {
		cells = make([]string, 0, a.Len())
		for i := 0; i < a.Len(); i++ {
			cells = append(cells, "intVar("+domainString(a.Domain)+")")
		}
	}
	return fmt.Sprintf("%s = [%s];", a.ID, strings.Join(cells, ", "))
}

// ---------- Constraint renderers ----------

func badNode(want string, c ir.Constraint) error {
	return fmt.Errorf("cannot render %T as %s", c, want)
}

func renderIntension(p *printer, c ir.Constraint) ([]string, error) {
	con, ok := c.(*ir.Intension)
	if !ok {
		return nil, badNode("intension", c)
	}
	return []string{p.expr(con.Predicate) + ";"}, nil
}

func renderExtension(p *printer, c ir.Constraint) ([]string, error) {
	con, ok := c.(*ir.Extension)
	if !ok {
		return nil, badNode("extension", c)
	}
	fn := "allowedAssignments"
	if con.Conflicts {
		fn = "forbiddenAssignments"
	}
	tuples := make([]string, len(con.Tuples))
	for i, t := range con.Tuples {
		vals := make([]string, len(t))
		for j, v := range t {
			vals[j] = strconv.Itoa(v)
		}
		tuples[i] = "(" + strings.Join(vals, ", ") + ")"
	}
	return []string{fmt.Sprintf("%s([%s], [%s]);", fn, p.list(con.Scope), strings.Join(tuples, ", "))}, nil
}

func renderAllDifferent(p *printer, c ir.Constraint) ([]string, error) {
	con, ok := c.(*ir.AllDifferent)
	if !ok {
		return nil, badNode("allDifferent", c)
	}
	return []string{"alldiff([" + p.list(con.List) + "]);"}, nil
}

// renderAllEqual chains adjacent equalities, matching what the
// decomposition produces, so legacy output and pipeline output agree.
func renderAllEqual(p *printer, c ir.Constraint) ([]string, error) {
	con, ok := c.(*ir.AllEqual)
	if !ok {
		return nil, badNode("allEqual", c)
	}
	if len(con.List) < 2 {
		return nil, nil
	}
	lines := make([]string, 0, len(con.List)-1)
	for i := 0; i+1 < len(con.List); i++ {
		lines = append(lines, p.expr(con.List[i])+" == "+p.expr(con.List[i+1])+";")
	}
	return lines, nil
}

func renderOrdered(p *printer, c ir.Constraint) ([]string, error) {
	con, ok := c.(*ir.Ordered)
	if !ok {
		return nil, badNode("ordered", c)
	}
	if len(con.List) < 2 {
		return nil, nil
	}
	op := relSpelling(con.Op)
	lines := make([]string, 0, len(con.List)-1)
	for i := 0; i+1 < len(con.List); i++ {
		lines = append(lines, p.expr(con.List[i])+" "+op+" "+p.expr(con.List[i+1])+";")
	}
	return lines, nil
}

func renderSum(p *printer, c ir.Constraint) ([]string, error) {
	con, ok := c.(*ir.Sum)
	if !ok {
		return nil, badNode("sum", c)
	}
	var subject string
	if len(con.Coeffs) == len(con.Terms) && len(con.Coeffs) > 0 {
		subject = p.weighted(con.Terms, con.Coeffs)
	} else {
		subject = "sum([" + p.list(con.Terms) + "])"
	}
	return p.condition(subject, con.Cond), nil
}

func renderCount(p *printer, c ir.Constraint) ([]string, error) {
	con, ok := c.(*ir.Count)
	if !ok {
		return nil, badNode("count", c)
	}
	subject := fmt.Sprintf("count([%s], %s)", p.list(con.List), p.expr(con.Value))
	return p.condition(subject, con.Cond), nil
}

func renderNValues(p *printer, c ir.Constraint) ([]string, error) {
	con, ok := c.(*ir.NValues)
	if !ok {
		return nil, badNode("nValues", c)
	}
	subject := "numberOfDifferentValues([" + p.list(con.List) + "])"
	return p.condition(subject, con.Cond), nil
}

func renderCardinality(p *printer, c ir.Constraint) ([]string, error) {
	con, ok := c.(*ir.Cardinality)
	if !ok {
		return nil, badNode("cardinality", c)
	}
	values := make([]string, len(con.Values))
	for i, v := range con.Values {
		values[i] = strconv.Itoa(v)
	}
	return []string{fmt.Sprintf("distribute([%s], [%s], [%s]);",
		p.list(con.Occurs), strings.Join(values, ", "), p.list(con.List))}, nil
}

func renderMinimum(p *printer, c ir.Constraint) ([]string, error) {
	con, ok := c.(*ir.Minimum)
	if !ok {
		return nil, badNode("minimum", c)
	}
	return p.condition("min(["+p.list(con.List)+"])", con.Cond), nil
}

func renderMaximum(p *printer, c ir.Constraint) ([]string, error) {
	con, ok := c.(*ir.Maximum)
	if !ok {
		return nil, badNode("maximum", c)
	}
	return p.condition("max(["+p.list(con.List)+"])", con.Cond), nil
}

func renderElement(p *printer, c ir.Constraint) ([]string, error) {
	con, ok := c.(*ir.Element)
	if !ok {
		return nil, badNode("element", c)
	}
	return []string{fmt.Sprintf("element(%s, %s) == %s;",
		p.operand(con.List), p.expr(con.Index), p.expr(con.Value))}, nil
}

func renderChannel(p *printer, c ir.Constraint) ([]string, error) {
	con, ok := c.(*ir.Channel)
	if !ok {
		return nil, badNode("channel", c)
	}
	if len(con.A) != len(con.B) {
		return nil, &ir.MalformedInstanceError{
			Subject: subject(con),
			Message: fmt.Sprintf(ir.ErrChannelLength, len(con.A), len(con.B)),
		}
	}
	lines := make([]string, 0, len(con.A)*len(con.B))
	for i, a := range con.A {
		for j, bb := range con.B {
			lines = append(lines, fmt.Sprintf("(%s == %d) == (%s == %d);", p.expr(a), j, p.expr(bb), i))
		}
	}
	return lines, nil
}

func renderInstantiation(p *printer, c ir.Constraint) ([]string, error) {
	con, ok := c.(*ir.Instantiation)
	if !ok {
		return nil, badNode("instantiation", c)
	}
	if len(con.List) != len(con.Values) {
		return nil, &ir.MalformedInstanceError{
			Subject: subject(con),
			Message: fmt.Sprintf("%d variables for %d values", len(con.List), len(con.Values)),
		}
	}
	lines := make([]string, 0, len(con.List))
	for i, v := range con.List {
		lines = append(lines, fmt.Sprintf("%s == %d;", p.expr(v), con.Values[i]))
	}
	return lines, nil
}

func subject(c ir.Constraint) string {
	type ident interface{ GetID() string }
	if id, ok := c.(ident); ok && id.GetID() != "" {
		return id.GetID()
	}
	return string(c.Kind())
}
