package cpo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cspkit/xcsp2cpo/pkg/ir"
)

// opSpelling maps expression operators onto CP Optimizer tokens. iff
// and xor have no operator of their own; over booleans they coincide
// with == and !=.
var opSpelling = map[ir.Op]string{
	ir.OpAdd: "+",
	ir.OpSub: "-",
	ir.OpMul: "*",
	ir.OpDiv: "/",
	ir.OpMod: "%",
	ir.OpPow: "^",
	ir.OpLt:  "<",
	ir.OpLe:  "<=",
	ir.OpGt:  ">",
	ir.OpGe:  ">=",
	ir.OpEq:  "==",
	ir.OpNe:  "!=",
	ir.OpAnd: "&&",
	ir.OpOr:  "||",
	ir.OpImp: "=>",
	ir.OpIff: "==",
	ir.OpXor: "!=",
}

func relSpelling(op ir.RelOp) string {
	switch op {
	case ir.RelLt:
		return "<"
	case ir.RelLe:
		return "<="
	case ir.RelGt:
		return ">"
	case ir.RelGe:
		return ">="
	case ir.RelNe:
		return "!="
	default:
		return "=="
	}
}

// printer renders expressions and declarations. It keeps the instance
// at hand so whole-array operand lists can print as the bare array
// name.
type printer struct {
	inst *ir.Instance
}

// expr renders an expression in infix form. Binary and n-ary nodes are
// parenthesized so a printed intension is unambiguous without
// precedence rules; the printer is total over the expression union.
func (p *printer) expr(e ir.Expr) string {
	switch e := e.(type) {
	case *ir.Const:
		return strconv.Itoa(e.Value)
	case *ir.VarRef:
		return e.Name
	case *ir.Param:
		return fmt.Sprintf("%%%d", e.Index)
	case *ir.ArrayRef:
		return p.arrayRef(e)
	case *ir.Unary:
		switch e.Op {
		case ir.OpAbs:
			return "abs(" + p.bare(e.X) + ")"
		case ir.OpNeg:
			return "(-" + p.expr(e.X) + ")"
		case ir.OpNot:
			return "(!" + p.expr(e.X) + ")"
		default:
			return e.Op.String() + "(" + p.expr(e.X) + ")"
		}
	case *ir.Binary:
		if e.Op == ir.OpDist {
			return "abs(" + p.expr(e.Left) + " - " + p.expr(e.Right) + ")"
		}
		if sp, ok := opSpelling[e.Op]; ok {
			return "(" + p.expr(e.Left) + " " + sp + " " + p.expr(e.Right) + ")"
		}
		return e.Op.String() + "(" + p.expr(e.Left) + ", " + p.expr(e.Right) + ")"
	case *ir.NAry:
		if sp, ok := opSpelling[e.Op]; ok {
			parts := make([]string, len(e.Args))
			for i, a := range e.Args {
				parts[i] = p.expr(a)
			}
			return "(" + strings.Join(parts, " "+sp+" ") + ")"
		}
		return e.Op.String() + "(" + p.list(e.Args) + ")"
	case *ir.Conditional:
		return "(" + p.expr(e.Cond) + " ? " + p.expr(e.Then) + " : " + p.expr(e.Else) + ")"
	case *ir.Aggregate:
		return p.aggregate(e)
	default:
		return fmt.Sprintf("/* %T */", e)
	}
}

// bare drops the outer parentheses of an operand that sits alone inside
// a function call, so dist prints as abs(x - y) rather than
// abs((x - y)).
func (p *printer) bare(e ir.Expr) string {
	s := p.expr(e)
	switch e.(type) {
	case *ir.Binary, *ir.NAry:
		if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func (p *printer) aggregate(a *ir.Aggregate) string {
	switch a.Kind {
	case ir.AggSum:
		if len(a.Coeffs) == len(a.Args) && len(a.Coeffs) > 0 {
			return p.weighted(a.Args, a.Coeffs)
		}
		return "sum([" + p.list(a.Args) + "])"
	case ir.AggProduct:
		parts := make([]string, len(a.Args))
		for i, arg := range a.Args {
			parts[i] = p.expr(arg)
		}
		return strings.Join(parts, " * ")
	case ir.AggMinimum:
		return "min([" + p.list(a.Args) + "])"
	case ir.AggMaximum:
		return "max([" + p.list(a.Args) + "])"
	case ir.AggNValues:
		return "numberOfDifferentValues([" + p.list(a.Args) + "])"
	default:
		return "sum([" + p.list(a.Args) + "])"
	}
}

// weighted renders a linear combination with literal coefficient order
// preserved; unit coefficients print the bare term.
func (p *printer) weighted(args []ir.Expr, coeffs []int) string {
	terms := make([]string, len(args))
	for i, arg := range args {
		if coeffs[i] == 1 {
			terms[i] = p.expr(arg)
			continue
		}
		terms[i] = strconv.Itoa(coeffs[i]) + "*" + p.expr(arg)
	}
	return strings.Join(terms, " + ")
}

// list renders expressions joined with commas, without brackets.
func (p *printer) list(exprs []ir.Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = p.expr(e)
	}
	return strings.Join(parts, ", ")
}

// operand renders a list either as the bare array name, when the list
// is exactly one array's cells in order, or as a bracketed literal.
func (p *printer) operand(exprs []ir.Expr) string {
	if name, ok := p.wholeArray(exprs); ok {
		return name
	}
	return "[" + p.list(exprs) + "]"
}

func (p *printer) wholeArray(exprs []ir.Expr) (string, bool) {
	if p.inst == nil || len(exprs) == 0 {
		return "", false
	}
	first, ok := exprs[0].(*ir.VarRef)
	if !ok {
		return "", false
	}
	name, _, found := strings.Cut(first.Name, "[")
	if !found {
		return "", false
	}
	arr, ok := p.inst.Array(name)
	if !ok || len(arr.Cells) != len(exprs) {
		return "", false
	}
	for i, e := range exprs {
		v, ok := e.(*ir.VarRef)
		if !ok || v.Name != arr.Cells[i] {
			return "", false
		}
	}
	return arr.ID, true
}

// arrayRef renders an unexpanded array reference. These never survive
// normalization; the form is only for raw-instance debugging output.
func (p *printer) arrayRef(ref *ir.ArrayRef) string {
	var b strings.Builder
	b.WriteString(ref.Name)
	for _, sel := range ref.Index {
		if sel.All {
			b.WriteString("[]")
			continue
		}
		if sel.Lo == sel.Hi {
			fmt.Fprintf(&b, "[%d]", sel.Lo)
			continue
		}
		fmt.Fprintf(&b, "[%d..%d]", sel.Lo, sel.Hi)
	}
	return b.String()
}

// condition completes a constraint around an already-rendered subject
// expression. A range condition splits into two bound statements; an
// excluded range prints as a disjunction.
func (p *printer) condition(subject string, cond ir.Condition) []string {
	switch cond.Op {
	case ir.RelIn:
		return []string{
			fmt.Sprintf("%s >= %d;", subject, cond.Lo),
			fmt.Sprintf("%s <= %d;", subject, cond.Hi),
		}
	case ir.RelNotIn:
		return []string{fmt.Sprintf("%s < %d || %s > %d;", subject, cond.Lo, subject, cond.Hi)}
	default:
		if cond.Bound == nil {
			return []string{subject + ";"}
		}
		return []string{subject + " " + relSpelling(cond.Op) + " " + p.expr(cond.Bound) + ";"}
	}
}

// domainString renders a domain: ranges first, then the values no range
// already covers. A degenerate range prints as its single value.
func domainString(d ir.Domain) string {
	parts := make([]string, 0, len(d.Ranges)+len(d.Values))
	for _, r := range d.Ranges {
		if r.Lo == r.Hi {
			parts = append(parts, strconv.Itoa(r.Lo))
			continue
		}
		parts = append(parts, fmt.Sprintf("%d..%d", r.Lo, r.Hi))
	}
	for _, v := range d.Values {
		covered := false
		for _, r := range d.Ranges {
			if r.Lo <= v && v <= r.Hi {
				covered = true
				break
			}
		}
		if !covered {
			parts = append(parts, strconv.Itoa(v))
		}
	}
	if len(parts) == 0 {
		return "0..0"
	}
	return strings.Join(parts, ", ")
}
