package parser

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz/lzma"

	"github.com/cspkit/xcsp2cpo/pkg/ir"
)

// Parse reads an XCSP3 document and builds the instance. Diagnostics
// report constructs that were kept or skipped without failing the parse;
// they are returned even when the error is non-nil, covering everything
// found up to the failure point.
func Parse(r io.Reader) (*ir.Instance, []ir.Diagnostic, error) {
	var root element
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, nil, fmt.Errorf("decode xml: %w", err)
	}
	if root.name() != "instance" {
		return nil, nil, &ParseError{Element: root.name(), Message: "expected an <instance> document"}
	}
	typ, ok := ir.ParseProblemType(root.attr("type"))
	if !ok {
		return nil, nil, &ParseError{Element: "instance", Message: fmt.Sprintf("unknown instance type %q", root.attr("type"))}
	}

	p := &parser{inst: ir.NewInstance(typ)}
	if vars := root.child("variables"); vars != nil {
		if err := p.parseVariables(vars); err != nil {
			return nil, p.diags, err
		}
	}
	if cons := root.child("constraints"); cons != nil {
		if err := p.parseConstraints(cons); err != nil {
			return nil, p.diags, err
		}
	}
	if objs := root.child("objectives"); objs != nil {
		if err := p.parseObjectives(objs); err != nil {
			return nil, p.diags, err
		}
	}
	return p.inst, p.diags, nil
}

// ParseString parses an XCSP3 document held in a string.
func ParseString(s string) (*ir.Instance, []ir.Diagnostic, error) {
	return Parse(strings.NewReader(s))
}

// ParseFile parses an XCSP3 document from disk. Files ending in .lzma
// are decompressed on the fly, matching how competition instances are
// distributed.
func ParseFile(path string) (*ir.Instance, []ir.Diagnostic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, ".lzma") {
		lr, err := lzma.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("open lzma stream %s: %w", path, err)
		}
		r = lr
	}
	return Parse(r)
}

// parser accumulates the instance and its diagnostics while walking the
// element tree.
type parser struct {
	inst  *ir.Instance
	diags []ir.Diagnostic
}

func (p *parser) diag(kind ir.Kind, subject string, sev ir.Severity, format string, args ...any) {
	p.diags = append(p.diags, ir.Diagnostic{
		Constraint: subject,
		Kind:       kind,
		Severity:   sev,
		Message:    fmt.Sprintf(format, args...),
	})
}

// ---------- Variables ----------

func (p *parser) parseVariables(e *element) error {
	for i := range e.Children {
		child := &e.Children[i]
		switch child.name() {
		case "var":
			if err := p.parseVar(child); err != nil {
				return err
			}
		case "array":
			if err := p.parseArray(child); err != nil {
				return err
			}
		default:
			p.diag(ir.Kind(child.name()), child.attr("id"), ir.SeverityWarning,
				"unknown declaration <%s> skipped", child.name())
		}
	}
	return nil
}

func (p *parser) parseVar(e *element) error {
	id := e.attr("id")
	if id == "" {
		return &ParseError{Element: "var", Message: "missing id attribute"}
	}
	if t := e.attr("type"); t != "" && t != "integer" {
		p.diag("var", id, ir.SeverityWarning, "variable %s has unsupported type %q; skipped", id, t)
		p.inst.Incomplete = true
		return nil
	}
	dom, err := p.declaredDomain(e, id)
	if err != nil {
		return err
	}
	return p.inst.AddVariable(&ir.Variable{ID: id, Domain: dom})
}

func (p *parser) parseArray(e *element) error {
	id := e.attr("id")
	if id == "" {
		return &ParseError{Element: "array", Message: "missing id attribute"}
	}
	if t := e.attr("type"); t != "" && t != "integer" {
		p.diag("array", id, ir.SeverityWarning, "array %s has unsupported type %q; skipped", id, t)
		p.inst.Incomplete = true
		return nil
	}
	if e.child("domain") != nil {
		// <domain for="..."> gives cells distinct domains
		p.diag("array", id, ir.SeverityWarning, "array %s uses per-cell domains; skipped", id)
		p.inst.Incomplete = true
		return nil
	}
	size, err := parseArraySize(e.attr("size"))
	if err != nil {
		return &ParseError{Element: "array", Message: fmt.Sprintf("array %s: %v", id, err)}
	}
	start := 0
	if s := e.attr("startIndex"); s != "" {
		start, err = strconv.Atoi(s)
		if err != nil {
			return &ParseError{Element: "array", Message: fmt.Sprintf("array %s: invalid startIndex %q", id, s)}
		}
	}
	dom, err := p.declaredDomain(e, id)
	if err != nil {
		return err
	}
	return p.inst.AddArray(&ir.Array{ID: id, Size: size, StartIndex: start, Domain: dom})
}

// declaredDomain resolves the domain of a var or array declaration,
// following the "as" aliasing attribute when present. An empty element
// yields an empty domain, which the normalizer rejects with a precise
// message.
func (p *parser) declaredDomain(e *element, id string) (ir.Domain, error) {
	if as := e.attr("as"); as != "" {
		if v, ok := p.inst.Variable(as); ok {
			return v.Domain, nil
		}
		if a, ok := p.inst.Array(as); ok {
			return a.Domain, nil
		}
		return ir.Domain{}, &ParseError{
			Element: e.name(),
			Message: fmt.Sprintf("%s: as=%q does not name an earlier declaration", id, as),
		}
	}
	text := e.text()
	if text == "" {
		return ir.Domain{}, nil
	}
	dom, err := ir.ParseDomain(text)
	if err != nil {
		return ir.Domain{}, &ParseError{Element: e.name(), Message: fmt.Sprintf("%s: %v", id, err)}
	}
	return dom, nil
}

// parseArraySize parses a size attribute such as "[10]" or "[3][4]".
func parseArraySize(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("missing size attribute")
	}
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("invalid size %q", s)
	}
	parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(s, "["), "]"), "][")
	dims := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid size %q", s)
		}
		dims = append(dims, n)
	}
	return dims, nil
}

// ---------- Objectives ----------

func (p *parser) parseObjectives(e *element) error {
	for i := range e.Children {
		child := &e.Children[i]
		switch child.name() {
		case "minimize":
			if err := p.parseObjective(child, true); err != nil {
				return err
			}
		case "maximize":
			if err := p.parseObjective(child, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *parser) parseObjective(e *element, minimize bool) error {
	typ := strings.ToLower(strings.TrimSpace(e.attr("type")))
	if typ == "" {
		typ = "expression"
	}
	if typ == "lex" {
		p.diag("objective", e.attr("id"), ir.SeverityWarning,
			"lexicographic objectives are not supported; objective dropped")
		p.inst.Incomplete = true
		return nil
	}

	var target ir.Expr
	if list := e.child("list"); list != nil {
		args, err := p.operandList(list.text())
		if err != nil {
			return p.objectiveFlagged(e, err)
		}
		var coeffs []int
		if c := e.child("coeffs"); c != nil {
			coeffs, err = parseInts(c.text())
			if err != nil {
				return &ParseError{Element: "coeffs", Message: err.Error()}
			}
		}
		target = &ir.Aggregate{Kind: p.objectiveKind(e, typ), Args: args, Coeffs: coeffs}
	} else {
		text := e.text()
		if text == "" {
			return &ParseError{Element: e.name(), Message: "empty objective"}
		}
		if typ == "expression" {
			expr, err := ParseExpr(text)
			if err != nil {
				return p.objectiveFlagged(e, err)
			}
			target = expr
		} else {
			args, err := p.operandList(text)
			if err != nil {
				return p.objectiveFlagged(e, err)
			}
			target = &ir.Aggregate{Kind: p.objectiveKind(e, typ), Args: args}
		}
	}
	return p.inst.SetObjective(&ir.Objective{Minimize: minimize, Target: target})
}

// objectiveFlagged drops the objective over a recoverable construct
// error, or propagates anything structural.
func (p *parser) objectiveFlagged(e *element, err error) error {
	if note, ok := recoverable(err); ok {
		p.diag("objective", e.attr("id"), ir.SeverityWarning, "objective dropped: %s", note)
		p.inst.Incomplete = true
		return nil
	}
	return err
}

func (p *parser) objectiveKind(e *element, typ string) ir.AggKind {
	switch typ {
	case "sum", "expression":
		return ir.AggSum
	case "product":
		return ir.AggProduct
	case "minimum":
		return ir.AggMinimum
	case "maximum":
		return ir.AggMaximum
	case "nvalues":
		return ir.AggNValues
	default:
		p.diag("objective", e.attr("id"), ir.SeverityWarning,
			"unknown objective type %q treated as sum", typ)
		return ir.AggSum
	}
}

// ---------- Shared token helpers ----------

// operandList parses whitespace- or comma-separated operands: integers,
// variable and cell references, %i placeholders, and array shorthands
// such as x[], x[1..3] or a bare array name.
func (p *parser) operandList(text string) ([]ir.Expr, error) {
	fields := strings.Fields(strings.ReplaceAll(text, ",", " "))
	out := make([]ir.Expr, 0, len(fields))
	for _, tok := range fields {
		expr, err := ParseExpr(tok)
		if err != nil {
			return nil, err
		}
		if v, ok := expr.(*ir.VarRef); ok {
			if _, isArray := p.inst.Array(v.Name); isArray {
				expr = &ir.ArrayRef{Name: v.Name}
			}
		}
		out = append(out, expr)
	}
	return out, nil
}

// parseInts parses a whitespace-separated integer list.
func parseInts(text string) ([]int, error) {
	fields := strings.Fields(text)
	out := make([]int, 0, len(fields))
	for _, tok := range fields {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", tok)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseTuples parses an extension table: "(0,1,0)(1,0,0)" for n-ary
// scopes, or "1 2 5..8" for unary ones. The XCSP3 "*" shorthand yields
// errShortTuple.
func parseTuples(s string) ([][]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if !strings.Contains(s, "(") {
		return parseUnaryTuples(s)
	}

	var tuples [][]int
	for i := 0; i < len(s); {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			break
		}
		if s[i] != '(' {
			return nil, fmt.Errorf("invalid tuple list near %q", s[i:])
		}
		end := strings.IndexByte(s[i:], ')')
		if end < 0 {
			return nil, fmt.Errorf("unterminated tuple near %q", s[i:])
		}
		inner := s[i+1 : i+end]
		i += end + 1

		parts := strings.Split(inner, ",")
		tup := make([]int, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "*" {
				return nil, errShortTuple
			}
			v, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid tuple value %q", part)
			}
			tup = append(tup, v)
		}
		tuples = append(tuples, tup)
	}
	return tuples, nil
}

// parseUnaryTuples expands the unary table form "1 2 5..8" into
// single-value tuples.
func parseUnaryTuples(s string) ([][]int, error) {
	var tuples [][]int
	for _, tok := range strings.Fields(s) {
		if tok == "*" {
			return nil, errShortTuple
		}
		if before, after, found := strings.Cut(tok, ".."); found {
			lo, err := strconv.Atoi(before)
			if err != nil {
				return nil, fmt.Errorf("invalid tuple value %q", tok)
			}
			hi, err := strconv.Atoi(after)
			if err != nil {
				return nil, fmt.Errorf("invalid tuple value %q", tok)
			}
			if lo > hi {
				return nil, fmt.Errorf("inverted tuple range %q", tok)
			}
			for v := lo; v <= hi; v++ {
				tuples = append(tuples, []int{v})
			}
			continue
		}
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("invalid tuple value %q", tok)
		}
		tuples = append(tuples, []int{v})
	}
	return tuples, nil
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
