package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cspkit/xcsp2cpo/pkg/ir"
)

func (p *parser) parseConstraints(e *element) error {
	for i := range e.Children {
		cs, err := p.parseConstraint(&e.Children[i])
		if err != nil {
			return err
		}
		p.inst.Constraints = append(p.inst.Constraints, cs...)
	}
	return nil
}

// parseConstraint handles one child of <constraints>. Blocks flatten
// into their contents; everything else yields a single constraint.
func (p *parser) parseConstraint(e *element) ([]ir.Constraint, error) {
	switch e.name() {
	case "block":
		var out []ir.Constraint
		for i := range e.Children {
			cs, err := p.parseConstraint(&e.Children[i])
			if err != nil {
				return nil, err
			}
			out = append(out, cs...)
		}
		return out, nil
	case "group":
		g, err := p.parseGroup(e)
		if err != nil {
			return nil, err
		}
		return []ir.Constraint{g}, nil
	default:
		c, err := p.parseSimple(e)
		if err != nil {
			return nil, err
		}
		return []ir.Constraint{c}, nil
	}
}

// parseSimple dispatches on the element name. Unrecognized elements are
// retained as Unsupported nodes so the decomposer can report them with
// the instance still intact.
func (p *parser) parseSimple(e *element) (ir.Constraint, error) {
	info := ir.ConstraintInfo{ID: e.attr("id")}
	switch e.name() {
	case "intension":
		return p.parseIntension(e, info)
	case "extension":
		return p.parseExtension(e, info)
	case "allDifferent":
		return p.parseAllDifferent(e, info)
	case "allEqual":
		return p.parseAllEqual(e, info)
	case "ordered":
		return p.parseOrdered(e, info)
	case "sum":
		return p.parseSum(e, info)
	case "count":
		return p.parseCount(e, info)
	case "nValues":
		return p.parseNValues(e, info)
	case "cardinality":
		return p.parseCardinality(e, info)
	case "minimum":
		return p.parseMinMax(e, info, false)
	case "maximum":
		return p.parseMinMax(e, info, true)
	case "element":
		return p.parseElement(e, info)
	case "channel":
		return p.parseChannel(e, info)
	case "instantiation":
		return p.parseInstantiation(e, info)
	default:
		return p.unsupported(e, info, ""), nil
	}
}

// unsupported retains an untranslatable constraint, recovering operands
// on a best-effort basis so reports can name the variables involved.
func (p *parser) unsupported(e *element, info ir.ConstraintInfo, note string) *ir.Unsupported {
	var ops []ir.Expr
	text := e.childText("list")
	if text == "" {
		text = e.text()
	}
	if text != "" {
		if parsed, err := p.operandList(text); err == nil {
			ops = parsed
		}
	}
	return &ir.Unsupported{ConstraintInfo: info, RawKind: e.name(), Note: note, List: ops}
}

// flagOr converts recoverable construct errors into an Unsupported
// retention and propagates everything else as fatal.
func (p *parser) flagOr(e *element, info ir.ConstraintInfo, err error) (ir.Constraint, error) {
	if note, ok := recoverable(err); ok {
		return p.unsupported(e, info, note), nil
	}
	return nil, err
}

// requireList parses the constraint's <list> child, falling back to the
// element's own text when the child is omitted.
func (p *parser) requireList(e *element, kind string) ([]ir.Expr, error) {
	text := e.childText("list")
	if text == "" {
		text = e.text()
	}
	if text == "" {
		return nil, &ParseError{Element: kind, Message: "missing <list>"}
	}
	ops, err := p.operandList(text)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, &ParseError{Element: kind, Message: "empty <list>"}
	}
	return ops, nil
}

// requireCondition parses the constraint's mandatory <condition> child.
func (p *parser) requireCondition(e *element, kind string) (ir.Condition, error) {
	text := e.childText("condition")
	if text == "" {
		return ir.Condition{}, &ParseError{Element: kind, Message: "missing <condition>"}
	}
	return parseCondition(text, kind)
}

// parseCondition parses "(op,operand)" where operand is an integer, a
// variable reference, a %i placeholder, or lo..hi for in/notin.
func parseCondition(text, kind string) (ir.Condition, error) {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return ir.Condition{}, &ParseError{Element: kind, Message: fmt.Sprintf("malformed condition %q", text)}
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	opStr, operand, found := strings.Cut(inner, ",")
	if !found {
		return ir.Condition{}, &ParseError{Element: kind, Message: fmt.Sprintf("malformed condition %q", text)}
	}
	op, ok := ir.ParseRelOp(strings.ToLower(strings.TrimSpace(opStr)))
	if !ok {
		return ir.Condition{}, &ParseError{Element: kind, Message: fmt.Sprintf("unknown condition operator %q", strings.TrimSpace(opStr))}
	}
	operand = strings.TrimSpace(operand)

	if op == ir.RelIn || op == ir.RelNotIn {
		if strings.HasPrefix(operand, "{") {
			return ir.Condition{}, errSetCondition
		}
		before, after, found := strings.Cut(operand, "..")
		if !found {
			return ir.Condition{}, &ParseError{Element: kind, Message: fmt.Sprintf("condition %q needs a lo..hi range", text)}
		}
		lo, err1 := parseSignedInt(before)
		hi, err2 := parseSignedInt(after)
		if err1 != nil || err2 != nil || lo > hi {
			return ir.Condition{}, &ParseError{Element: kind, Message: fmt.Sprintf("invalid condition range %q", operand)}
		}
		return ir.Condition{Op: op, Lo: lo, Hi: hi}, nil
	}

	bound, err := ParseExpr(operand)
	if err != nil {
		return ir.Condition{}, err
	}
	return ir.Condition{Op: op, Bound: bound}, nil
}

// ---------- Per-kind parsers ----------

func (p *parser) parseIntension(e *element, info ir.ConstraintInfo) (ir.Constraint, error) {
	src := e.text()
	if f := e.child("function"); f != nil {
		src = f.text()
	}
	if src == "" {
		return nil, &ParseError{Element: "intension", Message: "empty predicate"}
	}
	pred, err := ParseExpr(src)
	if err != nil {
		return p.flagOr(e, info, err)
	}
	return &ir.Intension{ConstraintInfo: info, Predicate: pred}, nil
}

func (p *parser) parseExtension(e *element, info ir.ConstraintInfo) (ir.Constraint, error) {
	scope, err := p.requireList(e, "extension")
	if err != nil {
		return p.flagOr(e, info, err)
	}
	sup := e.child("supports")
	con := e.child("conflicts")
	var body *element
	conflicts := false
	switch {
	case sup != nil && con != nil:
		return nil, &ParseError{Element: "extension", Message: "both <supports> and <conflicts> present"}
	case sup != nil:
		body = sup
	case con != nil:
		body, conflicts = con, true
	default:
		return nil, &ParseError{Element: "extension", Message: "missing <supports> or <conflicts>"}
	}
	tuples, err := parseTuples(body.text())
	if err != nil {
		if note, ok := recoverable(err); ok {
			return &ir.Unsupported{ConstraintInfo: info, RawKind: "extension", Note: note, List: scope}, nil
		}
		return nil, &ParseError{Element: "extension", Message: err.Error()}
	}
	return &ir.Extension{ConstraintInfo: info, Scope: scope, Tuples: tuples, Conflicts: conflicts}, nil
}

func (p *parser) parseAllDifferent(e *element, info ir.ConstraintInfo) (ir.Constraint, error) {
	if e.child("matrix") != nil {
		return p.unsupported(e, info, "matrix form is not supported"), nil
	}
	if len(e.children("list")) > 1 {
		return p.unsupported(e, info, "multiple lists are not supported"), nil
	}
	list, err := p.requireList(e, "allDifferent")
	if err != nil {
		return p.flagOr(e, info, err)
	}
	var except []int
	if ex := e.child("except"); ex != nil {
		except, err = parseInts(ex.text())
		if err != nil {
			return nil, &ParseError{Element: "allDifferent", Message: fmt.Sprintf("invalid <except>: %v", err)}
		}
	}
	return &ir.AllDifferent{ConstraintInfo: info, List: list, Except: except}, nil
}

func (p *parser) parseAllEqual(e *element, info ir.ConstraintInfo) (ir.Constraint, error) {
	list, err := p.requireList(e, "allEqual")
	if err != nil {
		return p.flagOr(e, info, err)
	}
	return &ir.AllEqual{ConstraintInfo: info, List: list}, nil
}

func (p *parser) parseOrdered(e *element, info ir.ConstraintInfo) (ir.Constraint, error) {
	if e.child("lengths") != nil {
		return p.unsupported(e, info, "<lengths> is not supported"), nil
	}
	list, err := p.requireList(e, "ordered")
	if err != nil {
		return p.flagOr(e, info, err)
	}
	opText := e.childText("operator")
	if opText == "" {
		opText = "le"
	}
	op, ok := ir.ParseRelOp(strings.ToLower(opText))
	if !ok || op == ir.RelIn || op == ir.RelNotIn {
		return nil, &ParseError{Element: "ordered", Message: fmt.Sprintf("invalid operator %q", opText)}
	}
	return &ir.Ordered{ConstraintInfo: info, List: list, Op: op}, nil
}

func (p *parser) parseSum(e *element, info ir.ConstraintInfo) (ir.Constraint, error) {
	list, err := p.requireList(e, "sum")
	if err != nil {
		return p.flagOr(e, info, err)
	}
	var coeffs []int
	if c := e.child("coeffs"); c != nil {
		coeffs, err = parseInts(c.text())
		if err != nil {
			// variable coefficients are legal XCSP3 but have no
			// translatable form
			return p.unsupported(e, info, "non-integer coefficients are not supported"), nil
		}
	}
	cond, err := p.requireCondition(e, "sum")
	if err != nil {
		return p.flagOr(e, info, err)
	}
	return &ir.Sum{ConstraintInfo: info, Terms: list, Coeffs: coeffs, Cond: cond}, nil
}

func (p *parser) parseCount(e *element, info ir.ConstraintInfo) (ir.Constraint, error) {
	list, err := p.requireList(e, "count")
	if err != nil {
		return p.flagOr(e, info, err)
	}
	values := strings.Fields(e.childText("values"))
	if len(values) == 0 {
		return nil, &ParseError{Element: "count", Message: "missing <values>"}
	}
	if len(values) > 1 {
		return p.unsupported(e, info, "multiple count values are not supported"), nil
	}
	value, err := ParseExpr(values[0])
	if err != nil {
		return p.flagOr(e, info, err)
	}
	cond, err := p.requireCondition(e, "count")
	if err != nil {
		return p.flagOr(e, info, err)
	}
	return &ir.Count{ConstraintInfo: info, List: list, Value: value, Cond: cond}, nil
}

func (p *parser) parseNValues(e *element, info ir.ConstraintInfo) (ir.Constraint, error) {
	if e.child("except") != nil {
		return p.unsupported(e, info, "<except> is not supported"), nil
	}
	list, err := p.requireList(e, "nValues")
	if err != nil {
		return p.flagOr(e, info, err)
	}
	cond, err := p.requireCondition(e, "nValues")
	if err != nil {
		return p.flagOr(e, info, err)
	}
	return &ir.NValues{ConstraintInfo: info, List: list, Cond: cond}, nil
}

func (p *parser) parseCardinality(e *element, info ir.ConstraintInfo) (ir.Constraint, error) {
	list, err := p.requireList(e, "cardinality")
	if err != nil {
		return p.flagOr(e, info, err)
	}
	values, err := parseInts(e.childText("values"))
	if err != nil {
		return p.unsupported(e, info, "non-integer cardinality values are not supported"), nil
	}
	if len(values) == 0 {
		return nil, &ParseError{Element: "cardinality", Message: "missing <values>"}
	}
	occursText := e.childText("occurs")
	if occursText == "" {
		return nil, &ParseError{Element: "cardinality", Message: "missing <occurs>"}
	}
	for _, tok := range strings.Fields(occursText) {
		if strings.Contains(tok, "..") && !isIdentStart(tok[0]) {
			return p.unsupported(e, info, "occurrence ranges are not supported"), nil
		}
	}
	occurs, err := p.operandList(occursText)
	if err != nil {
		return p.flagOr(e, info, err)
	}
	return &ir.Cardinality{ConstraintInfo: info, List: list, Values: values, Occurs: occurs}, nil
}

func (p *parser) parseMinMax(e *element, info ir.ConstraintInfo, max bool) (ir.Constraint, error) {
	kind := "minimum"
	if max {
		kind = "maximum"
	}
	list, err := p.requireList(e, kind)
	if err != nil {
		return p.flagOr(e, info, err)
	}
	cond, err := p.requireCondition(e, kind)
	if err != nil {
		return p.flagOr(e, info, err)
	}
	if max {
		return &ir.Maximum{ConstraintInfo: info, List: list, Cond: cond}, nil
	}
	return &ir.Minimum{ConstraintInfo: info, List: list, Cond: cond}, nil
}

func (p *parser) parseElement(e *element, info ir.ConstraintInfo) (ir.Constraint, error) {
	list, err := p.requireList(e, "element")
	if err != nil {
		return p.flagOr(e, info, err)
	}
	indexText := e.childText("index")
	if indexText == "" {
		// the membership form (no index) has no translatable shape
		return p.unsupported(e, info, "element without <index> is not supported"), nil
	}
	index, err := ParseExpr(indexText)
	if err != nil {
		return p.flagOr(e, info, err)
	}
	valueText := e.childText("value")
	if valueText == "" {
		return nil, &ParseError{Element: "element", Message: "missing <value>"}
	}
	value, err := ParseExpr(valueText)
	if err != nil {
		return p.flagOr(e, info, err)
	}
	return &ir.Element{ConstraintInfo: info, List: list, Index: index, Value: value}, nil
}

func (p *parser) parseChannel(e *element, info ir.ConstraintInfo) (ir.Constraint, error) {
	lists := e.children("list")
	for _, l := range lists {
		if s := l.attr("startIndex"); s != "" && s != "0" {
			return p.unsupported(e, info, "non-zero startIndex is not supported"), nil
		}
	}
	if e.child("value") != nil {
		return p.unsupported(e, info, "the value-variable form is not supported"), nil
	}

	var a, b []ir.Expr
	var err error
	switch len(lists) {
	case 0:
		a, err = p.requireList(e, "channel")
		if err != nil {
			return p.flagOr(e, info, err)
		}
		b = a
	case 1:
		a, err = p.operandList(lists[0].text())
		if err != nil {
			return p.flagOr(e, info, err)
		}
		b = a
	case 2:
		a, err = p.operandList(lists[0].text())
		if err != nil {
			return p.flagOr(e, info, err)
		}
		b, err = p.operandList(lists[1].text())
		if err != nil {
			return p.flagOr(e, info, err)
		}
	default:
		return p.unsupported(e, info, "more than two lists are not supported"), nil
	}
	return &ir.Channel{ConstraintInfo: info, A: a, B: b}, nil
}

func (p *parser) parseInstantiation(e *element, info ir.ConstraintInfo) (ir.Constraint, error) {
	list, err := p.requireList(e, "instantiation")
	if err != nil {
		return p.flagOr(e, info, err)
	}
	valuesText := e.childText("values")
	if valuesText == "" {
		return nil, &ParseError{Element: "instantiation", Message: "missing <values>"}
	}
	if strings.Contains(valuesText, "*") {
		return p.unsupported(e, info, "wildcard values are not supported"), nil
	}
	values, err := parseInts(valuesText)
	if err != nil {
		return nil, &ParseError{Element: "instantiation", Message: fmt.Sprintf("invalid <values>: %v", err)}
	}
	return &ir.Instantiation{ConstraintInfo: info, List: list, Values: values}, nil
}

// parseGroup reads a template constraint plus its argument rows. The
// template is the single non-args child; every other child must be an
// <args> row of operands that the normalizer substitutes for the
// template's %i placeholders.
func (p *parser) parseGroup(e *element) (*ir.Group, error) {
	info := ir.ConstraintInfo{ID: e.attr("id")}
	var template ir.Constraint
	var rows [][]ir.Expr
	for i := range e.Children {
		child := &e.Children[i]
		if child.name() == "args" {
			row, err := p.operandList(child.text())
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
			continue
		}
		if template != nil {
			return nil, &ParseError{Element: "group", Message: "multiple constraint templates"}
		}
		t, err := p.parseSimple(child)
		if err != nil {
			return nil, err
		}
		template = t
	}
	if template == nil {
		return nil, &ParseError{Element: "group", Message: "missing constraint template"}
	}
	return &ir.Group{ConstraintInfo: info, Template: template, Args: rows}, nil
}

// parseSignedInt parses an integer allowing surrounding whitespace.
func parseSignedInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
