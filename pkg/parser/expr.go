package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cspkit/xcsp2cpo/pkg/ir"
)

// binaryOps maps strictly-binary functional operators to their IR form.
var binaryOps = map[string]ir.Op{
	"sub":  ir.OpSub,
	"div":  ir.OpDiv,
	"mod":  ir.OpMod,
	"pow":  ir.OpPow,
	"dist": ir.OpDist,
	"lt":   ir.OpLt,
	"le":   ir.OpLe,
	"gt":   ir.OpGt,
	"ge":   ir.OpGe,
	"ne":   ir.OpNe,
	"xor":  ir.OpXor,
	"iff":  ir.OpIff,
	"imp":  ir.OpImp,
}

// unaryOps maps single-operand functional operators to their IR form.
var unaryOps = map[string]ir.Op{
	"neg": ir.OpNeg,
	"abs": ir.OpAbs,
	"not": ir.OpNot,
}

// ParseExpr parses an XCSP3 functional expression such as
// eq(add(x,y),z) or le(dist(%0,%1),2) into an expression tree.
//
// Operators outside the algebra yield an *UnsupportedExprError so
// callers can flag the owning constraint rather than fail the parse;
// any other error means the text is malformed.
func ParseExpr(src string) (ir.Expr, error) {
	p := &exprParser{src: src}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected %q after expression", p.src[p.pos:])
	}
	return e, nil
}

// exprParser is a cursor over the functional-notation source. The
// grammar is small enough that scanning and parsing happen in one pass.
type exprParser struct {
	src string
	pos int
}

func (p *exprParser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *exprParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *exprParser) errorf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return &ParseError{
		Element: "expression",
		Message: fmt.Sprintf("%s at offset %d in %q", msg, p.pos, p.src),
	}
}

func (p *exprParser) parseExpr() (ir.Expr, error) {
	p.skipSpace()
	if p.eof() {
		return nil, p.errorf("unexpected end of expression")
	}
	switch ch := p.src[p.pos]; {
	case ch == '%':
		return p.parseParam()
	case ch == '-' || ch == '+' || isDigit(ch):
		return p.parseInt()
	case isIdentStart(ch):
		return p.parseIdent()
	default:
		return nil, p.errorf("unexpected character %q", ch)
	}
}

// parseParam reads a %i template placeholder.
func (p *exprParser) parseParam() (ir.Expr, error) {
	p.pos++ // consume '%'
	if strings.HasPrefix(p.src[p.pos:], "...") {
		return nil, p.errorf("%%... placeholders are not supported")
	}
	start := p.pos
	for !p.eof() && isDigit(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return nil, p.errorf("invalid placeholder")
	}
	n, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		return nil, p.errorf("invalid placeholder %q", p.src[start:p.pos])
	}
	return &ir.Param{Index: n}, nil
}

func (p *exprParser) parseInt() (ir.Expr, error) {
	start := p.pos
	if ch := p.src[p.pos]; ch == '-' || ch == '+' {
		p.pos++
	}
	digits := p.pos
	for !p.eof() && isDigit(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == digits {
		return nil, p.errorf("invalid number")
	}
	v, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		return nil, p.errorf("invalid number %q", p.src[start:p.pos])
	}
	return &ir.Const{Value: v}, nil
}

// parseIdent reads an identifier and dispatches on what follows it: a
// call form ident(...), an indexed form ident[...], or a bare variable
// reference.
func (p *exprParser) parseIdent() (ir.Expr, error) {
	start := p.pos
	for !p.eof() && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	switch p.peek() {
	case '(':
		return p.parseCall(name)
	case '[':
		return p.parseIndexed(name)
	default:
		return &ir.VarRef{Name: name}, nil
	}
}

func (p *exprParser) parseCall(name string) (ir.Expr, error) {
	p.pos++ // consume '('
	var args []ir.Expr
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return p.buildCall(name, nil)
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("unterminated call to %q", name)
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return p.buildCall(name, args)
		default:
			return nil, p.errorf("unexpected character %q in arguments of %q", p.src[p.pos], name)
		}
	}
}

// buildCall turns a functional call into the corresponding IR node,
// enforcing operator arities.
func (p *exprParser) buildCall(name string, args []ir.Expr) (ir.Expr, error) {
	op := strings.ToLower(name)
	if bin, ok := binaryOps[op]; ok {
		if len(args) != 2 {
			return nil, p.errorf("%s expects 2 operands, got %d", op, len(args))
		}
		return &ir.Binary{Op: bin, Left: args[0], Right: args[1]}, nil
	}
	if un, ok := unaryOps[op]; ok {
		if len(args) != 1 {
			return nil, p.errorf("%s expects 1 operand, got %d", op, len(args))
		}
		return &ir.Unary{Op: un, X: args[0]}, nil
	}
	switch op {
	case "add", "mul":
		bin := ir.OpAdd
		if op == "mul" {
			bin = ir.OpMul
		}
		switch len(args) {
		case 0:
			return nil, p.errorf("%s expects at least one operand", op)
		case 1:
			return args[0], nil
		case 2:
			return &ir.Binary{Op: bin, Left: args[0], Right: args[1]}, nil
		default:
			return &ir.NAry{Op: bin, Args: args}, nil
		}
	case "and", "or":
		bin := ir.OpAnd
		if op == "or" {
			bin = ir.OpOr
		}
		switch len(args) {
		case 0:
			return nil, p.errorf("%s expects at least one operand", op)
		case 1:
			return args[0], nil
		default:
			return &ir.NAry{Op: bin, Args: args}, nil
		}
	case "eq":
		switch {
		case len(args) < 2:
			return nil, p.errorf("eq expects at least 2 operands, got %d", len(args))
		case len(args) == 2:
			return &ir.Binary{Op: ir.OpEq, Left: args[0], Right: args[1]}, nil
		default:
			// n-ary equality becomes a conjunction of adjacent pairs
			pairs := make([]ir.Expr, 0, len(args)-1)
			for i := 0; i+1 < len(args); i++ {
				pairs = append(pairs, &ir.Binary{Op: ir.OpEq, Left: args[i], Right: args[i+1]})
			}
			return &ir.NAry{Op: ir.OpAnd, Args: pairs}, nil
		}
	case "if":
		if len(args) != 3 {
			return nil, p.errorf("if expects 3 operands, got %d", len(args))
		}
		return &ir.Conditional{Cond: args[0], Then: args[1], Else: args[2]}, nil
	case "min", "max":
		kind := ir.AggMinimum
		if op == "max" {
			kind = ir.AggMaximum
		}
		switch len(args) {
		case 0:
			return nil, p.errorf("%s expects at least one operand", op)
		case 1:
			return args[0], nil
		default:
			return &ir.Aggregate{Kind: kind, Args: args}, nil
		}
	default:
		return nil, &UnsupportedExprError{Op: name}
	}
}

// parseIndexed reads one or more [..] groups after an array name. When
// every group is a single concrete index the result is a plain variable
// reference to the cell; slices and x[] shorthands produce an ArrayRef
// for the normalizer to expand.
func (p *exprParser) parseIndexed(name string) (ir.Expr, error) {
	var sels []ir.IndexSel
	concrete := true
	for p.peek() == '[' {
		p.pos++ // consume '['
		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			sels = append(sels, ir.IndexSel{All: true})
			concrete = false
			continue
		}
		lo, err := p.parseIndexInt(name)
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if strings.HasPrefix(p.src[p.pos:], "..") {
			p.pos += 2
			p.skipSpace()
			hi, err := p.parseIndexInt(name)
			if err != nil {
				return nil, err
			}
			p.skipSpace()
			if p.peek() != ']' {
				return nil, p.errorf("unterminated index range in %q", name)
			}
			p.pos++
			sels = append(sels, ir.IndexSel{Lo: lo, Hi: hi})
			concrete = false
			continue
		}
		if p.peek() != ']' {
			return nil, p.errorf("unsupported array index in %q", name)
		}
		p.pos++
		sels = append(sels, ir.IndexSel{Lo: lo, Hi: lo})
	}
	if concrete {
		var b strings.Builder
		b.WriteString(name)
		for _, s := range sels {
			fmt.Fprintf(&b, "[%d]", s.Lo)
		}
		return &ir.VarRef{Name: b.String()}, nil
	}
	return &ir.ArrayRef{Name: name, Index: sels}, nil
}

func (p *exprParser) parseIndexInt(name string) (int, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for !p.eof() && isDigit(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start || (p.pos == start+1 && p.src[start] == '-') {
		return 0, p.errorf("invalid array index in %q", name)
	}
	v, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		return 0, p.errorf("invalid array index in %q", name)
	}
	return v, nil
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
