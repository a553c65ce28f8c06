package transform

import (
	"fmt"
	"strings"

	"github.com/cspkit/xcsp2cpo/pkg/ir"
)

// Normalize validates the instance and resolves its syntactic sugar:
// domains are checked, array cells become addressable variables, group
// templates are instantiated with their argument rows, and array
// references in operand lists are expanded to cell references. After a
// successful run no Group, Param or ArrayRef node remains.
func Normalize(inst *ir.Instance) error {
	for _, v := range inst.Variables {
		if v.Owner != "" {
			continue
		}
		if err := validateDomain("variable", v.ID, v.Domain); err != nil {
			return err
		}
	}
	for _, a := range inst.Arrays {
		if err := validateDomain("array", a.ID, a.Domain); err != nil {
			return err
		}
		if err := expandCells(inst, a); err != nil {
			return err
		}
	}

	out := make([]ir.Constraint, 0, len(inst.Constraints))
	for _, c := range inst.Constraints {
		if g, ok := c.(*ir.Group); ok {
			expanded, err := expandGroup(g)
			if err != nil {
				return err
			}
			for _, ec := range expanded {
				nc, err := normalizeConstraint(inst, ec)
				if err != nil {
					return err
				}
				out = append(out, nc)
			}
			continue
		}
		nc, err := normalizeConstraint(inst, c)
		if err != nil {
			return err
		}
		out = append(out, nc)
	}
	inst.Constraints = out

	if inst.Objective != nil {
		target, err := normalizeExpr(inst, inst.Objective.Target)
		if err != nil {
			return err
		}
		inst.Objective.Target = target
	}
	return nil
}

func validateDomain(what, id string, d ir.Domain) error {
	if d.IsEmpty() {
		return &ir.MalformedInstanceError{Message: fmt.Sprintf(ir.ErrEmptyDomain, id)}
	}
	if err := d.Validate(); err != nil {
		return &ir.MalformedInstanceError{Subject: what + " " + id, Message: err.Error()}
	}
	return nil
}

// expandCells registers one variable per array cell. Cell names are the
// array id followed by one bracketed index per dimension, row-major,
// honoring the declared start index: m[0][0], m[0][1], ...
func expandCells(inst *ir.Instance, a *ir.Array) error {
	if len(a.Cells) != 0 {
		// already expanded; Normalize may run more than once
		return nil
	}
	a.Cells = make([]string, 0, a.Len())
	idx := make([]int, len(a.Size))
	var walk func(dim int) error
	walk = func(dim int) error {
		if dim == len(a.Size) {
			name := cellName(a.ID, idx)
			a.Cells = append(a.Cells, name)
			return inst.AddVariable(&ir.Variable{ID: name, Domain: a.Domain, Owner: a.ID})
		}
		for i := 0; i < a.Size[dim]; i++ {
			idx[dim] = a.StartIndex + i
			if err := walk(dim + 1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(0)
}

func cellName(arrayID string, idx []int) string {
	var b strings.Builder
	b.WriteString(arrayID)
	for _, i := range idx {
		fmt.Fprintf(&b, "[%d]", i)
	}
	return b.String()
}

// derivedID names a constraint produced from another one, keeping the
// parent id traceable: g[0], g[1], ... Anonymous parents stay anonymous.
func derivedID(parent string, i int) string {
	if parent == "" {
		return ""
	}
	return fmt.Sprintf("%s[%d]", parent, i)
}

// ---------- Group expansion ----------

func expandGroup(g *ir.Group) ([]ir.Constraint, error) {
	out := make([]ir.Constraint, 0, len(g.Args))
	for i, row := range g.Args {
		info := ir.ConstraintInfo{ID: derivedID(g.GetID(), i)}
		c, err := substituteConstraint(g.Template, info, row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// substituteConstraint clones the template with every %i placeholder
// replaced by the row's i-th argument.
func substituteConstraint(tmpl ir.Constraint, info ir.ConstraintInfo, row []ir.Expr) (ir.Constraint, error) {
	switch t := tmpl.(type) {
	case *ir.Intension:
		pred, err := substituteExpr(t.Predicate, row)
		if err != nil {
			return nil, err
		}
		return &ir.Intension{ConstraintInfo: info, Predicate: pred}, nil
	case *ir.Extension:
		scope, err := substituteList(t.Scope, row)
		if err != nil {
			return nil, err
		}
		return &ir.Extension{ConstraintInfo: info, Scope: scope, Tuples: t.Tuples, Conflicts: t.Conflicts}, nil
	case *ir.AllDifferent:
		list, err := substituteList(t.List, row)
		if err != nil {
			return nil, err
		}
		return &ir.AllDifferent{ConstraintInfo: info, List: list, Except: t.Except}, nil
	case *ir.AllEqual:
		list, err := substituteList(t.List, row)
		if err != nil {
			return nil, err
		}
		return &ir.AllEqual{ConstraintInfo: info, List: list}, nil
	case *ir.Ordered:
		list, err := substituteList(t.List, row)
		if err != nil {
			return nil, err
		}
		return &ir.Ordered{ConstraintInfo: info, List: list, Op: t.Op}, nil
	case *ir.Sum:
		terms, err := substituteList(t.Terms, row)
		if err != nil {
			return nil, err
		}
		cond, err := substituteCondition(t.Cond, row)
		if err != nil {
			return nil, err
		}
		return &ir.Sum{ConstraintInfo: info, Terms: terms, Coeffs: t.Coeffs, Cond: cond}, nil
	case *ir.Count:
		list, err := substituteList(t.List, row)
		if err != nil {
			return nil, err
		}
		value, err := substituteExpr(t.Value, row)
		if err != nil {
			return nil, err
		}
		cond, err := substituteCondition(t.Cond, row)
		if err != nil {
			return nil, err
		}
		return &ir.Count{ConstraintInfo: info, List: list, Value: value, Cond: cond}, nil
	case *ir.NValues:
		list, err := substituteList(t.List, row)
		if err != nil {
			return nil, err
		}
		cond, err := substituteCondition(t.Cond, row)
		if err != nil {
			return nil, err
		}
		return &ir.NValues{ConstraintInfo: info, List: list, Cond: cond}, nil
	case *ir.Cardinality:
		list, err := substituteList(t.List, row)
		if err != nil {
			return nil, err
		}
		occurs, err := substituteList(t.Occurs, row)
		if err != nil {
			return nil, err
		}
		return &ir.Cardinality{ConstraintInfo: info, List: list, Values: t.Values, Occurs: occurs}, nil
	case *ir.Minimum:
		list, err := substituteList(t.List, row)
		if err != nil {
			return nil, err
		}
		cond, err := substituteCondition(t.Cond, row)
		if err != nil {
			return nil, err
		}
		return &ir.Minimum{ConstraintInfo: info, List: list, Cond: cond}, nil
	case *ir.Maximum:
		list, err := substituteList(t.List, row)
		if err != nil {
			return nil, err
		}
		cond, err := substituteCondition(t.Cond, row)
		if err != nil {
			return nil, err
		}
		return &ir.Maximum{ConstraintInfo: info, List: list, Cond: cond}, nil
	case *ir.Element:
		list, err := substituteList(t.List, row)
		if err != nil {
			return nil, err
		}
		index, err := substituteExpr(t.Index, row)
		if err != nil {
			return nil, err
		}
		value, err := substituteExpr(t.Value, row)
		if err != nil {
			return nil, err
		}
		return &ir.Element{ConstraintInfo: info, List: list, Index: index, Value: value}, nil
	case *ir.Channel:
		a, err := substituteList(t.A, row)
		if err != nil {
			return nil, err
		}
		b, err := substituteList(t.B, row)
		if err != nil {
			return nil, err
		}
		return &ir.Channel{ConstraintInfo: info, A: a, B: b}, nil
	case *ir.Instantiation:
		list, err := substituteList(t.List, row)
		if err != nil {
			return nil, err
		}
		return &ir.Instantiation{ConstraintInfo: info, List: list, Values: t.Values}, nil
	case *ir.Unsupported:
		list, err := substituteList(t.List, row)
		if err != nil {
			return nil, err
		}
		return &ir.Unsupported{ConstraintInfo: info, RawKind: t.RawKind, Note: t.Note, List: list}, nil
	case *ir.Group:
		return nil, &ir.MalformedInstanceError{Subject: "group", Message: "nested groups are not supported"}
	default:
		return nil, fmt.Errorf("unknown constraint type %T", tmpl)
	}
}

func substituteList(list []ir.Expr, row []ir.Expr) ([]ir.Expr, error) {
	out := make([]ir.Expr, 0, len(list))
	for _, e := range list {
		se, err := substituteExpr(e, row)
		if err != nil {
			return nil, err
		}
		out = append(out, se)
	}
	return out, nil
}

func substituteCondition(c ir.Condition, row []ir.Expr) (ir.Condition, error) {
	if c.Bound == nil {
		return c, nil
	}
	bound, err := substituteExpr(c.Bound, row)
	if err != nil {
		return ir.Condition{}, err
	}
	return ir.Condition{Op: c.Op, Bound: bound, Lo: c.Lo, Hi: c.Hi}, nil
}

func substituteExpr(e ir.Expr, row []ir.Expr) (ir.Expr, error) {
	switch e := e.(type) {
	case *ir.Param:
		if e.Index < 0 || e.Index >= len(row) {
			return nil, &ir.MalformedInstanceError{
				Message: fmt.Sprintf(ir.ErrDanglingBinding, e.Index, len(row)),
			}
		}
		return row[e.Index], nil
	case *ir.Const, *ir.VarRef, *ir.ArrayRef:
		return e, nil
	case *ir.Unary:
		x, err := substituteExpr(e.X, row)
		if err != nil {
			return nil, err
		}
		return &ir.Unary{Op: e.Op, X: x}, nil
	case *ir.Binary:
		l, err := substituteExpr(e.Left, row)
		if err != nil {
			return nil, err
		}
		r, err := substituteExpr(e.Right, row)
		if err != nil {
			return nil, err
		}
		return &ir.Binary{Op: e.Op, Left: l, Right: r}, nil
	case *ir.NAry:
		args, err := substituteList(e.Args, row)
		if err != nil {
			return nil, err
		}
		return &ir.NAry{Op: e.Op, Args: args}, nil
	case *ir.Conditional:
		cond, err := substituteExpr(e.Cond, row)
		if err != nil {
			return nil, err
		}
		then, err := substituteExpr(e.Then, row)
		if err != nil {
			return nil, err
		}
		els, err := substituteExpr(e.Else, row)
		if err != nil {
			return nil, err
		}
		return &ir.Conditional{Cond: cond, Then: then, Else: els}, nil
	case *ir.Aggregate:
		args, err := substituteList(e.Args, row)
		if err != nil {
			return nil, err
		}
		return &ir.Aggregate{Kind: e.Kind, Args: args, Coeffs: e.Coeffs}, nil
	default:
		return nil, fmt.Errorf("unknown expression type %T", e)
	}
}

// ---------- Reference expansion and structural checks ----------

func normalizeConstraint(inst *ir.Instance, c ir.Constraint) (ir.Constraint, error) {
	switch c := c.(type) {
	case *ir.Intension:
		pred, err := normalizeExpr(inst, c.Predicate)
		if err != nil {
			return nil, err
		}
		return &ir.Intension{ConstraintInfo: c.ConstraintInfo, Predicate: pred}, nil
	case *ir.Extension:
		scope, err := expandList(inst, c.Scope)
		if err != nil {
			return nil, err
		}
		for _, tup := range c.Tuples {
			if len(tup) != len(scope) {
				return nil, malformed(c.GetID(), c.Kind(),
					fmt.Sprintf("tuple arity %d does not match scope size %d", len(tup), len(scope)))
			}
		}
		return &ir.Extension{ConstraintInfo: c.ConstraintInfo, Scope: scope, Tuples: c.Tuples, Conflicts: c.Conflicts}, nil
	case *ir.AllDifferent:
		list, err := expandList(inst, c.List)
		if err != nil {
			return nil, err
		}
		return &ir.AllDifferent{ConstraintInfo: c.ConstraintInfo, List: list, Except: c.Except}, nil
	case *ir.AllEqual:
		list, err := expandList(inst, c.List)
		if err != nil {
			return nil, err
		}
		return &ir.AllEqual{ConstraintInfo: c.ConstraintInfo, List: list}, nil
	case *ir.Ordered:
		list, err := expandList(inst, c.List)
		if err != nil {
			return nil, err
		}
		return &ir.Ordered{ConstraintInfo: c.ConstraintInfo, List: list, Op: c.Op}, nil
	case *ir.Sum:
		terms, err := expandList(inst, c.Terms)
		if err != nil {
			return nil, err
		}
		if c.Coeffs != nil && len(c.Coeffs) != len(terms) {
			return nil, malformed(c.GetID(), c.Kind(),
				fmt.Sprintf("%d coefficients for %d terms", len(c.Coeffs), len(terms)))
		}
		cond, err := normalizeCondition(inst, c.Cond)
		if err != nil {
			return nil, err
		}
		return &ir.Sum{ConstraintInfo: c.ConstraintInfo, Terms: terms, Coeffs: c.Coeffs, Cond: cond}, nil
	case *ir.Count:
		list, err := expandList(inst, c.List)
		if err != nil {
			return nil, err
		}
		value, err := normalizeExpr(inst, c.Value)
		if err != nil {
			return nil, err
		}
		cond, err := normalizeCondition(inst, c.Cond)
		if err != nil {
			return nil, err
		}
		return &ir.Count{ConstraintInfo: c.ConstraintInfo, List: list, Value: value, Cond: cond}, nil
	case *ir.NValues:
		list, err := expandList(inst, c.List)
		if err != nil {
			return nil, err
		}
		cond, err := normalizeCondition(inst, c.Cond)
		if err != nil {
			return nil, err
		}
		return &ir.NValues{ConstraintInfo: c.ConstraintInfo, List: list, Cond: cond}, nil
	case *ir.Cardinality:
		list, err := expandList(inst, c.List)
		if err != nil {
			return nil, err
		}
		occurs, err := expandList(inst, c.Occurs)
		if err != nil {
			return nil, err
		}
		if len(c.Values) != len(occurs) {
			return nil, malformed(c.GetID(), c.Kind(),
				fmt.Sprintf("%d values for %d occurrence counts", len(c.Values), len(occurs)))
		}
		return &ir.Cardinality{ConstraintInfo: c.ConstraintInfo, List: list, Values: c.Values, Occurs: occurs}, nil
	case *ir.Minimum:
		list, err := expandList(inst, c.List)
		if err != nil {
			return nil, err
		}
		cond, err := normalizeCondition(inst, c.Cond)
		if err != nil {
			return nil, err
		}
		return &ir.Minimum{ConstraintInfo: c.ConstraintInfo, List: list, Cond: cond}, nil
	case *ir.Maximum:
		list, err := expandList(inst, c.List)
		if err != nil {
			return nil, err
		}
		cond, err := normalizeCondition(inst, c.Cond)
		if err != nil {
			return nil, err
		}
		return &ir.Maximum{ConstraintInfo: c.ConstraintInfo, List: list, Cond: cond}, nil
	case *ir.Element:
		list, err := expandList(inst, c.List)
		if err != nil {
			return nil, err
		}
		index, err := normalizeExpr(inst, c.Index)
		if err != nil {
			return nil, err
		}
		value, err := normalizeExpr(inst, c.Value)
		if err != nil {
			return nil, err
		}
		return &ir.Element{ConstraintInfo: c.ConstraintInfo, List: list, Index: index, Value: value}, nil
	case *ir.Channel:
		a, err := expandList(inst, c.A)
		if err != nil {
			return nil, err
		}
		b := a
		if !sameList(c.A, c.B) {
			b, err = expandList(inst, c.B)
			if err != nil {
				return nil, err
			}
		}
		if len(a) != len(b) {
			return nil, malformed(c.GetID(), c.Kind(), fmt.Sprintf(ir.ErrChannelLength, len(a), len(b)))
		}
		return &ir.Channel{ConstraintInfo: c.ConstraintInfo, A: a, B: b}, nil
	case *ir.Instantiation:
		list, err := expandList(inst, c.List)
		if err != nil {
			return nil, err
		}
		if len(list) != len(c.Values) {
			return nil, malformed(c.GetID(), c.Kind(),
				fmt.Sprintf("%d variables for %d values", len(list), len(c.Values)))
		}
		return &ir.Instantiation{ConstraintInfo: c.ConstraintInfo, List: list, Values: c.Values}, nil
	case *ir.Unsupported:
		// best effort: a flagged constraint never fails normalization
		if list, err := expandList(inst, c.List); err == nil {
			return &ir.Unsupported{ConstraintInfo: c.ConstraintInfo, RawKind: c.RawKind, Note: c.Note, List: list}, nil
		}
		return c, nil
	case *ir.Group:
		return nil, &ir.MalformedInstanceError{Subject: "group", Message: "nested groups are not supported"}
	default:
		return nil, fmt.Errorf("unknown constraint type %T", c)
	}
}

func malformed(id string, kind ir.Kind, msg string) error {
	subject := id
	if subject == "" {
		subject = string(kind)
	}
	return &ir.MalformedInstanceError{Subject: subject, Message: msg}
}

// expandList resolves array references in an operand list, splicing the
// referenced cells in place.
func expandList(inst *ir.Instance, list []ir.Expr) ([]ir.Expr, error) {
	out := make([]ir.Expr, 0, len(list))
	for _, e := range list {
		if ref, ok := e.(*ir.ArrayRef); ok {
			cells, err := expandArrayRef(inst, ref)
			if err != nil {
				return nil, err
			}
			out = append(out, cells...)
			continue
		}
		ne, err := normalizeExpr(inst, e)
		if err != nil {
			return nil, err
		}
		out = append(out, ne)
	}
	return out, nil
}

// expandArrayRef resolves one array reference to its cells, row-major.
// Missing index groups select the whole dimension, so x[] on a matrix
// yields every cell.
func expandArrayRef(inst *ir.Instance, ref *ir.ArrayRef) ([]ir.Expr, error) {
	arr, ok := inst.Array(ref.Name)
	if !ok {
		return nil, &ir.MalformedInstanceError{Message: fmt.Sprintf(ir.ErrUnknownArray, ref.Name)}
	}
	if len(ref.Index) > len(arr.Size) {
		return nil, &ir.MalformedInstanceError{
			Subject: ref.Name,
			Message: fmt.Sprintf("%d index groups for %d dimensions", len(ref.Index), len(arr.Size)),
		}
	}

	var cells []ir.Expr
	idx := make([]int, len(arr.Size))
	var walk func(dim int) error
	walk = func(dim int) error {
		if dim == len(arr.Size) {
			cells = append(cells, &ir.VarRef{Name: cellName(arr.ID, idx)})
			return nil
		}
		lo := arr.StartIndex
		hi := arr.StartIndex + arr.Size[dim] - 1
		if dim < len(ref.Index) && !ref.Index[dim].All {
			lo, hi = ref.Index[dim].Lo, ref.Index[dim].Hi
			if lo < arr.StartIndex || hi > arr.StartIndex+arr.Size[dim]-1 || lo > hi {
				bad := lo
				if hi > arr.StartIndex+arr.Size[dim]-1 {
					bad = hi
				}
				return &ir.MalformedInstanceError{
					Message: fmt.Sprintf(ir.ErrIndexOutOfBounds, bad, arr.ID),
				}
			}
		}
		for i := lo; i <= hi; i++ {
			idx[dim] = i
			if err := walk(dim + 1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(0); err != nil {
		return nil, err
	}
	return cells, nil
}

// normalizeExpr validates a scalar expression slot: variable names must
// resolve against the declarations, aggregates may carry array
// references in their argument lists, and anywhere else an ArrayRef or
// a leftover placeholder is a structural error.
func normalizeExpr(inst *ir.Instance, e ir.Expr) (ir.Expr, error) {
	switch e := e.(type) {
	case *ir.Const:
		return e, nil
	case *ir.VarRef:
		if _, ok := inst.Variable(e.Name); !ok {
			if _, isArray := inst.Array(e.Name); isArray {
				return nil, &ir.MalformedInstanceError{
					Subject: e.Name,
					Message: "array reference in scalar position",
				}
			}
			return nil, &ir.MalformedInstanceError{Message: fmt.Sprintf(ir.ErrUnknownVariable, e.Name)}
		}
		return e, nil
	case *ir.Param:
		return nil, &ir.MalformedInstanceError{Message: "placeholder outside a group template"}
	case *ir.ArrayRef:
		return nil, &ir.MalformedInstanceError{
			Subject: e.Name,
			Message: "array reference in scalar position",
		}
	case *ir.Unary:
		x, err := normalizeExpr(inst, e.X)
		if err != nil {
			return nil, err
		}
		return &ir.Unary{Op: e.Op, X: x}, nil
	case *ir.Binary:
		l, err := normalizeExpr(inst, e.Left)
		if err != nil {
			return nil, err
		}
		r, err := normalizeExpr(inst, e.Right)
		if err != nil {
			return nil, err
		}
		return &ir.Binary{Op: e.Op, Left: l, Right: r}, nil
	case *ir.NAry:
		args, err := expandList(inst, e.Args)
		if err != nil {
			return nil, err
		}
		return &ir.NAry{Op: e.Op, Args: args}, nil
	case *ir.Conditional:
		cond, err := normalizeExpr(inst, e.Cond)
		if err != nil {
			return nil, err
		}
		then, err := normalizeExpr(inst, e.Then)
		if err != nil {
			return nil, err
		}
		els, err := normalizeExpr(inst, e.Else)
		if err != nil {
			return nil, err
		}
		return &ir.Conditional{Cond: cond, Then: then, Else: els}, nil
	case *ir.Aggregate:
		args, err := expandList(inst, e.Args)
		if err != nil {
			return nil, err
		}
		if e.Coeffs != nil && len(e.Coeffs) != len(args) {
			return nil, &ir.MalformedInstanceError{
				Subject: "objective",
				Message: fmt.Sprintf("%d coefficients for %d terms", len(e.Coeffs), len(args)),
			}
		}
		return &ir.Aggregate{Kind: e.Kind, Args: args, Coeffs: e.Coeffs}, nil
	default:
		return nil, fmt.Errorf("unknown expression type %T", e)
	}
}

func normalizeCondition(inst *ir.Instance, c ir.Condition) (ir.Condition, error) {
	if c.Bound == nil {
		return c, nil
	}
	bound, err := normalizeExpr(inst, c.Bound)
	if err != nil {
		return ir.Condition{}, err
	}
	return ir.Condition{Op: c.Op, Bound: bound, Lo: c.Lo, Hi: c.Hi}, nil
}

// sameList reports whether two operand slices are the same backing
// slice, which is how a single-list channel arrives from the parser.
func sameList(a, b []ir.Expr) bool {
	return len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
}
