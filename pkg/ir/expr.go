package ir

// Expr represents a node in a constraint expression tree.
type Expr interface {
	exprNode()
}

// Op identifies an operator in an expression tree.
type Op int

// Operators, named after the XCSP3 functional forms.
const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpNeg
	OpAbs
	OpDist
	OpNot
	OpAnd
	OpOr
	OpXor
	OpIff
	OpImp
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
)

// String returns the XCSP3 name of the operator.
func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpMod:
		return "mod"
	case OpPow:
		return "pow"
	case OpNeg:
		return "neg"
	case OpAbs:
		return "abs"
	case OpDist:
		return "dist"
	case OpNot:
		return "not"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpXor:
		return "xor"
	case OpIff:
		return "iff"
	case OpImp:
		return "imp"
	case OpLt:
		return "lt"
	case OpLe:
		return "le"
	case OpGt:
		return "gt"
	case OpGe:
		return "ge"
	case OpEq:
		return "eq"
	case OpNe:
		return "ne"
	default:
		return "unknown"
	}
}

// ---------- Expression Types ----------

// Const represents an integer literal.
type Const struct {
	Value int
}

func (*Const) exprNode() {}

// VarRef references a variable by id. After normalization the id is either
// a scalar variable or an array cell such as "x[2]" or "m[0][3]".
type VarRef struct {
	Name string
}

func (*VarRef) exprNode() {}

// Param is a template placeholder (%0, %1, ...) inside a group template.
// Params exist only before normalization; expansion substitutes the
// argument expressions of each instantiation row.
type Param struct {
	Index int
}

func (*Param) exprNode() {}

// IndexSel selects cells along one dimension of an array reference.
// All covers the whole dimension; otherwise the inclusive span Lo..Hi is
// selected, with Lo == Hi picking a single index.
type IndexSel struct {
	All    bool
	Lo, Hi int
}

// ArrayRef is array shorthand in an operand position: the bare array name,
// x[], or a slice such as x[1..3]. The normalizer expands it into the
// covered cell VarRefs in row-major order. Missing trailing dimensions
// select their whole dimension.
type ArrayRef struct {
	Name  string
	Index []IndexSel
}

func (*ArrayRef) exprNode() {}

// Unary represents a one-operand operation (neg, abs, not).
type Unary struct {
	Op Op
	X  Expr
}

func (*Unary) exprNode() {}

// Binary represents a two-operand operation.
type Binary struct {
	Op    Op
	Left  Expr
	Right Expr
}

func (*Binary) exprNode() {}

// NAry represents a variadic operation (add, mul, and, or).
type NAry struct {
	Op   Op
	Args []Expr
}

func (*NAry) exprNode() {}

// Conditional represents if(cond, then, else).
type Conditional struct {
	Cond Expr
	Then Expr
	Else Expr
}

func (*Conditional) exprNode() {}

// AggKind identifies an aggregation over a sequence of expressions.
type AggKind int

// Aggregation kinds.
const (
	AggSum AggKind = iota
	AggProduct
	AggMinimum
	AggMaximum
	AggNValues
)

// String returns the XCSP3 name of the aggregation.
func (k AggKind) String() string {
	switch k {
	case AggSum:
		return "sum"
	case AggProduct:
		return "product"
	case AggMinimum:
		return "minimum"
	case AggMaximum:
		return "maximum"
	case AggNValues:
		return "nValues"
	default:
		return "unknown"
	}
}

// Aggregate applies an aggregation to a sequence of expressions. Coeffs,
// when non-nil, carries one integer weight per argument (weighted sums).
type Aggregate struct {
	Kind   AggKind
	Args   []Expr
	Coeffs []int
}

func (*Aggregate) exprNode() {}
