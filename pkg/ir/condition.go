package ir

// RelOp identifies a relational operator in a condition clause.
type RelOp int

// Relational operators, named after the XCSP3 condition forms.
const (
	RelLt RelOp = iota
	RelLe
	RelGt
	RelGe
	RelEq
	RelNe
	RelIn
	RelNotIn
)

// String returns the XCSP3 name of the operator.
func (r RelOp) String() string {
	switch r {
	case RelLt:
		return "lt"
	case RelLe:
		return "le"
	case RelGt:
		return "gt"
	case RelGe:
		return "ge"
	case RelEq:
		return "eq"
	case RelNe:
		return "ne"
	case RelIn:
		return "in"
	case RelNotIn:
		return "notin"
	default:
		return "unknown"
	}
}

// ParseRelOp converts an XCSP3 operator name to a RelOp.
// Returns the operator and true if valid, or RelEq and false if not.
func ParseRelOp(s string) (RelOp, bool) {
	switch s {
	case "lt":
		return RelLt, true
	case "le":
		return RelLe, true
	case "gt":
		return RelGt, true
	case "ge":
		return RelGe, true
	case "eq":
		return RelEq, true
	case "ne":
		return RelNe, true
	case "in":
		return RelIn, true
	case "notin":
		return RelNotIn, true
	default:
		return RelEq, false
	}
}

// Condition is the relational clause carried by sum, count, nValues,
// minimum and maximum constraints: an operator plus either a bound
// expression or, for in/notin, an inclusive integer range.
type Condition struct {
	Op    RelOp
	Bound Expr // nil when Op is RelIn or RelNotIn
	Lo    int  // range bounds, only meaningful for RelIn/RelNotIn
	Hi    int
}

// Ranged reports whether the condition compares against a value range
// rather than a single bound expression.
func (c Condition) Ranged() bool {
	return c.Op == RelIn || c.Op == RelNotIn
}
