package ir

// Kind identifies a constraint kind. Values match the XCSP3 element names
// so raw tags flow through unchanged for constraints the toolchain keeps
// as Unsupported nodes.
type Kind string

// Constraint kinds the parser produces as typed nodes.
const (
	KindIntension     Kind = "intension"
	KindExtension     Kind = "extension"
	KindAllDifferent  Kind = "allDifferent"
	KindAllEqual      Kind = "allEqual"
	KindOrdered       Kind = "ordered"
	KindSum           Kind = "sum"
	KindCount         Kind = "count"
	KindNValues       Kind = "nValues"
	KindCardinality   Kind = "cardinality"
	KindMinimum       Kind = "minimum"
	KindMaximum       Kind = "maximum"
	KindElement       Kind = "element"
	KindChannel       Kind = "channel"
	KindInstantiation Kind = "instantiation"
	KindGroup         Kind = "group"
)

// Constraint represents a single constraint of an instance.
type Constraint interface {
	constraintNode()

	// Kind returns the constraint kind used for vocabulary lookups.
	Kind() Kind
}

// ConstraintInfo provides common fields for all constraint nodes.
// Embed this in constraint types.
type ConstraintInfo struct {
	ID string // optional id attribute from the source document
}

// GetID returns the source id of the constraint, possibly empty.
func (ci *ConstraintInfo) GetID() string {
	return ci.ID
}

// ---------- Constraint Types ----------

// Intension holds an arbitrary boolean predicate over variables.
type Intension struct {
	ConstraintInfo
	Predicate Expr
}

func (*Intension) constraintNode() {}

// Kind returns KindIntension.
func (*Intension) Kind() Kind { return KindIntension }

// Extension ties a tuple of variables to an explicit table: the scope must
// match one of the tuples (Conflicts false) or none of them (Conflicts true).
type Extension struct {
	ConstraintInfo
	Scope     []Expr
	Tuples    [][]int
	Conflicts bool
}

func (*Extension) constraintNode() {}

// Kind returns KindExtension.
func (*Extension) Kind() Kind { return KindExtension }

// AllDifferent requires pairwise distinct values. Values listed in Except
// are exempt from the requirement.
type AllDifferent struct {
	ConstraintInfo
	List   []Expr
	Except []int
}

func (*AllDifferent) constraintNode() {}

// Kind returns KindAllDifferent.
func (*AllDifferent) Kind() Kind { return KindAllDifferent }

// AllEqual requires all list elements to take the same value.
type AllEqual struct {
	ConstraintInfo
	List []Expr
}

func (*AllEqual) constraintNode() {}

// Kind returns KindAllEqual.
func (*AllEqual) Kind() Kind { return KindAllEqual }

// Ordered requires each pair of consecutive list elements to satisfy Op.
type Ordered struct {
	ConstraintInfo
	List []Expr
	Op   RelOp
}

func (*Ordered) constraintNode() {}

// Kind returns KindOrdered.
func (*Ordered) Kind() Kind { return KindOrdered }

// Sum constrains a weighted sum of terms through a condition. A nil Coeffs
// means unit coefficients; otherwise it carries one weight per term, in
// source order.
type Sum struct {
	ConstraintInfo
	Terms  []Expr
	Coeffs []int
	Cond   Condition
}

func (*Sum) constraintNode() {}

// Kind returns KindSum.
func (*Sum) Kind() Kind { return KindSum }

// Count constrains how many list elements equal Value.
type Count struct {
	ConstraintInfo
	List  []Expr
	Value Expr
	Cond  Condition
}

func (*Count) constraintNode() {}

// Kind returns KindCount.
func (*Count) Kind() Kind { return KindCount }

// NValues constrains the number of distinct values in the list.
type NValues struct {
	ConstraintInfo
	List []Expr
	Cond Condition
}

func (*NValues) constraintNode() {}

// Kind returns KindNValues.
func (*NValues) Kind() Kind { return KindNValues }

// Cardinality constrains the number of occurrences of each value.
// Occurs holds one constant or variable per value.
type Cardinality struct {
	ConstraintInfo
	List   []Expr
	Values []int
	Occurs []Expr
}

func (*Cardinality) constraintNode() {}

// Kind returns KindCardinality.
func (*Cardinality) Kind() Kind { return KindCardinality }

// Minimum constrains the minimum of the list through a condition.
type Minimum struct {
	ConstraintInfo
	List []Expr
	Cond Condition
}

func (*Minimum) constraintNode() {}

// Kind returns KindMinimum.
func (*Minimum) Kind() Kind { return KindMinimum }

// Maximum constrains the maximum of the list through a condition.
type Maximum struct {
	ConstraintInfo
	List []Expr
	Cond Condition
}

func (*Maximum) constraintNode() {}

// Kind returns KindMaximum.
func (*Maximum) Kind() Kind { return KindMaximum }

// Element requires List[Index] == Value, with Index interpreted against
// the list positions.
type Element struct {
	ConstraintInfo
	List  []Expr
	Index Expr
	Value Expr
}

func (*Element) constraintNode() {}

// Kind returns KindElement.
func (*Element) Kind() Kind { return KindElement }

// Channel links two variable lists as mutual inverses:
// A[i] == j exactly when B[j] == i. A single-list channel links the list
// with itself.
type Channel struct {
	ConstraintInfo
	A []Expr
	B []Expr
}

func (*Channel) constraintNode() {}

// Kind returns KindChannel.
func (*Channel) Kind() Kind { return KindChannel }

// Instantiation fixes each list variable to the corresponding value.
type Instantiation struct {
	ConstraintInfo
	List   []Expr
	Values []int
}

func (*Instantiation) constraintNode() {}

// Kind returns KindInstantiation.
func (*Instantiation) Kind() Kind { return KindInstantiation }

// Group is a constraint template plus one argument row per instantiation.
// Groups exist only before normalization; expansion substitutes each row's
// expressions for the template's Param placeholders, yielding one concrete
// constraint per row.
type Group struct {
	ConstraintInfo
	Template Constraint
	Args     [][]Expr
}

func (*Group) constraintNode() {}

// Kind returns KindGroup.
func (*Group) Kind() Kind { return KindGroup }

// Unsupported retains a constraint the toolchain recognizes but cannot
// translate (regular, mdd, cumulative, noOverlap, circuit, ...) so the
// instance stays inspectable. RawKind preserves the source element name;
// Note optionally records why the construct was set aside.
type Unsupported struct {
	ConstraintInfo
	RawKind string
	Note    string
	List    []Expr // operands recovered from the source, possibly empty
}

func (*Unsupported) constraintNode() {}

// Kind returns the source element name verbatim.
func (c *Unsupported) Kind() Kind { return Kind(c.RawKind) }
