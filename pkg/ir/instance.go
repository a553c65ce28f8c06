package ir

import "fmt"

// ProblemType distinguishes satisfaction from optimization instances.
type ProblemType int

// Problem types.
const (
	// CSP is a pure satisfaction instance.
	CSP ProblemType = iota
	// COP is an optimization instance carrying an objective.
	COP
)

// String returns the XCSP3 name of the problem type.
func (t ProblemType) String() string {
	if t == COP {
		return "COP"
	}
	return "CSP"
}

// ParseProblemType converts an instance type attribute to a ProblemType.
// The empty string defaults to CSP. Returns CSP and false for unknown
// values.
func ParseProblemType(s string) (ProblemType, bool) {
	switch s {
	case "", "CSP":
		return CSP, true
	case "COP":
		return COP, true
	default:
		return CSP, false
	}
}

// Variable is a single integer decision variable. Array cells created
// during normalization carry their array's id in Owner; declared
// variables leave it empty.
type Variable struct {
	ID     string
	Domain Domain
	Owner  string
}

// Array records an array declaration. Before normalization it stands in
// for its cells; expansion creates one Variable per cell and records the
// generated cell ids here so the writer can emit the array positionally.
type Array struct {
	ID         string
	Size       []int
	StartIndex int
	Domain     Domain
	Cells      []string // filled by the normalizer, row-major
}

// Len returns the total number of cells.
func (a *Array) Len() int {
	if len(a.Size) == 0 {
		return 0
	}
	n := 1
	for _, dim := range a.Size {
		n *= dim
	}
	return n
}

// Objective is an optimization target. Target may be any expression,
// including an Aggregate for the sum/product/minimum/maximum/nValues
// objective forms.
type Objective struct {
	Minimize bool
	Target   Expr
}

// Instance is a complete constraint model: variables in declaration
// order, constraints in source order, and at most one objective.
type Instance struct {
	Type        ProblemType
	Variables   []*Variable
	Arrays      []*Array
	Constraints []Constraint
	Objective   *Objective

	// Incomplete is set when the instance still contains constraints the
	// target vocabulary cannot express.
	Incomplete bool

	byID map[string]*Variable
}

// NewInstance returns an empty instance of the given problem type.
func NewInstance(t ProblemType) *Instance {
	return &Instance{
		Type: t,
		byID: make(map[string]*Variable),
	}
}

// AddVariable appends a variable, rejecting duplicate ids.
func (m *Instance) AddVariable(v *Variable) error {
	if m.byID == nil {
		m.byID = make(map[string]*Variable)
	}
	if _, ok := m.byID[v.ID]; ok {
		return &MalformedInstanceError{Message: fmt.Sprintf(ErrDuplicateVariable, v.ID)}
	}
	if _, ok := m.Array(v.ID); ok {
		return &MalformedInstanceError{Message: fmt.Sprintf(ErrDuplicateVariable, v.ID)}
	}
	m.byID[v.ID] = v
	m.Variables = append(m.Variables, v)
	return nil
}

// AddArray appends an array declaration, rejecting duplicate ids.
func (m *Instance) AddArray(a *Array) error {
	if _, ok := m.byID[a.ID]; ok {
		return &MalformedInstanceError{Message: fmt.Sprintf(ErrDuplicateArray, a.ID)}
	}
	if _, ok := m.Array(a.ID); ok {
		return &MalformedInstanceError{Message: fmt.Sprintf(ErrDuplicateArray, a.ID)}
	}
	m.Arrays = append(m.Arrays, a)
	return nil
}

// Variable looks up a variable by id.
func (m *Instance) Variable(id string) (*Variable, bool) {
	v, ok := m.byID[id]
	return v, ok
}

// Array looks up an array declaration by id.
func (m *Instance) Array(id string) (*Array, bool) {
	for _, a := range m.Arrays {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// SetObjective installs the objective, rejecting a second one.
func (m *Instance) SetObjective(o *Objective) error {
	if m.Objective != nil {
		return &MalformedInstanceError{Message: ErrMultipleObjectives}
	}
	m.Objective = o
	return nil
}
