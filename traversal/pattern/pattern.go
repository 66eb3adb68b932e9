// Package pattern models graph patterns: atomic constraints over query
// variables combined with conjunction and disjunction.
package pattern

import (
	"fmt"
	"strings"

	"github.com/wbrown/janus-traversal/traversal"
)

// Pattern is any node of a pattern tree
type Pattern interface {
	String() string
	isPattern()
}

// Atom is a leaf constraint over one or more variables
type Atom interface {
	Pattern
	// Vars returns the variables the atom constrains
	Vars() []traversal.Variable
}

// CompareOp is a value comparison operator
type CompareOp string

const (
	OpEQ       CompareOp = "="
	OpNEQ      CompareOp = "!="
	OpLT       CompareOp = "<"
	OpLTE      CompareOp = "<="
	OpGT       CompareOp = ">"
	OpGTE      CompareOp = ">="
	OpContains CompareOp = "contains"
)

// ParseCompareOp returns the operator for its textual form
func ParseCompareOp(s string) (CompareOp, error) {
	switch op := CompareOp(s); op {
	case OpEQ, OpNEQ, OpLT, OpLTE, OpGT, OpGTE, OpContains:
		return op, nil
	case "==":
		return OpEQ, nil
	}
	return "", fmt.Errorf("unknown comparison operator: %s", s)
}

// Label constrains a variable to be the schema type with the given label
type Label struct {
	Var   traversal.Variable
	Label traversal.Label
}

// ID constrains a variable to the concept with the given id
type ID struct {
	Var traversal.Variable
	ID  string
}

// Isa constrains Instance to be an instance of Type
type Isa struct {
	Instance traversal.Variable
	Type     traversal.Variable
}

// Sub constrains Sub to be a subtype of Super
type Sub struct {
	Sub   traversal.Variable
	Super traversal.Variable
}

// Has constrains Owner to own the attribute Attribute
type Has struct {
	Owner     traversal.Variable
	Attribute traversal.Variable
}

// RolePlayer constrains Player to play Role in the relation Relation.
// An empty Role matches any role.
type RolePlayer struct {
	Relation traversal.Variable
	Role     traversal.Label
	Player   traversal.Variable
}

// Value compares the value of Var with either a constant (Value) or the value
// of another variable (Other).
type Value struct {
	Var   traversal.Variable
	Op    CompareOp
	Value interface{}
	Other traversal.Variable
}

// Neq constrains Var and Other to be different concepts
type Neq struct {
	Var   traversal.Variable
	Other traversal.Variable
}

// Conjunction matches when all of its patterns match
type Conjunction struct {
	Patterns []Pattern
}

// Disjunction matches when any of its patterns match
type Disjunction struct {
	Patterns []Pattern
}

// And builds a conjunction
func And(patterns ...Pattern) Conjunction {
	return Conjunction{Patterns: patterns}
}

// Or builds a disjunction
func Or(patterns ...Pattern) Disjunction {
	return Disjunction{Patterns: patterns}
}

func (Label) isPattern()       {}
func (ID) isPattern()          {}
func (Isa) isPattern()         {}
func (Sub) isPattern()         {}
func (Has) isPattern()         {}
func (RolePlayer) isPattern()  {}
func (Value) isPattern()       {}
func (Neq) isPattern()         {}
func (Conjunction) isPattern() {}
func (Disjunction) isPattern() {}

func (a Label) Vars() []traversal.Variable { return []traversal.Variable{a.Var} }
func (a ID) Vars() []traversal.Variable    { return []traversal.Variable{a.Var} }
func (a Isa) Vars() []traversal.Variable {
	return []traversal.Variable{a.Instance, a.Type}
}
func (a Sub) Vars() []traversal.Variable { return []traversal.Variable{a.Sub, a.Super} }
func (a Has) Vars() []traversal.Variable {
	return []traversal.Variable{a.Owner, a.Attribute}
}
func (a RolePlayer) Vars() []traversal.Variable {
	return []traversal.Variable{a.Relation, a.Player}
}
func (a Value) Vars() []traversal.Variable {
	if a.Other != "" {
		return []traversal.Variable{a.Var, a.Other}
	}
	return []traversal.Variable{a.Var}
}
func (a Neq) Vars() []traversal.Variable { return []traversal.Variable{a.Var, a.Other} }

// HasOther reports whether the value comparison is between two variables
func (a Value) HasOther() bool {
	return a.Other != ""
}

func (a Label) String() string { return fmt.Sprintf("[%s :label %s]", a.Var, a.Label) }
func (a ID) String() string    { return fmt.Sprintf("[%s :id %q]", a.Var, a.ID) }
func (a Isa) String() string   { return fmt.Sprintf("[%s :isa %s]", a.Instance, a.Type) }
func (a Sub) String() string   { return fmt.Sprintf("[%s :sub %s]", a.Sub, a.Super) }
func (a Has) String() string   { return fmt.Sprintf("[%s :has %s]", a.Owner, a.Attribute) }
func (a RolePlayer) String() string {
	if a.Role == "" {
		return fmt.Sprintf("[%s :rel %s]", a.Relation, a.Player)
	}
	return fmt.Sprintf("[%s :rel %s %s]", a.Relation, a.Role, a.Player)
}
func (a Value) String() string {
	if a.HasOther() {
		return fmt.Sprintf("[%s :value %s %s]", a.Var, a.Op, a.Other)
	}
	if s, ok := a.Value.(string); ok {
		return fmt.Sprintf("[%s :value %s %q]", a.Var, a.Op, s)
	}
	return fmt.Sprintf("[%s :value %s %v]", a.Var, a.Op, a.Value)
}
func (a Neq) String() string { return fmt.Sprintf("[%s :neq %s]", a.Var, a.Other) }

func (c Conjunction) String() string {
	return "(and " + joinPatterns(c.Patterns) + ")"
}

func (d Disjunction) String() string {
	return "(or " + joinPatterns(d.Patterns) + ")"
}

func joinPatterns(patterns []Pattern) string {
	parts := make([]string, len(patterns))
	for i, p := range patterns {
		parts[i] = p.String()
	}
	return strings.Join(parts, " ")
}

// Atoms returns the atoms of a conjunction in normal form. Nested patterns
// are skipped; call DisjunctiveNormalForm first to flatten them.
func (c Conjunction) Atoms() []Atom {
	atoms := make([]Atom, 0, len(c.Patterns))
	for _, p := range c.Patterns {
		if a, ok := p.(Atom); ok {
			atoms = append(atoms, a)
		}
	}
	return atoms
}

// Vars returns every variable mentioned by the conjunction's atoms
func (c Conjunction) Vars() traversal.VarSet {
	vars := traversal.NewVarSet()
	for _, a := range c.Atoms() {
		for _, v := range a.Vars() {
			vars.Add(v)
		}
	}
	return vars
}
