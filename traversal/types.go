// Package traversal holds the identifiers shared by the pattern model, the
// fragment catalog and the traversal planner.
package traversal

import (
	"sort"
	"strings"
)

// Variable names a query variable (e.g. ?x). Synthetic variables created by
// the planner or by inference start with "?_".
type Variable string

// String returns the variable name
func (v Variable) String() string {
	return string(v)
}

// IsSynthetic reports whether the variable was generated rather than written by the user
func (v Variable) IsSynthetic() bool {
	return strings.HasPrefix(string(v), "?_")
}

// Label names a schema type (entity, relation, attribute or role type)
type Label string

// String returns the label
func (l Label) String() string {
	return string(l)
}

// IsImplicit reports whether the label names an implicit type. Implicit types
// are generated by the schema (e.g. attribute ownership relations) and are
// prefixed with '@'.
func (l Label) IsImplicit() bool {
	return strings.HasPrefix(string(l), "@")
}

// VarSet is a set of variables
type VarSet map[Variable]struct{}

// NewVarSet creates a set holding the given variables
func NewVarSet(vars ...Variable) VarSet {
	s := make(VarSet, len(vars))
	for _, v := range vars {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts a variable
func (s VarSet) Add(v Variable) {
	s[v] = struct{}{}
}

// Contains reports whether v is in the set
func (s VarSet) Contains(v Variable) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the variables in lexical order
func (s VarSet) Sorted() []Variable {
	out := make([]Variable, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	SortVariables(out)
	return out
}

// SortVariables sorts variables in place in lexical order
func SortVariables(vars []Variable) {
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
}
