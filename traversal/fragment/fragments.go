package fragment

import (
	"fmt"

	"github.com/wbrown/janus-traversal/traversal"
	"github.com/wbrown/janus-traversal/traversal/pattern"
)

// node holds the variable of a node-local fragment
type node struct {
	v traversal.Variable
}

func (n node) Start() traversal.Variable              { return n.v }
func (n node) End() (traversal.Variable, bool)        { return "", false }
func (n node) Dependencies() []traversal.Variable     { return nil }
func (n node) SymmetricDependency() bool              { return false }
func (n node) MiddleNode() (traversal.Variable, bool) { return "", false }
func (n node) Vars() []traversal.Variable             { return []traversal.Variable{n.v} }

// edge holds the endpoints of a binary edge fragment
type edge struct {
	start traversal.Variable
	end   traversal.Variable
}

func (e edge) Start() traversal.Variable              { return e.start }
func (e edge) End() (traversal.Variable, bool)        { return e.end, true }
func (e edge) Dependencies() []traversal.Variable     { return nil }
func (e edge) SymmetricDependency() bool              { return false }
func (e edge) MiddleNode() (traversal.Variable, bool) { return "", false }
func (e edge) HasFixedCost() bool                     { return false }
func (e edge) Vars() []traversal.Variable {
	return []traversal.Variable{e.start, e.end}
}

// Label looks up a schema type through the label index
type Label struct {
	node
	label traversal.Label
}

// NewLabel creates a label lookup fragment
func NewLabel(v traversal.Variable, label traversal.Label) *Label {
	return &Label{node: node{v: v}, label: label}
}

func (f *Label) Kind() Kind             { return KindLabel }
func (f *Label) Cost() float64          { return CostIndex }
func (f *Label) HasFixedCost() bool     { return true }
func (f *Label) Label() traversal.Label { return f.label }
func (f *Label) String() string         { return fmt.Sprintf("label(%s, %s)", f.v, f.label) }

// ID looks up a single concept by id
type ID struct {
	node
	id string
}

// NewID creates an id lookup fragment
func NewID(v traversal.Variable, id string) *ID {
	return &ID{node: node{v: v}, id: id}
}

func (f *ID) Kind() Kind         { return KindID }
func (f *ID) Cost() float64      { return CostIndex }
func (f *ID) HasFixedCost() bool { return true }
func (f *ID) String() string     { return fmt.Sprintf("id(%s, %q)", f.v, f.id) }

// Value filters attribute values. Equality with a constant is served by the
// attribute index; other constant comparisons are node-local filters;
// comparisons with another variable depend on that variable.
type Value struct {
	node
	op    pattern.CompareOp
	value interface{}
	other traversal.Variable
}

// NewValue creates a value predicate against a constant
func NewValue(v traversal.Variable, op pattern.CompareOp, value interface{}) *Value {
	return &Value{node: node{v: v}, op: op, value: value}
}

// NewValueComparison creates a value predicate between two variables
func NewValueComparison(v traversal.Variable, op pattern.CompareOp, other traversal.Variable) *Value {
	return &Value{node: node{v: v}, op: op, other: other}
}

func (f *Value) Kind() Kind { return KindValue }

func (f *Value) Cost() float64 {
	switch {
	case f.other != "":
		return CostValueComparison
	case f.op == pattern.OpEQ:
		return CostIndex
	default:
		return CostValuePredicate
	}
}

func (f *Value) HasFixedCost() bool {
	return f.other == "" && f.op == pattern.OpEQ
}

func (f *Value) Dependencies() []traversal.Variable {
	if f.other == "" {
		return nil
	}
	return []traversal.Variable{f.other}
}

// SymmetricDependency is true for every variable comparison: the executor
// can evaluate it from whichever side is bound first.
func (f *Value) SymmetricDependency() bool {
	return f.other != ""
}

func (f *Value) Vars() []traversal.Variable {
	if f.other == "" {
		return []traversal.Variable{f.v}
	}
	return []traversal.Variable{f.v, f.other}
}

// Op returns the comparison operator
func (f *Value) Op() pattern.CompareOp { return f.op }

func (f *Value) String() string {
	switch {
	case f.other != "":
		return fmt.Sprintf("value(%s %s %s)", f.v, f.op, f.other)
	default:
		if s, ok := f.value.(string); ok {
			return fmt.Sprintf("value(%s %s %q)", f.v, f.op, s)
		}
		return fmt.Sprintf("value(%s %s %v)", f.v, f.op, f.value)
	}
}

// Neq requires two variables to bind different concepts. It is emitted at
// its start variable once the other variable is bound.
type Neq struct {
	node
	other traversal.Variable
}

// NewNeq creates an inequality fragment
func NewNeq(v, other traversal.Variable) *Neq {
	return &Neq{node: node{v: v}, other: other}
}

func (f *Neq) Kind() Kind                         { return KindNeq }
func (f *Neq) Cost() float64                      { return CostNeq }
func (f *Neq) HasFixedCost() bool                 { return false }
func (f *Neq) Dependencies() []traversal.Variable { return []traversal.Variable{f.other} }
func (f *Neq) Vars() []traversal.Variable         { return []traversal.Variable{f.v, f.other} }
func (f *Neq) String() string                     { return fmt.Sprintf("neq(%s, %s)", f.v, f.other) }

// InIsa walks from a type to its direct instances
type InIsa struct {
	edge
}

// NewInIsa creates a type -> instance edge
func NewInIsa(typ, instance traversal.Variable) *InIsa {
	return &InIsa{edge{start: typ, end: instance}}
}

func (f *InIsa) Kind() Kind     { return KindInIsa }
func (f *InIsa) Cost() float64  { return CostInstancesPerType }
func (f *InIsa) String() string { return fmt.Sprintf("in-isa(%s -> %s)", f.start, f.end) }

// OutIsa walks from an instance to its type
type OutIsa struct {
	edge
}

// NewOutIsa creates an instance -> type edge
func NewOutIsa(instance, typ traversal.Variable) *OutIsa {
	return &OutIsa{edge{start: instance, end: typ}}
}

func (f *OutIsa) Kind() Kind     { return KindOutIsa }
func (f *OutIsa) Cost() float64  { return CostTypesPerInstance }
func (f *OutIsa) String() string { return fmt.Sprintf("out-isa(%s -> %s)", f.start, f.end) }

// InSub walks from a type to its subtypes
type InSub struct {
	edge
}

// NewInSub creates a supertype -> subtype edge
func NewInSub(super, sub traversal.Variable) *InSub {
	return &InSub{edge{start: super, end: sub}}
}

func (f *InSub) Kind() Kind     { return KindInSub }
func (f *InSub) Cost() float64  { return CostSubtypesPerType }
func (f *InSub) String() string { return fmt.Sprintf("in-sub(%s -> %s)", f.start, f.end) }

// OutSub walks from a type to its supertype
type OutSub struct {
	edge
}

// NewOutSub creates a subtype -> supertype edge
func NewOutSub(sub, super traversal.Variable) *OutSub {
	return &OutSub{edge{start: sub, end: super}}
}

func (f *OutSub) Kind() Kind     { return KindOutSub }
func (f *OutSub) Cost() float64  { return CostSupertypesPerType }
func (f *OutSub) String() string { return fmt.Sprintf("out-sub(%s -> %s)", f.start, f.end) }

// OutHas walks from an owner to its attributes
type OutHas struct {
	edge
}

// NewOutHas creates an owner -> attribute edge
func NewOutHas(owner, attribute traversal.Variable) *OutHas {
	return &OutHas{edge{start: owner, end: attribute}}
}

func (f *OutHas) Kind() Kind     { return KindOutHas }
func (f *OutHas) Cost() float64  { return CostAttributesPerOwner }
func (f *OutHas) String() string { return fmt.Sprintf("out-has(%s -> %s)", f.start, f.end) }

// InHas walks from an attribute to its owners
type InHas struct {
	edge
}

// NewInHas creates an attribute -> owner edge
func NewInHas(attribute, owner traversal.Variable) *InHas {
	return &InHas{edge{start: attribute, end: owner}}
}

func (f *InHas) Kind() Kind     { return KindInHas }
func (f *InHas) Cost() float64  { return CostOwnersPerAttribute }
func (f *InHas) String() string { return fmt.Sprintf("in-has(%s -> %s)", f.start, f.end) }

// rolePlayer is a relation edge. The store keeps role players as edge
// vertices (relation, role, player), so the fragment spans more than two
// variables and is planned through a synthetic middle node.
type rolePlayer struct {
	edge
	role traversal.Label
}

func (f rolePlayer) HasFixedCost() bool { return false }

// Role returns the role label, empty when any role matches
func (f rolePlayer) Role() traversal.Label { return f.role }

func (f rolePlayer) render(kind Kind) string {
	if f.role == "" {
		return fmt.Sprintf("%s(%s -> %s)", kind, f.start, f.end)
	}
	return fmt.Sprintf("%s(%s -[%s]-> %s)", kind, f.start, f.role, f.end)
}

// OutRolePlayer walks from a relation to one of its role players
type OutRolePlayer struct {
	rolePlayer
}

// NewOutRolePlayer creates a relation -> player edge
func NewOutRolePlayer(relation traversal.Variable, role traversal.Label, player traversal.Variable) *OutRolePlayer {
	return &OutRolePlayer{rolePlayer{edge: edge{start: relation, end: player}, role: role}}
}

func (f *OutRolePlayer) Kind() Kind     { return KindOutRolePlayer }
func (f *OutRolePlayer) Cost() float64  { return CostPlayersPerRelation }
func (f *OutRolePlayer) String() string { return f.render(KindOutRolePlayer) }
func (f *OutRolePlayer) MiddleNode() (traversal.Variable, bool) {
	return traversal.Variable("?_" + f.String()), true
}

// InRolePlayer walks from a role player to the relations it plays in
type InRolePlayer struct {
	rolePlayer
}

// NewInRolePlayer creates a player -> relation edge
func NewInRolePlayer(player traversal.Variable, role traversal.Label, relation traversal.Variable) *InRolePlayer {
	return &InRolePlayer{rolePlayer{edge: edge{start: player, end: relation}, role: role}}
}

func (f *InRolePlayer) Kind() Kind     { return KindInRolePlayer }
func (f *InRolePlayer) Cost() float64  { return CostRelationsPerPlayer }
func (f *InRolePlayer) String() string { return f.render(KindInRolePlayer) }
func (f *InRolePlayer) MiddleNode() (traversal.Variable, bool) {
	return traversal.Variable("?_" + f.String()), true
}

var (
	_ Labelled = (*Label)(nil)
	_ Fragment = (*ID)(nil)
	_ Fragment = (*Value)(nil)
	_ Fragment = (*Neq)(nil)
	_ Fragment = (*InIsa)(nil)
	_ Fragment = (*OutIsa)(nil)
	_ Fragment = (*InSub)(nil)
	_ Fragment = (*OutSub)(nil)
	_ Fragment = (*InHas)(nil)
	_ Fragment = (*OutHas)(nil)
	_ Fragment = (*InRolePlayer)(nil)
	_ Fragment = (*OutRolePlayer)(nil)
)
