package fragment

import (
	"fmt"

	"github.com/wbrown/janus-traversal/traversal"
	"github.com/wbrown/janus-traversal/traversal/pattern"
)

// FromConjunction maps the atoms of a conjunction in normal form to a
// flattened, deduplicated fragment set.
//
// Binary atoms can be traversed in either direction but only one fragment is
// produced for each, so the direction is chosen here: atoms are oriented away
// from variables with an index-backed constraint, breadth first. With a
// single anchor this lets the planner span every variable of a connected
// pattern from it. With several anchors the fronts can meet head on (two
// players both pointing at their relation), and the part not spanned is
// left to the sweep, which walks it from the other anchor. Atoms
// unreachable from any anchor keep their natural direction (type to
// instance, supertype to subtype, owner to attribute, relation to player).
func FromConjunction(conj pattern.Conjunction) ([]Fragment, error) {
	atoms := conj.Atoms()
	if len(atoms) != len(conj.Patterns) {
		return nil, fmt.Errorf("conjunction is not in disjunctive normal form: %s", conj)
	}

	forward := orient(atoms)

	var frags []Fragment
	for i, atom := range atoms {
		switch a := atom.(type) {
		case pattern.Label:
			frags = append(frags, NewLabel(a.Var, a.Label))
		case pattern.ID:
			frags = append(frags, NewID(a.Var, a.ID))
		case pattern.Value:
			if a.HasOther() {
				frags = append(frags, NewValueComparison(a.Var, a.Op, a.Other))
			} else {
				frags = append(frags, NewValue(a.Var, a.Op, a.Value))
			}
		case pattern.Neq:
			frags = append(frags, NewNeq(a.Var, a.Other))
		case pattern.Isa:
			if forward[i] {
				frags = append(frags, NewInIsa(a.Type, a.Instance))
			} else {
				frags = append(frags, NewOutIsa(a.Instance, a.Type))
			}
		case pattern.Sub:
			if forward[i] {
				frags = append(frags, NewInSub(a.Super, a.Sub))
			} else {
				frags = append(frags, NewOutSub(a.Sub, a.Super))
			}
		case pattern.Has:
			if forward[i] {
				frags = append(frags, NewOutHas(a.Owner, a.Attribute))
			} else {
				frags = append(frags, NewInHas(a.Attribute, a.Owner))
			}
		case pattern.RolePlayer:
			if forward[i] {
				frags = append(frags, NewOutRolePlayer(a.Relation, a.Role, a.Player))
			} else {
				frags = append(frags, NewInRolePlayer(a.Player, a.Role, a.Relation))
			}
		default:
			return nil, fmt.Errorf("no fragment mapping for %T", atom)
		}
	}

	return Dedup(frags), nil
}

// naturalEnds returns the (start, end) of a binary atom in its natural direction
func naturalEnds(atom pattern.Atom) (traversal.Variable, traversal.Variable, bool) {
	switch a := atom.(type) {
	case pattern.Isa:
		return a.Type, a.Instance, true
	case pattern.Sub:
		return a.Super, a.Sub, true
	case pattern.Has:
		return a.Owner, a.Attribute, true
	case pattern.RolePlayer:
		return a.Relation, a.Player, true
	}
	return "", "", false
}

// isAnchor reports whether the atom is an index-backed constraint on its variable
func isAnchor(atom pattern.Atom) (traversal.Variable, bool) {
	switch a := atom.(type) {
	case pattern.Label:
		return a.Var, true
	case pattern.ID:
		return a.Var, true
	case pattern.Value:
		if !a.HasOther() && a.Op == pattern.OpEQ {
			return a.Var, true
		}
	}
	return "", false
}

// orient decides, for each binary atom, whether it is traversed in its
// natural direction
func orient(atoms []pattern.Atom) []bool {
	forward := make([]bool, len(atoms))
	oriented := make([]bool, len(atoms))

	visited := traversal.NewVarSet()
	var queue []traversal.Variable
	anchors := traversal.NewVarSet()
	for _, atom := range atoms {
		if v, ok := isAnchor(atom); ok {
			anchors.Add(v)
		}
	}
	for _, v := range anchors.Sorted() {
		visited.Add(v)
		queue = append(queue, v)
	}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for i, atom := range atoms {
			if oriented[i] {
				continue
			}
			start, end, ok := naturalEnds(atom)
			if !ok {
				continue
			}
			var other traversal.Variable
			switch u {
			case start:
				forward[i], other = true, end
			case end:
				forward[i], other = false, start
			default:
				continue
			}
			oriented[i] = true
			if !visited.Contains(other) {
				visited.Add(other)
				queue = append(queue, other)
			}
		}
	}

	for i, atom := range atoms {
		if _, _, ok := naturalEnds(atom); ok && !oriented[i] {
			forward[i] = true
		}
	}
	return forward
}
