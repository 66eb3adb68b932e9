package planner

import (
	"github.com/google/uuid"

	"github.com/wbrown/janus-traversal/traversal"
	"github.com/wbrown/janus-traversal/traversal/fragment"
)

// inferredType records a relation type added by inferRelationTypes
type inferredType struct {
	Relation traversal.Variable
	TypeVar  traversal.Variable
	Type     traversal.Label
}

// typeVariable names the synthetic variable holding an inferred relation
// type. The name is derived from the relation variable and the type, so
// planning the same pattern twice yields the same fragments.
func typeVariable(relation traversal.Variable, label traversal.Label) traversal.Variable {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(string(relation)+"\x00"+string(label)))
	return traversal.Variable("?_" + id.String())
}

// inferRelationTypes adds a type to relation variables that have none when
// the types of their role players leave exactly one candidate relation
// type. For each such relation it adds a label lookup on a synthetic
// variable and a type -> instance edge to the relation variable.
func inferRelationTypes(frags []fragment.Fragment, schema Schema) ([]fragment.Fragment, []inferredType) {
	labels := make(map[traversal.Variable]traversal.Label)
	for _, f := range frags {
		if l, ok := f.(fragment.Labelled); ok {
			if _, seen := labels[f.Start()]; !seen && schema.IsType(l.Label()) {
				labels[f.Start()] = l.Label()
			}
		}
	}

	typeOf := make(map[traversal.Variable]traversal.Label)
	typed := traversal.NewVarSet()
	for _, f := range frags {
		end, ok := f.End()
		if !ok {
			continue
		}
		var instance, typ traversal.Variable
		switch f.Kind() {
		case fragment.KindInIsa:
			typ, instance = f.Start(), end
		case fragment.KindOutIsa:
			instance, typ = f.Start(), end
		default:
			continue
		}
		typed.Add(instance)
		if label, ok := labels[typ]; ok {
			if _, seen := typeOf[instance]; !seen {
				typeOf[instance] = label
			}
		}
	}

	players := make(map[traversal.Variable][]traversal.Variable)
	for _, f := range frags {
		end, ok := f.End()
		if !ok {
			continue
		}
		switch f.Kind() {
		case fragment.KindOutRolePlayer:
			players[f.Start()] = append(players[f.Start()], end)
		case fragment.KindInRolePlayer:
			players[end] = append(players[end], f.Start())
		}
	}

	relations := make([]traversal.Variable, 0, len(players))
	for r := range players {
		relations = append(relations, r)
	}
	traversal.SortVariables(relations)

	var inferred []inferredType
	for _, r := range relations {
		if typed.Contains(r) {
			continue
		}
		var candidates map[traversal.Label]bool
		for _, p := range players[r] {
			label, ok := typeOf[p]
			if !ok {
				continue
			}
			played := make(map[traversal.Label]bool)
			for _, rel := range schema.RelationTypesPlayedBy(label) {
				if candidates == nil || candidates[rel] {
					played[rel] = true
				}
			}
			candidates = played
		}
		if len(candidates) != 1 {
			continue
		}
		var label traversal.Label
		for l := range candidates {
			label = l
		}
		v := typeVariable(r, label)
		frags = append(frags, fragment.NewLabel(v, label), fragment.NewInIsa(v, r))
		inferred = append(inferred, inferredType{Relation: r, TypeVar: v, Type: label})
	}

	return fragment.Dedup(frags), inferred
}
