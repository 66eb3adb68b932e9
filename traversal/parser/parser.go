// Package parser reads graph patterns written in EDN.
//
// A pattern is a match vector, a conjunction or a disjunction of clauses:
//
//	[:match
//	  [?p :label person]
//	  [?x :isa ?p]
//	  (or [?x :has ?n] [?r :rel employee ?x])]
//
// Clauses:
//
//	[?x :label person]          ?x is the type labelled person
//	[?x :id "V1"]               ?x is the concept with id V1
//	[?x :isa ?t]                ?x is an instance of ?t
//	[?s :sub ?t]                ?s is a subtype of ?t
//	[?x :has ?a]                ?x owns the attribute ?a
//	[?r :rel role ?x]           ?x plays role in relation ?r (role optional)
//	[?a :value op constant]     compares the value of ?a with a constant
//	[?a :value op ?b]           compares the values of ?a and ?b
//	[?x :neq ?y]                ?x and ?y are different concepts
//	(and clause...) (or clause...)
package parser

import (
	"fmt"
	"strings"

	"github.com/wbrown/janus-traversal/traversal"
	"github.com/wbrown/janus-traversal/traversal/edn"
	"github.com/wbrown/janus-traversal/traversal/pattern"
)

// ParsePattern parses a pattern from EDN text
func ParsePattern(input string) (pattern.Pattern, error) {
	node, err := edn.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("EDN parse error: %w", err)
	}
	return parseNode(node)
}

func parseNode(node *edn.Node) (pattern.Pattern, error) {
	switch node.Type {
	case edn.NodeVector:
		if len(node.Nodes) > 0 && node.Nodes[0].Is(edn.NodeKeyword, ":match") {
			return parseMatch(node)
		}
		return parseClause(node)
	case edn.NodeList:
		return parseCombinator(node)
	}
	return nil, fmt.Errorf("%s: expected a clause, got %s", node.Pos, node.Type)
}

// parseMatch parses [:match clause...] as a conjunction
func parseMatch(node *edn.Node) (pattern.Pattern, error) {
	if len(node.Nodes) == 1 {
		return nil, fmt.Errorf("%s: :match requires at least one clause", node.Pos)
	}
	children, err := parseChildren(node.Nodes[1:])
	if err != nil {
		return nil, err
	}
	return pattern.And(children...), nil
}

// parseCombinator parses (and ...) and (or ...)
func parseCombinator(node *edn.Node) (pattern.Pattern, error) {
	if len(node.Nodes) == 0 || node.Nodes[0].Type != edn.NodeSymbol {
		return nil, fmt.Errorf("%s: expected (and ...) or (or ...)", node.Pos)
	}
	op := node.Nodes[0].Value
	if op != "and" && op != "or" {
		return nil, fmt.Errorf("%s: unknown combinator %s", node.Pos, op)
	}
	if len(node.Nodes) == 1 {
		return nil, fmt.Errorf("%s: (%s) requires at least one clause", node.Pos, op)
	}

	children, err := parseChildren(node.Nodes[1:])
	if err != nil {
		return nil, err
	}
	if op == "and" {
		return pattern.And(children...), nil
	}
	return pattern.Or(children...), nil
}

func parseChildren(nodes []edn.Node) ([]pattern.Pattern, error) {
	children := make([]pattern.Pattern, 0, len(nodes))
	for i := range nodes {
		child, err := parseNode(&nodes[i])
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// parseClause parses an atomic clause [subject :keyword args...]
func parseClause(node *edn.Node) (pattern.Atom, error) {
	if len(node.Nodes) < 3 {
		return nil, fmt.Errorf("%s: clause %s needs a variable, a keyword and an argument", node.Pos, node)
	}
	subject, err := parseVariable(&node.Nodes[0])
	if err != nil {
		return nil, err
	}
	kw := node.Nodes[1]
	if kw.Type != edn.NodeKeyword {
		return nil, fmt.Errorf("%s: expected clause keyword, got %s", kw.Pos, kw.Type)
	}
	args := node.Nodes[2:]

	switch kw.Value {
	case ":label":
		if err := arity(node, args, 1); err != nil {
			return nil, err
		}
		label, err := parseLabel(&args[0])
		if err != nil {
			return nil, err
		}
		return pattern.Label{Var: subject, Label: label}, nil

	case ":id":
		if err := arity(node, args, 1); err != nil {
			return nil, err
		}
		if args[0].Type != edn.NodeString {
			return nil, fmt.Errorf("%s: :id expects a string, got %s", args[0].Pos, args[0].Type)
		}
		return pattern.ID{Var: subject, ID: args[0].Value}, nil

	case ":isa", ":sub", ":has", ":neq":
		if err := arity(node, args, 1); err != nil {
			return nil, err
		}
		object, err := parseVariable(&args[0])
		if err != nil {
			return nil, err
		}
		switch kw.Value {
		case ":isa":
			return pattern.Isa{Instance: subject, Type: object}, nil
		case ":sub":
			return pattern.Sub{Sub: subject, Super: object}, nil
		case ":has":
			return pattern.Has{Owner: subject, Attribute: object}, nil
		default:
			return pattern.Neq{Var: subject, Other: object}, nil
		}

	case ":rel":
		return parseRolePlayer(node, subject, args)

	case ":value":
		return parseValue(node, subject, args)
	}

	return nil, fmt.Errorf("%s: unknown clause keyword %s", kw.Pos, kw.Value)
}

func parseRolePlayer(node *edn.Node, relation traversal.Variable, args []edn.Node) (pattern.Atom, error) {
	switch len(args) {
	case 1:
		player, err := parseVariable(&args[0])
		if err != nil {
			return nil, err
		}
		return pattern.RolePlayer{Relation: relation, Player: player}, nil
	case 2:
		role, err := parseLabel(&args[0])
		if err != nil {
			return nil, err
		}
		player, err := parseVariable(&args[1])
		if err != nil {
			return nil, err
		}
		return pattern.RolePlayer{Relation: relation, Role: role, Player: player}, nil
	}
	return nil, fmt.Errorf("%s: :rel takes an optional role and a player", node.Pos)
}

func parseValue(node *edn.Node, v traversal.Variable, args []edn.Node) (pattern.Atom, error) {
	if err := arity(node, args, 2); err != nil {
		return nil, err
	}
	if args[0].Type != edn.NodeSymbol {
		return nil, fmt.Errorf("%s: expected comparison operator, got %s", args[0].Pos, args[0].Type)
	}
	op, err := pattern.ParseCompareOp(args[0].Value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", args[0].Pos, err)
	}

	operand := &args[1]
	if isVariable(operand) {
		return pattern.Value{Var: v, Op: op, Other: traversal.Variable(operand.Value)}, nil
	}
	if operand.Type == edn.NodeSymbol || operand.IsCollection() {
		return nil, fmt.Errorf("%s: expected a variable or a constant, got %s", operand.Pos, operand)
	}
	value, err := operand.Scalar()
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, fmt.Errorf("%s: cannot compare with nil", operand.Pos)
	}
	return pattern.Value{Var: v, Op: op, Value: value}, nil
}

func arity(node *edn.Node, args []edn.Node, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: %s expects %d argument(s), got %d", node.Pos, node.Nodes[1].Value, n, len(args))
	}
	return nil
}

func isVariable(node *edn.Node) bool {
	return node.Type == edn.NodeSymbol && strings.HasPrefix(node.Value, "?") && len(node.Value) > 1
}

func parseVariable(node *edn.Node) (traversal.Variable, error) {
	if !isVariable(node) {
		return "", fmt.Errorf("%s: expected a variable, got %s", node.Pos, node)
	}
	v := traversal.Variable(node.Value)
	if v.IsSynthetic() {
		return "", fmt.Errorf("%s: variable names starting with ?_ are reserved", node.Pos)
	}
	return v, nil
}

// parseLabel accepts a bare symbol or a string
func parseLabel(node *edn.Node) (traversal.Label, error) {
	switch node.Type {
	case edn.NodeSymbol:
		if !isVariable(node) {
			return traversal.Label(node.Value), nil
		}
	case edn.NodeString:
		if node.Value != "" {
			return traversal.Label(node.Value), nil
		}
	}
	return "", fmt.Errorf("%s: expected a label, got %s", node.Pos, node)
}
