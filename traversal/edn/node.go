// Package edn reads the EDN subset used by the pattern language: nil,
// booleans, numbers, strings, symbols, keywords, lists and vectors.
package edn

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeType is the type of an EDN node
type NodeType int

const (
	NodeNil NodeType = iota
	NodeBool
	NodeInt
	NodeFloat
	NodeString
	NodeSymbol
	NodeKeyword
	NodeList
	NodeVector
)

var nodeTypeNames = [...]string{
	NodeNil:     "nil",
	NodeBool:    "bool",
	NodeInt:     "int",
	NodeFloat:   "float",
	NodeString:  "string",
	NodeSymbol:  "symbol",
	NodeKeyword: "keyword",
	NodeList:    "list",
	NodeVector:  "vector",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// Pos is a line:column position in the input
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// Node is an EDN value
type Node struct {
	Type  NodeType
	Pos   Pos
	Value string // atoms; strings are unescaped
	Nodes []Node // lists and vectors
}

// String renders the node back to EDN
func (n Node) String() string {
	switch n.Type {
	case NodeNil:
		return "nil"
	case NodeString:
		return strconv.Quote(n.Value)
	case NodeList:
		return "(" + joinNodes(n.Nodes) + ")"
	case NodeVector:
		return "[" + joinNodes(n.Nodes) + "]"
	default:
		return n.Value
	}
}

func joinNodes(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, node := range nodes {
		parts[i] = node.String()
	}
	return strings.Join(parts, " ")
}

// Is reports whether the node is a symbol or keyword with the given text
func (n Node) Is(t NodeType, value string) bool {
	return n.Type == t && n.Value == value
}

// IsCollection returns true for lists and vectors
func (n Node) IsCollection() bool {
	return n.Type == NodeList || n.Type == NodeVector
}

// AsInt returns the value of an int node
func (n Node) AsInt() (int64, error) {
	if n.Type != NodeInt {
		return 0, fmt.Errorf("%s: expected int, got %s", n.Pos, n.Type)
	}
	return strconv.ParseInt(strings.TrimSuffix(n.Value, "N"), 10, 64)
}

// AsFloat returns the value of a float node
func (n Node) AsFloat() (float64, error) {
	if n.Type != NodeFloat {
		return 0, fmt.Errorf("%s: expected float, got %s", n.Pos, n.Type)
	}
	return strconv.ParseFloat(strings.TrimSuffix(n.Value, "M"), 64)
}

// Scalar converts an atom to its Go value: nil, bool, int64, float64 or
// string. Symbols and keywords are returned as their text.
func (n Node) Scalar() (interface{}, error) {
	switch n.Type {
	case NodeNil:
		return nil, nil
	case NodeBool:
		return n.Value == "true", nil
	case NodeInt:
		return n.AsInt()
	case NodeFloat:
		return n.AsFloat()
	case NodeString, NodeSymbol, NodeKeyword:
		return n.Value, nil
	}
	return nil, fmt.Errorf("%s: %s is not a scalar", n.Pos, n.Type)
}
