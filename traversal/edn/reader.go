package edn

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	symbolChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789.*+!-_?$%&=<>/@"

	intPattern   = regexp.MustCompile(`^[+-]?\d+N?$`)
	floatPattern = regexp.MustCompile(`^[+-]?\d+(\.\d+)?([eE][+-]?\d+)?M?$`)
)

// reader scans EDN text one node at a time
type reader struct {
	input string
	pos   int
	line  int
	col   int
}

// Parse reads exactly one value from input
func Parse(input string) (*Node, error) {
	nodes, err := ParseAll(input)
	if err != nil {
		return nil, err
	}
	switch len(nodes) {
	case 0:
		return nil, fmt.Errorf("empty input")
	case 1:
		return &nodes[0], nil
	}
	return nil, fmt.Errorf("%s: unexpected %s after value", nodes[1].Pos, nodes[1].Type)
}

// ParseAll reads every value in input
func ParseAll(input string) ([]Node, error) {
	r := &reader{input: input, line: 1, col: 1}
	var nodes []Node
	for {
		r.skipWhitespaceAndComments()
		if r.eof() {
			return nodes, nil
		}
		node, err := r.readNode()
		if err != nil {
			return nil, err
		}
		if node != nil {
			nodes = append(nodes, *node)
		}
	}
}

func (r *reader) eof() bool { return r.pos >= len(r.input) }

func (r *reader) peek() byte {
	if r.eof() {
		return 0
	}
	return r.input[r.pos]
}

func (r *reader) here() Pos { return Pos{Line: r.line, Col: r.col} }

func (r *reader) advance() {
	if r.eof() {
		return
	}
	if r.input[r.pos] == '\n' {
		r.line++
		r.col = 1
	} else {
		r.col++
	}
	r.pos++
}

func (r *reader) skipWhitespaceAndComments() {
	for !r.eof() {
		ch := r.peek()
		switch {
		case unicode.IsSpace(rune(ch)) || ch == ',':
			r.advance()
		case ch == ';':
			for !r.eof() && r.peek() != '\n' {
				r.advance()
			}
		default:
			return
		}
	}
}

// readNode reads the value at the current position. A nil node with a nil
// error is a discarded (#_) form.
func (r *reader) readNode() (*Node, error) {
	pos := r.here()
	switch ch := r.peek(); ch {
	case '"':
		s, err := r.readString()
		if err != nil {
			return nil, err
		}
		return &Node{Type: NodeString, Pos: pos, Value: s}, nil
	case '(':
		return r.readCollection(NodeList, ')')
	case '[':
		return r.readCollection(NodeVector, ']')
	case ')', ']', '{', '}':
		return nil, fmt.Errorf("%s: unexpected '%c'", pos, ch)
	}

	if strings.HasPrefix(r.input[r.pos:], "#_") {
		r.advance()
		r.advance()
		r.skipWhitespaceAndComments()
		if r.eof() {
			return nil, fmt.Errorf("%s: discard without a form", pos)
		}
		if _, err := r.readNode(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	atom := r.readAtom()
	if atom == "" {
		return nil, fmt.Errorf("%s: unexpected character '%c'", pos, r.peek())
	}
	return classify(atom, pos)
}

func (r *reader) readCollection(t NodeType, closer byte) (*Node, error) {
	start := r.here()
	r.advance()

	node := &Node{Type: t, Pos: start}
	for {
		r.skipWhitespaceAndComments()
		if r.eof() {
			return nil, fmt.Errorf("%s: unterminated %s", start, t)
		}
		if r.peek() == closer {
			r.advance()
			return node, nil
		}
		child, err := r.readNode()
		if err != nil {
			return nil, err
		}
		if child != nil {
			node.Nodes = append(node.Nodes, *child)
		}
	}
}

func (r *reader) readString() (string, error) {
	start := r.here()
	var sb strings.Builder
	r.advance() // opening quote

	for !r.eof() {
		ch := r.peek()
		r.advance()
		switch ch {
		case '"':
			return sb.String(), nil
		case '\\':
			if r.eof() {
				return "", fmt.Errorf("%s: unterminated string", start)
			}
			escaped := r.peek()
			switch escaped {
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'n':
				sb.WriteByte('\n')
			case '\\', '"':
				sb.WriteByte(escaped)
			default:
				return "", fmt.Errorf("%s: invalid escape sequence '\\%c'", r.here(), escaped)
			}
			r.advance()
		default:
			sb.WriteByte(ch)
		}
	}
	return "", fmt.Errorf("%s: unterminated string", start)
}

func (r *reader) readAtom() string {
	start := r.pos
	for !r.eof() {
		ch := r.peek()
		if isDelimiter(ch) || unicode.IsSpace(rune(ch)) || ch == ',' {
			break
		}
		r.advance()
	}
	return r.input[start:r.pos]
}

func isDelimiter(ch byte) bool {
	return strings.IndexByte(`()[]{}";`, ch) >= 0
}

func classify(atom string, pos Pos) (*Node, error) {
	switch atom {
	case "nil":
		return &Node{Type: NodeNil, Pos: pos}, nil
	case "true", "false":
		return &Node{Type: NodeBool, Pos: pos, Value: atom}, nil
	}

	switch {
	case strings.HasPrefix(atom, ":"):
		if len(atom) == 1 {
			return nil, fmt.Errorf("%s: empty keyword", pos)
		}
		if err := validateSymbol(atom[1:]); err != nil {
			return nil, fmt.Errorf("%s: %w", pos, err)
		}
		return &Node{Type: NodeKeyword, Pos: pos, Value: atom}, nil
	case intPattern.MatchString(atom):
		return &Node{Type: NodeInt, Pos: pos, Value: atom}, nil
	case floatPattern.MatchString(atom):
		return &Node{Type: NodeFloat, Pos: pos, Value: atom}, nil
	}

	if err := validateSymbol(atom); err != nil {
		return nil, fmt.Errorf("%s: %w", pos, err)
	}
	return &Node{Type: NodeSymbol, Pos: pos, Value: atom}, nil
}

func validateSymbol(s string) error {
	if unicode.IsDigit(rune(s[0])) {
		return fmt.Errorf("symbol cannot start with digit: %s", s)
	}
	for _, ch := range strings.ToUpper(s) {
		if !strings.ContainsRune(symbolChars, ch) {
			return fmt.Errorf("invalid character '%c' in symbol: %s", ch, s)
		}
	}
	return nil
}
