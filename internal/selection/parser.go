package selection

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// SyntaxError reports malformed selection text. Offset is a byte offset into
// the whitespace-normalized input.
type SyntaxError struct {
	Char    rune
	Offset  int
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Char == 0 {
		return fmt.Sprintf("selection syntax error at offset %d: %s", e.Offset, e.Message)
	}
	return fmt.Sprintf("selection syntax error at offset %d: %s '%c'", e.Offset, e.Message, e.Char)
}

// Parse compiles text into a Tree. Empty text yields an empty tree.
func Parse(text string) (*Tree, error) {
	p := &parser{src: normalize(text)}
	nodes, err := p.parseLevel(0)
	if err != nil {
		return nil, err
	}
	return &Tree{Nodes: nodes}, nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(text string) *Tree {
	t, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return t
}

// normalize collapses whitespace runs to single spaces and lets braces absorb
// their adjacent space, so that a space is the only field separator left.
func normalize(text string) string {
	s := strings.Join(strings.Fields(text), " ")
	s = strings.ReplaceAll(s, "{ ", "{")
	s = strings.ReplaceAll(s, " }", "}")
	return s
}

type parser struct {
	src string
	pos int
}

// parseLevel reads nodes until the '}' closing this level (depth > 0) or the
// end of input (depth == 0).
func (p *parser) parseLevel(depth int) ([]*Node, error) {
	var nodes []*Node
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ' ' {
			p.pos++
			continue
		}
		if c == '}' {
			return nodes, p.close(depth)
		}

		node, err := p.parseKey()
		if err != nil {
			return nil, err
		}
		p.skipSpaces()
		if p.pos >= len(p.src) || isKeyChar(p.src[p.pos]) {
			nodes = append(nodes, node)
			continue
		}

		switch p.src[p.pos] {
		case '{':
			p.pos++
			children, err := p.parseLevel(depth + 1)
			if err != nil {
				return nil, err
			}
			node.Children = &Tree{Nodes: children}
			nodes = append(nodes, node)
		case '}':
			nodes = append(nodes, node)
			return nodes, p.close(depth)
		default:
			return nil, p.unexpected("unsupported character")
		}
	}
	if depth > 0 {
		return nil, &SyntaxError{Offset: p.pos, Message: "unexpected end of selection, missing '}'"}
	}
	return nodes, nil
}

// close consumes the '}' at the cursor.
func (p *parser) close(depth int) error {
	if depth == 0 {
		return p.unexpected("unmatched")
	}
	p.pos++
	return nil
}

// parseKey scans the longest run of key characters and splits it on the first ':'.
func (p *parser) parseKey() (*Node, error) {
	start := p.pos
	for p.pos < len(p.src) && isKeyChar(p.src[p.pos]) {
		p.pos++
	}
	raw := p.src[start:p.pos]
	if raw == "" {
		return nil, p.unexpected("unsupported character")
	}
	name, alias, _ := strings.Cut(raw, ":")
	if name == "" {
		p.pos = start
		return nil, p.unexpected("missing field name before")
	}
	return Leaf(name, alias), nil
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) unexpected(msg string) *SyntaxError {
	r, _ := utf8.DecodeRuneInString(p.src[p.pos:])
	return &SyntaxError{Char: r, Offset: p.pos, Message: msg}
}

func isKeyChar(c byte) bool {
	return c == '_' || c == ':' ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9')
}
