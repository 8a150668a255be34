// Package selection parses compact field-selection strings such as
//
//	id name:display orders {id total items {price}}
//
// into a Tree of Nodes. A node names a source field, an optional output alias
// after the first ':' and an optional brace-nested sub-selection.
package selection

import (
	"strings"
)

// Node is one requested field.
type Node struct {
	// Name is the field or method read from the source value.
	Name string
	// Alias is the output key. It equals Name when no alias was given.
	Alias string
	// Children is nil for a leaf. A branch may hold an empty tree ("a {}").
	Children *Tree
}

// IsLeaf reports whether n has no sub-selection.
func (n *Node) IsLeaf() bool { return n == nil || n.Children == nil }

// Tree is an ordered selection level.
type Tree struct {
	Nodes []*Node
}

// New returns a tree holding nodes in order.
func New(nodes ...*Node) *Tree { return &Tree{Nodes: nodes} }

// Leaf builds a leaf node. An empty alias defaults to name.
func Leaf(name, alias string) *Node {
	if alias == "" {
		alias = name
	}
	return &Node{Name: name, Alias: alias}
}

// Branch builds a node with a nested selection.
func Branch(name, alias string, children ...*Node) *Node {
	n := Leaf(name, alias)
	n.Children = New(children...)
	return n
}

// IsEmpty reports whether t selects nothing. A nil tree is empty.
func (t *Tree) IsEmpty() bool { return t == nil || len(t.Nodes) == 0 }

// Len returns the number of nodes at this level.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Nodes)
}

// String renders t back into selection syntax. Parse(t.String()) yields a tree
// equal to t.
func (t *Tree) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t *Tree) write(b *strings.Builder) {
	if t == nil {
		return
	}
	for i, n := range t.Nodes {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(n.Name)
		if n.Alias != "" && n.Alias != n.Name {
			b.WriteByte(':')
			b.WriteString(n.Alias)
		}
		if n.Children != nil {
			b.WriteString(" {")
			n.Children.write(b)
			b.WriteByte('}')
		}
	}
}
