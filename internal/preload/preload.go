// Package preload derives, from a selection, the nested set of relations that
// must be loaded before serialization so that walking the result does not
// issue one query per record.
package preload

import (
	"context"
	"strings"

	"github.com/hanpama/gqlshape/internal/record"
	"github.com/hanpama/gqlshape/internal/selection"
)

// Include names one relation and the relations to load beneath it.
type Include struct {
	Name     string
	Children Plan
}

// Plan is an ordered list of relations to load. The zero value loads nothing.
type Plan []Include

// Loader materializes associations described by a Plan. It is implemented by
// the persistence layer; this module only calls it.
type Loader interface {
	// Preload loads plan into records in place.
	Preload(ctx context.Context, records []any, plan Plan) error
	// Reload returns fresh copies of records with plan loaded. The input
	// records are left untouched.
	Reload(ctx context.Context, records []any, plan Plan) ([]any, error)
}

// Build keeps the relation nodes of sel, recursing into each relation's
// target type for nodes with a sub-selection. Attributes and unknown names are
// dropped. Repeated relation names are merged into one include.
func Build(meta record.Metadata, t record.Type, sel *selection.Tree) Plan {
	if meta == nil || t == nil || sel.IsEmpty() {
		return nil
	}
	var plan Plan
	for _, node := range sel.Nodes {
		if !meta.IsRelation(t, node.Name) {
			continue
		}
		var children Plan
		if !node.Children.IsEmpty() {
			if target, ok := meta.TargetType(t, node.Name); ok {
				children = Build(meta, target, node.Children)
			}
		}
		plan = plan.add(Include{Name: node.Name, Children: children})
	}
	return plan
}

func (p Plan) add(inc Include) Plan {
	for i := range p {
		if p[i].Name == inc.Name {
			for _, child := range inc.Children {
				p[i].Children = p[i].Children.add(child)
			}
			return p
		}
	}
	return append(p, inc)
}

// Empty reports whether p loads nothing.
func (p Plan) Empty() bool { return len(p) == 0 }

// Names returns the top-level relation names in order.
func (p Plan) Names() []string {
	names := make([]string, len(p))
	for i, inc := range p {
		names[i] = inc.Name
	}
	return names
}

// Tree renders p as a selection tree, so plans can be logged or handed to
// loaders that speak selection syntax.
func (p Plan) Tree() *selection.Tree {
	tree := selection.New()
	for _, inc := range p {
		node := selection.Leaf(inc.Name, "")
		if !inc.Children.Empty() {
			node.Children = inc.Children.Tree()
		}
		tree.Nodes = append(tree.Nodes, node)
	}
	return tree
}

// String renders p in selection syntax, e.g. "orders {items} owner".
func (p Plan) String() string {
	return strings.TrimSpace(p.Tree().String())
}
