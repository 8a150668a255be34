package selection

import (
	"errors"
	"fmt"

	"github.com/hanpama/gqlshape/internal/language"
)

// ErrUnsupported is wrapped by FromGraphQL when the document uses a GraphQL
// feature that has no selection equivalent.
var ErrUnsupported = errors.New("unsupported graphql feature")

// FromGraphQL converts a single anonymous or named query document into a Tree.
// Arguments, directives, variables and fragments are rejected.
func FromGraphQL(query string) (*Tree, error) {
	doc, err := language.ParseQuery(query)
	if err != nil {
		return nil, err
	}
	if len(doc.Fragments) > 0 {
		return nil, unsupported(doc.Fragments[0].Position, "fragment definitions")
	}
	if len(doc.Operations) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one operation, got %d", ErrUnsupported, len(doc.Operations))
	}
	op := doc.Operations[0]
	if op.Operation != language.Query {
		return nil, unsupported(op.Position, string(op.Operation)+" operations")
	}
	if len(op.VariableDefinitions) > 0 {
		return nil, unsupported(op.Position, "variables")
	}
	if len(op.Directives) > 0 {
		return nil, unsupported(op.Position, "directives")
	}
	return convertSelectionSet(op.SelectionSet)
}

func convertSelectionSet(set language.SelectionSet) (*Tree, error) {
	tree := &Tree{}
	for _, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			if len(s.Arguments) > 0 {
				return nil, unsupported(s.Position, "arguments")
			}
			if len(s.Directives) > 0 {
				return nil, unsupported(s.Position, "directives")
			}
			node := Leaf(s.Name, s.Alias)
			if len(s.SelectionSet) > 0 {
				children, err := convertSelectionSet(s.SelectionSet)
				if err != nil {
					return nil, err
				}
				node.Children = children
			}
			tree.Nodes = append(tree.Nodes, node)
		case *language.InlineFragment:
			return nil, unsupported(s.Position, "inline fragments")
		case *language.FragmentSpread:
			return nil, unsupported(s.Position, "fragment spreads")
		default:
			return nil, fmt.Errorf("%w: selection %T", ErrUnsupported, sel)
		}
	}
	return tree, nil
}

func unsupported(pos *language.Position, what string) error {
	if pos == nil {
		return fmt.Errorf("%w: %s", ErrUnsupported, what)
	}
	return fmt.Errorf("%w: %s (line %d, column %d)", ErrUnsupported, what, pos.Line, pos.Column)
}
