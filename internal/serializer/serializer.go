package serializer

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/hanpama/gqlshape/internal/access"
	"github.com/hanpama/gqlshape/internal/casing"
	"github.com/hanpama/gqlshape/internal/coerce"
	"github.com/hanpama/gqlshape/internal/record"
	"github.com/hanpama/gqlshape/internal/selection"
)

// Options controls one serializer.
type Options struct {
	// Case renames every output key.
	Case casing.Policy
}

type Serializer struct {
	provider record.Provider
	opts     Options
}

// New returns a Serializer. provider may be nil, in which case no value is
// treated as a record.
func New(provider record.Provider, opts Options) *Serializer {
	return &Serializer{provider: provider, opts: opts}
}

// Serialize projects value through sel.
func (s *Serializer) Serialize(value any, sel *selection.Tree) (any, error) {
	out, _, err := s.Run(value, sel)
	return out, err
}

// Run is like Serialize and also reports how much work was done.
func (s *Serializer) Run(value any, sel *selection.Tree) (any, Stats, error) {
	if err := s.opts.Case.Validate(); err != nil {
		return nil, Stats{}, err
	}
	state := &executionState{
		provider:     s.provider,
		policy:       s.opts.Case,
		instructions: make(map[instructionKey]*instruction),
	}
	out, err := state.serialize(value, sel, Path{})
	if err != nil {
		return nil, state.stats, err
	}
	return out, state.stats, nil
}

// executionState holds the state of one Run call.
type executionState struct {
	provider     record.Provider
	policy       casing.Policy
	instructions map[instructionKey]*instruction
	stats        Stats
}

func (s *executionState) serialize(value any, sel *selection.Tree, path Path) (any, error) {
	sh, rv, rt := s.classify(value, sel)
	switch sh {
	case shapeNil:
		return nil, nil
	case shapeMap:
		return s.serializeMap(rv, sel, path)
	case shapeSequence:
		return s.serializeSequence(rv, sel, path)
	case shapeRecord:
		return s.serializeRecord(value, rt, sel, path)
	case shapeObject:
		return s.serializeObject(value, sel, path)
	default:
		return coerce.Value(value), nil
	}
}

func (s *executionState) key(alias string) string {
	return casing.Apply(alias, s.policy)
}

func (s *executionState) serializeMap(rv reflect.Value, sel *selection.Tree, path Path) (any, error) {
	if sel.IsEmpty() {
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := s.key(mapKeyString(iter.Key()))
			v, err := s.serialize(iter.Value().Interface(), nil, appendPath(path, key))
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
		return out, nil
	}

	out := make(map[string]any, sel.Len())
	for _, node := range sel.Nodes {
		key := s.key(node.Alias)
		p := appendPath(path, key)
		val, ok := lookupMapKey(rv, node.Name)
		if !ok {
			return nil, &Error{
				Message: fmt.Sprintf("field %q not found", node.Name),
				Path:    p,
				Err:     ErrFieldNotFound,
			}
		}
		v, err := s.serialize(val, node.Children, p)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func (s *executionState) serializeSequence(rv reflect.Value, sel *selection.Tree, path Path) (any, error) {
	out := make([]any, rv.Len())
	for i := range out {
		v, err := s.serialize(rv.Index(i).Interface(), sel, appendPath(path, i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *executionState) serializeRecord(rec any, t record.Type, sel *selection.Tree, path Path) (any, error) {
	s.stats.Records++
	ins := s.instructionFor(t, sel)
	out := make(map[string]any, len(ins.attributes)+len(ins.nested))
	for _, st := range ins.attributes {
		if err := s.runStep(out, rec, t.Name(), st, nil, path); err != nil {
			return nil, err
		}
	}
	for _, st := range ins.nested {
		if err := s.runStep(out, rec, t.Name(), st, st.children, path); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *executionState) runStep(out map[string]any, rec any, typeName string, st step, sel *selection.Tree, path Path) error {
	p := appendPath(path, st.alias)
	raw, err := s.provider.Read(rec, st.source)
	if err != nil {
		return readError(p, typeName, st.source, err)
	}
	v, err := s.serialize(raw, sel, p)
	if err != nil {
		return err
	}
	out[st.alias] = v
	return nil
}

func (s *executionState) serializeObject(value any, sel *selection.Tree, path Path) (any, error) {
	out := make(map[string]any, sel.Len())
	for _, node := range sel.Nodes {
		key := s.key(node.Alias)
		p := appendPath(path, key)
		raw, err := access.Read(value, node.Name)
		if err != nil {
			return nil, readError(p, fmt.Sprintf("%T", value), node.Name, err)
		}
		v, err := s.serialize(raw, node.Children, p)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func readError(path Path, typeName, name string, err error) error {
	if errors.Is(err, access.ErrNotFound) {
		return &Error{
			Message: fmt.Sprintf("undefined method %q for %s", name, typeName),
			Path:    path,
			Err:     ErrMethodNotFound,
		}
	}
	return &Error{Message: err.Error(), Path: path, Err: err}
}
