package record

import (
	"fmt"

	"github.com/hanpama/gqlshape/internal/access"
)

// Providers chains several providers. The first provider claiming a value in
// TypeOf owns it.
type Providers []Provider

var _ Provider = Providers(nil)

func (ps Providers) TypeOf(v any) (Type, bool) {
	for _, p := range ps {
		if p == nil {
			continue
		}
		if t, ok := p.TypeOf(v); ok {
			return t, true
		}
	}
	return nil, false
}

func (ps Providers) Read(rec any, name string) (any, error) {
	for _, p := range ps {
		if p == nil {
			continue
		}
		if _, ok := p.TypeOf(rec); ok {
			return p.Read(rec, name)
		}
	}
	return nil, fmt.Errorf("%w: %q on unrecognized record %T", access.ErrNotFound, name, rec)
}

func (ps Providers) IsRelation(t Type, name string) bool {
	for _, p := range ps {
		if p != nil && p.IsRelation(t, name) {
			return true
		}
	}
	return false
}

func (ps Providers) TargetType(t Type, name string) (Type, bool) {
	for _, p := range ps {
		if p == nil {
			continue
		}
		if target, ok := p.TargetType(t, name); ok {
			return target, true
		}
	}
	return nil, false
}

func (ps Providers) AttributeNames(t Type) []string {
	for _, p := range ps {
		if p == nil {
			continue
		}
		if names := p.AttributeNames(t); names != nil {
			return names
		}
	}
	return nil
}
