package record

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/hanpama/gqlshape/internal/access"
)

// StructProvider treats registered Go struct types as records.
//
// Field names come from the `gqlshape:"name"` tag, then the json tag, then the
// snake_case Go name. A field is a relation when tagged `gqlshape:",relation"`
// or when its element type (through pointers, slices and arrays) is another
// registered struct. `gqlshape:"-"` hides a field.
type StructProvider struct {
	mu    sync.RWMutex
	types map[reflect.Type]*StructType
}

var _ Provider = (*StructProvider)(nil)

// NewStructProvider returns a provider with models already registered.
// It panics if a model is not a struct.
func NewStructProvider(models ...any) *StructProvider {
	p := &StructProvider{}
	if err := p.Register(models...); err != nil {
		panic(err)
	}
	return p
}

// StructType is the record Type of a registered struct.
type StructType struct {
	rt     reflect.Type
	fields []structField
	byName map[string]int
}

type structField struct {
	name     string
	index    []int
	elem     reflect.Type // element type after stripping pointers and containers
	relation bool         // forced by tag
}

func (t *StructType) Name() string { return t.rt.Name() }

// GoType returns the underlying struct type.
func (t *StructType) GoType() reflect.Type { return t.rt }

// Register adds struct types, given as values, pointers or reflect.Types.
// Registering a type twice is a no-op.
func (p *StructProvider) Register(models ...any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.types == nil {
		p.types = make(map[reflect.Type]*StructType)
	}
	for _, m := range models {
		rt, ok := m.(reflect.Type)
		if !ok {
			rt = reflect.TypeOf(m)
		}
		if rt == nil {
			return fmt.Errorf("register record: nil model")
		}
		for rt.Kind() == reflect.Pointer {
			rt = rt.Elem()
		}
		if rt.Kind() != reflect.Struct {
			return fmt.Errorf("register record: %s is not a struct", rt)
		}
		if _, exists := p.types[rt]; exists {
			continue
		}
		p.types[rt] = newStructType(rt)
	}
	return nil
}

func newStructType(rt reflect.Type) *StructType {
	st := &StructType{rt: rt, byName: make(map[string]int)}
	for _, f := range reflect.VisibleFields(rt) {
		name, ok := access.FieldName(f)
		if !ok {
			continue
		}
		_, opts, _ := strings.Cut(f.Tag.Get(access.TagName), ",")
		if _, dup := st.byName[name]; dup {
			continue
		}
		st.byName[name] = len(st.fields)
		st.fields = append(st.fields, structField{
			name:     name,
			index:    f.Index,
			elem:     elemType(f.Type),
			relation: hasOption(opts, "relation"),
		})
	}
	return st
}

func elemType(t reflect.Type) reflect.Type {
	for {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array:
			t = t.Elem()
		default:
			return t
		}
	}
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var o string
		o, opts, _ = strings.Cut(opts, ",")
		if o == want {
			return true
		}
	}
	return false
}

func (p *StructProvider) lookup(rt reflect.Type) (*StructType, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st, ok := p.types[rt]
	return st, ok
}

func (p *StructProvider) TypeOf(v any) (Type, bool) {
	rt := reflect.TypeOf(v)
	if rt == nil {
		return nil, false
	}
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	st, ok := p.lookup(rt)
	if !ok {
		return nil, false
	}
	return st, true
}

// owned returns t when it was registered with p.
func (p *StructProvider) owned(t Type) (*StructType, bool) {
	st, ok := t.(*StructType)
	if !ok || st == nil {
		return nil, false
	}
	registered, ok := p.lookup(st.rt)
	return st, ok && registered == st
}

func (p *StructProvider) field(t Type, name string) (*StructType, *structField, bool) {
	st, ok := p.owned(t)
	if !ok {
		return nil, nil, false
	}
	i, ok := st.byName[name]
	if !ok {
		return st, nil, false
	}
	return st, &st.fields[i], true
}

func (p *StructProvider) isRelation(f *structField) bool {
	if f.relation {
		return true
	}
	_, registered := p.lookup(f.elem)
	return registered
}

func (p *StructProvider) IsRelation(t Type, name string) bool {
	_, f, ok := p.field(t, name)
	return ok && p.isRelation(f)
}

func (p *StructProvider) TargetType(t Type, name string) (Type, bool) {
	_, f, ok := p.field(t, name)
	if !ok || !p.isRelation(f) {
		return nil, false
	}
	target, ok := p.lookup(f.elem)
	if !ok {
		return nil, false
	}
	return target, true
}

func (p *StructProvider) AttributeNames(t Type) []string {
	st, ok := p.owned(t)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(st.fields))
	for i := range st.fields {
		if !p.isRelation(&st.fields[i]) {
			names = append(names, st.fields[i].name)
		}
	}
	return names
}

// Read resolves declared fields first, then zero-argument methods.
func (p *StructProvider) Read(rec any, name string) (any, error) {
	rv := reflect.ValueOf(rec)
	if !rv.IsValid() {
		return nil, fmt.Errorf("%w: %q on nil record", access.ErrNotFound, name)
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: %q on nil record", access.ErrNotFound, name)
		}
		rv = rv.Elem()
	}
	if st, ok := p.lookup(rv.Type()); ok {
		if i, ok := st.byName[name]; ok {
			f, err := rv.FieldByIndexErr(st.fields[i].index)
			if err != nil {
				return nil, nil
			}
			return f.Interface(), nil
		}
	}
	return access.Read(rec, name)
}
