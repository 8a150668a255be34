// Package access reads named members from arbitrary Go values.
//
// A name resolves, in order, through the Readable interface, exported struct
// fields (by gqlshape tag, json tag, Go name or snake_case Go name) and finally
// zero-argument methods returning a value and optionally an error.
package access

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/hanpama/gqlshape/internal/casing"
)

// ErrNotFound is returned when a value has no member with the requested name.
var ErrNotFound = errors.New("no such field or method")

// TagName is the struct tag consulted first when naming fields.
const TagName = "gqlshape"

// Readable is implemented by values that resolve their own members.
// ReadField returns an error wrapping ErrNotFound for unknown names.
type Readable interface {
	ReadField(name string) (any, error)
}

// Read returns the member called name on v.
func Read(v any, name string) (any, error) {
	if r, ok := v.(Readable); ok {
		return r.ReadField(name)
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return nil, fmt.Errorf("%w: %q on nil", ErrNotFound, name)
	}

	sv := rv
	for sv.Kind() == reflect.Pointer || sv.Kind() == reflect.Interface {
		if sv.IsNil() {
			break
		}
		sv = sv.Elem()
	}
	if sv.Kind() == reflect.Struct {
		if idx, ok := fieldsOf(sv.Type())[name]; ok {
			f, err := sv.FieldByIndexErr(idx)
			if err != nil {
				// nil embedded pointer
				return nil, nil
			}
			return f.Interface(), nil
		}
	}

	if out, ok, err := callMethod(rv, name); ok {
		return out, err
	}
	// Pointer-receiver methods on a struct passed by value.
	if rv.Kind() == reflect.Struct {
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		if out, ok, err := callMethod(p, name); ok {
			return out, err
		}
	}
	return nil, fmt.Errorf("%w: %q on %s", ErrNotFound, name, rv.Type())
}

func callMethod(rv reflect.Value, name string) (any, bool, error) {
	for _, cand := range MethodNames(name) {
		m := rv.MethodByName(cand)
		if !m.IsValid() || !isGetter(m.Type()) {
			continue
		}
		out := m.Call(nil)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, true, out[1].Interface().(error)
		}
		return out[0].Interface(), true, nil
	}
	return nil, false, nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// isGetter reports whether a bound method takes no arguments and returns T or
// (T, error).
func isGetter(t reflect.Type) bool {
	if t.NumIn() != 0 {
		return false
	}
	switch t.NumOut() {
	case 1:
		return true
	case 2:
		return t.Out(1) == errorType
	}
	return false
}

var initialisms = map[string]string{
	"id": "ID", "url": "URL", "uri": "URI", "http": "HTTP", "json": "JSON",
	"api": "API", "uuid": "UUID", "html": "HTML", "sql": "SQL", "ip": "IP",
}

// MethodNames lists the Go method names tried for name, most literal first:
// "encoded_id" yields encoded_id, Encoded_id, EncodedId and EncodedID.
func MethodNames(name string) []string {
	names := []string{name}
	add := func(s string) {
		for _, n := range names {
			if n == s {
				return
			}
		}
		names = append(names, s)
	}
	add(casing.Capitalize(name))
	add(casing.Pascal(name))

	parts := strings.Split(casing.Apply(name, casing.Snake), "_")
	var b strings.Builder
	for _, p := range parts {
		if up, ok := initialisms[p]; ok {
			b.WriteString(up)
			continue
		}
		b.WriteString(casing.Capitalize(p))
	}
	add(b.String())
	return names
}

var fieldCache sync.Map // reflect.Type -> map[string][]int

// fieldsOf maps every accepted spelling of each exported field to its index.
// Earlier spellings win on conflict: tag, json tag, Go name, snake_case.
func fieldsOf(t reflect.Type) map[string][]int {
	if m, ok := fieldCache.Load(t); ok {
		return m.(map[string][]int)
	}
	fields := reflect.VisibleFields(t)
	m := make(map[string][]int, len(fields)*2)
	put := func(k string, idx []int) {
		if k == "" {
			return
		}
		if _, ok := m[k]; !ok {
			m[k] = idx
		}
	}
	passes := []func(reflect.StructField) string{
		func(f reflect.StructField) string { return tagName(f, TagName) },
		func(f reflect.StructField) string { return tagName(f, "json") },
		func(f reflect.StructField) string { return f.Name },
		func(f reflect.StructField) string { return casing.Apply(f.Name, casing.Snake) },
	}
	for _, name := range passes {
		for _, f := range fields {
			if !f.IsExported() || f.Anonymous || f.Tag.Get(TagName) == "-" {
				continue
			}
			put(name(f), f.Index)
		}
	}
	actual, _ := fieldCache.LoadOrStore(t, m)
	return actual.(map[string][]int)
}

func tagName(f reflect.StructField, key string) string {
	tag, ok := f.Tag.Lookup(key)
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}

// FieldName returns the output name of f, preferring the gqlshape tag, then
// the json tag, then snake_case. ok is false for unexported, embedded and
// "-" tagged fields.
func FieldName(f reflect.StructField) (name string, ok bool) {
	if !f.IsExported() || f.Anonymous || f.Tag.Get(TagName) == "-" {
		return "", false
	}
	name = tagName(f, TagName)
	if name == "" {
		name = tagName(f, "json")
	}
	if name == "" {
		name = casing.Apply(f.Name, casing.Snake)
	}
	return name, true
}
