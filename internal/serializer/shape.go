package serializer

import (
	"fmt"
	"reflect"

	"github.com/hanpama/gqlshape/internal/record"
	"github.com/hanpama/gqlshape/internal/selection"
)

type shape int

const (
	shapeScalar shape = iota
	shapeNil
	shapeMap
	shapeSequence
	shapeRecord
	shapeObject
)

// classify picks the one handling for value. rv is set for maps and
// sequences; t is set for records.
func (s *executionState) classify(value any, sel *selection.Tree) (sh shape, rv reflect.Value, t record.Type) {
	if IsNullish(value) {
		return shapeNil, rv, nil
	}
	rv = reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		switch rv.Elem().Kind() {
		case reflect.Map, reflect.Slice, reflect.Array:
			rv = rv.Elem()
			if IsNullish(rv.Interface()) {
				return shapeNil, rv, nil
			}
		}
	}
	switch rv.Kind() {
	case reflect.Map:
		return shapeMap, rv, nil
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() != reflect.Uint8 {
			return shapeSequence, rv, nil
		}
	}
	if s.provider != nil {
		if rt, ok := s.provider.TypeOf(value); ok {
			return shapeRecord, rv, rt
		}
	}
	if !sel.IsEmpty() {
		return shapeObject, rv, nil
	}
	return shapeScalar, rv, nil
}

// IsNullish reports whether v is nil or a nil pointer, map, slice, func,
// channel or interface.
func IsNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

// mapKeyString is the printed form of a map key.
func mapKeyString(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}

var stringType = reflect.TypeOf("")

// lookupMapKey finds name as an exact string key, then as the printed form of
// any other key (named string symbols, integers, Stringers).
func lookupMapKey(m reflect.Value, name string) (any, bool) {
	kt := m.Type().Key()
	switch {
	case kt.Kind() == reflect.String:
		if v := m.MapIndex(reflect.ValueOf(name).Convert(kt)); v.IsValid() {
			return v.Interface(), true
		}
	case kt.Kind() == reflect.Interface:
		if reflect.TypeOf(name).AssignableTo(kt) {
			if v := m.MapIndex(reflect.ValueOf(name)); v.IsValid() {
				return v.Interface(), true
			}
		}
	}
	iter := m.MapRange()
	for iter.Next() {
		k := iter.Key()
		if k.Kind() == reflect.Interface {
			k = k.Elem()
		}
		switch {
		case !k.IsValid() || k.Type() == stringType:
			continue
		case k.Kind() == reflect.String:
			if k.String() == name {
				return iter.Value().Interface(), true
			}
		case fmt.Sprint(k.Interface()) == name:
			return iter.Value().Interface(), true
		}
	}
	return nil, false
}
