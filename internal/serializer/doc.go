// Package serializer projects an arbitrary Go value graph through a selection
// tree into a plain output document made of nil, scalars, []any and
// map[string]any.
//
// # Overview
//
// The serializer walks the source value depth-first, guided by a
// selection.Tree. At every step it classifies the current value into one
// shape and handles it accordingly:
//
//   - nil: nil and typed nil pointers, maps and slices produce nil.
//   - map: any Go map. With an empty selection every entry is copied with its
//     key case-converted; otherwise each selected name is looked up, first as
//     an exact string key and then by the printed form of non-string keys.
//   - sequence: slices and arrays (but not []byte) are serialized element-wise
//     with the same selection.
//   - record: values the record.Provider recognizes. Records go through a
//     cached instruction (see below).
//   - object: any other value with a non-empty selection. Each selected name is
//     read with access.Read.
//   - scalar: everything else is passed through coerce.Value.
//
// # Instructions
//
// For a record type and a selection level the serializer computes, once, the
// list of attribute steps and nested steps along with their case-converted
// output keys. The instruction is cached per (record.Type, *selection.Tree)
// pair inside one Run call, so a list of N records of the same type consults
// the relation metadata once, not N times. The cache is owned by the call and
// dropped when it returns; nothing is shared between calls.
//
// A selected name is a nested step when the metadata reports it as a relation
// or when the selection gives it children. Nested steps are serialized with
// their children; attribute steps are serialized with an empty selection so
// that scalar attributes are coerced. An empty selection on a record
// serializes every attribute the metadata lists and no relations.
//
// # Errors
//
// The first failure aborts the call and no partial document is returned.
// Errors are *Error values carrying the output path; they unwrap to
// ErrFieldNotFound for a missing map key, ErrMethodNotFound for a missing
// record or object member, or to the error a getter method returned.
//
// # Concurrency
//
// A Serializer is immutable and safe for concurrent use. Each Run call is
// single-threaded and owns its execution state.
package serializer
