// Package protorecord exposes protobuf messages to the serializer as records.
//
// Every message is a record except the well-known value types (Timestamp,
// Duration, wrappers and Struct), which are read as scalars. Message-kind
// fields are relations; everything else, maps included, is an attribute.
package protorecord

import (
	"fmt"
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/hanpama/gqlshape/internal/access"
	"github.com/hanpama/gqlshape/internal/record"
)

// MessageType is the record Type of a protobuf message.
type MessageType struct {
	desc protoreflect.MessageDescriptor
}

func (t *MessageType) Name() string { return string(t.desc.FullName()) }

// Descriptor returns the message descriptor.
func (t *MessageType) Descriptor() protoreflect.MessageDescriptor { return t.desc }

// Provider implements record.Provider for protobuf messages.
// The zero value is ready to use.
type Provider struct {
	types sync.Map // protoreflect.FullName -> *MessageType
}

var _ record.Provider = (*Provider)(nil)

// New returns a Provider.
func New() *Provider { return &Provider{} }

func (p *Provider) typeFor(md protoreflect.MessageDescriptor) *MessageType {
	if t, ok := p.types.Load(md.FullName()); ok {
		return t.(*MessageType)
	}
	t, _ := p.types.LoadOrStore(md.FullName(), &MessageType{desc: md})
	return t.(*MessageType)
}

func messageOf(v any) (protoreflect.Message, bool) {
	switch m := v.(type) {
	case protoreflect.Message:
		return m, m != nil && m.IsValid()
	case proto.Message:
		if m == nil {
			return nil, false
		}
		r := m.ProtoReflect()
		return r, r.IsValid()
	}
	return nil, false
}

func (p *Provider) TypeOf(v any) (record.Type, bool) {
	m, ok := messageOf(v)
	if !ok || isWellKnown(m.Descriptor().FullName()) {
		return nil, false
	}
	return p.typeFor(m.Descriptor()), true
}

func (p *Provider) owned(t record.Type) (*MessageType, bool) {
	mt, ok := t.(*MessageType)
	if !ok || mt == nil {
		return nil, false
	}
	cached, ok := p.types.Load(mt.desc.FullName())
	return mt, ok && cached == mt
}

// fieldByName accepts the proto field name and its JSON name.
func fieldByName(md protoreflect.MessageDescriptor, name string) protoreflect.FieldDescriptor {
	fields := md.Fields()
	if fd := fields.ByName(protoreflect.Name(name)); fd != nil {
		return fd
	}
	return fields.ByJSONName(name)
}

func isRelationField(fd protoreflect.FieldDescriptor) bool {
	if fd.IsMap() {
		return false
	}
	if fd.Kind() != protoreflect.MessageKind && fd.Kind() != protoreflect.GroupKind {
		return false
	}
	return !isWellKnown(fd.Message().FullName())
}

func (p *Provider) IsRelation(t record.Type, name string) bool {
	mt, ok := p.owned(t)
	if !ok {
		return false
	}
	fd := fieldByName(mt.desc, name)
	return fd != nil && isRelationField(fd)
}

func (p *Provider) TargetType(t record.Type, name string) (record.Type, bool) {
	mt, ok := p.owned(t)
	if !ok {
		return nil, false
	}
	fd := fieldByName(mt.desc, name)
	if fd == nil || !isRelationField(fd) {
		return nil, false
	}
	return p.typeFor(fd.Message()), true
}

func (p *Provider) AttributeNames(t record.Type) []string {
	mt, ok := p.owned(t)
	if !ok {
		return nil
	}
	fields := mt.desc.Fields()
	names := make([]string, 0, fields.Len())
	for i := 0; i < fields.Len(); i++ {
		if fd := fields.Get(i); !isRelationField(fd) {
			names = append(names, string(fd.Name()))
		}
	}
	return names
}

// Read returns the Go form of a field: scalars as their Go kinds, enums by
// name, lists as []any, maps as map[string]any, unset messages as nil and
// nested messages as proto.Message.
func (p *Provider) Read(rec any, name string) (any, error) {
	m, ok := messageOf(rec)
	if !ok {
		return nil, fmt.Errorf("%w: %q on non-message %T", access.ErrNotFound, name, rec)
	}
	fd := fieldByName(m.Descriptor(), name)
	if fd == nil {
		return nil, fmt.Errorf("%w: %q on %s", access.ErrNotFound, name, m.Descriptor().FullName())
	}
	if fd.Message() != nil && !fd.IsList() && !fd.IsMap() && !m.Has(fd) {
		return nil, nil
	}
	v := m.Get(fd)
	switch {
	case fd.IsList():
		lst := v.List()
		out := make([]any, 0, lst.Len())
		for i := 0; i < lst.Len(); i++ {
			e, err := handleValue(fd, lst.Get(i))
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	case fd.IsMap():
		out := make(map[string]any, v.Map().Len())
		var err error
		v.Map().Range(func(k protoreflect.MapKey, mv protoreflect.Value) bool {
			var e any
			if e, err = handleValue(fd.MapValue(), mv); err != nil {
				return false
			}
			out[k.String()] = e
			return true
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return handleValue(fd, v)
}

// handleValue converts a single protobuf value to a Go value.
func handleValue(fd protoreflect.FieldDescriptor, v protoreflect.Value) (any, error) {
	if k := fd.Kind(); k == protoreflect.MessageKind || k == protoreflect.GroupKind {
		msg := v.Message()
		wk, ok, err := wellKnownValue(msg)
		if err != nil || ok {
			return wk, err
		}
		return msg.Interface(), nil
	}
	return scalarValue(fd, v), nil
}

func scalarValue(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return v.Bool()
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return int32(v.Int())
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return v.Int()
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return uint32(v.Uint())
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return v.Uint()
	case protoreflect.FloatKind:
		return float32(v.Float())
	case protoreflect.DoubleKind:
		return v.Float()
	case protoreflect.StringKind:
		return v.String()
	case protoreflect.BytesKind:
		return []byte(v.Bytes())
	case protoreflect.EnumKind:
		if ev := fd.Enum().Values().ByNumber(v.Enum()); ev != nil {
			return string(ev.Name())
		}
		return int32(v.Enum())
	default:
		return nil
	}
}

const (
	timestampName = "google.protobuf.Timestamp"
	durationName  = "google.protobuf.Duration"
	structName    = "google.protobuf.Struct"
	valueName     = "google.protobuf.Value"
	listValueName = "google.protobuf.ListValue"
)

var wrapperNames = map[protoreflect.FullName]bool{
	"google.protobuf.DoubleValue": true,
	"google.protobuf.FloatValue":  true,
	"google.protobuf.Int64Value":  true,
	"google.protobuf.UInt64Value": true,
	"google.protobuf.Int32Value":  true,
	"google.protobuf.UInt32Value": true,
	"google.protobuf.BoolValue":   true,
	"google.protobuf.StringValue": true,
	"google.protobuf.BytesValue":  true,
}

func isWellKnown(name protoreflect.FullName) bool {
	switch name {
	case timestampName, durationName, structName, valueName, listValueName:
		return true
	}
	return wrapperNames[name]
}

// wellKnownValue returns the concrete Go form of a well-known message.
// Dynamic messages are converted field by field so that the coercer sees the
// generated types.
func wellKnownValue(msg protoreflect.Message) (any, bool, error) {
	md := msg.Descriptor()
	name := md.FullName()
	if !isWellKnown(name) {
		return nil, false, nil
	}
	get := func(field string) protoreflect.Value {
		return msg.Get(md.Fields().ByName(protoreflect.Name(field)))
	}
	switch {
	case name == timestampName:
		return &timestamppb.Timestamp{Seconds: get("seconds").Int(), Nanos: int32(get("nanos").Int())}, true, nil
	case name == durationName:
		return &durationpb.Duration{Seconds: get("seconds").Int(), Nanos: int32(get("nanos").Int())}, true, nil
	case wrapperNames[name]:
		return scalarValue(md.Fields().ByName("value"), get("value")), true, nil
	}
	v, err := structValue(msg)
	return v, true, err
}

// structValue round-trips msg through the generated struct types so dynamic
// and generated messages convert alike.
func structValue(msg protoreflect.Message) (any, error) {
	name := msg.Descriptor().FullName()
	b, err := proto.Marshal(msg.Interface())
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", name, err)
	}
	switch name {
	case structName:
		s := &structpb.Struct{}
		if err := proto.Unmarshal(b, s); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", name, err)
		}
		return s.AsMap(), nil
	case listValueName:
		l := &structpb.ListValue{}
		if err := proto.Unmarshal(b, l); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", name, err)
		}
		return l.AsSlice(), nil
	default:
		v := &structpb.Value{}
		if err := proto.Unmarshal(b, v); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", name, err)
		}
		return v.AsInterface(), nil
	}
}
