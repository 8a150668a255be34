// Package record defines how the serializer recognizes record-shaped values
// and learns which of their members are attributes and which are relations.
//
// Two providers ship with the module: StructProvider for registered Go struct
// types (this package) and protorecord.Provider for protobuf messages. They
// can be chained with Providers.
package record
