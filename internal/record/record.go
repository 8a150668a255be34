package record

// Type identifies a record type. Implementations must be comparable: the
// serializer uses (Type, selection) pairs as cache keys.
type Type interface {
	Name() string
}

// Metadata answers structural questions about record types.
//
// General contract
//   - Answers are stable for the lifetime of a serialize call. The serializer
//     consults them once per (type, selection level) and caches the result.
//   - A provider asked about a Type it did not produce returns the zero answer
//     (false, nil, nil). Providers relies on this to fan out.
//   - Implementations must be safe for concurrent use.
type Metadata interface {
	// IsRelation reports whether name is an association of t rather than a
	// plain attribute.
	IsRelation(t Type, name string) bool

	// TargetType returns the record type a relation points at. ok is false for
	// attributes and unknown names.
	TargetType(t Type, name string) (target Type, ok bool)

	// AttributeNames lists the non-relation attributes of t in declaration
	// order. It is what an empty selection serializes.
	AttributeNames(t Type) []string
}

// Provider recognizes record values and reads their members.
//
// Read returns the raw value of an attribute or relation. For a to-many
// relation that is a slice; for a to-one relation a single record or nil.
// Unknown names return an error wrapping access.ErrNotFound. Read must not
// mutate rec.
type Provider interface {
	Metadata

	// TypeOf reports whether v is a record and, if so, its type.
	TypeOf(v any) (Type, bool)

	// Read returns the member called name on rec.
	Read(rec any, name string) (any, error)
}
