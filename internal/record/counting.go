package record

import (
	"sync"
)

// Method names recorded by CountingProvider.
const (
	CallIsRelation     = "IsRelation"
	CallTargetType     = "TargetType"
	CallAttributeNames = "AttributeNames"
	CallTypeOf         = "TypeOf"
	CallRead           = "Read"
)

// Call is one recorded provider invocation.
type Call struct {
	Method string
	Type   string // record type name, empty for TypeOf
	Field  string // empty for AttributeNames and TypeOf
}

// CountingProvider wraps a Provider and logs every call. It is used to check
// how often metadata is consulted.
type CountingProvider struct {
	Provider

	mu    sync.Mutex
	calls []Call
}

// NewCountingProvider wraps p.
func NewCountingProvider(p Provider) *CountingProvider {
	return &CountingProvider{Provider: p}
}

func (c *CountingProvider) record(call Call) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}

func typeName(t Type) string {
	if t == nil {
		return ""
	}
	return t.Name()
}

func (c *CountingProvider) IsRelation(t Type, name string) bool {
	c.record(Call{Method: CallIsRelation, Type: typeName(t), Field: name})
	return c.Provider.IsRelation(t, name)
}

func (c *CountingProvider) TargetType(t Type, name string) (Type, bool) {
	c.record(Call{Method: CallTargetType, Type: typeName(t), Field: name})
	return c.Provider.TargetType(t, name)
}

func (c *CountingProvider) AttributeNames(t Type) []string {
	c.record(Call{Method: CallAttributeNames, Type: typeName(t)})
	return c.Provider.AttributeNames(t)
}

func (c *CountingProvider) TypeOf(v any) (Type, bool) {
	c.record(Call{Method: CallTypeOf})
	return c.Provider.TypeOf(v)
}

func (c *CountingProvider) Read(rec any, name string) (any, error) {
	t, _ := c.Provider.TypeOf(rec)
	c.record(Call{Method: CallRead, Type: typeName(t), Field: name})
	return c.Provider.Read(rec, name)
}

// GetCalls returns a copy of the call log.
func (c *CountingProvider) GetCalls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// Count returns how many times method was called.
func (c *CountingProvider) Count(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call.Method == method {
			n++
		}
	}
	return n
}

// Reset clears the call log.
func (c *CountingProvider) Reset() {
	c.mu.Lock()
	c.calls = nil
	c.mu.Unlock()
}
