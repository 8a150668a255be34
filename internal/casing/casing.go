package casing

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/pflag"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Policy selects how output keys are renamed.
type Policy string

const (
	None  Policy = "none"
	Snake Policy = "snake"
	Camel Policy = "camel"
)

// Supported lists every accepted policy in display order.
var Supported = []Policy{None, Snake, Camel}

// ConfigError reports an unsupported case policy.
type ConfigError struct {
	Value string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("Specified case '%s' is not supported", e.Value)
}

// ParsePolicy converts s into a Policy. The empty string means None.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return None, nil
	}
	if err := p.Validate(); err != nil {
		return None, &ConfigError{Value: s}
	}
	return p, nil
}

// Validate returns a *ConfigError unless p is one of Supported. The zero
// Policy is None.
func (p Policy) Validate() error {
	if p == "" {
		return nil
	}
	for _, s := range Supported {
		if p == s {
			return nil
		}
	}
	return &ConfigError{Value: string(p)}
}

var _ pflag.Value = (*Policy)(nil)

// String implements pflag.Value.
func (p *Policy) String() string {
	if p == nil || *p == "" {
		return string(None)
	}
	return string(*p)
}

// Set implements pflag.Value; unsupported values are rejected when the flag is assigned.
func (p *Policy) Set(v string) error {
	parsed, err := ParsePolicy(v)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Type implements pflag.Value.
func (p *Policy) Type() string { return "case" }

// Apply renames key according to policy. Unknown policies behave like None;
// they are rejected when configured, never here.
func Apply(key string, policy Policy) string {
	switch policy {
	case Snake:
		return snakeCase(key)
	case Camel:
		return camelCase(key)
	default:
		return key
	}
}

// snakeCase inserts '_' before an uppercase letter that follows a lowercase
// letter or digit, then lowercases everything.
func snakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	var prev rune
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
			b.WriteByte('_')
		}
		b.WriteRune(r)
		prev = r
	}
	return strings.ToLower(b.String())
}

// camelCase joins '_' separated segments, title-casing every segment after the
// first and lowercasing the leading character.
func camelCase(s string) string {
	if s == "" {
		return s
	}
	lower := cases.Lower(language.Und)
	segments := strings.Split(s, "_")
	var b strings.Builder
	b.Grow(len(s))
	b.WriteString(segments[0])
	for _, seg := range segments[1:] {
		if seg == "" {
			continue
		}
		b.WriteString(Capitalize(lower.String(seg)))
	}
	return lowerFirst(b.String())
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || !unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Pascal converts a snake_case name to PascalCase ("encoded_id" -> "EncodedId").
func Pascal(s string) string {
	return Capitalize(camelCase(s))
}
