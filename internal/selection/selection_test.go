package selection

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *Tree
	}{
		{"empty", "", New()},
		{"blank", " \n\t ", New()},
		{"single", "id", New(Leaf("id", ""))},
		{
			"nested",
			"id person {name}",
			New(Leaf("id", ""), Branch("person", "", Leaf("name", ""))),
		},
		{
			"deep",
			"id person {name office {location}} email",
			New(
				Leaf("id", ""),
				Branch("person", "",
					Leaf("name", ""),
					Branch("office", "", Leaf("location", "")),
				),
				Leaf("email", ""),
			),
		},
		{
			"aliases",
			"id email:address person:dude {name}",
			New(
				Leaf("id", ""),
				Leaf("email", "address"),
				Branch("person", "dude", Leaf("name", "")),
			),
		},
		{
			"multiline",
			"id\n  person {\n    name\n  }\n",
			New(Leaf("id", ""), Branch("person", "", Leaf("name", ""))),
		},
		{"brace without space", "person{name}", New(Branch("person", "", Leaf("name", "")))},
		{"empty children", "person {}", New(Branch("person", ""))},
		{"alias keeps later colons", "a:b:c", New(Leaf("a", "b:c"))},
		{"empty alias", "a:", New(Leaf("a", ""))},
		{"duplicates kept", "a a:a a", New(Leaf("a", ""), Leaf("a", ""), Leaf("a", ""))},
		{"closing sequence", "a {b {c}} d", New(Branch("a", "", Branch("b", "", Leaf("c", ""))), Leaf("d", ""))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Parse(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantChar rune
	}{
		{"unsupported character", "id -name", '-'},
		{"non ascii", "id naïve", 'ï'},
		{"missing name", ":alias", ':'},
		{"unclosed brace", "person {name", 0},
		{"stray close", "id}", '}'},
		{"stray close at start", "} id", '}'},
		{"leading open", "{id}", '{'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			require.Error(t, err)
			var se *SyntaxError
			require.True(t, errors.As(err, &se), "want *SyntaxError, got %T", err)
			require.Equal(t, tt.wantChar, se.Char)
		})
	}
}

func TestTree_StringRoundTrip(t *testing.T) {
	inputs := []string{
		"id",
		"id person {name}",
		"id person {name office {location}} email",
		"id email:address person:dude {name}",
		"a {}",
		"a:b:c",
		"a a:a b {c:d {e}}",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			first := MustParse(in)
			second, err := Parse(first.String())
			require.NoError(t, err)
			if diff := cmp.Diff(first, second); diff != "" {
				t.Fatalf("round trip of %q mismatch (-want +got):\n%s", in, diff)
			}
		})
	}
	require.Equal(t, "id email:address person:dude {name}", MustParse("id  email:address\nperson:dude{ name }").String())
}

func TestTree_Predicates(t *testing.T) {
	var nilTree *Tree
	require.True(t, nilTree.IsEmpty())
	require.Equal(t, 0, nilTree.Len())
	require.True(t, New().IsEmpty())

	tree := MustParse("a b {} c {d}")
	require.Equal(t, 3, tree.Len())
	require.True(t, tree.Nodes[0].IsLeaf())
	require.False(t, tree.Nodes[1].IsLeaf())
	require.True(t, tree.Nodes[1].Children.IsEmpty())
	require.False(t, tree.Nodes[2].Children.IsEmpty())
}

func TestMustParse_Panics(t *testing.T) {
	require.Panics(t, func() { MustParse("a {") })
}
