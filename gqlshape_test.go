package gqlshape

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/gqlshape/internal/config"
	"github.com/hanpama/gqlshape/internal/eventbus"
	"github.com/hanpama/gqlshape/internal/events"
	"github.com/hanpama/gqlshape/internal/reqid"
)

type Comment struct {
	Body string
}

type Post struct {
	Title    string
	Comments []*Comment
}

type Author struct {
	ID    int
	Name  string
	Posts []*Post
}

// fakeLoader fills Posts the way an ORM eager load would.
type fakeLoader struct {
	preloads []string
	reloads  []string
	err      error
}

func (l *fakeLoader) fill(a *Author) {
	a.Posts = []*Post{{Title: "hello", Comments: []*Comment{{Body: "first"}}}}
}

func (l *fakeLoader) Preload(_ context.Context, records []any, plan Plan) error {
	l.preloads = append(l.preloads, plan.String())
	if l.err != nil {
		return l.err
	}
	for _, r := range records {
		l.fill(r.(*Author))
	}
	return nil
}

func (l *fakeLoader) Reload(_ context.Context, records []any, plan Plan) ([]any, error) {
	l.reloads = append(l.reloads, plan.String())
	if l.err != nil {
		return nil, l.err
	}
	out := make([]any, len(records))
	for i, r := range records {
		cp := *r.(*Author)
		cp.Name += " (reloaded)"
		l.fill(&cp)
		out[i] = &cp
	}
	return out, nil
}

func TestSerialize_Plain(t *testing.T) {
	t.Cleanup(config.Reset)
	in := map[string]any{
		"user_name": "ann",
		"tags":      []string{"a", "b"},
		"profile":   struct{ Age int }{Age: 30},
	}

	got, err := Serialize(context.Background(), in, "user_name:display_name profile { Age }", WithCase(CaseCamel))
	require.NoError(t, err)
	want := map[string]any{
		"displayName": "ann",
		"profile":     map[string]any{"age": 30},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Serialize mismatch (-want +got):\n%s", diff)
	}
}

func TestSerialize_GraphQLSyntax(t *testing.T) {
	in := map[string]any{"id": 1, "name": "x"}
	got, err := Serialize(context.Background(), in, "{ id label: name }", WithGraphQLSyntax())
	require.NoError(t, err)
	require.Equal(t, map[string]any{"id": 1, "label": "x"}, got)

	_, err = Serialize(context.Background(), in, "query($a: Int) { id }", WithGraphQLSyntax())
	require.True(t, errors.Is(err, ErrUnsupported))
}

func TestSerialize_Errors(t *testing.T) {
	t.Cleanup(config.Reset)

	t.Run("unsupported case before parsing", func(t *testing.T) {
		_, err := Serialize(context.Background(), nil, "{{{", WithCase("kebab"))
		var ce *ConfigError
		require.True(t, errors.As(err, &ce))
	})

	t.Run("syntax", func(t *testing.T) {
		_, err := Serialize(context.Background(), nil, "a $")
		var se *SyntaxError
		require.True(t, errors.As(err, &se))
		require.Equal(t, '$', se.Char)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := Serialize(context.Background(), map[string]any{}, "nope")
		require.True(t, errors.Is(err, ErrFieldNotFound))
	})

	t.Run("default case applies", func(t *testing.T) {
		require.NoError(t, Configure(func(c *Config) error { return c.SetCase(CaseSnake) }))
		got, err := Serialize(context.Background(), map[string]any{"userName": 1}, "")
		require.NoError(t, err)
		require.Equal(t, map[string]any{"user_name": 1}, got)
	})
}

func TestShaper_PreloadRouting(t *testing.T) {
	t.Cleanup(config.Reset)
	provider := NewStructProvider(Author{}, Post{}, Comment{})

	t.Run("preload in place", func(t *testing.T) {
		loader := &fakeLoader{}
		s := New(provider, WithLoader(loader))
		a := &Author{ID: 1, Name: "ann"}

		got, err := s.Serialize(context.Background(), a, "name posts { title comments { body } }")
		require.NoError(t, err)
		want := map[string]any{
			"name": "ann",
			"posts": []any{map[string]any{
				"title":    "hello",
				"comments": []any{map[string]any{"body": "first"}},
			}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("Serialize mismatch (-want +got):\n%s", diff)
		}
		require.Equal(t, []string{"posts {comments}"}, loader.preloads)
		require.Empty(t, loader.reloads)
		require.Len(t, a.Posts, 1, "loaded in place")
	})

	t.Run("reload when preload is off", func(t *testing.T) {
		loader := &fakeLoader{}
		s := New(provider, WithLoader(loader))
		authors := []*Author{{ID: 1, Name: "ann"}, {ID: 2, Name: "bob"}}

		got, err := s.Serialize(context.Background(), authors, "name posts { title }", WithPreload(false))
		require.NoError(t, err)
		want := []any{
			map[string]any{"name": "ann (reloaded)", "posts": []any{map[string]any{"title": "hello"}}},
			map[string]any{"name": "bob (reloaded)", "posts": []any{map[string]any{"title": "hello"}}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("Serialize mismatch (-want +got):\n%s", diff)
		}
		require.Equal(t, []string{"posts"}, loader.reloads)
		require.Nil(t, authors[0].Posts, "source untouched")
	})

	t.Run("no relations selected", func(t *testing.T) {
		loader := &fakeLoader{}
		s := New(provider, WithLoader(loader))
		_, err := s.Serialize(context.Background(), &Author{Name: "ann"}, "id name")
		require.NoError(t, err)
		require.Empty(t, loader.preloads)
	})

	t.Run("mixed sequence is not preloaded", func(t *testing.T) {
		loader := &fakeLoader{}
		s := New(provider, WithLoader(loader))
		_, err := s.Serialize(context.Background(), []any{&Author{}, &Post{}}, "posts")
		require.Error(t, err, "Post has no posts")
		require.Empty(t, loader.preloads)
	})

	t.Run("nil records are not loaded", func(t *testing.T) {
		loader := &fakeLoader{}
		s := New(provider, WithLoader(loader))

		got, err := s.Serialize(context.Background(), (*Author)(nil), "posts { title }")
		require.NoError(t, err)
		require.Nil(t, got)

		got, err = s.Serialize(context.Background(), []*Author{{ID: 1}, nil}, "posts { title }")
		require.NoError(t, err)
		want := []any{map[string]any{"id": 1, "name": "", "posts": nil}, nil}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("Serialize mismatch (-want +got):\n%s", diff)
		}
		require.Empty(t, loader.preloads)
		require.Empty(t, loader.reloads)
	})

	t.Run("loader error", func(t *testing.T) {
		boom := errors.New("db down")
		s := New(provider, WithLoader(&fakeLoader{err: boom}))
		_, err := s.Serialize(context.Background(), &Author{}, "posts { title }")
		require.ErrorIs(t, err, boom)
	})
}

func TestShaper_Events(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	var (
		seen  []string
		ids   = map[string]bool{}
		final events.SerializeFinish
	)
	record := func(name string) func(context.Context) {
		return func(ctx context.Context) {
			id, ok := reqid.FromContext(ctx)
			require.True(t, ok)
			ids[id] = true
			seen = append(seen, name)
		}
	}
	defer eventbus.Subscribe(func(ctx context.Context, e events.SerializeStart) { record("start")(ctx) })()
	defer eventbus.Subscribe(func(ctx context.Context, e events.Preload) { record("preload:" + e.Mode)(ctx) })()
	defer eventbus.Subscribe(func(ctx context.Context, e events.SerializeFinish) {
		record("finish")(ctx)
		final = e
	})()

	s := New(NewStructProvider(Author{}, Post{}, Comment{}), WithLoader(&fakeLoader{}))
	_, err := s.Serialize(context.Background(), []*Author{{ID: 1}, {ID: 2}}, "posts { title }")
	require.NoError(t, err)

	require.Equal(t, []string{"start", "preload:preload", "finish"}, seen)
	require.Len(t, ids, 1, "one request id per call")
	require.Equal(t, 2, final.Instructions, "Author and Post levels")
	require.Equal(t, 4, final.Records)
	require.NoError(t, final.Err)
}
