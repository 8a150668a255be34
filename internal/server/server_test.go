package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/gqlshape/internal/eventbus"
	"github.com/hanpama/gqlshape/internal/events"
	"github.com/hanpama/gqlshape/internal/reqid"
)

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) any {
	t.Helper()
	var out any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestProject(t *testing.T) {
	h := New(nil)

	cases := []struct {
		name string
		body string
		want any
	}{
		{
			name: "native syntax with alias and case",
			body: `{"query":"user_id first_name:given { city }","data":{"user_id":7,"first_name":{"city":"Oslo"},"secret":1},"case":"camel"}`,
			want: map[string]any{"data": map[string]any{"userId": float64(7), "given": map[string]any{"city": "Oslo"}}},
		},
		{
			name: "graphql syntax",
			body: `{"query":"{ id label: name }","data":[{"id":1,"name":"a"},{"id":2,"name":"b"}],"syntax":"graphql"}`,
			want: map[string]any{"data": []any{
				map[string]any{"id": float64(1), "label": "a"},
				map[string]any{"id": float64(2), "label": "b"},
			}},
		},
		{
			name: "empty query copies the document",
			body: `{"query":"","data":{"a":{"b":1}}}`,
			want: map[string]any{"data": map[string]any{"a": map[string]any{"b": float64(1)}}},
		},
		{
			name: "missing key reports path",
			body: `{"query":"a { nope }","data":{"a":{"b":1}}}`,
			want: map[string]any{"data": nil, "errors": []any{
				map[string]any{"message": `field "nope" not found`, "path": []any{"a", "nope"}},
			}},
		},
		{
			name: "unsupported case",
			body: `{"query":"a","data":{"a":1},"case":"kebab"}`,
			want: map[string]any{"data": nil, "errors": []any{
				map[string]any{"message": "Specified case 'kebab' is not supported"},
			}},
		},
		{
			name: "unsupported syntax",
			body: `{"query":"a","data":{"a":1},"syntax":"sql"}`,
			want: map[string]any{"data": nil, "errors": []any{
				map[string]any{"message": "unsupported syntax sql"},
			}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := post(t, h, tc.body)
			require.Equal(t, http.StatusOK, w.Code)
			if diff := cmp.Diff(tc.want, decodeBody(t, w)); diff != "" {
				t.Fatalf("response mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBatch(t *testing.T) {
	h := New(nil)
	w := post(t, h, `[{"query":"a","data":{"a":1}},{"query":"b","data":{"a":1}}]`)
	require.Equal(t, http.StatusOK, w.Code)
	want := []any{
		map[string]any{"data": map[string]any{"a": float64(1)}},
		map[string]any{"data": nil, "errors": []any{map[string]any{"message": `field "b" not found`, "path": []any{"b"}}}},
	}
	if diff := cmp.Diff(want, decodeBody(t, w)); diff != "" {
		t.Fatalf("batch mismatch (-want +got):\n%s", diff)
	}

	w = post(t, h, `[]`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBadRequests(t *testing.T) {
	h := New(nil)

	w := post(t, h, `{"query":`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req = httptest.NewRequest("POST", "/", bytes.NewBufferString("a"))
	req.Header.Set("Content-Type", "text/plain")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSAndPreflight(t *testing.T) {
	h := New(nil, WithCORS("*"))

	// simple request
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"a","data":{"a":1}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}

	// preflight
	pre := httptest.NewRequest("OPTIONS", "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	if pw.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", pw.Code)
	}
	if pw.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight missing CORS header")
	}
	if pw.Header().Get("Access-Control-Allow-Headers") != "X-Test" {
		t.Fatalf("preflight missing allow headers")
	}
}

func TestMaxBodyBytes(t *testing.T) {
	h := New(nil, WithMaxBodyBytes(10))
	w := post(t, h, `{"query":"1234567890"}`)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 got %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	var ids []string
	var finish events.HTTPFinish
	defer eventbus.Subscribe(func(ctx context.Context, e events.SerializeStart) {
		id, _ := reqid.FromContext(ctx)
		ids = append(ids, id)
	})()
	defer eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
		id, _ := reqid.FromContext(ctx)
		ids = append(ids, id)
		finish = e
	})()

	h := New(nil)
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`[{"query":"a","data":{"a":1}},{"query":"a","data":{"a":2}}]`))
	req.Header.Set(reqid.Header, "abc-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "abc-123", w.Header().Get(reqid.Header))
	require.Equal(t, []string{"abc-123", "abc-123", "abc-123"}, ids)
	require.Equal(t, 2, finish.Batch)
	require.Equal(t, http.StatusOK, finish.Status)

	// generated when absent
	w = post(t, h, `{"query":"a","data":{"a":1}}`)
	require.NotEmpty(t, w.Header().Get(reqid.Header))
}

func TestWriteJSON(t *testing.T) {
	cases := []struct {
		name       string
		v          any
		pretty     bool
		wantStatus int
		want       any
	}{
		{"encodable", map[string]any{"x": 1}, false, http.StatusOK, map[string]any{"x": float64(1)}},
		{"encodable pretty", map[string]any{"x": 1}, true, http.StatusOK, map[string]any{"x": float64(1)}},
		{"NaN", map[string]any{"x": math.NaN()}, false, http.StatusInternalServerError, nil},
		{"Inf pretty", []any{math.Inf(1)}, true, http.StatusInternalServerError, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			got := writeJSON(w, http.StatusOK, tc.v, tc.pretty)
			require.Equal(t, tc.wantStatus, got)
			require.Equal(t, tc.wantStatus, w.Code)
			require.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

			body := decodeBody(t, w)
			if tc.want != nil {
				if diff := cmp.Diff(tc.want, body); diff != "" {
					t.Fatalf("body mismatch (-want +got):\n%s", diff)
				}
				return
			}
			errs := body.(map[string]any)["errors"].([]any)
			require.Len(t, errs, 1)
			require.Contains(t, errs[0].(map[string]any)["message"], "encode response")
		})
	}
}
