// Package gqlshape projects Go values through a compact GraphQL-like
// selection string.
//
//	out, err := gqlshape.Serialize(ctx, user, "id name:display_name posts { title }")
//
// A selection is a list of field names, optionally aliased with `name:alias`,
// with nested selections in braces. Registered records (see
// NewStructProvider and NewProtoProvider) are walked through their relation
// metadata; maps, slices and plain structs are walked by reflection. The
// output is built from nil, scalars, []any and map[string]any only, so it
// can be handed straight to encoding/json.
package gqlshape

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/hanpama/gqlshape/internal/casing"
	"github.com/hanpama/gqlshape/internal/config"
	"github.com/hanpama/gqlshape/internal/eventbus"
	"github.com/hanpama/gqlshape/internal/events"
	"github.com/hanpama/gqlshape/internal/preload"
	"github.com/hanpama/gqlshape/internal/protorecord"
	"github.com/hanpama/gqlshape/internal/record"
	"github.com/hanpama/gqlshape/internal/reqid"
	"github.com/hanpama/gqlshape/internal/selection"
	"github.com/hanpama/gqlshape/internal/serializer"
)

type (
	// Provider recognizes record values and answers relation metadata.
	Provider = record.Provider
	// Providers chains providers; the first one claiming a value wins.
	Providers = record.Providers
	// Loader materializes associations ahead of serialization.
	Loader = preload.Loader
	// Plan is the nested set of relations handed to a Loader.
	Plan = preload.Plan
	// Policy selects how output keys are renamed.
	Policy = casing.Policy
	// Config holds the process-wide defaults.
	Config = config.Config

	SyntaxError = selection.SyntaxError
	ConfigError = casing.ConfigError
	Error       = serializer.Error
)

const (
	CaseNone  = casing.None
	CaseSnake = casing.Snake
	CaseCamel = casing.Camel
)

var (
	ErrFieldNotFound  = serializer.ErrFieldNotFound
	ErrMethodNotFound = serializer.ErrMethodNotFound
	ErrUnsupported    = selection.ErrUnsupported
)

// NewStructProvider returns a provider treating the given struct types as
// records. It panics when a model is not a struct.
func NewStructProvider(models ...any) *record.StructProvider {
	return record.NewStructProvider(models...)
}

// NewProtoProvider returns a provider treating every protobuf message as a
// record.
func NewProtoProvider() *protorecord.Provider { return protorecord.New() }

// Configure edits the process-wide defaults. See config.Configure.
func Configure(fn func(*Config) error) error { return config.Configure(fn) }

// Shaper serializes values for one provider. It is safe for concurrent use.
type Shaper struct {
	provider record.Provider
	loader   preload.Loader
}

// Option configures a Shaper.
type Option func(*Shaper)

// WithLoader preloads relations named by the selection before serializing
// records.
func WithLoader(l preload.Loader) Option { return func(s *Shaper) { s.loader = l } }

// New returns a Shaper. provider may be nil.
func New(provider record.Provider, opts ...Option) *Shaper {
	s := &Shaper{provider: provider}
	for _, o := range opts {
		o(s)
	}
	return s
}

type callOptions struct {
	cfg     config.Config
	graphql bool
}

// CallOption overrides a default for one Serialize call.
type CallOption func(*callOptions)

// WithCase renames output keys with p.
func WithCase(p casing.Policy) CallOption { return func(o *callOptions) { o.cfg.Case = p } }

// WithPreload chooses between loading relations in place (true) and
// serializing reloaded copies (false).
func WithPreload(enabled bool) CallOption {
	return func(o *callOptions) { o.cfg.Preload = enabled }
}

// WithGraphQLSyntax reads the query as a GraphQL document instead of the
// native selection syntax.
func WithGraphQLSyntax() CallOption { return func(o *callOptions) { o.graphql = true } }

var defaultShaper = New(nil)

// Serialize projects value through query using a Shaper without records.
func Serialize(ctx context.Context, value any, query string, opts ...CallOption) (any, error) {
	return defaultShaper.Serialize(ctx, value, query, opts...)
}

// Serialize projects value through query.
func (s *Shaper) Serialize(ctx context.Context, value any, query string, opts ...CallOption) (any, error) {
	co := callOptions{cfg: config.Default()}
	for _, o := range opts {
		o(&co)
	}
	if err := co.cfg.Validate(); err != nil {
		return nil, err
	}

	sel, err := parse(query, co.graphql)
	if err != nil {
		return nil, err
	}

	ctx, _ = reqid.Ensure(ctx)
	start := time.Now()
	syntax := "native"
	if co.graphql {
		syntax = "graphql"
	}
	if eventbus.Enabled[events.SerializeStart]() {
		eventbus.Publish(ctx, events.SerializeStart{Query: query, Syntax: syntax, Case: string(co.cfg.Case)})
	}

	out, stats, err := s.run(ctx, value, sel, co.cfg)
	if eventbus.Enabled[events.SerializeFinish]() {
		eventbus.Publish(ctx, events.SerializeFinish{
			Query:        query,
			Case:         string(co.cfg.Case),
			Instructions: stats.Instructions,
			Records:      stats.Records,
			Err:          err,
			Duration:     time.Since(start),
		})
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func parse(query string, graphql bool) (*selection.Tree, error) {
	if graphql {
		sel, err := selection.FromGraphQL(query)
		if err != nil {
			return nil, fmt.Errorf("parse graphql selection: %w", err)
		}
		return sel, nil
	}
	sel, err := selection.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("parse selection: %w", err)
	}
	return sel, nil
}

func (s *Shaper) run(ctx context.Context, value any, sel *selection.Tree, cfg config.Config) (any, serializer.Stats, error) {
	value, err := s.load(ctx, value, sel, cfg.Preload)
	if err != nil {
		return nil, serializer.Stats{}, err
	}
	return serializer.New(s.provider, serializer.Options{Case: cfg.Case}).Run(value, sel)
}

// load runs the loader for record values. It returns the value to serialize,
// which is a reloaded copy when inPlace is false.
func (s *Shaper) load(ctx context.Context, value any, sel *selection.Tree, inPlace bool) (any, error) {
	if s.loader == nil || s.provider == nil || sel.IsEmpty() {
		return value, nil
	}
	records, t, single := s.records(value)
	if t == nil {
		return value, nil
	}
	plan := preload.Build(s.provider, t, sel)
	if plan.Empty() {
		return value, nil
	}

	start := time.Now()
	ev := events.Preload{Plan: plan.String(), Mode: "preload", Records: len(records)}
	defer func() {
		if !eventbus.Enabled[events.Preload]() {
			return
		}
		ev.Duration = time.Since(start)
		eventbus.Publish(ctx, ev)
	}()

	if inPlace {
		if err := s.loader.Preload(ctx, records, plan); err != nil {
			ev.Err = err
			return nil, fmt.Errorf("preload %s: %w", plan, err)
		}
		return value, nil
	}

	ev.Mode = "reload"
	fresh, err := s.loader.Reload(ctx, records, plan)
	if err != nil {
		ev.Err = err
		return nil, fmt.Errorf("reload %s: %w", plan, err)
	}
	if len(fresh) != len(records) {
		ev.Err = fmt.Errorf("reload returned %d records, want %d", len(fresh), len(records))
		return nil, ev.Err
	}
	if single {
		return fresh[0], nil
	}
	return fresh, nil
}

// records collects value as a list of records sharing one type. t is nil when
// value is nil or not a record, and for an empty sequence or one holding a nil,
// non-record or differently typed element.
func (s *Shaper) records(value any) (records []any, t record.Type, single bool) {
	if serializer.IsNullish(value) {
		return nil, nil, false
	}
	if rt, ok := s.provider.TypeOf(value); ok {
		return []any{value}, rt, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, nil, false
	}
	records = make([]any, rv.Len())
	for i := range records {
		e := rv.Index(i).Interface()
		if serializer.IsNullish(e) {
			return nil, nil, false
		}
		et, ok := s.provider.TypeOf(e)
		if !ok || (t != nil && et != t) {
			return nil, nil, false
		}
		t = et
		records[i] = e
	}
	return records, t, false
}
