package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hanpama/gqlshape"
	"github.com/hanpama/gqlshape/internal/casing"
	"github.com/hanpama/gqlshape/internal/eventbus"
	"github.com/hanpama/gqlshape/internal/events"
	"github.com/hanpama/gqlshape/internal/reqid"
	"github.com/hanpama/gqlshape/internal/serializer"
)

// Handler is an http.Handler that projects JSON documents posted to it.
type Handler struct {
	shaper *gqlshape.Shaper
	opt    Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a handler serializing through shaper. A nil shaper projects
// plain JSON data only.
func New(shaper *gqlshape.Shaper, opts ...Option) *Handler {
	if shaper == nil {
		shaper = gqlshape.New(nil)
	}
	op := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{shaper: shaper, opt: op}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.WithID(ctx, r.Header.Get(reqid.Header))
	w.Header().Set(reqid.Header, rid)
	status := http.StatusOK
	batchSize := 0
	start := time.Now()
	if eventbus.Enabled[events.HTTPStart]() {
		eventbus.Publish(ctx, events.HTTPStart{Request: r})
	}
	defer func() {
		if eventbus.Enabled[events.HTTPFinish]() {
			eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Batch: batchSize, Duration: time.Since(start)})
		}
	}()

	if r.Method == http.MethodOptions {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost {
		status = http.StatusMethodNotAllowed
		status = writeJSON(w, status, errorResponse(errors.New("method not allowed")), h.opt.Pretty)
		return
	}

	req, batch, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != nil {
		status = http.StatusBadRequest
		if berr.Error() == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		status = writeJSON(w, status, errorResponse(berr), h.opt.Pretty)
		return
	}

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	if batch != nil {
		batchSize = len(batch)
		out := make([]response, len(batch))
		for i := range batch {
			out[i] = h.serializeOne(ctx, batch[i])
		}
		status = writeJSON(w, status, out, h.opt.Pretty)
		return
	}

	batchSize = 1
	status = writeJSON(w, status, h.serializeOne(ctx, req), h.opt.Pretty)
}

func (h *Handler) serializeOne(ctx context.Context, req Request) response {
	var opts []gqlshape.CallOption
	if req.Case != "" {
		p, err := casing.ParsePolicy(req.Case)
		if err != nil {
			return errorResponse(err)
		}
		opts = append(opts, gqlshape.WithCase(p))
	}
	switch strings.ToLower(req.Syntax) {
	case "", "native":
	case "graphql":
		opts = append(opts, gqlshape.WithGraphQLSyntax())
	default:
		return errorResponse(errors.New("unsupported syntax " + req.Syntax))
	}
	if req.Preload != nil {
		opts = append(opts, gqlshape.WithPreload(*req.Preload))
	}

	data, err := h.shaper.Serialize(ctx, req.Data, req.Query, opts...)
	if err != nil {
		return errorResponse(err)
	}
	return response{Data: data}
}

// ------------------ Request parsing ------------------

// Request is one projection: Data is serialized through Query.
type Request struct {
	Query   string `json:"query"`
	Data    any    `json:"data"`
	Case    string `json:"case,omitempty"`
	Syntax  string `json:"syntax,omitempty"`
	Preload *bool  `json:"preload,omitempty"`
}

func parseRequest(r *http.Request, maxBody int64) (Request, []Request, error) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return Request{}, nil, errors.New("unsupported Content-Type")
	}
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return Request{}, nil, errors.New("failed to read body")
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return Request{}, nil, errors.New(errBodyTooLargeMessage)
	}
	body = bytes.TrimSpace(body)

	// Try array (batch)
	if len(body) > 0 && body[0] == '[' {
		var arr []Request
		if err := decode(body, &arr); err != nil {
			return Request{}, nil, errors.New("invalid JSON")
		}
		if len(arr) == 0 {
			return Request{}, nil, errors.New("empty batch")
		}
		return Request{}, arr, nil
	}
	var req Request
	if err := decode(body, &req); err != nil {
		return Request{}, nil, errors.New("invalid JSON")
	}
	return req, nil, nil
}

// decode keeps numbers as json.Number so integers survive the round trip.
func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}

// ------------------ Response formatting ------------------

type responseError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

type response struct {
	Data   any             `json:"data"`
	Errors []responseError `json:"errors,omitempty"`
}

func errorResponse(err error) response {
	re := responseError{Message: err.Error()}
	var se *serializer.Error
	if errors.As(err, &se) {
		re.Message = se.Message
		if len(se.Path) > 0 {
			re.Path = make([]any, len(se.Path))
			for i, pe := range se.Path {
				re.Path[i] = pe
			}
		}
	}
	return response{Errors: []responseError{re}}
}

// writeJSON encodes v before writing the header so an unencodable document
// (NaN, Inf, cycles) becomes a 500. It returns the status actually sent.
func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) int {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(errorResponse(fmt.Errorf("encode response: %w", err)))
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
	return status
}

const errBodyTooLargeMessage = "body too large"

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
