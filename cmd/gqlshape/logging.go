package main

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/hanpama/gqlshape/internal/eventbus"
	"github.com/hanpama/gqlshape/internal/events"
	"github.com/hanpama/gqlshape/internal/reqid"
)

var logLevelMap = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// initLogging installs a text logger on w as the slog default. Unknown levels
// fall back to warn.
func initLogging(logLevel string, w io.Writer) {
	level, ok := logLevelMap[strings.ToLower(logLevel)]
	if !ok {
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// subscribeLogging logs bus events through the default logger.
func subscribeLogging() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.SerializeStart) {
			slog.DebugContext(ctx, "serialize start",
				"request_id", requestID(ctx),
				"query", e.Query,
				"syntax", e.Syntax,
				"case", e.Case)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.Preload) {
			level := slog.LevelDebug
			if e.Err != nil {
				level = slog.LevelError
			}
			slog.Log(ctx, level, "preload",
				"request_id", requestID(ctx),
				"plan", e.Plan,
				"mode", e.Mode,
				"records", e.Records,
				"duration", e.Duration,
				"error", e.Err)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.SerializeFinish) {
			level := slog.LevelInfo
			if e.Err != nil {
				level = slog.LevelWarn
			}
			slog.Log(ctx, level, "serialize finish",
				"request_id", requestID(ctx),
				"query", e.Query,
				"instructions", e.Instructions,
				"records", e.Records,
				"duration", e.Duration,
				"error", e.Err)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			slog.InfoContext(ctx, "http request",
				"request_id", requestID(ctx),
				"method", e.Request.Method,
				"path", e.Request.URL.Path,
				"status", e.Status,
				"batch", e.Batch,
				"duration", e.Duration)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func requestID(ctx context.Context) string {
	id, _ := reqid.FromContext(ctx)
	return id
}
