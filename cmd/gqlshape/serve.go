package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hanpama/gqlshape"
	"github.com/hanpama/gqlshape/internal/otel"
	"github.com/hanpama/gqlshape/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		addr         string
		path         string
		pretty       bool
		timeout      time.Duration
		maxBody      int64
		origins      []string
		otelEndpoint string
		otelService  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve projections over HTTP",
		Long: `Runs an HTTP endpoint accepting POST bodies of the form
{"query": "...", "data": ..., "case": "camel", "syntax": "graphql"}
or a JSON array of them, and answering {"data": ..., "errors": [...]}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdown, err := otel.Setup(ctx, otelEndpoint, otelService)
			if err != nil {
				return fmt.Errorf("otel setup: %w", err)
			}
			defer func() { _ = shutdown(context.Background()) }()

			var sopts []server.Option
			if pretty {
				sopts = append(sopts, server.WithPretty())
			}
			if timeout > 0 {
				sopts = append(sopts, server.WithTimeout(timeout))
			}
			if maxBody > 0 {
				sopts = append(sopts, server.WithMaxBodyBytes(maxBody))
			}
			if len(origins) > 0 {
				sopts = append(sopts, server.WithCORS(origins...))
			}

			mux := http.NewServeMux()
			mux.Handle(path, server.New(gqlshape.New(nil), sopts...))
			srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			slog.Info("gqlshape server listening", "addr", addr, "path", path)

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", ":8080", "HTTP listen address")
	f.StringVar(&path, "path", "/project", "HTTP path of the projection endpoint")
	f.BoolVar(&pretty, "pretty", false, "Pretty-print JSON responses")
	f.DurationVar(&timeout, "timeout", 10*time.Second, "Per-request timeout")
	f.Int64Var(&maxBody, "max-body-bytes", 1<<20, "Maximum request body size; 0 is unlimited")
	f.StringSliceVar(&origins, "cors-origin", nil, "Allowed CORS origin. Repeatable; * allows any")
	f.StringVar(&otelEndpoint, "otel-endpoint", "", "OTLP collector endpoint")
	f.StringVar(&otelService, "otel-service", "gqlshape", "OpenTelemetry service name")
	return cmd
}
