package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sdmodeld/internal/config"
	"sdmodeld/internal/httpapi"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(o *options) *cobra.Command {
	var addr string
	var watch bool
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the HTTP API",
		Example: "  sdmodeld serve --addr :8090 --models-dir ~/models/sd --implementation invokeai",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				o.cfg.Addr = addr
			}
			if cmd.Flags().Changed("watch") || watch {
				o.cfg.Watch = watch
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, o)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", envStr("SDMODELD_ADDR", ""), "HTTP listen address (default "+config.DefaultAddr+")")
	cmd.Flags().BoolVar(&watch, "watch", envBool("SDMODELD_WATCH", false), "Rescan when model directories change")
	return cmd
}

func serve(ctx context.Context, o *options) error {
	sess, err := o.newSession()
	if err != nil {
		return err
	}
	cfg := o.cfg

	httpapi.SetLogger(o.log)
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins, cfg.CORSAllowedMethods, cfg.CORSAllowedHeaders)
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(sess),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		models := sess.Refresh()
		o.log.Info().Int("models", len(models)).Strs("dirs", sess.Registry().Dirs(true)).Msg("initial scan complete")
		if cfg.Watch {
			if err := sess.Watch(gctx); err != nil {
				o.log.Warn().Err(err).Msg("model dir watching disabled")
			}
		}
		return nil
	})
	g.Go(func() error {
		o.log.Info().Str("addr", cfg.Addr).Str("session", sess.ID()).Str("implementation", sess.Implementation().String()).Msg("sdmodeld listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			o.log.Error().Err(err).Msg("graceful shutdown error")
		}
		return nil
	})
	return g.Wait()
}
