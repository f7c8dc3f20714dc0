package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"dqx0.com/go/httpmsg/httpx"
	"dqx0.com/go/httpmsg/httpx/bridge"
	"dqx0.com/go/httpmsg/internal/config"
	"dqx0.com/go/httpmsg/internal/obs"
)

func newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an endpoint that answers with the parsed request as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotEnv()
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.LoadEffective(config.ResolvePath(path))
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			zl, err := obs.NewZapLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer zl.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, zl, prometheus.DefaultRegisterer)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address, overrides the config")
	return cmd
}

func newMux(cfg *config.Config, log obs.Logger, reg prometheus.Registerer) *http.ServeMux {
	opts := bridge.Options{
		UploadDir:   cfg.UploadDir,
		MaxFileSize: int64(cfg.MaxFileSize),
		Limits:      httpx.BodyLimits{MaxMemory: int64(cfg.MaxMemory)},
		Logger:      log,
	}
	mux := http.NewServeMux()
	if cfg.Metrics {
		opts.Meter = obs.NewPromMeter(reg)
		if g, ok := reg.(prometheus.Gatherer); ok {
			mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
		} else {
			mux.Handle(cfg.MetricsPath, promhttp.Handler())
		}
	}
	mux.Handle("/", bridge.NetHTTP(bridge.HandlerFunc(echo), opts))
	return mux
}

func echo(r *httpx.ServerRequest) (*httpx.Response, error) {
	id, _ := r.Attribute(bridge.AttrRequestID, "").(string)
	body := httpx.NewTempStream()
	if err := writeJSON(body, describeRequest(r, id)); err != nil {
		return nil, err
	}
	if err := body.Rewind(); err != nil {
		return nil, err
	}
	return httpx.NewResponse(http.StatusOK, "",
		httpx.HeaderField("Content-Type", "application/json"),
		httpx.Body(body),
	), nil
}

func serve(ctx context.Context, cfg *config.Config, log obs.Logger, reg prometheus.Registerer) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newMux(cfg, log, reg),
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Logf(obs.Info, "listening on %s", cfg.Listen)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Logf(obs.Info, "shutting down")
	return srv.Shutdown(shutdownCtx)
}
