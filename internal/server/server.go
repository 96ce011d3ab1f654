package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/codehiveofficial/codehive/internal/relay"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 5 * time.Second

// Options configures Run.
type Options struct {
	Addr    string
	Metrics bool
	Log     *slog.Logger
}

// Run starts a hub and serves it on opts.Addr until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	var (
		reg      *prometheus.Registry
		gatherer prometheus.Gatherer
	)
	if opts.Metrics {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		gatherer = reg
	}

	var registerer prometheus.Registerer
	if reg != nil {
		registerer = reg
	}
	hub := relay.NewHub(relay.NewMetrics(registerer), log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           NewHandler(hub, gatherer, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("relay listening", "addr", opts.Addr, "metrics", opts.Metrics)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("relay server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	log.Info("relay shutting down")
	return srv.Shutdown(shutdownCtx)
}
