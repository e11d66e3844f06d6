package commands

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/paulproteus/for-each-meteor-app/internal/config"
	"github.com/paulproteus/for-each-meteor-app/internal/discovery"
	"github.com/paulproteus/for-each-meteor-app/internal/events"
	"github.com/paulproteus/for-each-meteor-app/internal/export"
	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
	"github.com/paulproteus/for-each-meteor-app/internal/journal"
	"github.com/paulproteus/for-each-meteor-app/internal/ledger"
	"github.com/paulproteus/for-each-meteor-app/internal/logfields"
	"github.com/paulproteus/for-each-meteor-app/internal/metrics"
	"github.com/paulproteus/for-each-meteor-app/internal/notify"
	"github.com/paulproteus/for-each-meteor-app/internal/packager"
	"github.com/paulproteus/for-each-meteor-app/internal/pipeline"
)

// services holds collaborators that live for the whole process, shared by every
// run the daemon starts.
type services struct {
	recorder *metrics.PrometheusRecorder
	server   *http.Server
}

// newServices registers metrics and, when addr is set, serves them over HTTP.
func newServices(addr string) *services {
	reg := prom.NewRegistry()
	rt := &services{recorder: metrics.NewPrometheusRecorder(reg)}
	if addr == "" {
		return rt
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	rt.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		slog.Info("Serving metrics", slog.String("addr", addr))
		if err := rt.server.ListenAndServe(); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", logfields.Error(err))
		}
	}()
	return rt
}

func (rt *services) Close() {
	if rt.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.server.Shutdown(ctx); err != nil {
		slog.Warn("Metrics server shutdown failed", logfields.Error(err))
	}
}

// openSinks connects the configured event observers. The returned close function
// is always non-nil.
func openSinks(cfg *config.Config) (events.Sink, func(), error) {
	var sinks events.Fanout
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Warn("Failed to close event sink", logfields.Error(err))
			}
		}
	}

	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, closeAll, errors.WrapError(err, errors.CategoryConfig, "failed to open attempt journal").
				WithContext("path", cfg.Journal.Path).Build()
		}
		sinks = append(sinks, j)
		closers = append(closers, j.Close)
	}
	if cfg.Notify.NATSURL != "" {
		n, err := notify.Connect(cfg.Notify.NATSURL, cfg.Notify.Subject)
		if err != nil {
			slog.Warn("Outcome notifications disabled", logfields.URL(cfg.Notify.NATSURL), logfields.Error(err))
		} else {
			sinks = append(sinks, n)
			closers = append(closers, n.Close)
		}
	}
	return sinks, closeAll, nil
}

// runPipeline wires one run from cfg. A nil source crawls the configured search
// endpoint.
func runPipeline(ctx context.Context, cfg *config.Config, rt *services, source discovery.Source) (pipeline.Report, error) {
	l := ledger.NewFromConfig(cfg, rt.recorder)

	claimer, err := ledger.NewClaimerFromConfig(ctx, cfg)
	if err != nil {
		return pipeline.Report{}, err
	}
	defer func() { _ = claimer.Close() }()

	exp, err := export.NewFromConfig(cfg)
	if err != nil {
		return pipeline.Report{}, err
	}
	worker, err := packager.NewWorkerFromConfig(cfg, l, exp, rt.recorder)
	if err != nil {
		return pipeline.Report{}, err
	}
	if source == nil {
		s, err := discovery.NewFromConfig(cfg, rt.recorder)
		if err != nil {
			return pipeline.Report{}, err
		}
		source = s
	}

	sink, closeSinks, err := openSinks(cfg)
	defer closeSinks()
	if err != nil {
		return pipeline.Report{}, err
	}

	o, err := pipeline.New(pipeline.Config{
		Source:      source,
		Ledger:      l,
		Worker:      worker,
		Claimer:     claimer,
		Sink:        sink,
		Recorder:    rt.recorder,
		MaxAttempts: cfg.Run.MaxAttempts,
	})
	if err != nil {
		return pipeline.Report{}, err
	}
	return o.Run(ctx)
}
