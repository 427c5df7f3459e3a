package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"strongholdcore/internal/archive"
	"strongholdcore/internal/blob"
	"strongholdcore/internal/config"
	"strongholdcore/internal/core"
	"strongholdcore/internal/input"
)

type runOptions struct {
	*rootOptions
	source      string
	path        string
	metricsAddr string
	alternate   bool
	watch       bool
	jsonOutput  bool
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Track a live session and print every published snapshot",
		Long: `Reads F3+C observations from the configured source and keys or command
names (undo, reset, lock, ...) from stdin, one per line. With the stdin
source, observations and commands share stdin and the session ends at EOF.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := opts.loadConfig()
			if err != nil {
				return err
			}
			opts.applyRunFlags(&cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := newLogger(opts.stderr, cfg.Logging)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runSession(ctx, cfg, path, opts, logger)
		},
	}
	cmd.Flags().StringVar(&opts.source, "input", "", "override input.source (file, stdin)")
	cmd.Flags().StringVar(&opts.path, "input-path", "", "override input.path")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&opts.alternate, "alternate", false, "only read the input file when forced (alternate reader mode)")
	cmd.Flags().BoolVar(&opts.watch, "watch-config", true, "re-apply the config file when it changes")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print snapshots as JSON lines")
	return cmd
}

func (o *runOptions) applyRunFlags(cfg *config.Config) {
	if o.source != "" {
		cfg.Input.Source = o.source
	}
	if o.path != "" {
		cfg.Input.Path = o.path
	}
	if o.metricsAddr != "" {
		cfg.Metrics.Addr = o.metricsAddr
	}
}

type noopForcer struct{}

func (noopForcer) ForceRead() {}

func runSession(parent context.Context, cfg config.Config, cfgPath string, opts *runOptions, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	store, err := archive.OpenStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	exports, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return err
	}
	worker := archive.NewWorker(store, exports, archive.Options{
		QueueSize: cfg.Storage.QueueSize,
		Prefix:    cfg.Blob.Prefix,
		Logger:    logger.With("component", "archive"),
	})
	worker.Start()
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := worker.Stop(stopCtx); err != nil {
			logger.Error("archive worker did not drain", "error", err)
		}
	}()

	handler, err := core.NewStateHandler(cfg.Settings(), core.WithLogger(logger), core.WithArchiver(worker))
	if err != nil {
		return err
	}
	snaps, _ := handler.Subscribe()
	printed := make(chan error, 1)
	go func() { printed <- printSnapshots(opts.stdout, snaps, opts.jsonOutput) }()

	var (
		poller     *input.Poller
		dispatcher *input.Dispatcher
		forcer     input.Forcer = noopForcer{}
	)
	if cfg.Input.Source == "file" {
		poller = input.NewPoller(input.FileSource{Path: cfg.Input.Path}, func(ctx context.Context, text string) {
			dispatcher.Observe(ctx, text)
		}, input.PollerOptions{Interval: cfg.Input.PollInterval, Alternate: opts.alternate, Logger: logger})
		forcer = poller
	}
	dispatcher, err = input.NewDispatcher(handler, forcer, cfg.Input.Hotkeys, logger)
	if err != nil {
		handler.Close()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	// A blocked stdin read cannot be interrupted, so the scanner is not part
	// of the group; the group instead waits for cancellation.
	go func() {
		if err := input.ScanLines(gctx, opts.stdin, dispatcher.Route); err != nil {
			logger.Warn("read commands", "error", err)
		}
		if poller == nil {
			// stdin carries the observations; its end is the end of the session
			cancel()
		}
	}()
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	if poller != nil {
		g.Go(func() error { return poller.Run(gctx) })
		g.Go(func() error {
			// polling still works without change notifications
			if err := input.WatchFile(gctx, cfg.Input.Path, poller); err != nil {
				logger.Warn("input file watch disabled", "error", err)
			}
			return nil
		})
	}
	if opts.watch && cfgPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, cfgPath, config.DefaultDebounce, func(next config.Config, err error) {
				if err != nil {
					logger.Warn("config reload rejected", "error", err)
					return
				}
				if err := handler.ApplyConfig(gctx, next.Settings()); err != nil {
					logger.Warn("config reload rejected", "error", err)
					return
				}
				logger.Info("config reloaded", "path", cfgPath)
			})
		})
	}
	if cfg.Metrics.Addr != "" {
		g.Go(func() error { return serveMetrics(gctx, cfg.Metrics.Addr, logger) })
	}

	logger.Info("session started", "source", cfg.Input.Source, "storage", cfg.Storage.Driver, "locked", handler.Locked())
	err = g.Wait()
	handler.Close()
	if perr := <-printed; err == nil {
		err = perr
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics listener: %w", err)
	}
	return nil
}

// printSnapshots writes every snapshot received until the channel closes.
func printSnapshots(w io.Writer, snaps <-chan core.Snapshot, asJSON bool) error {
	enc := json.NewEncoder(w)
	for snap := range snaps {
		var err error
		if asJSON {
			err = enc.Encode(snap)
		} else {
			err = writeSnapshot(w, snap)
		}
		if err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	}
	return nil
}

func writeSnapshot(w io.Writer, snap core.Snapshot) error {
	est := snap.Estimate
	lock := ""
	if snap.Locked {
		lock = " locked"
	}
	if _, err := fmt.Fprintf(w, "#%d %s: %d throws%s", snap.Seq, snap.Cause, len(snap.Throws), lock); err != nil {
		return err
	}
	if est.HasPoint() {
		if _, err := fmt.Fprintf(w, ", stronghold near (%.0f, %.0f), %.1f%% certain", est.Point.X, est.Point.Z, est.Certainty*100); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	for _, a := range snap.Advisories {
		if _, err := fmt.Fprintf(w, "  %s %s: %s\n", a.Severity, a.Rule, a.Message); err != nil {
			return err
		}
	}
	return nil
}
