// Command nexus runs the coordinator process: the HTTP API, mempool,
// and execution engine driving the versioned store from a stream of
// finalized DA headers (spec.md §6's "nexus"/"clean" CLI subcommands,
// grounded on cmd/eth2030/main.go's signal-handling shape but dressed
// in urfave/cli/v2 the way the rest of the dependency pack does).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/availproject/nexus/api"
	"github.com/availproject/nexus/config"
	"github.com/availproject/nexus/engine"
	"github.com/availproject/nexus/log"
	"github.com/availproject/nexus/mempool"
	"github.com/availproject/nexus/metrics"
	"github.com/availproject/nexus/prover"
	"github.com/availproject/nexus/relayer"
	"github.com/availproject/nexus/store"
)

// logReportBackend adapts a *log.Logger to metrics.ReportBackend so the
// periodic registry snapshot metrics.Reporter collects lands in the
// same structured log stream as everything else.
type logReportBackend struct{ log *log.Logger }

func (b logReportBackend) Report(snapshot map[string]float64) error {
	b.log.Info("metrics snapshot", "metrics", snapshot)
	return nil
}

func main() {
	app := &cli.App{
		Name:  "nexus",
		Usage: "run the proof-aggregation coordinator",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a YAML config file"},
			&cli.BoolFlag{Name: "dev", Usage: "use an in-memory store instead of pebble and the synthetic dev relayer"},
			&cli.StringFlag{Name: "api-addr", Usage: "override the HTTP API listen address"},
			&cli.StringFlag{Name: "data-dir", Usage: "override the data directory"},
			&cli.StringFlag{Name: "log-format", Usage: "override the console log format (json, text, color)"},
		},
		Action: runNexus,
		Commands: []*cli.Command{
			{
				Name:      "clean",
				Usage:     "remove the coordinator's on-disk data directory",
				ArgsUsage: "",
				Action:    cleanNexus,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Usage: "path to a YAML config file"},
					&cli.StringFlag{Name: "data-dir", Usage: "override the data directory"},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "nexus: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (config.NexusConfig, error) {
	var cfg config.NexusConfig
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.LoadNexusConfig(path)
		if err != nil {
			return cfg, err
		}
	} else {
		cfg = config.DefaultNexusConfig()
	}
	if c.Bool("dev") {
		cfg.Dev = true
	}
	if addr := c.String("api-addr"); addr != "" {
		cfg.APIAddr = addr
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	if format := c.String("log-format"); format != "" {
		cfg.LogFormat = format
	}
	return cfg, nil
}

func cleanNexus(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return os.RemoveAll(cfg.DataDir)
}

func runNexus(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.InitDataDir(); err != nil {
		return fmt.Errorf("init data dir: %w", err)
	}

	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	var logPath string
	if cfg.LogPath != "" {
		logPath = cfg.ResolvePath(cfg.LogPath)
	}
	logger := log.NewFromConfig(level, logPath, cfg.LogFormat)
	log.SetDefault(logger)

	backend, closeBackend, err := openBackend(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeBackend()

	s := store.New(backend)
	pool := mempool.New()

	p, err := openProver(cfg)
	if err != nil {
		return fmt.Errorf("open prover: %w", err)
	}

	client, err := openRelayer(cfg)
	if err != nil {
		return fmt.Errorf("open relayer: %w", err)
	}

	eng, err := engine.New(s, pool, p, client, logger)
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}

	srv := api.New(s, pool, logger)

	metrics.Reporter.RegisterBackend("log", logReportBackend{log: logger})
	metrics.Reporter.Start()
	defer metrics.Reporter.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error {
		if err := srv.Start(cfg.APIAddr); err != nil {
			return err
		}
		return nil
	})
	g.Go(func() error { return sampleMetrics(gctx) })

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case <-gctx.Done():
		logger.Error("a coordinator subsystem exited early", "err", gctx.Err())
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("api shutdown error", "err", err)
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// sampleMetrics periodically samples process CPU usage and forwards
// DefaultRegistry's snapshot into metrics.Reporter, whose own ticker
// hands them to every registered ReportBackend. It returns nil when
// ctx is cancelled.
func sampleMetrics(ctx context.Context) error {
	tracker := metrics.NewCPUTracker()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tracker.RecordCPU()
			metrics.CPUUsagePercent.Set(int64(tracker.Usage()))
			for name, v := range metrics.DefaultRegistry.Snapshot() {
				switch val := v.(type) {
				case int64:
					metrics.Reporter.RecordMetric(name, float64(val))
				case map[string]interface{}:
					if mean, ok := val["mean"].(float64); ok {
						metrics.Reporter.RecordMetric(name+".mean", mean)
					}
					if count, ok := val["count"].(int64); ok {
						metrics.Reporter.RecordMetric(name+".count", float64(count))
					}
				}
			}
		}
	}
}

func openBackend(cfg config.NexusConfig) (store.Backend, func(), error) {
	if cfg.Dev {
		return store.NewMemDB(), func() {}, nil
	}
	db, err := store.OpenPebbleDB(cfg.ResolvePath("tree"))
	if err != nil {
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}

func openProver(cfg config.NexusConfig) (prover.Prover, error) {
	elf := []byte("nexus-coordinator-guest")
	if cfg.ElfPath != "" {
		data, err := os.ReadFile(cfg.ElfPath)
		if err != nil {
			return nil, err
		}
		elf = data
	}
	return prover.New(elf, prover.MockProof)
}

func openRelayer(cfg config.NexusConfig) (relayer.Client, error) {
	if cfg.Dev {
		return newDevRelayer(5 * time.Second), nil
	}
	return nil, fmt.Errorf("no concrete DA relayer is wired for endpoint %q; a real Avail RPC client is out of scope for this repository (run with --dev)", cfg.DAEndpoint)
}
