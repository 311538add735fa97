// Command nexus-adapter drives one rollup's proof-production loop: it
// polls a RollupSource, chains each proof to its predecessor, and
// submits SubmitProof transactions to a coordinator's HTTP API
// (spec.md §6's "adapter <kind>"/"clean" CLI subcommands).
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

	"github.com/availproject/nexus/adapter"
	"github.com/availproject/nexus/api"
	"github.com/availproject/nexus/config"
	"github.com/availproject/nexus/core/types"
	"github.com/availproject/nexus/log"
	"github.com/availproject/nexus/prover"
	"github.com/availproject/nexus/store"
)

func main() {
	app := &cli.App{
		Name:      "nexus-adapter",
		Usage:     "run a rollup's proof-production adapter",
		ArgsUsage: "<kind>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a YAML config file"},
			&cli.BoolFlag{Name: "dev", Usage: "use an in-memory proof-chain store"},
			&cli.UintFlag{Name: "app-id", Usage: "override the DA app id"},
			&cli.StringFlag{Name: "coordinator-addr", Usage: "override the coordinator HTTP API base URL"},
			&cli.StringFlag{Name: "rollup-upstream", Usage: "override the rollup upstream URL"},
			&cli.StringFlag{Name: "data-dir", Usage: "override the data directory"},
			&cli.StringFlag{Name: "log-format", Usage: "override the console log format (json, text, color)"},
		},
		Action: runAdapter,
		Commands: []*cli.Command{
			{
				Name:      "clean",
				Usage:     "remove the adapter's on-disk proof-chain directory",
				ArgsUsage: "",
				Action:    cleanAdapter,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Usage: "path to a YAML config file"},
					&cli.StringFlag{Name: "data-dir", Usage: "override the data directory"},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "nexus-adapter: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (config.AdapterConfig, error) {
	var cfg config.AdapterConfig
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.LoadAdapterConfig(path)
		if err != nil {
			return cfg, err
		}
	} else {
		cfg = config.DefaultAdapterConfig()
	}
	if c.Bool("dev") {
		cfg.Dev = true
	}
	if c.IsSet("app-id") {
		cfg.AppId = uint32(c.Uint("app-id"))
	}
	if addr := c.String("coordinator-addr"); addr != "" {
		cfg.CoordinatorAddr = addr
	}
	if upstream := c.String("rollup-upstream"); upstream != "" {
		cfg.RollupUpstream = upstream
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	if format := c.String("log-format"); format != "" {
		cfg.LogFormat = format
	}
	return cfg, nil
}

func cleanAdapter(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return os.RemoveAll(cfg.DataDir)
}

func runAdapter(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return fmt.Errorf("nexus-adapter: a rollup kind argument is required, e.g. `nexus-adapter myrollup`")
	}
	kind := c.Args().First()

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

	source, err := openRollupSource(kind, cfg)
	if err != nil {
		return err
	}

	proofs, closeProofs, err := openProofStore(cfg)
	if err != nil {
		return fmt.Errorf("open proof store: %w", err)
	}
	defer closeProofs()

	elf, err := guestELF(cfg)
	if err != nil {
		return fmt.Errorf("read elf: %w", err)
	}
	p, err := prover.New(elf, prover.MockProof)
	if err != nil {
		return fmt.Errorf("open prover: %w", err)
	}
	imgID, err := prover.ImageID(elf, prover.MockProof)
	if err != nil {
		return fmt.Errorf("resolve image id: %w", err)
	}

	client := api.NewHTTPClient(cfg.CoordinatorAddr)

	acfg := adapter.Config{
		AppId:        types.AppId(cfg.AppId),
		ImgId:        imgID,
		PollInterval: time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		Retry: adapter.RetryConfig{
			MaxRetries:        cfg.MaxRetries,
			InitialBackoff:    time.Duration(cfg.InitialBackoffMS) * time.Millisecond,
			MaxBackoff:        time.Duration(cfg.MaxBackoffMS) * time.Millisecond,
			BackoffMultiplier: cfg.BackoffMultiplier,
		},
	}

	a := adapter.New(acfg, source, client, p, proofs, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			return err
		}
	}
	logger.Info("shutdown complete")
	return nil
}

func openProofStore(cfg config.AdapterConfig) (store.KV, func(), error) {
	if cfg.Dev {
		return store.NewMemDB(), func() {}, nil
	}
	db, err := store.OpenPebbleDB(cfg.ResolvePath("proofs"))
	if err != nil {
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}

func guestELF(cfg config.AdapterConfig) ([]byte, error) {
	if cfg.ElfPath == "" {
		return []byte("nexus-adapter-guest"), nil
	}
	return os.ReadFile(cfg.ElfPath)
}
