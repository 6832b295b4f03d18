package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/simobern/base/internal/platform"
	"github.com/simobern/base/pkg/core"
)

// app holds the flags and resolved configuration shared by all commands.
type app struct {
	verbose     bool
	configPath  string
	url         string
	adapter     string
	format      string
	readOnly    bool
	output      string
	metricsAddr string

	getenv func(string) string
	cfg    platform.Config
	cfgDir string
	logger *slog.Logger
	closer io.Closer

	metrics *prometheus.Registry
	server  *http.Server
}

func newRootCmd() *cobra.Command {
	a := &app{getenv: os.Getenv}

	root := &cobra.Command{
		Use:   "base",
		Short: "Inspect and maintain document databases",
		Long: `base opens a document database (MongoDB, a directory of JSON/YAML files
or an in-memory store) and runs queries, aggregations and map/reduce jobs
against its collections.

Settings are read from base.yaml (searched upwards from the working
directory), then BASE_* environment variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configure(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.shutdown()
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&a.configPath, "config", "", "Config file (default: nearest base.yaml)")
	flags.StringVar(&a.url, "url", "", "Database URL or directory")
	flags.StringVar(&a.adapter, "adapter", "", "Storage adapter: memory, fs or mongo")
	flags.StringVar(&a.format, "format", "", "File format of the fs adapter: json or yaml")
	flags.BoolVar(&a.readOnly, "read-only", false, "Reject writes")
	flags.StringVarP(&a.output, "output", "o", "json", "Output format: json or yaml")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	root.AddCommand(
		a.findCmd(),
		a.countCmd(),
		a.distinctCmd(),
		a.aggregateCmd(),
		a.removeCmd(),
		a.mapReduceCmd(),
		a.watchCmd(),
		a.pingCmd(),
		versionCmd(),
	)
	return root
}

// configure resolves the configuration file, environment and flags, in
// that order, and installs the logger.
func (a *app) configure(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		found, err := platform.FindConfig(wd)
		switch {
		case err == nil:
			path = found
		case !errors.Is(err, platform.ErrNoConfig):
			return err
		}
	}
	if path != "" {
		cfg, err := platform.LoadConfig(path)
		if err != nil {
			return err
		}
		a.cfg = cfg
		a.cfgDir = filepath.Dir(path)
	}

	a.cfg.ApplyEnv(a.getenv)

	flags := cmd.Flags()
	if flags.Changed("url") {
		a.cfg.URL = a.url
	}
	if flags.Changed("adapter") {
		a.cfg.Adapter = a.adapter
	}
	if flags.Changed("format") {
		a.cfg.Format = a.format
	}
	if flags.Changed("read-only") {
		a.cfg.ReadOnly = a.readOnly
	}

	level := platform.ParseLevel(a.cfg.LogLevel)
	if a.verbose {
		level = slog.LevelDebug
	}
	logger, closer, err := platform.NewLogger(a.cfg.LogFile, level, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger, a.closer = logger, closer
	slog.SetDefault(logger)

	if a.metricsAddr != "" {
		a.serveMetrics(cmd.Context())
	}
	return nil
}

func (a *app) serveMetrics(ctx context.Context) {
	a.metrics = prometheus.NewRegistry()
	a.server = &http.Server{
		Addr:              a.metricsAddr,
		Handler:           promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{Registry: a.metrics}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	lifecycle.Go(ctx, func(ctx context.Context) error {
		a.logger.Info("serving metrics", "addr", a.metricsAddr)
		if err := a.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		a.logger.Error("metrics server failed", "error", err)
	}))
}

func (a *app) shutdown() error {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.server.Shutdown(ctx)
	}
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// open connects to the configured database. The caller closes it.
func (a *app) open(ctx context.Context) (core.Database, error) {
	opts, err := a.cfg.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts, platform.WithLogger(a.logger), platform.WithMustExist(true))
	if a.metrics != nil {
		opts = append(opts, platform.WithMetrics(a.metrics))
	}
	db, err := platform.Open(ctx, a.cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// withCollection opens the database, runs fn on the named collection and
// closes the database.
func (a *app) withCollection(ctx context.Context, name string, fn func(core.Collection) error) error {
	db, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(ctx); err != nil {
			a.logger.Warn("closing database", "error", err)
		}
	}()
	return fn(db.Collection(name))
}

// functionsDir returns the directory holding map/reduce sources, relative
// to the config file when one was loaded.
func (a *app) functionsDir() string {
	dir := a.cfg.Functions
	if dir == "" {
		dir = "mongo_functions"
	}
	if !filepath.IsAbs(dir) && a.cfgDir != "" {
		dir = filepath.Join(a.cfgDir, dir)
	}
	return dir
}
