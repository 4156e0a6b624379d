// Command chronosproxy starts the ChronosProxy MySQL protocol server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chronosproxy/proxy/internal/backend"
	"github.com/chronosproxy/proxy/internal/config"
	"github.com/chronosproxy/proxy/internal/logging"
	"github.com/chronosproxy/proxy/internal/metrics"
	"github.com/chronosproxy/proxy/internal/wire"
)

var (
	version = "1.0.0"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var logLevel string

	root := &cobra.Command{
		Use:   "chronosproxy",
		Short: "ChronosProxy - Intelligent MySQL Protocol Proxy Server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, logLevel)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "config/config.yaml", "Path to configuration file")
	root.Flags().StringVarP(&logLevel, "log-level", "l", "", "Override log level from config")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ChronosProxy %s (%s)\n", version, commit)
		},
	})

	return root
}

func run(configPath, logLevelOverride string) error {
	fmt.Println("Loading configuration...")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	level := cfg.Logging.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}

	var out, errW = os.Stdout, os.Stderr
	var logCloser interface{ Close() error }
	if cfg.Logging.File != "" {
		fw, err := logging.NewFileWriter(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.BackupCount)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		logCloser = fw
		out, errW = fw, fw
	}
	log, err := logging.New(cfg.Logging.Format, level, out, errW)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	ctx := context.Background()

	log.InfoContext(ctx, "ChronosProxy starting", "config", configPath, "log_level", level)
	log.InfoContext(ctx, "configuration summary",
		"proxy_host", cfg.Proxy.Host,
		"proxy_port", cfg.Proxy.Port,
		"connection_type", cfg.Backend.ConnectionType,
		"pool_size", cfg.Backend.PoolSize,
		"block_writes", cfg.Security.BlockWrites,
		"require_date_filter", cfg.BusinessRules.RequireDateFilter,
		"unwrap_subqueries", cfg.Transformations.UnwrapSubqueries,
		"auto_fix_group_by", cfg.Transformations.AutoFixGroupBy,
	)

	log.InfoContext(ctx, "initializing backend connection pool", "connection_type", cfg.Backend.ConnectionType)
	exec, err := backend.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("backend connection failed: %w", err)
	}
	defer exec.Close()

	log.InfoContext(ctx, "testing backend connection")
	testResult := exec.Execute(ctx, "SHOW TABLES")
	if testResult.Err != nil {
		return fmt.Errorf("backend connection test failed: %w", testResult.Err)
	}
	log.InfoContext(ctx, "backend connection successful")

	counters := metrics.New()
	handler := wire.New(cfg, exec, log, counters)

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.InfoContext(ctx, "shutdown requested")
		cancel()
	}()

	log.InfoContext(ctx, "starting server", "host", cfg.Proxy.Host, "port", cfg.Proxy.Port)
	if err := wire.Serve(serveCtx, cfg, handler); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	log.InfoContext(ctx, "ChronosProxy server shutdown")
	return nil
}
