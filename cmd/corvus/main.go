// Command corvus runs the Corvus RESP cluster proxy: it accepts client
// connections speaking the Redis wire protocol, routes each command to
// the cluster node owning its key's slot, and forwards backend replies
// back to the client — fanning out and re-aggregating multi-key
// commands where needed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/corvus-proxy/corvus/internal/admin"
	"github.com/corvus-proxy/corvus/internal/clusterslot"
	"github.com/corvus-proxy/corvus/internal/config"
	"github.com/corvus-proxy/corvus/internal/logging"
	"github.com/corvus-proxy/corvus/internal/server"
	"github.com/corvus-proxy/corvus/internal/topology"
)

type cliFlags struct {
	configPath string
	bind       int
	logLevel   string
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.configPath, "config", "", "path to YAML config file")
	flag.IntVar(&f.bind, "bind", 0, "override the listen port")
	flag.StringVar(&f.logLevel, "loglevel", "", "override the log level")
	flag.Parse()
	return f
}

func applyCLIOverrides(cfg *config.Config, f cliFlags) {
	if f.bind > 0 {
		cfg.Bind = f.bind
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "corvus:", err)
		os.Exit(1)
	}
}

func run() error {
	flags := parseFlags()
	path := config.ResolveConfigPath(flags.configPath)

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg, flags)

	logger := logging.Configure(logging.Config{
		Level:      cfg.LogLevel,
		Structured: true,
		IncludePID: true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting corvus", "cluster", cfg.Cluster, "bind", cfg.Bind, "workers", cfg.Thread.String())

	router := clusterslot.NewRouter(cfg.ReadStrat)
	updater := topology.NewUpdater(router, cfg.Node, time.Duration(cfg.MetricIntvl)*time.Second, logger)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		updater.Run(ctx)
	}()

	stats := server.NewStats()

	if cfg.Admin.Enabled {
		adminSrv := admin.NewServer(cfg.Admin, stats, router, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := adminSrv.Run(ctx); err != nil {
				logger.Error("admin server exited", "error", err)
			}
		}()
	}

	backends := server.NewBackendPool(8, time.Duration(cfg.ServerTimeoutSec)*time.Second)
	workerCount := server.WorkerCount(cfg.Thread)
	addr := ":" + strconv.Itoa(cfg.Bind)

	for i := 0; i < workerCount; i++ {
		w := server.NewWorker(i, cfg, router, backends, stats, updater, logger)
		wg.Add(1)
		go func(w *server.Worker) {
			defer wg.Done()
			if err := w.Run(ctx, addr); err != nil {
				logger.Error("worker exited", "error", err)
			}
		}(w)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out, exiting anyway")
	}

	return nil
}
