package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"debtbook/internal/backend"
	"debtbook/internal/cli"
	"debtbook/internal/config"
	apphttp "debtbook/internal/http"
	"debtbook/internal/ledger"
	applog "debtbook/internal/log"
	"debtbook/internal/obs"

	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	obs.Init()
	obs.InitBuildInfo(version, "server")

	if err := run(logger, cfg); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(logger *applog.Logger, cfg *config.Config) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("backend config: %w", err)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("init %s backend: %w", cfg.DataBackend, err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Cleanup failed", "error", err)
		}
	}()

	var ready func(context.Context) error
	if p, ok := res.Backend.(backend.Pinger); ok {
		ready = p.Ping
	}

	reporter := ledger.NewReporter(res.Backend, ledger.YearPolicy(cfg.ReportYearPolicy))
	srv := apphttp.NewServer(":"+cfg.Port, res.Ledger, reporter, apphttp.Options{
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
		ReportCacheTTL:     cfg.ReportCacheTTL,
		ReportCacheSize:    cfg.ReportCacheSize,
		Ready:              ready,
		Logger:             logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting debtbook server",
			applog.FieldOperation, applog.OpStartup,
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"year_policy", reporter.Policy(),
			"version", version)
		return srv.ListenAndServe()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := cli.ShutdownContext(30 * time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
