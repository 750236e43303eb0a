package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"debtbook/internal/amqp"
	"debtbook/internal/backend"
	"debtbook/internal/cli"
	"debtbook/internal/config"
	applog "debtbook/internal/log"
	"debtbook/internal/obs"
	"debtbook/internal/sheets"
	gsheet "debtbook/internal/sheets/google"
	memsheet "debtbook/internal/sheets/memory"
	"debtbook/internal/worker"

	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	obs.Init()
	obs.InitBuildInfo(version, "worker")

	logger.Info("Starting debtbook-worker", applog.FieldOperation, applog.OpStartup, "version", version)
	if err := run(logger, cfg); err != nil {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(logger *applog.Logger, cfg *config.Config) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	// The worker only reads entries; it never publishes.
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("backend config: %w", err)
	}
	bcfg.Publish = false
	if bcfg.Type == backend.MemoryBackend {
		logger.Warn("Memory backend selected; the worker cannot see entries written by the server")
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

	mirror, err := newMirror(ctx, logger, cfg)
	if err != nil {
		return err
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		amqp.WithRetryDelay(cfg.MirrorRetryInterval))
	if err != nil {
		return fmt.Errorf("init AMQP client: %w", err)
	}
	defer client.Close()

	w := worker.NewMirrorWorker(res.Backend, mirror)

	metricsSrv := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           obs.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithComponent(applog.ComponentAMQP).Info("Consuming ledger entries",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue,
			"retry_interval", cfg.MirrorRetryInterval)
		err := client.ConsumeEntries(gctx, w.HandleEntryMessage)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		logger.Info("Serving worker metrics", "port", cfg.WorkerMetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := cli.ShutdownContext(10 * time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newMirror returns the Google Sheets mirror when a spreadsheet is
// configured and an in-memory one otherwise.
func newMirror(ctx context.Context, logger *applog.Logger, cfg *config.Config) (sheets.LedgerMirror, error) {
	logger = logger.WithComponent(applog.ComponentSheets)
	if !cfg.MirrorEnabled() {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set; mirroring to memory only")
		return memsheet.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		CustomersSheet:     cfg.GoogleCustomersSheet,
		PaymentsSheet:      cfg.GooglePaymentsSheet,
		CashSalesSheet:     cfg.GoogleCashSalesSheet,
	})
	if err != nil {
		return nil, fmt.Errorf("init Google Sheets mirror: %w", err)
	}
	logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
