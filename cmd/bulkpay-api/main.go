// Command bulkpay-api serves the bulk payment HTTP API and runs the payout
// worker in the same process.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/bulkpay"
	"github.com/xraph/bulkpay/api"
	audithook "github.com/xraph/bulkpay/audit_hook"
	"github.com/xraph/bulkpay/gate"
	"github.com/xraph/bulkpay/internal/config"
	"github.com/xraph/bulkpay/observability"
	"github.com/xraph/bulkpay/rail"
	"github.com/xraph/bulkpay/store/memory"
	"github.com/xraph/bulkpay/worker"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration failed", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("bulkpay-api stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var engine *bulkpay.Engine

	outbox := rail.NewOutbox(rail.LogSender{Logger: logger},
		rail.WithOutboxLogger(logger),
		rail.WithDropHandler(func(ins rail.Instruction, err error) {
			engine.Plugins().EmitDispatchDropped(context.Background(), ins, err)
		}),
	)

	audit := audithook.New(audithook.RecorderFunc(func(_ context.Context, ev *audithook.AuditEvent) error {
		logger.Info("audit",
			"action", ev.Action,
			"resource", ev.Resource,
			"resource_id", ev.ResourceID,
			"outcome", ev.Outcome,
			"severity", ev.Severity,
		)
		return nil
	}), audithook.WithLogger(logger))

	engine = bulkpay.New(memory.New(),
		bulkpay.WithLogger(logger),
		bulkpay.WithDispatcher(outbox),
		bulkpay.WithSystemIdentity(cfg.Chain.ContractID),
		bulkpay.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(prometheus.DefaultRegisterer))),
		bulkpay.WithPlugin(audit),
	)
	if err := engine.Start(ctx); err != nil {
		return err
	}
	defer engine.Stop() //nolint:errcheck // best-effort shutdown

	// The outbox outlives the signal so Stop can deliver what is queued.
	outbox.Start(context.WithoutCancel(ctx))
	defer outbox.Stop()

	w := worker.New(engine,
		worker.WithLogger(logger),
		worker.WithPollInterval(cfg.Worker.PollInterval),
		worker.WithBudget(cfg.Worker.BatchBudget),
		worker.WithConcurrency(cfg.Worker.Concurrency),
	)
	if err := engine.Plugins().Register(w); err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	proposals := gate.NewProposalGate(
		gate.NewRPCSource(cfg.Chain.RPCURL),
		cfg.Chain.ContractID,
		gate.WithGateLogger(logger),
	)

	srv := api.NewServer(engine, proposals,
		api.WithLogger(logger),
		api.WithTracker(w),
		api.WithVersion(version),
	)

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.API.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("bulkpay-api listening",
			"addr", httpServer.Addr,
			"rpc_url", cfg.Chain.RPCURL,
			"contract_id", cfg.Chain.ContractID,
			"worker_caller_id", cfg.Worker.CallerID,
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
