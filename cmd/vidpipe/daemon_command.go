package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vidpipe/internal/daemon"
	"vidpipe/internal/logging"
	"vidpipe/internal/metrics"
	"vidpipe/internal/pipeline"
	"vidpipe/internal/queue"
	"vidpipe/internal/sweeper"
	"vidpipe/internal/transcoder"
	"vidpipe/internal/workflow"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var workerID string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the worker, sweep schedule and status API in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx, workerID)
		},
	}
	cmd.Flags().StringVar(&workerID, "worker-id", "", "Claim owner recorded on jobs (random when empty)")
	return cmd
}

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext, workerID string) error {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.NewFromConfig(cfg, true)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	mx := metrics.New()
	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}
	defer store.Close()

	engine := transcoder.NewFFmpeg(cfg, logger)
	executor := pipeline.NewExecutor(cfg, store, engine, logger, pipeline.WithMetrics(mx))
	manager := workflow.NewManager(cfg, store, executor, logger,
		workflow.WithWorkerID(workerID),
		workflow.WithMetrics(mx),
	)
	sw := sweeper.New(cfg, store, logger, sweeper.WithMetrics(mx))

	d, err := daemon.New(cfg, store, logger, manager, sw, daemon.WithMetrics(mx))
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return err
	}
	defer d.Stop()

	<-signalCtx.Done()
	logger.Info("vidpipe daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}
