package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/doctext/internal/async"
	"github.com/joseph-ayodele/doctext/internal/common"
	"github.com/joseph-ayodele/doctext/internal/ingest"
	"github.com/joseph-ayodele/doctext/internal/pipeline"
)

var flagInitialScan bool

var watchCmd = &cobra.Command{
	Use:   "watch <dir>...",
	Short: "Extract every document dropped into a directory",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&flagInitialScan, "initial-scan", false, "also extract files already present")
	watchCmd.Flags().BoolVar(&flagPerPage, "per-page", false, "print each page with its index, including failed pages")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg.Log, cmd.ErrOrStderr())
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var mu sync.Mutex
	queue := async.NewQueue(a.orch, logger,
		async.WithWorkers(cfg.Pipeline.QueueWorkers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(cfg.Pipeline.JobTimeout),
		async.WithHandler(func(job async.Job, res pipeline.Result, err error) {
			mu.Lock()
			defer mu.Unlock()
			_, _ = fmt.Fprintf(out, "==> %s <==\n", job.Path)
			if err != nil {
				_, _ = fmt.Fprintf(out, "error: %s\n", common.SafeMessage(err))
				return
			}
			writeResult(out, res, flagPerPage)
		}),
	)

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       args,
		InitialScan: flagInitialScan,
		Debounce:    500 * time.Millisecond,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	logger.Info("watching", "roots", args)

loop:
	for {
		select {
		case p, ok := <-events:
			if !ok {
				break loop
			}
			if err := queue.Enqueue(ctx, async.Job{Path: p, Options: a.defaults}); err != nil {
				logger.Warn("enqueue failed", "path", p, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watcher error", "error", err)
		case <-ctx.Done():
			break loop
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.JobTimeout)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	return nil
}
