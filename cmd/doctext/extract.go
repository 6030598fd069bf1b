package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/doctext/internal/common"
	"github.com/joseph-ayodele/doctext/internal/ingest"
	"github.com/joseph-ayodele/doctext/internal/pipeline"
)

var flagPerPage bool

var extractCmd = &cobra.Command{
	Use:   "extract <file|dir>...",
	Short: "Print the text of one or more documents",
	Long: `Extract prints the text of each document to stdout. Directories are scanned
recursively for supported files. Pages are separated by a form feed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&flagPerPage, "per-page", false, "print each page with its index, including failed pages")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg.Log, cmd.ErrOrStderr())
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	var paths []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil {
			return fmt.Errorf("stat %s: %w", arg, err)
		}
		if !fi.IsDir() {
			paths = append(paths, arg)
			continue
		}
		files, stats, err := ingest.ScanDirectory(arg, true)
		if err != nil {
			return err
		}
		logger.Info("directory scanned", "root", arg, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
		paths = append(paths, files...)
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, p := range paths {
		if len(paths) > 1 {
			_, _ = fmt.Fprintf(out, "==> %s <==\n", p)
		}
		if err := extractOne(ctx, a, p, out, cmd.ErrOrStderr()); err != nil {
			failed++
		}
		if ctx.Err() != nil {
			break
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(paths))
	}
	return nil
}

func extractOne(ctx context.Context, a *app, path string, out, errOut io.Writer) error {
	res, err := a.orch.Run(ctx, path, a.defaults)
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "%s: %s\n", path, common.SafeMessage(err))
		return err
	}
	for _, w := range res.Warnings {
		_, _ = fmt.Fprintf(errOut, "%s: warning: %s\n", path, w)
	}
	writeResult(out, res, flagPerPage)
	return nil
}

func writeResult(out io.Writer, res pipeline.Result, perPage bool) {
	if !perPage {
		_, _ = fmt.Fprintln(out, res.FullText)
		return
	}
	for _, p := range res.PerPage {
		if p.OK() {
			_, _ = fmt.Fprintf(out, "--- page %d ---\n%s\n", p.Index, p.Text)
			continue
		}
		_, _ = fmt.Fprintf(out, "--- page %d (failed: %s) ---\n", p.Index, common.SafeMessage(p.Err))
	}
}
