package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/jstruct/internal/batch"
	"github.com/mvp-joe/jstruct/internal/cache"
	"github.com/mvp-joe/jstruct/internal/output"
	"github.com/mvp-joe/jstruct/internal/storage"
	"github.com/mvp-joe/jstruct/internal/watcher"
)

type batchFlags struct {
	outDir  string
	format  string
	sqlite  string
	workers int
	quiet   bool
	watch   bool
}

func newBatchCmd(global *globalFlags) *cobra.Command {
	flags := &batchFlags{}

	cmd := &cobra.Command{
		Use:   "batch [dir]",
		Short: "Analyze every Java file under a directory",
		Long: `Batch discovers source files under dir (default: the current directory),
analyzes them in parallel and writes one document per file to the output
directory, mirroring the source tree:

  pkg/Foo.java -> <out>/pkg/Foo_analysis.json

A manifest.json with the run id, counts and per-file failures is written
next to the documents. A failing file never stops the batch; the command
exits non-zero if any file failed.

Examples:
  # Analyze the current directory into ./output
  jstruct batch

  # Write YAML documents and a SQLite database
  jstruct batch src --out build/analysis --format yaml --sqlite analysis.db

  # Keep documents up to date as files change
  jstruct batch src --watch
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rootDir := "."
			if len(args) == 1 {
				rootDir = args[0]
			}
			return runBatch(cmd, global, flags, rootDir)
		},
	}

	cmd.Flags().StringVarP(&flags.outDir, "out", "o", "", "output directory (default from config)")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "output format: json or yaml (default from config)")
	cmd.Flags().StringVar(&flags.sqlite, "sqlite", "", "also store results in this SQLite database")
	cmd.Flags().IntVarP(&flags.workers, "workers", "j", 0, "files analyzed at once (default from config)")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "Disable progress bars and non-error output")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "Watch for file changes and re-analyze incrementally")
	return cmd
}

func runBatch(cmd *cobra.Command, global *globalFlags, flags *batchFlags, rootDir string) error {
	// Ctrl+C cancels the batch or ends watch mode
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := global.loadConfig(rootDir)
	if err != nil {
		return err
	}
	if flags.outDir != "" {
		cfg.Output.Dir = flags.outDir
	}
	if flags.format != "" {
		cfg.Output.Format = flags.format
	}
	if flags.sqlite != "" {
		cfg.Output.SQLite = flags.sqlite
	}
	if flags.workers > 0 {
		cfg.Batch.Workers = flags.workers
	}

	logger := slog.Default()

	analyzer, err := newAnalyzer(cfg, logger)
	if err != nil {
		return err
	}

	discovery, err := batch.NewDiscovery(rootDir, cfg.Paths.NormalizedExtensions(), cfg.Paths.Ignore)
	if err != nil {
		return fmt.Errorf("invalid ignore pattern: %w", err)
	}

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	writer, err := output.NewAtomicWriter(cfg.Output.Dir, format)
	if err != nil {
		return err
	}
	defer writer.Close()

	opts := []batch.Option{
		batch.WithLogger(logger),
		batch.WithWorkers(cfg.Batch.EffectiveWorkers()),
		batch.WithProgress(NewCLIProgressReporter(cmd.OutOrStdout(), flags.quiet)),
	}

	var store *storage.Store
	if cfg.Output.SQLite != "" {
		store, err = storage.Open(cfg.Output.SQLite)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, batch.WithSink(store))
	}

	if flags.watch {
		results, err := cache.New(cache.DefaultCapacity)
		if err != nil {
			return err
		}
		defer results.Close()
		opts = append(opts, batch.WithCache(results))
	}

	runner := batch.NewRunner(discovery, analyzer, writer, opts...)

	_, runErr := runner.Run(ctx)
	var fileErrs *batch.Errors
	if runErr != nil && !errors.As(runErr, &fileErrs) {
		return runErr
	}

	if store != nil && !flags.quiet {
		printStoreCounts(ctx, cmd, store, cfg.Output.SQLite)
	}

	if !flags.watch {
		return runErr
	}

	if fileErrs != nil {
		logger.Warn("initial batch finished with failures", "failed", fileErrs.Len())
	}
	if !flags.quiet {
		fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes (Ctrl+C to stop)...")
	}
	debounce := time.Duration(cfg.Batch.DebounceMS) * time.Millisecond
	return runner.Watch(ctx, watcher.WithDebounce(debounce))
}

func printStoreCounts(ctx context.Context, cmd *cobra.Command, store *storage.Store, path string) {
	counts, err := store.Counts(ctx)
	if err != nil {
		slog.Default().Warn("failed to count stored rows", "error", err)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  SQLite %s: %s files, %s classes, %s methods, %s calls\n",
		filepath.Clean(path),
		formatNumber(counts.Files),
		formatNumber(counts.Classes),
		formatNumber(counts.Methods),
		formatNumber(counts.Calls))
}
