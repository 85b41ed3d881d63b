package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/jstruct/internal/config"
	"github.com/mvp-joe/jstruct/internal/extractor"
	"github.com/mvp-joe/jstruct/internal/span"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	cfgFile string
	verbose bool
}

// NewRootCmd builds the jstruct command tree.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "jstruct",
		Short: "Extract the structure of Java source files",
		Long: `jstruct parses Java source and reports its classes, inner classes,
constructors and methods with their modifiers, annotations, inheritance,
parameters, documentation comments, invoked method names and verbatim code.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), flags.verbose))
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.cfgFile, "config", "", "config file (default is <dir>/.jstruct/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		newAnalyzeCmd(flags),
		newBatchCmd(flags),
		newGraphCmd(flags),
		newCallersCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger writes text diagnostics to w, Debug and up when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the explicit config file when one was given, otherwise
// <dir>/.jstruct/config.yml if present.
func (f *globalFlags) loadConfig(dir string) (*config.Config, error) {
	var loader config.Loader
	if f.cfgFile != "" {
		loader = config.NewFileLoader(f.cfgFile)
	} else {
		loader = config.NewLoader(dir)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newAnalyzer creates an analyzer from the analysis settings.
func newAnalyzer(cfg *config.Config, logger *slog.Logger) (*extractor.Analyzer, error) {
	strategy, err := span.ParseStrategy(cfg.Analysis.SpanStrategy)
	if err != nil {
		return nil, err
	}
	return extractor.New(
		extractor.WithLogger(logger),
		extractor.WithMaxDepth(cfg.Analysis.MaxDepth),
		extractor.WithSpanStrategy(strategy),
	), nil
}
