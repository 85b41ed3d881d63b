package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/jstruct/internal/output"
)

type analyzeFlags struct {
	format       string
	spanStrategy string
	maxDepth     int
}

func newAnalyzeCmd(global *globalFlags) *cobra.Command {
	flags := &analyzeFlags{}

	cmd := &cobra.Command{
		Use:   "analyze <file.java>",
		Short: "Analyze one Java file and print its structure",
		Long: `Analyze parses a single Java source file and prints its analysis
document to stdout.

Examples:
  # Print the JSON document of one file
  jstruct analyze src/main/java/demo/Counter.java

  # Print YAML and force the token-balance span strategy
  jstruct analyze Counter.java --format yaml --span-strategy token
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, global, flags, args[0])
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "output format: json or yaml (default from config)")
	cmd.Flags().StringVar(&flags.spanStrategy, "span-strategy", "", "span strategy: auto, direct or token (default from config)")
	cmd.Flags().IntVar(&flags.maxDepth, "max-depth", -1, "deepest nested class level to extract (default from config)")
	return cmd
}

func runAnalyze(cmd *cobra.Command, global *globalFlags, flags *analyzeFlags, path string) error {
	cfg, err := global.loadConfig(filepath.Dir(path))
	if err != nil {
		return err
	}
	if flags.format != "" {
		cfg.Output.Format = flags.format
	}
	if flags.spanStrategy != "" {
		cfg.Analysis.SpanStrategy = flags.spanStrategy
	}
	if flags.maxDepth >= 0 {
		cfg.Analysis.MaxDepth = flags.maxDepth
	}

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	analyzer, err := newAnalyzer(cfg, slog.Default())
	if err != nil {
		return err
	}

	result, err := analyzer.AnalyzeFile(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("failed to analyze %s: %w", path, err)
	}
	return output.Encode(cmd.OutOrStdout(), format, result)
}
