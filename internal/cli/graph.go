package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/jstruct/internal/callgraph"
)

func newGraphCmd(global *globalFlags) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "graph <file.java>",
		Short: "Print the call graph of one Java file in DOT format",
		Long: `Graph analyzes one Java file and prints a Graphviz digraph with an edge
from every method (Outer.Inner.method) to every name it invokes. Calls are
matched to methods of the same file by simple name; anything else is drawn
as a dashed external vertex.

Examples:
  jstruct graph Counter.java | dot -Tsvg > counter.svg

  # List groups of mutually recursive methods instead
  jstruct graph Counter.java --recursive
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			cfg, err := global.loadConfig(filepath.Dir(path))
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

			g, err := callgraph.Build(result)
			if err != nil {
				return err
			}

			if !recursive {
				return g.WriteDOT(cmd.OutOrStdout())
			}

			groups, err := g.Recursive()
			if err != nil {
				return err
			}
			for _, group := range groups {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(group, " -> "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&recursive, "recursive", false, "print recursive method groups instead of the graph")
	return cmd
}
