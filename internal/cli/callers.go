package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/jstruct/internal/storage"
)

func newCallersCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "callers <method-name>",
		Short: "List methods that invoke a name, from a batch SQLite database",
		Long: `Callers queries a database written by "jstruct batch --sqlite" for every
method whose body invokes the given simple method name.

Examples:
  jstruct batch src --sqlite analysis.db
  jstruct callers validate --db analysis.db
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			callers, err := store.Callers(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, c := range callers {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.FilePath, c.Method)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database written by batch --sqlite")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}
