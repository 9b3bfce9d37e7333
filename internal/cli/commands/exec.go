package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/daokit/internal/orm/crud"
)

// NewExecCommand creates the exec command
func NewExecCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <file.sql>",
		Short: "Run a SQL script against the configured database",
		Long: `Run the semicolon separated statements of a SQL script in order on one
connection. Execution stops at the first failing statement.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading script: %w", err)
			}

			ctx := cmd.Context()
			s, err := openSession(ctx, *configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.dao.ExecScript(ctx, string(script)); err != nil {
				return err
			}

			n := len(crud.SplitScript(string(script)))
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Executed %d statement(s) from %s\n", n, args[0])
			return nil
		},
	}
}
