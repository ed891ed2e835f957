// create.go implements "embody create".
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/embody-dev/embody/internal/ui"
)

var createCmd = &cobra.Command{
	Use:   "create [repo-path]",
	Short: "Start a design session for a repository",
	Long: `Extract the design tokens a repository already uses and start a new
session in the context-gathering phase. The repository defaults to the
current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

var createQuiet bool

func init() {
	createCmd.Flags().BoolVarP(&createQuiet, "quiet", "q", false, "Print only the session id")
}

func runCreate(cmd *cobra.Command, args []string) error {
	repo := "."
	if len(args) == 1 {
		repo = args[0]
	}
	repo, err := filepath.Abs(repo)
	if err != nil {
		return fmt.Errorf("resolving repository path: %w", err)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.orch.Create(cmd.Context(), repo)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if createQuiet {
		fmt.Fprintln(out, s.ID)
		return nil
	}
	fmt.Fprint(out, ui.SessionSummary(s))
	fmt.Fprintf(out, "\nNext: embody context %s --goal \"...\"\n", s.ID)
	return nil
}
