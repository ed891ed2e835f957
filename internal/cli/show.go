// show.go implements "embody get" and "embody list".
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embody-dev/embody/internal/ui"
)

var getCmd = &cobra.Command{
	Use:   "get <session-id>",
	Short: "Show a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions",
	Long: `List sessions from the session index, most recently updated first.
Use --rebuild to refill the index from the session files on disk.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var (
	getJSON     bool
	listLimit   int
	listRebuild bool
)

func init() {
	getCmd.Flags().BoolVar(&getJSON, "json", false, "Print the stored session state as JSON")

	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "Maximum number of sessions to show")
	listCmd.Flags().BoolVar(&listRebuild, "rebuild", false, "Rebuild the index from session files first")
}

func runGet(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.orch.Get(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if getJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	fmt.Fprint(out, ui.SessionSummary(s))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := requireIndex(a); err != nil {
		return err
	}

	if listRebuild {
		indexed, skipped, err := a.index.Rebuild(a.store)
		if err != nil {
			return fmt.Errorf("rebuilding index: %w", err)
		}
		msg := fmt.Sprintf("Indexed %d session(s)", indexed)
		if skipped > 0 {
			msg += ui.WarningStyle.Render(fmt.Sprintf(", skipped %d unreadable", skipped))
		}
		fmt.Fprintln(cmd.ErrOrStderr(), msg)
	}

	rows, err := a.index.List(listLimit)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), ui.SessionTable(rows))
	return nil
}
