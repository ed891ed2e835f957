// clean.go implements "embody clean" for pruning stale sessions.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embody-dev/embody/internal/cleanup"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove stale sessions",
	Long: `Remove sessions that have not been updated recently.

By default, removes sessions older than the configured max_age_days (default 30).
Use --days to override the age, or --keep to keep only the N most recently
updated sessions instead. Use --dry-run to preview what would be removed.
Sessions whose state cannot be read are never removed.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

var (
	keepFlag   int
	daysFlag   int
	dryRunFlag bool
)

func init() {
	cleanCmd.Flags().IntVar(&keepFlag, "keep", 0, "Keep only the last N sessions (0 = use age-based cleanup)")
	cleanCmd.Flags().IntVar(&daysFlag, "days", 0, "Remove sessions not updated for this many days (0 = config)")
	cleanCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Preview what would be removed without deleting")
}

func runClean(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	del := func(id string) error {
		return a.orch.Delete(cmd.Context(), id)
	}

	var pruned []string
	if keepFlag > 0 {
		pruned, err = cleanup.PruneKeepRecent(a.store, del, keepFlag, dryRunFlag)
	} else {
		maxAge := daysFlag
		if maxAge <= 0 {
			maxAge = a.cfg.Cleanup.MaxAgeDays
		}
		if maxAge <= 0 {
			maxAge = 30
		}
		pruned, err = cleanup.PruneByAge(a.store, del, maxAge, dryRunFlag)
	}
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(pruned) == 0 {
		fmt.Fprintln(out, "No sessions to clean up.")
		return nil
	}

	verb := "Removed"
	if dryRunFlag {
		verb = "Would remove"
	}
	for _, id := range pruned {
		fmt.Fprintf(out, "  %s %s\n", verb, id)
	}
	fmt.Fprintf(out, "%s %d session(s).\n", verb, len(pruned))
	return nil
}
