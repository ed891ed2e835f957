// export.go implements "embody export".
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/embody-dev/embody/internal/export"
	"github.com/embody-dev/embody/internal/orchestrator"
	"github.com/embody-dev/embody/internal/tokens"
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export design tokens as Figma tokens, CSS variables or a Tailwind config",
	Long: `Export a session's tokens. By default the tokens extracted from the
repository are exported; --from final exports the tokens of the finalized
design direction.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var (
	exportFormat string
	exportFrom   string
	exportOutput string
)

func init() {
	names := make([]string, 0, len(export.Formats))
	for _, f := range export.Formats {
		names = append(names, string(f))
	}
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(export.FormatCSS), "Output format: "+strings.Join(names, ", "))
	exportCmd.Flags().StringVar(&exportFrom, "from", "extracted", "Token source: extracted or final")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to a file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.orch.Get(args[0])
	if err != nil {
		return err
	}

	var set tokens.Set
	switch exportFrom {
	case "extracted":
		set = s.ExtractedTokens
	case "final":
		if s.Documentation == nil || s.Documentation.FinalDirection == nil {
			return fmt.Errorf("%w: session %s has no finalized direction", orchestrator.ErrBadRequest, s.ID)
		}
		set = export.FromDirection(s.Documentation.FinalDirection)
	default:
		return fmt.Errorf("%w: --from must be extracted or final, got %q", orchestrator.ErrBadRequest, exportFrom)
	}

	data, err := export.Render(export.Format(exportFormat), set)
	if err != nil {
		return fmt.Errorf("%w: %v", orchestrator.ErrBadRequest, err)
	}

	if exportOutput == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(exportOutput, data, 0644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", exportOutput)
	return nil
}
