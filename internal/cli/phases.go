// phases.go implements the agent-backed phase commands: context,
// generate, refine and finalize.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embody-dev/embody/internal/orchestrator"
	"github.com/embody-dev/embody/internal/session"
	"github.com/embody-dev/embody/internal/ui"
)

var contextCmd = &cobra.Command{
	Use:   "context <session-id>",
	Short: "Record the design goal and let the agent interpret it",
	Args:  cobra.ExactArgs(1),
	RunE:  runContext,
}

var generateCmd = &cobra.Command{
	Use:   "generate <session-id>",
	Short: "Generate the first round of design concepts",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerate,
}

var refineCmd = &cobra.Command{
	Use:   "refine <session-id>",
	Short: "Refine concepts from feedback on the latest round",
	Long: `Send feedback on the latest round and receive a refined round.
Concept ids are those shown by 'embody get'.`,
	Args: cobra.ExactArgs(1),
	RunE: runRefine,
}

var finalizeCmd = &cobra.Command{
	Use:   "finalize <session-id> <concept-id>",
	Short: "Document the selected concept as the design direction",
	Args:  cobra.ExactArgs(2),
	RunE:  runFinalize,
}

var (
	goalFlag        string
	qualitiesFlag   []string
	constraintsFlag []string

	likedFlag    []string
	dislikedFlag []string
	exploredFlag []string

	finalizeRaw bool
)

func init() {
	contextCmd.Flags().StringVarP(&goalFlag, "goal", "g", "", "What the design should achieve")
	contextCmd.Flags().StringSliceVar(&qualitiesFlag, "quality", nil, "Desired quality (repeatable or comma separated)")
	contextCmd.Flags().StringSliceVar(&constraintsFlag, "constraint", nil, "Constraint the design must respect (repeatable)")

	refineCmd.Flags().StringSliceVar(&likedFlag, "liked", nil, "Concept ids you liked")
	refineCmd.Flags().StringSliceVar(&dislikedFlag, "disliked", nil, "Concept ids you disliked")
	refineCmd.Flags().StringSliceVar(&exploredFlag, "explored", nil, "Concept ids to explore further")

	finalizeCmd.Flags().BoolVar(&finalizeRaw, "raw", false, "Print the direction markdown without terminal styling")
}

// phaseOp runs one orchestrator operation behind a spinner and prints the
// resulting session.
func phaseOp(cmd *cobra.Command, title string, op func(ctx context.Context, a *app) (*session.Session, error)) (*session.Session, error) {
	a, err := openApp()
	if err != nil {
		return nil, err
	}
	defer a.close()

	var s *session.Session
	err = ui.WithSpinner(cmd.Context(), cmd.ErrOrStderr(), title, func(ctx context.Context) error {
		var opErr error
		s, opErr = op(ctx, a)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func runContext(cmd *cobra.Command, args []string) error {
	in := orchestrator.ContextInput{
		Goal:        goalFlag,
		Qualities:   qualitiesFlag,
		Constraints: constraintsFlag,
	}
	s, err := phaseOp(cmd, "Interpreting design intent", func(ctx context.Context, a *app) (*session.Session, error) {
		return a.orch.GatherContext(ctx, args[0], in)
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, ui.SessionSummary(s))
	fmt.Fprintf(out, "\nNext: embody generate %s\n", s.ID)
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	s, err := phaseOp(cmd, "Generating concepts", func(ctx context.Context, a *app) (*session.Session, error) {
		return a.orch.GenerateConcepts(ctx, args[0])
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if r := s.LastRound(); r != nil {
		fmt.Fprint(out, ui.RoundSummary(r, ""))
	}
	fmt.Fprintf(out, "\nNext: embody refine %s --liked <id> --disliked <id>\n", s.ID)
	return nil
}

func runRefine(cmd *cobra.Command, args []string) error {
	fb := session.Feedback{
		Liked:    likedFlag,
		Disliked: dislikedFlag,
		Explored: exploredFlag,
	}
	s, err := phaseOp(cmd, "Refining concepts", func(ctx context.Context, a *app) (*session.Session, error) {
		return a.orch.Refine(ctx, args[0], fb)
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if r := s.LastRound(); r != nil {
		fmt.Fprint(out, ui.RoundSummary(r, ""))
	}
	if s.Phase == session.PhaseFinalization {
		fmt.Fprintln(out, ui.SuccessStyle.Render("Confidence reached."))
		fmt.Fprintf(out, "Next: embody finalize %s <concept-id>\n", s.ID)
	} else {
		fmt.Fprintf(out, "\nRefine again, or finalize early: embody finalize %s <concept-id>\n", s.ID)
	}
	return nil
}

func runFinalize(cmd *cobra.Command, args []string) error {
	s, err := phaseOp(cmd, "Documenting the design direction", func(ctx context.Context, a *app) (*session.Session, error) {
		return a.orch.Finalize(ctx, args[0], args[1])
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	md := ""
	path := ""
	if s.Documentation != nil {
		md = s.Documentation.Markdown
		path = s.Documentation.ArtifactPath
	}
	if finalizeRaw {
		fmt.Fprint(out, md)
	} else {
		rendered, err := ui.Markdown(md, 100, ui.IsTTY(out))
		if err != nil {
			return err
		}
		fmt.Fprint(out, rendered)
	}
	if path != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s\n", path)
	}
	return nil
}
