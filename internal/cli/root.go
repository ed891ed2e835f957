// Package cli defines the cobra commands of the embody CLI.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/embody-dev/embody/internal/ui"
)

var (
	verbose bool
	rootDir string
	version = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "embody",
	Short: "Design-direction exploration driven by an AI agent",
	Long: `Embody walks a design exploration from a code repository to a
documented design direction. It extracts the tokens the repository
already uses, gathers the designer's intent, generates concept rounds
with Claude and refines them on feedback until one direction is
finalized.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Without a subcommand show recent sessions on a terminal, help otherwise.
		if !ui.IsTTY(cmd.OutOrStdout()) {
			return cmd.Help()
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		if a.index == nil {
			return cmd.Help()
		}
		rows, err := a.index.List(10)
		if err != nil || len(rows) == 0 {
			return cmd.Help()
		}
		fmt.Fprint(cmd.OutOrStdout(), ui.SessionTable(rows))
		return nil
	},
}

// Execute runs the root command. Called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorStyle.Render("Error:")+" "+userMessage(err))
		os.Exit(exitCode(err))
	}
}

// Verbose returns true if --verbose flag is set.
func Verbose() bool {
	return verbose
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log debug diagnostics to stderr")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "C", ".", "Project directory holding .embody/")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(refineCmd)
	rootCmd.AddCommand(finalizeCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(cleanCmd)
}
