// init.go implements "embody init", which writes a default config.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/embody-dev/embody/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize embody in the current project",
	Long: `Create .embody/config.yaml with default settings, the sessions and
profiles directories, and .gitignore entries for session data.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configPath := filepath.Join(rootDir, ".embody", "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintln(out, "Warning: .embody/config.yaml already exists.")
		fmt.Fprint(out, "Overwrite with defaults? [y/N]: ")
		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if err := config.WriteConfig(rootDir, cfg); err != nil {
		return err
	}
	for _, dir := range []string{cfg.SessionsDir, cfg.ProfilesDir} {
		if err := os.MkdirAll(projectPath(dir), 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	if err := ensureGitignore(rootDir, cfg.SessionsDir); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to set up .gitignore: %v\n", err)
	}

	fmt.Fprintf(out, "Initialized embody in %s\n", filepath.Join(rootDir, ".embody"))
	return nil
}

// ensureGitignore appends the session directory to .gitignore unless an
// entry for it is already present. Config and profiles are meant to be
// committed.
func ensureGitignore(dir, sessionsDir string) error {
	gitignorePath := filepath.Join(dir, ".gitignore")
	entry := filepath.ToSlash(filepath.Clean(sessionsDir)) + "/"

	existing := ""
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existing = string(data)
	}
	for _, line := range strings.Split(existing, "\n") {
		if strings.TrimSpace(line) == entry {
			return nil
		}
	}

	var toAppend strings.Builder
	if existing != "" && !strings.HasSuffix(existing, "\n") {
		toAppend.WriteString("\n")
	}
	toAppend.WriteString("# embody session data\n")
	toAppend.WriteString(entry + "\n")

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening .gitignore: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(toAppend.String()); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	return nil
}
