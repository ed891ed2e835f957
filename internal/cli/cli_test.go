package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embody-dev/embody/internal/agent"
	"github.com/embody-dev/embody/internal/orchestrator"
	"github.com/embody-dev/embody/internal/session"
	"github.com/embody-dev/embody/internal/testutil"
)

// resetFlags puts every flag back to its default; cobra keeps flag values
// between Execute calls in one process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes the CLI against project root dir and returns stdout.
func run(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--root", dir}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func createSession(t *testing.T, dir string) string {
	t.Helper()
	repo := testutil.TempProject(t, testutil.CSSVariablesProject())
	out, err := run(t, dir, "", "create", "-q", repo)
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NoError(t, session.ValidateID(id))
	return id
}

func TestInitWritesConfigAndGitignore(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized embody")

	assert.FileExists(t, filepath.Join(dir, ".embody", "config.yaml"))
	assert.DirExists(t, filepath.Join(dir, ".embody", "sessions"))
	assert.DirExists(t, filepath.Join(dir, ".embody", "profiles"))

	gitignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(gitignore), ".embody/sessions/")

	// Re-running declines by default and leaves .gitignore alone.
	out, err = run(t, dir, "n\n", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")

	again, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, string(gitignore), string(again))
}

func TestEnsureGitignoreIdempotent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("node_modules/"), 0644))

	require.NoError(t, ensureGitignore(dir, ".embody/sessions"))
	require.NoError(t, ensureGitignore(dir, ".embody/sessions"))

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "node_modules/\n# embody session data\n.embody/sessions/\n", string(data))
}

func TestCreateGetExportListDelete(t *testing.T) {
	dir := t.TempDir()
	id := createSession(t, dir)

	out, err := run(t, dir, "", "get", id, "--json")
	require.NoError(t, err)
	var s session.Session
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, session.PhaseContextGathering, s.Phase)
	assert.Equal(t, "#123456", s.ExtractedTokens.Colors["color-primary"])

	out, err = run(t, dir, "", "get", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Session "+id)
	assert.Contains(t, out, "context_gathering")

	out, err = run(t, dir, "", "export", id, "--format", "css")
	require.NoError(t, err)
	assert.Contains(t, out, ":root {")
	assert.Contains(t, out, "--color-primary: #123456;")

	target := filepath.Join(t.TempDir(), "tokens.json")
	_, err = run(t, dir, "", "export", id, "-f", "figma", "-o", target)
	require.NoError(t, err)
	assert.FileExists(t, target)

	out, err = run(t, dir, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)

	_, err = run(t, dir, "", "delete", id)
	require.NoError(t, err)

	_, err = run(t, dir, "", "get", id)
	require.Error(t, err)
	assert.Equal(t, exitNotFound, exitCode(err))

	out, err = run(t, dir, "", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, id)
}

func TestExportErrors(t *testing.T) {
	dir := t.TempDir()
	id := createSession(t, dir)

	_, err := run(t, dir, "", "export", id, "--from", "final")
	require.Error(t, err)
	assert.Equal(t, exitBadRequest, exitCode(err))

	_, err = run(t, dir, "", "export", id, "--format", "sketch")
	require.Error(t, err)
	assert.Equal(t, exitBadRequest, exitCode(err))

	_, err = run(t, dir, "", "export", id, "--from", "somewhere")
	require.Error(t, err)
	assert.Equal(t, exitBadRequest, exitCode(err))
}

func TestPhaseCommandsRespectGuards(t *testing.T) {
	dir := t.TempDir()
	id := createSession(t, dir)

	// No agent is reachable; the guards reject before any call is made.
	_, err := run(t, dir, "", "generate", id)
	require.Error(t, err)
	assert.Equal(t, exitBadRequest, exitCode(err))

	_, err = run(t, dir, "", "refine", id, "--liked", "c1")
	require.Error(t, err)
	assert.Equal(t, exitBadRequest, exitCode(err))

	_, err = run(t, dir, "", "context", id)
	require.Error(t, err, "empty goal")
	assert.Equal(t, exitBadRequest, exitCode(err))

	_, err = run(t, dir, "", "generate", "../escape")
	require.Error(t, err)
	assert.Equal(t, exitBadRequest, exitCode(err))
}

func TestListRebuild(t *testing.T) {
	dir := t.TempDir()
	id := createSession(t, dir)

	require.NoError(t, os.Remove(filepath.Join(dir, ".embody", "sessions", indexFile)))

	out, err := run(t, dir, "", "list", "--rebuild")
	require.NoError(t, err)
	assert.Contains(t, out, id)
}

func TestCleanKeep(t *testing.T) {
	dir := t.TempDir()
	first := createSession(t, dir)
	second := createSession(t, dir)

	out, err := run(t, dir, "", "clean", "--keep", "1", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Would remove "+first)
	assert.NotContains(t, out, second)

	out, err = run(t, dir, "", "clean", "--keep", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 session(s).")

	_, err = run(t, dir, "", "get", first)
	assert.Equal(t, exitNotFound, exitCode(err))
	_, err = run(t, dir, "", "get", second)
	assert.NoError(t, err)

	out, err = run(t, dir, "", "clean")
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions to clean up.")
}

func TestMetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".embody"), 0755))
	config := "metrics:\n  textfile: embody.prom\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".embody", "config.yaml"), []byte(config), 0644))

	createSession(t, dir)

	data, err := os.ReadFile(filepath.Join(dir, "embody.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `embody_phase_operations_total{operation="create",outcome="ok"} 1`)
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"not found", &orchestrator.OpError{Op: "get", SessionID: "x", Err: session.ErrNotFound}, exitNotFound, "embody list"},
		{"bad request", fmt.Errorf("%w: nope", orchestrator.ErrBadRequest), exitBadRequest, "nope"},
		{"decode", &session.DecodeError{SessionID: "x", Err: errors.New("eof")}, exitDecode, "could not understand"},
		{"parse", &agent.ParseError{Err: errors.New("bad json")}, exitDecode, "could not understand"},
		{"execution", &agent.ExecutionError{Err: errors.New("exit 1")}, exitExecution, "session unchanged"},
		{"io", &session.IOError{SessionID: "x", Op: "write", Err: errors.New("disk full")}, exitIO, "could not read or write"},
		{"canceled", fmt.Errorf("refine: %w", context.Canceled), exitCanceled, "interrupted"},
		{"lock wait canceled", &orchestrator.OpError{Op: "refine", SessionID: "x", Err: context.Canceled}, exitCanceled, "interrupted"},
		{"lock wait timeout", &orchestrator.OpError{Op: "refine", SessionID: "x", Err: context.DeadlineExceeded}, exitTimeout, "timed out"},
		{"agent timeout", &agent.ExecutionError{Err: context.DeadlineExceeded}, exitExecution, "agent call failed"},
		{"other", errors.New("boom"), exitFailure, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, exitCode(tt.err))
			assert.Contains(t, userMessage(tt.err), tt.msg)
		})
	}
}
