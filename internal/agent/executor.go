package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Handle is the per-session resource needed to invoke the model. It is
// built from configuration and never carries session state.
type Handle struct {
	SessionID string
	Profile   Profile
	CreatedAt time.Time
}

// Executor turns a prompt into free-text model output.
type Executor interface {
	Execute(ctx context.Context, h *Handle, prompt string) (string, error)
}

// ClaudeExecutor runs the claude CLI in print mode with JSON output.
type ClaudeExecutor struct {
	Command string // defaults to "claude"
	Dir     string
	Logger  *zap.Logger
}

// Execute runs one prompt. The call is bounded by the profile timeout in
// addition to ctx.
func (e *ClaudeExecutor) Execute(ctx context.Context, h *Handle, prompt string) (string, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	command := e.Command
	if command == "" {
		command = "claude"
	}

	timeout := h.Profile.TimeoutDuration()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, buildArgs(h.Profile, prompt)...)
	cmd.Dir = e.Dir
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	logger.Debug("agent call finished",
		zap.String("session", h.SessionID),
		zap.String("model", h.Profile.Model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &ExecutionError{Err: fmt.Errorf("timed out after %s: %w", timeout, ctx.Err()), Stderr: stderr.String()}
		}
		if ctx.Err() != nil {
			return "", &ExecutionError{Err: ctx.Err(), Stderr: stderr.String()}
		}
		return "", &ExecutionError{Err: fmt.Errorf("%s exited: %w", command, err), Stderr: stderr.String()}
	}

	env, err := parseEnvelope(stdout.Bytes())
	if err != nil {
		return "", &ExecutionError{Err: err, Stderr: stderr.String()}
	}
	if env.IsError {
		return "", &ExecutionError{Err: fmt.Errorf("agent reported error (%s): %s", env.Subtype, snippet(env.Result))}
	}
	return env.Result, nil
}

func buildArgs(p Profile, prompt string) []string {
	args := []string{"-p", prompt, "--output-format", "json"}
	if p.SystemPrompt != "" {
		args = append(args, "--append-system-prompt", p.SystemPrompt)
	}
	if p.Model != "" {
		args = append(args, "--model", p.Model)
	}
	if len(p.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(p.AllowedTools, ","))
	}
	return args
}

// envelope is the result object printed by the CLI with --output-format json.
type envelope struct {
	Type       string  `json:"type"`
	Subtype    string  `json:"subtype"`
	Result     string  `json:"result"`
	IsError    bool    `json:"is_error"`
	DurationMS int64   `json:"duration_ms"`
	CostUSD    float64 `json:"total_cost_usd"`
	SessionID  string  `json:"session_id"`
}

func parseEnvelope(raw []byte) (*envelope, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty agent output")
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding result envelope: %w", err)
	}
	if env.Type != "result" {
		return nil, fmt.Errorf("unexpected output type %q (expected \"result\")", env.Type)
	}
	return &env, nil
}
