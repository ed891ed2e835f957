package agent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/embody-dev/embody/prompts"
)

// DefaultProfileName is served from built-in settings when no file for it
// exists on disk.
const DefaultProfileName = "default"

const defaultTimeout = 300 * time.Second

// Profile configures how the model is invoked for a session.
type Profile struct {
	Name         string   `yaml:"name"`
	Model        string   `yaml:"model"`
	SystemPrompt string   `yaml:"system_prompt"`
	AllowedTools []string `yaml:"allowed_tools"`
	Timeout      int      `yaml:"timeout"` // seconds
}

// TimeoutDuration returns the per-call timeout, defaulting to five minutes.
func (p Profile) TimeoutDuration() time.Duration {
	if p.Timeout <= 0 {
		return defaultTimeout
	}
	return time.Duration(p.Timeout) * time.Second
}

// BuiltinProfile returns the profile used when none is configured.
func BuiltinProfile(model string, timeoutSeconds int) Profile {
	return Profile{
		Name:         DefaultProfileName,
		Model:        model,
		SystemPrompt: prompts.System,
		Timeout:      timeoutSeconds,
	}
}

// Loader reads profiles from <Dir>/<name>.yaml. Fields a file leaves
// empty are taken from Fallback.
type Loader struct {
	Dir      string
	Fallback Profile
}

// Load returns the named profile. A missing file yields ErrProfileNotFound
// except for the default profile, which falls back to built-in settings.
func (l *Loader) Load(name string) (*Profile, error) {
	if name == "" {
		name = DefaultProfileName
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid profile name %q", name)
	}

	data, err := l.read(name)
	if errors.Is(err, os.ErrNotExist) {
		if name == DefaultProfileName {
			p := l.Fallback
			p.Name = name
			return &p, nil
		}
		return nil, fmt.Errorf("%w: %s (looked in %s)", ErrProfileNotFound, name, l.Dir)
	}
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", name, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", name, err)
	}
	if p.Name == "" {
		p.Name = name
	}
	if p.Model == "" {
		p.Model = l.Fallback.Model
	}
	if p.SystemPrompt == "" {
		p.SystemPrompt = l.Fallback.SystemPrompt
	}
	if p.Timeout <= 0 {
		p.Timeout = l.Fallback.Timeout
	}
	if len(p.AllowedTools) == 0 {
		p.AllowedTools = l.Fallback.AllowedTools
	}
	return &p, nil
}

func (l *Loader) read(name string) ([]byte, error) {
	if l.Dir == "" {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(filepath.Join(l.Dir, name+".yaml"))
	if errors.Is(err, os.ErrNotExist) {
		return os.ReadFile(filepath.Join(l.Dir, name+".yml"))
	}
	return data, err
}
