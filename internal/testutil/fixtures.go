// Package testutil provides test helper utilities for embody tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// TempProject creates a temporary directory with the given files and returns its path.
// Files is a map of relative path -> content. Directories are created as needed.
// The directory is automatically cleaned up when the test finishes.
func TempProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	for relPath, content := range files {
		absPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", relPath, err)
		}
		if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", relPath, err)
		}
	}

	return dir
}

// StyleDictionaryProject returns a repo with a root tokens.json in Style
// Dictionary shape.
func StyleDictionaryProject() map[string]string {
	tokens := map[string]interface{}{
		"color": map[string]interface{}{
			"primary":   map[string]string{"value": "#0055ff"},
			"secondary": "#ff5500",
		},
		"font": map[string]interface{}{
			"body": "Inter, sans-serif",
		},
		"space": map[string]interface{}{
			"sm": "4px",
			"md": 8,
		},
	}
	data, _ := json.MarshalIndent(tokens, "", "  ")

	return map[string]string{
		"tokens.json":  string(data),
		"package.json": `{"name": "sd-project"}`,
	}
}

// CSSVariablesProject returns a repo whose tokens live in CSS custom properties.
func CSSVariablesProject() map[string]string {
	return map[string]string{
		"src/styles/variables.css": `:root {
  --color-primary: #123456;
  --bg-surface: #ffffff;
  --font-family-base: "Inter", sans-serif;
  --spacing-lg: 24px;
  --shadow-card: 0 1px 2px rgba(0, 0, 0, 0.2);
  --transition-fast: 150ms ease-in;
  --z-modal: 100;
}
`,
	}
}

// TailwindProject returns a repo with a tailwind config.
func TailwindProject() map[string]string {
	return map[string]string{
		"tailwind.config.js": `module.exports = {
  theme: {
    extend: {
      colors: {
        brand: { 500: '#0055ff', 600: '#0044cc' },
        accent: '#ff5500',
      },
      spacing: {
        '18': '4.5rem',
      },
    },
  },
}
`,
	}
}

// MixedProject combines every supported source format.
func MixedProject() map[string]string {
	files := map[string]string{}
	for _, set := range []map[string]string{StyleDictionaryProject(), CSSVariablesProject(), TailwindProject()} {
		for k, v := range set {
			files[k] = v
		}
	}
	return files
}

// EmptyProject returns an empty directory with no files.
func EmptyProject() map[string]string {
	return map[string]string{}
}
