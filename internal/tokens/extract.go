package tokens

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// Notes attached to results that carry no tokens.
const (
	NoteNoFiles   = "no design token files found"
	notePrefix    = "repository path does not exist: "
	noteNotDirPfx = "repository path is not a directory: "
)

// DefaultMaxFiles caps the number of candidate files examined.
const DefaultMaxFiles = 10

// DefaultMaxFileBytes caps how much of one candidate file is read.
const DefaultMaxFileBytes int64 = 1 << 20

// DefaultMaxEntries caps how many directory entries one scan visits.
const DefaultMaxEntries = 50000

// skipDirs are never descended into. They hold dependencies, VCS data or
// build output rather than a project's own tokens.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	".embody":      true,
	".next":        true,
	".cache":       true,
	".venv":        true,
	"node_modules": true,
	"vendor":       true,
}

// candidatePatterns are tried in order; earlier patterns take priority
// once the file cap is reached.
var candidatePatterns = []string{
	"tokens.json",
	"design-tokens.json",
	"**/tokens.json",
	"**/design-tokens.json",
	"tailwind.config.js",
	"tailwind.config.ts",
	"**/tailwind.config.js",
	"**/tailwind.config.ts",
	"**/*.tokens.json",
	"variables.css",
	"**/variables.css",
}

var (
	errCapReached      = errors.New("candidate cap reached")
	errBudgetExhausted = errors.New("entry budget exhausted")
)

// Extractor scans a repository for token-bearing files. The zero value is
// usable and applies the default bounds.
type Extractor struct {
	MaxFiles     int
	MaxFileBytes int64
	MaxEntries   int
	Logger       *zap.Logger
}

// NewExtractor creates an Extractor with the given bounds.
func NewExtractor(maxFiles int, maxFileBytes int64, maxEntries int, logger *zap.Logger) *Extractor {
	return &Extractor{MaxFiles: maxFiles, MaxFileBytes: maxFileBytes, MaxEntries: maxEntries, Logger: logger}
}

// Extract returns the normalized tokens found under root. It never fails:
// per-file problems are logged, recorded in Diagnostics and otherwise
// ignored.
func (e *Extractor) Extract(root string) Set {
	info, err := os.Stat(root)
	if err != nil {
		return Empty(notePrefix + root)
	}
	if !info.IsDir() {
		return Empty(noteNotDirPfx + root)
	}

	result := NewSet()
	candidates, diags := e.discover(root)
	result.Diagnostics = append(result.Diagnostics, diags...)

	for _, rel := range candidates {
		frag, err := e.extractFile(root, rel)
		if err != nil {
			e.logger().Warn("token extraction failed",
				zap.String("file", rel), zap.Error(err))
			result.Diagnostics = append(result.Diagnostics, fmt.Sprintf("%s: %v", rel, err))
			continue
		}
		result.Merge(frag)
		result.SourceFiles = append(result.SourceFiles, rel)
	}

	if len(result.SourceFiles) == 0 {
		empty := Empty(NoteNoFiles)
		empty.Diagnostics = result.Diagnostics
		return empty
	}

	e.logger().Debug("tokens extracted",
		zap.Strings("files", result.SourceFiles), zap.Int("tokens", result.Len()))
	return result
}

// discover walks root once and returns candidate files relative to root,
// slash separated. Files are ordered by the first pattern they match, then
// by walk order, deduplicated by resolved path and capped at MaxFiles.
func (e *Extractor) discover(root string) ([]string, []string) {
	limit := e.maxFiles()
	budget := e.maxEntries()
	buckets := make([][]string, len(candidatePatterns))
	var diags []string
	visited := 0

	err := fs.WalkDir(os.DirFS(root), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			diags = append(diags, fmt.Sprintf("walk %s: %v", p, err))
			return nil
		}
		visited++
		if visited > budget {
			return errBudgetExhausted
		}
		if d.IsDir() {
			if p != "." && skipDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		// Symlinks could point outside the repository.
		if !d.Type().IsRegular() {
			return nil
		}
		for i, pattern := range candidatePatterns {
			if ok, _ := doublestar.Match(pattern, p); ok {
				buckets[i] = append(buckets[i], p)
				// Nothing found later can outrank the first pattern.
				if i == 0 && len(buckets[0]) >= limit {
					return errCapReached
				}
				break
			}
		}
		return nil
	})

	switch {
	case errors.Is(err, errBudgetExhausted):
		e.logger().Warn("token scan budget exhausted",
			zap.String("root", root), zap.Int("entries", budget))
		diags = append(diags, fmt.Sprintf("scan stopped after %d entries", budget))
	case err != nil && !errors.Is(err, errCapReached):
		diags = append(diags, fmt.Sprintf("walk: %v", err))
	}

	seen := make(map[string]bool)
	var files []string
	for _, bucket := range buckets {
		for _, p := range bucket {
			key := resolvePath(filepath.Join(root, filepath.FromSlash(p)))
			if seen[key] {
				continue
			}
			seen[key] = true
			files = append(files, p)
			if len(files) >= limit {
				return files, diags
			}
		}
	}
	return files, diags
}

func (e *Extractor) extractFile(root, rel string) (Fragment, error) {
	content, err := e.readBounded(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(path.Ext(rel)) {
	case ".json":
		return extractJSON(content)
	case ".css", ".scss", ".sass":
		return extractCSS(string(content)), nil
	case ".js", ".ts":
		return extractJSConfig(string(content)), nil
	}
	return Fragment{}, nil
}

func (e *Extractor) readBounded(p string) ([]byte, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	limit := e.maxFileBytes()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file exceeds %d bytes", limit)
	}
	return data, nil
}

func (e *Extractor) maxFiles() int {
	if e.MaxFiles <= 0 {
		return DefaultMaxFiles
	}
	return e.MaxFiles
}

func (e *Extractor) maxEntries() int {
	if e.MaxEntries <= 0 {
		return DefaultMaxEntries
	}
	return e.MaxEntries
}

func (e *Extractor) maxFileBytes() int64 {
	if e.MaxFileBytes <= 0 {
		return DefaultMaxFileBytes
	}
	return e.MaxFileBytes
}

func (e *Extractor) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func resolvePath(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
