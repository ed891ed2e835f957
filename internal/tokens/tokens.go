// Package tokens extracts design tokens from a repository into one
// normalized schema.
package tokens

// Category is one of the five normalized token categories.
type Category string

// Token categories, in the order they are reported and classified.
const (
	Colors     Category = "colors"
	Typography Category = "typography"
	Spacing    Category = "spacing"
	Effects    Category = "effects"
	Behaviors  Category = "behaviors"
)

// Categories lists every category in canonical order.
var Categories = []Category{Colors, Typography, Spacing, Effects, Behaviors}

// RawKey holds unparsed text lifted from build-tool configuration.
const RawKey = "_raw"

// Set is the normalized token mapping. Every category map is non-nil so
// it always serializes as an object.
type Set struct {
	Colors      map[string]string `json:"colors"`
	Typography  map[string]string `json:"typography"`
	Spacing     map[string]string `json:"spacing"`
	Effects     map[string]string `json:"effects"`
	Behaviors   map[string]string `json:"behaviors"`
	SourceFiles []string          `json:"source_files"`
	Note        string            `json:"note,omitempty"`
	Diagnostics []string          `json:"diagnostics,omitempty"`
}

// Fragment is the per-file contribution before merging.
type Fragment map[Category]map[string]string

// NewSet returns a Set with all categories empty.
func NewSet() Set {
	return Set{
		Colors:      map[string]string{},
		Typography:  map[string]string{},
		Spacing:     map[string]string{},
		Effects:     map[string]string{},
		Behaviors:   map[string]string{},
		SourceFiles: []string{},
	}
}

// Empty returns an empty Set annotated with note.
func Empty(note string) Set {
	s := NewSet()
	s.Note = note
	return s
}

// Category returns the map backing c, or nil for an unknown category.
func (s *Set) Category(c Category) map[string]string {
	switch c {
	case Colors:
		return s.Colors
	case Typography:
		return s.Typography
	case Spacing:
		return s.Spacing
	case Effects:
		return s.Effects
	case Behaviors:
		return s.Behaviors
	}
	return nil
}

// Merge folds f into s. Later values overwrite earlier ones on key
// collision.
func (s *Set) Merge(f Fragment) {
	for _, c := range Categories {
		dst := s.Category(c)
		for k, v := range f[c] {
			dst[k] = v
		}
	}
}

// Len counts tokens across all categories.
func (s *Set) Len() int {
	n := 0
	for _, c := range Categories {
		n += len(s.Category(c))
	}
	return n
}

// IsEmpty reports whether the fragment carries no tokens.
func (f Fragment) IsEmpty() bool {
	for _, m := range f {
		if len(m) > 0 {
			return false
		}
	}
	return true
}

func (f Fragment) put(c Category, name, value string) {
	m := f[c]
	if m == nil {
		m = map[string]string{}
		f[c] = m
	}
	m[name] = value
}
