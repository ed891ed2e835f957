package tokens

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// customPropertyPattern matches "--name: value;" declarations.
var customPropertyPattern = regexp.MustCompile(`--([a-zA-Z0-9_-]+):\s*([^;]+);`)

// cssKeywords classifies a custom property by substring. Order matters:
// the first category with a matching keyword wins, so "text-shadow-color"
// lands in colors. Downstream exports depend on this order.
var cssKeywords = []struct {
	category Category
	words    []string
}{
	{Colors, []string{"color", "bg", "text", "border"}},
	{Typography, []string{"font", "text", "family", "size", "weight", "line-height"}},
	{Spacing, []string{"spacing", "space", "margin", "padding", "gap"}},
	{Effects, []string{"shadow", "radius", "blur"}},
	{Behaviors, []string{"transition", "duration", "timing", "animation"}},
}

// jsonCategoryKeys lists the two accepted spellings per category in a
// token dictionary. The first present key wins.
var jsonCategoryKeys = []struct {
	category Category
	keys     [2]string
}{
	{Colors, [2]string{"color", "colors"}},
	{Typography, [2]string{"typography", "font"}},
	{Spacing, [2]string{"spacing", "space"}},
	{Effects, [2]string{"effects", "shadow"}},
	{Behaviors, [2]string{"behaviors", "animation"}},
}

// jsBlocks maps build-config keys to the category their raw block lands in.
var jsBlocks = []struct {
	pattern  *regexp.Regexp
	category Category
}{
	{regexp.MustCompile(`\bcolors\s*:\s*\{`), Colors},
	{regexp.MustCompile(`\bfontSize\s*:\s*\{`), Typography},
	{regexp.MustCompile(`\bspacing\s*:\s*\{`), Spacing},
}

// ClassifyProperty returns the category for a custom property name.
func ClassifyProperty(name string) (Category, bool) {
	for _, group := range cssKeywords {
		for _, w := range group.words {
			if strings.Contains(name, w) {
				return group.category, true
			}
		}
	}
	return "", false
}

// extractCSS scans stylesheet text for custom property declarations.
// Properties matching no category are dropped.
func extractCSS(content string) Fragment {
	frag := Fragment{}
	for _, m := range customPropertyPattern.FindAllStringSubmatch(content, -1) {
		name, value := m[1], strings.TrimSpace(m[2])
		if c, ok := ClassifyProperty(name); ok {
			frag.put(c, name, value)
		}
	}
	return frag
}

// extractJSON decodes a token dictionary. A non-object top level yields an
// empty fragment, a decode failure yields an error.
func extractJSON(content []byte) (Fragment, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	m, ok := data.(map[string]any)
	if !ok {
		return Fragment{}, nil
	}
	return FromMapping(m), nil
}

// FromMapping reads category values tolerantly from a decoded JSON object.
// Missing or non-object categories are empty.
func FromMapping(m map[string]any) Fragment {
	frag := Fragment{}
	for _, spec := range jsonCategoryKeys {
		var raw any
		for _, k := range spec.keys {
			if v, ok := m[k]; ok {
				raw = v
				break
			}
		}
		values, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for name, v := range values {
			frag.put(spec.category, name, tokenValue(v))
		}
	}
	return frag
}

// tokenValue renders a dictionary entry as its raw string value. Style
// Dictionary entries ({"value": ...}) are unwrapped one level.
func tokenValue(v any) string {
	switch tv := v.(type) {
	case string:
		return tv
	case json.Number:
		return tv.String()
	case map[string]any:
		for _, k := range []string{"value", "$value"} {
			if inner, ok := tv[k]; ok {
				if _, nested := inner.(map[string]any); !nested {
					return tokenValue(inner)
				}
			}
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// extractJSConfig lifts colors/fontSize/spacing blocks out of a build
// config verbatim. It is a textual heuristic and does not parse JS.
func extractJSConfig(content string) Fragment {
	frag := Fragment{}
	for _, b := range jsBlocks {
		loc := b.pattern.FindStringIndex(content)
		if loc == nil {
			continue
		}
		body, ok := braceBody(content, loc[1]-1)
		if !ok {
			continue
		}
		if body = strings.TrimSpace(body); body != "" {
			frag.put(b.category, RawKey, body)
		}
	}
	return frag
}

// braceBody returns the text between the '{' at open and its matching
// '}', counting nesting only.
func braceBody(s string, open int) (string, bool) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[open+1 : i], true
			}
		}
	}
	return "", false
}
