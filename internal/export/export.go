// Package export renders a normalized token set in formats design and
// front-end tools consume. Keys holding unparsed build-config text are
// never exported.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/embody-dev/embody/internal/tokens"
)

// Format names an export format.
type Format string

const (
	FormatFigma    Format = "figma"
	FormatCSS      Format = "css"
	FormatTailwind Format = "tailwind"
)

// Formats lists every supported format.
var Formats = []Format{FormatFigma, FormatCSS, FormatTailwind}

// ErrUnknownFormat is returned by Render for an unsupported format.
var ErrUnknownFormat = errors.New("unknown export format")

// Render dispatches to the formatter for f.
func Render(f Format, set tokens.Set) ([]byte, error) {
	switch f {
	case FormatFigma:
		return Figma(set)
	case FormatCSS:
		return CSSVariables(set), nil
	case FormatTailwind:
		return Tailwind(set)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// FromDirection builds a token set from a finalized direction's "tokens"
// object.
func FromDirection(direction map[string]any) tokens.Set {
	set := tokens.NewSet()
	if m, ok := direction["tokens"].(map[string]any); ok {
		set.Merge(tokens.FromMapping(m))
	}
	return set
}

var figmaTypes = map[tokens.Category]string{
	tokens.Colors:     "color",
	tokens.Typography: "typography",
	tokens.Spacing:    "spacing",
	tokens.Effects:    "boxShadow",
	tokens.Behaviors:  "other",
}

type figmaToken struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

// Figma renders a Tokens Studio style document: one group per category,
// each token as {"value", "type"}.
func Figma(set tokens.Set) ([]byte, error) {
	doc := map[string]map[string]figmaToken{}
	for _, c := range tokens.Categories {
		group := map[string]figmaToken{}
		for name, value := range set.Category(c) {
			if name == tokens.RawKey {
				continue
			}
			group[name] = figmaToken{Value: value, Type: figmaTypes[c]}
		}
		if len(group) > 0 {
			doc[string(c)] = group
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal figma tokens: %w", err)
	}
	return append(data, '\n'), nil
}

var unsafeIdent = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// CSSVariables renders a :root block of custom properties, grouped by
// category in canonical order and sorted by name within a group.
func CSSVariables(set tokens.Set) []byte {
	var buf bytes.Buffer
	buf.WriteString(":root {\n")
	for _, c := range tokens.Categories {
		names := sortedNames(set.Category(c))
		if len(names) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "  /* %s */\n", c)
		for _, name := range names {
			fmt.Fprintf(&buf, "  --%s: %s;\n", cssIdent(name), set.Category(c)[name])
		}
	}
	buf.WriteString("}\n")
	return buf.Bytes()
}

func cssIdent(name string) string {
	name = strings.Trim(unsafeIdent.ReplaceAllString(name, "-"), "-")
	if name == "" {
		return "token"
	}
	return name
}

// Tailwind renders a tailwind.config.js whose theme.extend carries the
// tokens under the closest matching theme keys.
func Tailwind(set tokens.Set) ([]byte, error) {
	extend := map[string]map[string]string{}
	for _, c := range tokens.Categories {
		for name, value := range set.Category(c) {
			if name == tokens.RawKey {
				continue
			}
			key := tailwindKey(c, name)
			if extend[key] == nil {
				extend[key] = map[string]string{}
			}
			extend[key][name] = value
		}
	}

	data, err := json.MarshalIndent(map[string]any{
		"theme": map[string]any{"extend": extend},
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tailwind config: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("/** @type {import('tailwindcss').Config} */\n")
	buf.WriteString("module.exports = ")
	buf.Write(data)
	buf.WriteString(";\n")
	return buf.Bytes(), nil
}

// tailwindKey picks the theme key for a token. The first matching
// substring wins.
func tailwindKey(c tokens.Category, name string) string {
	n := strings.ToLower(name)
	switch c {
	case tokens.Colors:
		return "colors"
	case tokens.Typography:
		switch {
		case strings.Contains(n, "family"):
			return "fontFamily"
		case strings.Contains(n, "weight"):
			return "fontWeight"
		case strings.Contains(n, "line-height"), strings.Contains(n, "leading"):
			return "lineHeight"
		}
		return "fontSize"
	case tokens.Spacing:
		return "spacing"
	case tokens.Effects:
		switch {
		case strings.Contains(n, "radius"):
			return "borderRadius"
		case strings.Contains(n, "blur"):
			return "blur"
		}
		return "boxShadow"
	case tokens.Behaviors:
		switch {
		case strings.Contains(n, "animation"):
			return "animation"
		case strings.Contains(n, "timing"), strings.Contains(n, "ease"):
			return "transitionTimingFunction"
		}
		return "transitionDuration"
	}
	return string(c)
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		if name != tokens.RawKey {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
