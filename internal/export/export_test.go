package export

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/embody-dev/embody/internal/tokens"
)

func sampleSet() tokens.Set {
	s := tokens.NewSet()
	s.Colors["color-primary"] = "#123456"
	s.Colors[tokens.RawKey] = "primary: '#fff'"
	s.Typography["font-family-base"] = `"Inter", sans-serif`
	s.Typography["font-size-lg"] = "1.25rem"
	s.Spacing["spacing-lg"] = "24px"
	s.Effects["radius-md"] = "8px"
	s.Effects["shadow-card"] = "0 1px 2px rgba(0,0,0,.2)"
	s.Behaviors["duration-fast"] = "150ms"
	return s
}

func TestCSSVariables(t *testing.T) {
	got := string(CSSVariables(sampleSet()))
	want := `:root {
  /* colors */
  --color-primary: #123456;
  /* typography */
  --font-family-base: "Inter", sans-serif;
  --font-size-lg: 1.25rem;
  /* spacing */
  --spacing-lg: 24px;
  /* effects */
  --radius-md: 8px;
  --shadow-card: 0 1px 2px rgba(0,0,0,.2);
  /* behaviors */
  --duration-fast: 150ms;
}
`
	if got != want {
		t.Errorf("CSSVariables() =\n%s\nwant\n%s", got, want)
	}
}

func TestCSSVariablesEmptyAndUnsafeNames(t *testing.T) {
	if got := string(CSSVariables(tokens.NewSet())); got != ":root {\n}\n" {
		t.Errorf("empty set = %q", got)
	}

	s := tokens.NewSet()
	s.Colors["brand.primary 500"] = "red"
	s.Colors["!!"] = "blue"
	got := string(CSSVariables(s))
	if !strings.Contains(got, "--brand-primary-500: red;") {
		t.Errorf("dotted name not sanitized:\n%s", got)
	}
	if !strings.Contains(got, "--token: blue;") {
		t.Errorf("empty name not replaced:\n%s", got)
	}
}

func TestFigma(t *testing.T) {
	data, err := Figma(sampleSet())
	if err != nil {
		t.Fatalf("Figma: %v", err)
	}

	var doc map[string]map[string]figmaToken
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got := doc["colors"]["color-primary"]; got.Value != "#123456" || got.Type != "color" {
		t.Errorf("color-primary = %+v", got)
	}
	if _, ok := doc["colors"][tokens.RawKey]; ok {
		t.Error("raw key exported")
	}
	if got := doc["effects"]["shadow-card"].Type; got != "boxShadow" {
		t.Errorf("effects type = %q", got)
	}

	empty, err := Figma(tokens.NewSet())
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(empty)) != "{}" {
		t.Errorf("empty set = %s", empty)
	}
}

func TestTailwind(t *testing.T) {
	data, err := Tailwind(sampleSet())
	if err != nil {
		t.Fatalf("Tailwind: %v", err)
	}
	out := string(data)
	if !strings.HasPrefix(out, "/** @type") || !strings.HasSuffix(out, ";\n") {
		t.Fatalf("unexpected framing:\n%s", out)
	}

	const prefix = "module.exports = "
	body := strings.TrimSuffix(out[strings.Index(out, prefix)+len(prefix):], ";\n")
	var cfg struct {
		Theme struct {
			Extend map[string]map[string]string `json:"extend"`
		} `json:"theme"`
	}
	if err := json.Unmarshal([]byte(body), &cfg); err != nil {
		t.Fatalf("config body is not JSON: %v", err)
	}

	ext := cfg.Theme.Extend
	checks := []struct{ key, name, value string }{
		{"colors", "color-primary", "#123456"},
		{"fontFamily", "font-family-base", `"Inter", sans-serif`},
		{"fontSize", "font-size-lg", "1.25rem"},
		{"spacing", "spacing-lg", "24px"},
		{"borderRadius", "radius-md", "8px"},
		{"boxShadow", "shadow-card", "0 1px 2px rgba(0,0,0,.2)"},
		{"transitionDuration", "duration-fast", "150ms"},
	}
	for _, c := range checks {
		if got := ext[c.key][c.name]; got != c.value {
			t.Errorf("extend.%s[%s] = %q, want %q", c.key, c.name, got, c.value)
		}
	}
	if _, ok := ext["colors"][tokens.RawKey]; ok {
		t.Error("raw key exported")
	}
}

func TestRender(t *testing.T) {
	for _, f := range Formats {
		if _, err := Render(f, sampleSet()); err != nil {
			t.Errorf("Render(%s): %v", f, err)
		}
	}
	if _, err := Render("sketch", sampleSet()); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Render(sketch) = %v, want ErrUnknownFormat", err)
	}
}

func TestFromDirection(t *testing.T) {
	direction := map[string]any{
		"id": "c1",
		"tokens": map[string]any{
			"colors":  map[string]any{"primary": "#113355"},
			"spacing": map[string]any{"md": map[string]any{"value": "16px"}},
		},
	}
	want := tokens.NewSet()
	want.Colors["primary"] = "#113355"
	want.Spacing["md"] = "16px"
	if diff := cmp.Diff(want, FromDirection(direction)); diff != "" {
		t.Errorf("FromDirection mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(tokens.NewSet(), FromDirection(map[string]any{"tokens": "nope"})); diff != "" {
		t.Errorf("non-object tokens (-want +got):\n%s", diff)
	}
}
