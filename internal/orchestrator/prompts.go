package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/embody-dev/embody/prompts"
)

var funcs = template.FuncMap{"join": strings.Join}

var (
	contextTmpl  = template.Must(template.New("context").Funcs(funcs).Parse(prompts.ContextTemplate))
	conceptsTmpl = template.Must(template.New("concepts").Funcs(funcs).Parse(prompts.ConceptsTemplate))
	refineTmpl   = template.Must(template.New("refine").Funcs(funcs).Parse(prompts.RefineTemplate))
	finalizeTmpl = template.Must(template.New("finalize").Funcs(funcs).Parse(prompts.FinalizeTemplate))
)

type contextData struct {
	Goal        string
	Qualities   []string
	Constraints []string
	Tokens      string
}

type conceptsData struct {
	Min, Max int
	Tokens   string
	Intent   string
	Guidance string
}

type refineData struct {
	Round                     int
	Min, Max                  int
	Previous                  string
	Liked, Disliked, Explored []string
}

type finalizeData struct {
	SelectedID string
	Selected   string
	State      string
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// pretty renders v as indented JSON for embedding in a prompt.
func pretty(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(data)
}
