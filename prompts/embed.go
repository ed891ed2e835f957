// Package prompts holds the instruction text sent to the model.
package prompts

import _ "embed"

//go:embed system.md
var System string

//go:embed context.md.tmpl
var ContextTemplate string

//go:embed concepts.md.tmpl
var ConceptsTemplate string

//go:embed refine.md.tmpl
var RefineTemplate string

//go:embed finalize.md.tmpl
var FinalizeTemplate string
