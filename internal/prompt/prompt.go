// Package prompt renders the field-extraction prompt sent to the
// completion model.
package prompt

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/credable-eng/fieldsift/internal/schema"
)

//go:embed extract.tmpl
var extractTmpl string

var extractTemplate = template.Must(template.New("extract").Parse(extractTmpl))

// SectionMarker prefixes the prompt's section headers. It doubles as the
// completion stop sequence so the model cannot echo a new section.
const SectionMarker = "###"

type promptData struct {
	Text   string
	Fields []schema.Field
}

// Build renders the extraction prompt for one document's text. Output is
// byte-identical for identical inputs: field order comes from the schema
// and the template has no time- or map-ordering dependence.
func Build(s *schema.Schema, text string) string {
	var buf bytes.Buffer
	data := promptData{Text: text, Fields: s.Fields()}
	if err := extractTemplate.Execute(&buf, data); err != nil {
		// The template is embedded and parsed at init; execution over
		// plain strings cannot fail. Keep the fallback anyway.
		return extractTmpl
	}
	return buf.String()
}
