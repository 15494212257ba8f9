// Package extract turns raw completion output into field records: parsing
// the model's JSON, grounding each value in its source page, and deriving
// a small set of boolean fields from keyword presence.
package extract

import "strings"

// Sentinels used in record fields. These are part of the service's wire
// contract and must match what the prompt instructs the model to emit.
const (
	// NullValue is what the model returns for a field it could not find.
	NullValue = "Null"
	// PageUnknown marks a value that could not be located in any page.
	PageUnknown = "Unknown"
	// PageAuto marks a derived (non-model) field.
	PageAuto = "Auto"
	// ExcerptNA pairs with PageUnknown.
	ExcerptNA = "N/A"
	// ExcerptDerived pairs with PageAuto.
	ExcerptDerived = "Derived from text analysis."
)

// Record is one field observation from one document, with provenance.
// PageNumber and Excerpt are always a matched pair: both located, both
// sentinel, or both derived.
type Record struct {
	Field          string `json:"Field"`
	Value          string `json:"Value"`
	SourceDocument string `json:"SourceDocument"`
	PageNumber     string `json:"PageNumber"`
	Excerpt        string `json:"Excerpt"`
	FieldPresent   bool   `json:"FieldPresent"`
}

// Partial is a parsed model row before provenance is attached. Field is
// required at the parse boundary; everything else is filled in later.
type Partial struct {
	Field string
	Value string
}

// Present reports whether value is a real observation rather than the
// model's null sentinel or empty text.
func Present(value string) bool {
	v := strings.TrimSpace(value)
	return v != "" && !strings.EqualFold(v, NullValue)
}
