package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// rowSchema validates the shape of one parsed row before it is trusted:
// an object whose Field (if present) is a string and whose Value is a
// scalar. Validation is per row so one malformed row never costs the
// rest of its block; rows missing Field are dropped separately.
const rowSchemaJSON = `{
	"type": "object",
	"properties": {
		"Field": {"type": "string"},
		"Value": {"type": ["string", "number", "boolean", "null"]}
	}
}`

var rowSchema = jsonschema.MustCompileString("row.json", rowSchemaJSON)

// jsonBlockRE matches bracketed arrays of objects, non-greedy, across
// lines. Used as the fallback when the whole response is not valid JSON.
var jsonBlockRE = regexp.MustCompile(`(?s)\[\s*\{.*?\}\s*\]`)

// Parse extracts field/value rows from a raw model response.
//
// Primary path: the whole response is a JSON array. Fallback: scan for
// every bracketed array-of-objects block and keep the ones that parse;
// blocks that fail to parse are skipped. Rows missing Field or failing
// shape validation are dropped individually without discarding their
// block. An unparseable response yields an empty slice, never an error:
// the caller treats it as "no fields found for this document".
func Parse(raw string) []Partial {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	if rows, ok := parseBlock(trimmed); ok {
		return rows
	}

	var merged []Partial
	for _, block := range jsonBlockRE.FindAllString(trimmed, -1) {
		if rows, ok := parseBlock(block); ok {
			merged = append(merged, rows...)
		}
	}
	return merged
}

// parseBlock decodes one candidate JSON array and validates its rows
// individually: rows that are not objects, fail the row schema, or lack
// a Field are dropped while the rest of the block survives.
func parseBlock(block string) ([]Partial, bool) {
	var doc any
	if err := json.Unmarshal([]byte(block), &doc); err != nil {
		return nil, false
	}
	items, isArray := doc.([]any)
	if !isArray {
		return nil, false
	}

	rows := make([]Partial, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if err := rowSchema.Validate(item); err != nil {
			continue
		}
		field, _ := obj["Field"].(string)
		if strings.TrimSpace(field) == "" {
			continue
		}
		rows = append(rows, Partial{
			Field: field,
			Value: valueToString(obj["Value"]),
		})
	}
	return rows, true
}

// valueToString renders the model's Value, which may arrive as any JSON
// scalar, as text. Booleans keep the lowercase form the prompt demands.
func valueToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}
