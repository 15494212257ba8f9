package extract

import "strings"

// Derived boolean field identifiers. These are inferred from keyword
// presence, independent of the completion model.
const (
	FieldHypothecation      = "doc_deed_of_hypothecation_applicable"
	FieldCoverLetter        = "doc_cover_letter_applicable"
	FieldPersonalGuarantee  = "doc_deed_of_personal_guarantee_applicable"
	FieldCorporateGuarantee = "doc_deed_of_corporate_guarantee_applicable"
)

// SecurityField is the schema field whose value drives the guarantee and
// cover-letter inferences.
const SecurityField = "security"

// InferBooleans computes the derived boolean fields from the full
// document text and the extracted security field's value. All tests are
// case-insensitive substring checks.
func InferBooleans(fullText, securityValue string) map[string]string {
	text := strings.ToLower(fullText)
	security := strings.ToLower(securityValue)

	return map[string]string{
		FieldHypothecation: boolString(strings.Contains(text, "hypothecation")),
		FieldCoverLetter:   boolString(strings.Contains(security, "cheque")),
		FieldPersonalGuarantee: boolString(
			strings.Contains(security, "personal guarantee") || strings.Contains(security, "pg")),
		FieldCorporateGuarantee: boolString(
			strings.Contains(security, "corporate guarantee") || strings.Contains(security, "cg")),
	}
}

// DeriveRecords wraps the inferred booleans as records ready for the
// same reconciliation fold as model-extracted fields.
func DeriveRecords(fullText, securityValue, sourceDocument string) []Record {
	inferred := InferBooleans(fullText, securityValue)

	// Fixed emission order keeps per-document record lists deterministic.
	order := []string{
		FieldHypothecation,
		FieldCoverLetter,
		FieldPersonalGuarantee,
		FieldCorporateGuarantee,
	}

	records := make([]Record, 0, len(order))
	for _, field := range order {
		records = append(records, Record{
			Field:          field,
			Value:          inferred[field],
			SourceDocument: sourceDocument,
			PageNumber:     PageAuto,
			Excerpt:        ExcerptDerived,
			FieldPresent:   true,
		})
	}
	return records
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
