package reconcile

import (
	"testing"

	"github.com/credable-eng/fieldsift/internal/extract"
)

func rec(field, value, source, page, excerpt string) extract.Record {
	return extract.Record{
		Field:          field,
		Value:          value,
		SourceDocument: source,
		PageNumber:     page,
		Excerpt:        excerpt,
		FieldPresent:   extract.Present(value),
	}
}

func TestPriorityDocumentWins(t *testing.T) {
	sanction := rec("facility_amount", "10,00,000", "SanctionLetter.pdf", "2", "amount of 10,00,000")
	appraisal := rec("facility_amount", "9,50,000", "Appraisal.pdf", "4", "amount of 9,50,000")

	// The priority document's value must win regardless of fold order.
	orders := map[string][]extract.Record{
		"priority first": {sanction, appraisal},
		"priority last":  {appraisal, sanction},
	}

	for name, records := range orders {
		t.Run(name, func(t *testing.T) {
			m := NewMap("SanctionLetter.pdf")
			m.FoldAll(records)

			result := m.Result()
			entry, ok := result["facility_amount"]
			if !ok {
				t.Fatal("facility_amount missing from result")
			}
			if entry.Value != "10,00,000" {
				t.Errorf("winner = %q, want 10,00,000", entry.Value)
			}
			if entry.SourceDocument != "SanctionLetter.pdf" {
				t.Errorf("winning source = %q", entry.SourceDocument)
			}
			if !entry.Conflicting {
				t.Error("differing values must mark the field conflicting")
			}
			if len(entry.AlternateValues) != 1 {
				t.Fatalf("expected 1 alternate, got %d", len(entry.AlternateValues))
			}
			alt := entry.AlternateValues[0]
			if alt.Value != "9,50,000" || alt.SourceDocument != "Appraisal.pdf" {
				t.Errorf("unexpected alternate %+v", alt)
			}
			// Demoted/outranked records keep their provenance intact.
			if alt.PageNumber != "4" || alt.Excerpt != "amount of 9,50,000" {
				t.Errorf("alternate lost provenance: %+v", alt)
			}
		})
	}
}

func TestIdenticalValuesAreNotConflicts(t *testing.T) {
	m := NewMap("SanctionLetter.pdf")
	m.Fold(rec("tenor", "36 months", "SanctionLetter.pdf", "1", "tenor of 36 months"))
	m.Fold(rec("tenor", "36 months", "Appraisal.pdf", "7", "a tenor of 36 months"))

	entry := m.Result()["tenor"]
	if entry.Conflicting {
		t.Error("identical repeated values must not be conflicts")
	}
	if len(entry.AlternateValues) != 0 {
		t.Errorf("identical repeats must not be recorded as alternates, got %+v", entry.AlternateValues)
	}
	// First observation's provenance is kept.
	if entry.SourceDocument != "SanctionLetter.pdf" || entry.PageNumber != "1" {
		t.Errorf("first observation should be retained, got %+v", entry)
	}
}

func TestRefoldingSameDocumentIsIdempotent(t *testing.T) {
	records := []extract.Record{
		rec("tenor", "36 months", "SanctionLetter.pdf", "1", "tenor of 36 months"),
		rec("interest_rate", "14%", "SanctionLetter.pdf", "2", "interest at 14%"),
	}

	m := NewMap("SanctionLetter.pdf")
	m.FoldAll(records)
	m.FoldAll(records)

	for field, entry := range m.Result() {
		if entry.Conflicting {
			t.Errorf("%s: refolding identical records marked conflict", field)
		}
		if len(entry.AlternateValues) != 0 {
			t.Errorf("%s: refolding identical records added alternates", field)
		}
	}
}

func TestEqualPriorityFirstSeenWins(t *testing.T) {
	m := NewMap("SomeOther.pdf")
	m.Fold(rec("tenor", "36 months", "A.pdf", "1", "x"))
	m.Fold(rec("tenor", "24 months", "B.pdf", "1", "y"))

	entry := m.Result()["tenor"]
	if entry.Value != "36 months" || entry.SourceDocument != "A.pdf" {
		t.Errorf("first-seen should win among equal priority, got %+v", entry)
	}
	if !entry.Conflicting {
		t.Error("differing equal-priority values must be conflicting")
	}
	if len(entry.AlternateValues) != 1 || entry.AlternateValues[0].Value != "24 months" {
		t.Errorf("loser must be an alternate, got %+v", entry.AlternateValues)
	}
}

func TestConflictIsMonotonic(t *testing.T) {
	m := NewMap("P.pdf")
	m.Fold(rec("tenor", "36 months", "A.pdf", "1", "x"))
	m.Fold(rec("tenor", "24 months", "B.pdf", "2", "y"))
	if !m.Result()["tenor"].Conflicting {
		t.Fatal("expected conflict")
	}

	// A later identical value must not clear the flag.
	m.Fold(rec("tenor", "36 months", "C.pdf", "3", "z"))
	if !m.Result()["tenor"].Conflicting {
		t.Error("conflicting must never revert to false")
	}
}

func TestAlternatesAccumulateInOrder(t *testing.T) {
	m := NewMap("P.pdf")
	m.Fold(rec("tenor", "36 months", "A.pdf", "1", "a"))
	m.Fold(rec("tenor", "24 months", "B.pdf", "2", "b"))
	m.Fold(rec("tenor", "18 months", "C.pdf", "3", "c"))
	m.Fold(rec("tenor", "12 months", "P.pdf", "4", "p"))

	entry := m.Result()["tenor"]
	if entry.Value != "12 months" {
		t.Fatalf("priority doc should win, got %q", entry.Value)
	}
	// B and C appended as they lost; A demoted when P took over.
	wantAlts := []string{"24 months", "18 months", "36 months"}
	if len(entry.AlternateValues) != len(wantAlts) {
		t.Fatalf("expected %d alternates, got %+v", len(wantAlts), entry.AlternateValues)
	}
	for i, want := range wantAlts {
		if entry.AlternateValues[i].Value != want {
			t.Errorf("alternate %d = %q, want %q", i, entry.AlternateValues[i].Value, want)
		}
	}
}

func TestNullOnlyField(t *testing.T) {
	m := NewMap("P.pdf")
	m.Fold(rec("borrower_cin", "Null", "A.pdf", extract.PageUnknown, extract.ExcerptNA))

	entry := m.Result()["borrower_cin"]
	if entry.FieldPresent {
		t.Error("null sentinel must yield FieldPresent=false")
	}
	if entry.Conflicting || len(entry.AlternateValues) != 0 {
		t.Errorf("sole entry must not conflict, got %+v", entry)
	}
}

func TestUnknownFieldsTolerated(t *testing.T) {
	// The reconciler accepts identifiers outside the schema; validation
	// of identifiers is the caller's concern.
	m := NewMap("P.pdf")
	m.Fold(rec("unexpected_model_field", "something", "A.pdf", "1", "x"))
	if m.Len() != 1 {
		t.Errorf("unknown identifiers should be folded, got %d entries", m.Len())
	}
}

func TestFieldsFirstSeenOrder(t *testing.T) {
	m := NewMap("P.pdf")
	m.Fold(rec("b", "1", "A.pdf", "1", "x"))
	m.Fold(rec("a", "2", "A.pdf", "1", "x"))
	m.Fold(rec("b", "3", "B.pdf", "1", "x"))

	got := m.Fields()
	want := []string{"b", "a"}
	if len(got) != len(want) {
		t.Fatalf("Fields = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Fields[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
