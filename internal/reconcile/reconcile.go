// Package reconcile merges per-document field records into one record
// per field, applying a document priority rule and keeping an audit
// trail of alternate values.
//
// A Map lives for exactly one request. Records are folded in strictly
// the order documents were supplied (and in record order within a
// document); that order is an observable contract, since among
// equal-priority documents the first-seen differing value wins.
package reconcile

import "github.com/credable-eng/fieldsift/internal/extract"

// Alternate is a demoted or lower-priority observation retained for the
// audit trail.
type Alternate struct {
	Value          string `json:"Value"`
	SourceDocument string `json:"SourceDocument"`
	PageNumber     string `json:"PageNumber"`
	Excerpt        string `json:"Excerpt"`
}

// Entry is the reconciled state of one field: the currently winning
// observation plus every previously-winning or outranked alternate.
// Conflicting is monotonic: once true it never reverts within a request.
type Entry struct {
	Value           string      `json:"Value"`
	SourceDocument  string      `json:"SourceDocument"`
	PageNumber      string      `json:"PageNumber"`
	Excerpt         string      `json:"Excerpt"`
	FieldPresent    bool        `json:"FieldPresent"`
	AlternateValues []Alternate `json:"AlternateValues"`
	Conflicting     bool        `json:"Conflicting"`

	// priority is the winning record's rank; never serialized.
	priority int
}

// Map reconciles records for one request. Not safe for concurrent use:
// folding happens from a single goroutine per request by design.
type Map struct {
	priorityDocument string
	entries          map[string]*Entry
	order            []string
}

// NewMap creates an empty reconciliation map. Records originating from
// priorityDocument get rank 0 and win conflicts; every other document
// gets rank 1.
func NewMap(priorityDocument string) *Map {
	return &Map{
		priorityDocument: priorityDocument,
		entries:          make(map[string]*Entry),
	}
}

// rank returns the priority rank for a document name. Lower wins.
func (m *Map) rank(sourceDocument string) int {
	if sourceDocument == m.priorityDocument {
		return 0
	}
	return 1
}

// Fold merges one record into the map.
//
// Rules, in order:
//   - unseen field: the record becomes the winner, no conflict;
//   - identical value: no-op — repeats across documents are not conflicts;
//   - differing value from a strictly better rank: current winner is
//     demoted into the alternates and the record takes over;
//   - differing value otherwise: the record is appended as an alternate.
//
// Any differing value marks the field conflicting, win or lose.
func (m *Map) Fold(rec extract.Record) {
	existing, seen := m.entries[rec.Field]
	if !seen {
		m.entries[rec.Field] = &Entry{
			Value:           rec.Value,
			SourceDocument:  rec.SourceDocument,
			PageNumber:      rec.PageNumber,
			Excerpt:         rec.Excerpt,
			FieldPresent:    rec.FieldPresent,
			AlternateValues: []Alternate{},
			priority:        m.rank(rec.SourceDocument),
		}
		m.order = append(m.order, rec.Field)
		return
	}

	if rec.Value == existing.Value {
		return
	}

	newRank := m.rank(rec.SourceDocument)
	if newRank < existing.priority {
		existing.AlternateValues = append(existing.AlternateValues, Alternate{
			Value:          existing.Value,
			SourceDocument: existing.SourceDocument,
			PageNumber:     existing.PageNumber,
			Excerpt:        existing.Excerpt,
		})
		existing.Value = rec.Value
		existing.SourceDocument = rec.SourceDocument
		existing.PageNumber = rec.PageNumber
		existing.Excerpt = rec.Excerpt
		existing.FieldPresent = rec.FieldPresent
		existing.priority = newRank
	} else {
		existing.AlternateValues = append(existing.AlternateValues, Alternate{
			Value:          rec.Value,
			SourceDocument: rec.SourceDocument,
			PageNumber:     rec.PageNumber,
			Excerpt:        rec.Excerpt,
		})
	}
	existing.Conflicting = true
}

// FoldAll folds a document's records in order.
func (m *Map) FoldAll(records []extract.Record) {
	for _, rec := range records {
		m.Fold(rec)
	}
}

// Result converts the map to the final output: field identifier as the
// mapping key, internal priority rank discarded.
func (m *Map) Result() map[string]Entry {
	out := make(map[string]Entry, len(m.entries))
	for field, entry := range m.entries {
		e := *entry
		e.priority = 0
		out[field] = e
	}
	return out
}

// Fields returns the reconciled field identifiers in first-seen order.
func (m *Map) Fields() []string {
	return m.order
}

// Len returns the number of reconciled fields.
func (m *Map) Len() int {
	return len(m.entries)
}
