package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/credable-eng/fieldsift/internal/doctext"
	"github.com/credable-eng/fieldsift/internal/extract"
	"github.com/credable-eng/fieldsift/internal/llm"
	"github.com/credable-eng/fieldsift/internal/schema"
)

// byteCodec counts one token per byte; plenty for pipeline tests.
type byteCodec struct{}

func (byteCodec) Encode(text string) []int {
	toks := make([]int, len(text))
	for i := range text {
		toks[i] = int(text[i])
	}
	return toks
}

func (byteCodec) Decode(toks []int) string {
	b := make([]byte, len(toks))
	for i, tk := range toks {
		b[i] = byte(tk)
	}
	return string(b)
}

// fakeLLM returns canned completions keyed by a substring of the prompt
// (the document text is embedded verbatim, so document content works as
// the key).
type fakeLLM struct {
	responses  map[string]string
	healthErr  error
	completeErr error
	calls      []string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	f.calls = append(f.calls, prompt)
	if f.completeErr != nil {
		return "", f.completeErr
	}
	for key, resp := range f.responses {
		if strings.Contains(prompt, key) {
			return resp, nil
		}
	}
	return "[]", nil
}

func (f *fakeLLM) HealthCheck(context.Context) error { return f.healthErr }

func (f *fakeLLM) Name() string { return "fake" }

func newTestPipeline(t *testing.T, client llm.Client) *Pipeline {
	t.Helper()
	s, err := schema.Default()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	p, err := New(Config{
		Schema:    s,
		Codec:     byteCodec{},
		LLM:       client,
		Documents: doctext.DefaultRegistry(),
	})
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	return p
}

func TestRunReconcilesAcrossDocuments(t *testing.T) {
	client := &fakeLLM{responses: map[string]string{
		"sanctioned amount of 10,00,000": `[{"Field":"facility_amount","Value":"10,00,000"},{"Field":"security","Value":"Post-dated cheques"}]`,
		"appraised amount of 9,50,000":   `[{"Field":"facility_amount","Value":"9,50,000"}]`,
	}}
	p := newTestPipeline(t, client)

	docs := []InputDocument{
		{Name: "Appraisal.txt", Data: []byte("appraised amount of 9,50,000")},
		{Name: "SanctionLetter.txt", Data: []byte("sanctioned amount of 10,00,000 against Post-dated cheques")},
	}

	result, err := p.Run(t.Context(), docs, "SanctionLetter.txt")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	entry, ok := result.Fields["facility_amount"]
	if !ok {
		t.Fatal("facility_amount missing")
	}
	if entry.Value != "10,00,000" {
		t.Errorf("priority document should win, got %q", entry.Value)
	}
	if !entry.Conflicting || len(entry.AlternateValues) != 1 {
		t.Errorf("expected conflict with one alternate, got %+v", entry)
	}
	if entry.AlternateValues[0].Value != "9,50,000" {
		t.Errorf("alternate = %+v", entry.AlternateValues[0])
	}

	// Derived boolean from the security value of the sanction letter.
	cover, ok := result.Fields[extract.FieldCoverLetter]
	if !ok {
		t.Fatal("derived cover letter field missing")
	}
	if cover.PageNumber != extract.PageAuto || cover.Excerpt != extract.ExcerptDerived {
		t.Errorf("derived field provenance wrong: %+v", cover)
	}
}

func TestRunProvenanceAttached(t *testing.T) {
	client := &fakeLLM{responses: map[string]string{
		"tenor of 36 months": `[{"Field":"tenor","Value":"36 months"},{"Field":"borrower_cin","Value":"Null"}]`,
	}}
	p := newTestPipeline(t, client)

	result, err := p.Run(t.Context(), []InputDocument{
		{Name: "Letter.txt", Data: []byte("facility with a tenor of 36 months granted")},
	}, "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	tenor := result.Fields["tenor"]
	if tenor.PageNumber != "1" {
		t.Errorf("tenor page = %q, want 1", tenor.PageNumber)
	}
	if !strings.HasPrefix(tenor.Excerpt, "36 months") {
		t.Errorf("tenor excerpt = %q", tenor.Excerpt)
	}
	if !tenor.FieldPresent {
		t.Error("tenor should be present")
	}

	cin := result.Fields["borrower_cin"]
	if cin.PageNumber != extract.PageUnknown || cin.Excerpt != extract.ExcerptNA {
		t.Errorf("null value must carry sentinel pair, got %+v", cin)
	}
	if cin.FieldPresent {
		t.Error("null value must not be present")
	}
}

func TestRunHealthGateRejectsBeforeProcessing(t *testing.T) {
	client := &fakeLLM{healthErr: llm.ErrUnavailable}
	p := newTestPipeline(t, client)

	_, err := p.Run(t.Context(), []InputDocument{
		{Name: "Letter.txt", Data: []byte("text")},
	}, "")
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if len(client.calls) != 0 {
		t.Error("no completion may be attempted when the health gate fails")
	}
}

func TestRunUnavailableMidBatchFailsWholeRequest(t *testing.T) {
	client := &fakeLLM{completeErr: llm.ErrUnavailable}
	p := newTestPipeline(t, client)

	_, err := p.Run(t.Context(), []InputDocument{
		{Name: "A.txt", Data: []byte("one")},
		{Name: "B.txt", Data: []byte("two")},
	}, "")
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Fatalf("expected whole-request failure, got %v", err)
	}
}

func TestRunUnsupportedDocumentAnnotated(t *testing.T) {
	client := &fakeLLM{responses: map[string]string{
		"tenor of 36 months": `[{"Field":"tenor","Value":"36 months"}]`,
	}}
	p := newTestPipeline(t, client)

	result, err := p.Run(t.Context(), []InputDocument{
		{Name: "scan.png", Data: []byte{0x89, 0x50}},
		{Name: "Letter.txt", Data: []byte("tenor of 36 months")},
	}, "")
	if err != nil {
		t.Fatalf("batch should survive one unsupported document: %v", err)
	}

	if len(result.DocumentErrors) != 1 || result.DocumentErrors[0].Document != "scan.png" {
		t.Errorf("expected scan.png annotated, got %+v", result.DocumentErrors)
	}
	if _, ok := result.Fields["tenor"]; !ok {
		t.Error("remaining document should still contribute fields")
	}
}

func TestRunMalformedCompletionDegrades(t *testing.T) {
	client := &fakeLLM{responses: map[string]string{
		"gibberish": "I am sorry, I cannot help with that.",
	}}
	p := newTestPipeline(t, client)

	result, err := p.Run(t.Context(), []InputDocument{
		{Name: "X.txt", Data: []byte("gibberish")},
	}, "")
	if err != nil {
		t.Fatalf("malformed completion must not fail the request: %v", err)
	}
	// Only the four derived booleans appear.
	if len(result.Fields) != 4 {
		t.Errorf("expected only derived fields, got %d", len(result.Fields))
	}
	if len(result.DocumentErrors) != 0 {
		t.Errorf("malformed output is not a document error, got %+v", result.DocumentErrors)
	}
}

func TestRunNoDocuments(t *testing.T) {
	p := newTestPipeline(t, &fakeLLM{})
	if _, err := p.Run(t.Context(), nil, ""); err == nil {
		t.Error("expected error for empty document set")
	}
}
