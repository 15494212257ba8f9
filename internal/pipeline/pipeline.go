// Package pipeline orchestrates one extraction request: health-gate the
// completion backend, run each uploaded document through extraction,
// prompting, parsing and provenance lookup, and fold every record into a
// single reconciliation map.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/credable-eng/fieldsift/internal/doctext"
	"github.com/credable-eng/fieldsift/internal/extract"
	"github.com/credable-eng/fieldsift/internal/llm"
	"github.com/credable-eng/fieldsift/internal/prompt"
	"github.com/credable-eng/fieldsift/internal/reconcile"
	"github.com/credable-eng/fieldsift/internal/schema"
	"github.com/credable-eng/fieldsift/internal/tokens"
)

// InputDocument is one uploaded document: raw bytes plus display name.
type InputDocument struct {
	Name string
	Data []byte
}

// DocumentError annotates a document that could not contribute records.
// The rest of the batch still completes.
type DocumentError struct {
	Document string `json:"document"`
	Error    string `json:"error"`
}

// Result is the reconciled output of one request.
type Result struct {
	Fields         map[string]reconcile.Entry `json:"fields"`
	DocumentErrors []DocumentError            `json:"document_errors,omitempty"`
}

// Config wires the pipeline's collaborators. Everything is required
// except Budget and Logger.
type Config struct {
	Schema     *schema.Schema
	Codec      tokens.Codec
	LLM        llm.Client
	Documents  *doctext.Registry
	Budget     int // input-token budget for document text (default tokens.DefaultBudget)
	Logger     *slog.Logger
}

// Pipeline processes extraction requests. Stateless across requests:
// every Run builds a fresh reconciliation map.
type Pipeline struct {
	schema *schema.Schema
	codec  tokens.Codec
	llm    llm.Client
	docs   *doctext.Registry
	budget int
	logger *slog.Logger
}

// New creates a Pipeline from cfg.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Schema == nil {
		return nil, fmt.Errorf("schema is required")
	}
	if cfg.Codec == nil {
		return nil, fmt.Errorf("token codec is required")
	}
	if cfg.LLM == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if cfg.Documents == nil {
		return nil, fmt.Errorf("document registry is required")
	}
	if cfg.Budget <= 0 {
		cfg.Budget = tokens.DefaultBudget
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		schema: cfg.Schema,
		codec:  cfg.Codec,
		llm:    cfg.LLM,
		docs:   cfg.Documents,
		budget: cfg.Budget,
		logger: cfg.Logger,
	}, nil
}

// Run processes documents strictly sequentially, in the order supplied,
// and folds each document's records into the reconciliation map before
// the next document starts. That fixed fold order is an observable
// contract: among equal-priority documents the first-seen differing
// value wins.
//
// The completion backend is health-checked before any document is read;
// an unavailable backend fails the whole request. Per-document failures
// (unsupported format, unreadable file) are annotated in the result and
// do not abort the batch.
func (p *Pipeline) Run(ctx context.Context, documents []InputDocument, priorityName string) (*Result, error) {
	if len(documents) == 0 {
		return nil, fmt.Errorf("no documents provided")
	}

	requestID := uuid.New().String()
	log := p.logger.With("request_id", requestID)

	if err := p.llm.HealthCheck(ctx); err != nil {
		log.Error("completion backend health check failed", "error", err)
		return nil, err
	}

	fieldMap := reconcile.NewMap(priorityName)
	var docErrors []DocumentError

	for _, doc := range documents {
		records, err := p.processDocument(ctx, log, doc)
		if err != nil {
			if errors.Is(err, llm.ErrUnavailable) || ctx.Err() != nil {
				return nil, err
			}
			log.Warn("document skipped", "document", doc.Name, "error", err)
			docErrors = append(docErrors, DocumentError{Document: doc.Name, Error: err.Error()})
			continue
		}
		fieldMap.FoldAll(records)
		log.Info("document folded", "document", doc.Name, "records", len(records), "fields", fieldMap.Len())
	}

	return &Result{
		Fields:         fieldMap.Result(),
		DocumentErrors: docErrors,
	}, nil
}

// processDocument runs one document through the extraction chain and
// returns its records, provenance attached and derived fields included.
func (p *Pipeline) processDocument(ctx context.Context, log *slog.Logger, doc InputDocument) ([]extract.Record, error) {
	extracted, err := p.docs.Extract(ctx, doc.Name, doc.Data)
	if err != nil {
		return nil, err
	}

	fullText := extracted.FullText()
	trimmed := tokens.Trim(p.codec, fullText, p.budget)

	raw, err := p.llm.Complete(ctx, prompt.Build(p.schema, trimmed))
	if err != nil {
		return nil, err
	}

	partials := extract.Parse(raw)
	if len(partials) == 0 {
		// Malformed model output degrades to zero records, not an error.
		log.Warn("no parseable fields in completion", "document", doc.Name)
	}

	securityValue := ""
	records := make([]extract.Record, 0, len(partials)+4)
	for _, partial := range partials {
		if partial.Field == extract.SecurityField {
			securityValue = partial.Value
		}
		records = append(records, locate(partial, extracted, doc.Name))
	}

	records = append(records, extract.DeriveRecords(fullText, securityValue, doc.Name)...)
	return records, nil
}

// locate attaches provenance to a parsed row. Page number and excerpt
// are always set as a pair: real values when located, sentinels when not.
func locate(partial extract.Partial, doc *doctext.Document, sourceName string) extract.Record {
	rec := extract.Record{
		Field:          partial.Field,
		Value:          partial.Value,
		SourceDocument: sourceName,
		PageNumber:     extract.PageUnknown,
		Excerpt:        extract.ExcerptNA,
		FieldPresent:   extract.Present(partial.Value),
	}
	if page, excerpt, ok := extract.Locate(partial.Value, doc.Pages); ok {
		rec.PageNumber = strconv.Itoa(page)
		rec.Excerpt = excerpt
	}
	return rec
}
