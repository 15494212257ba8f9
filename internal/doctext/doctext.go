// Package doctext converts uploaded document bytes into per-page UTF-8
// text. Extractors are registered per file extension; formats without a
// registered extractor (e.g. scanned images needing OCR) are rejected
// with ErrUnsupportedFormat so the caller can annotate the document
// instead of failing the whole batch.
package doctext

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat marks a file extension with no registered extractor.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Document is extracted text, paginated when the source format has pages.
type Document struct {
	Name  string
	Pages []string
}

// FullText joins the pages for whole-document keyword scans.
func (d *Document) FullText() string {
	return strings.Join(d.Pages, "\n")
}

// Extractor converts one document format to page texts.
type Extractor interface {
	// Extensions lists the lowercase file extensions handled, without dots.
	Extensions() []string

	// Extract returns the document's page texts.
	Extract(ctx context.Context, data []byte) ([]string, error)
}

// Registry dispatches extraction by file extension.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry creates a registry over the given extractors.
func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	for _, e := range extractors {
		for _, ext := range e.Extensions() {
			r.byExt[strings.ToLower(ext)] = e
		}
	}
	return r
}

// DefaultRegistry covers the formats the service accepts out of the box.
func DefaultRegistry() *Registry {
	return NewRegistry(&PDFExtractor{}, &TextExtractor{}, &SpreadsheetExtractor{})
}

// Extensions returns the registered extensions.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	return exts
}

// Extract converts a named document's bytes to text, dispatching on the
// name's extension.
func (r *Registry) Extract(ctx context.Context, name string, data []byte) (*Document, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	pages, err := e.Extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("extraction failed for %s: %w", name, err)
	}

	return &Document{Name: name, Pages: pages}, nil
}
