package doctext

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFExtractor reads the text layer of a PDF page by page. Scanned PDFs
// with no text layer yield empty pages; OCR is an external concern.
type PDFExtractor struct{}

func (e *PDFExtractor) Extensions() []string { return []string{"pdf"} }

// Extract validates the PDF structure, then pulls each page's text layer.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) ([]string, error) {
	// Preflight with pdfcpu: catches truncated and encrypted files with
	// a clear error before the text-layer walk.
	pageCount, err := pdfcpu.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return nil, fmt.Errorf("invalid PDF: %w", err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	pages := make([]string, 0, pageCount)
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single malformed page degrades to empty text rather
			// than losing the rest of the document.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	return pages, nil
}

var _ Extractor = (*PDFExtractor)(nil)
