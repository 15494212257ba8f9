package doctext

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// TextExtractor handles plain-text uploads. The whole file is one page.
type TextExtractor struct{}

func (e *TextExtractor) Extensions() []string { return []string{"txt", "text", "md"} }

func (e *TextExtractor) Extract(_ context.Context, data []byte) ([]string, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("file is not valid UTF-8 text")
	}
	return []string{string(data)}, nil
}

var _ Extractor = (*TextExtractor)(nil)
