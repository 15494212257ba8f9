// Package tokens provides token counting and budget-aware text trimming
// using the cl100k_base vocabulary shared by all prompt-budgeting code.
package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultBudget is the input-token budget for document text embedded in
// an extraction prompt.
const DefaultBudget = 6000

// Codec encodes text to tokens and back. All components that budget
// tokens share one Codec so counts agree across trimmer and client.
type Codec interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Tiktoken is a Codec backed by the cl100k_base BPE encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewCL100K loads the cl100k_base encoding. Failure here is fatal for
// the process: nothing downstream can budget tokens without it.
func NewCL100K() (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load cl100k_base encoding: %w", err)
	}
	return &Tiktoken{enc: enc}, nil
}

func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *Tiktoken) Decode(toks []int) string {
	return t.enc.Decode(toks)
}

// Count returns the number of tokens in text under c.
func Count(c Codec, text string) int {
	return len(c.Encode(text))
}

// Trim truncates text so that re-encoding the result yields at most
// maxTokens tokens. The result is a decode of a prefix of the original
// token stream, so apart from token-boundary artifacts it is a prefix
// of text. maxTokens <= 0 yields the empty string.
func Trim(c Codec, text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	toks := c.Encode(text)
	if len(toks) <= maxTokens {
		return text
	}
	return c.Decode(toks[:maxTokens])
}

var _ Codec = (*Tiktoken)(nil)
