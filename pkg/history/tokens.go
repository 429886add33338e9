package history

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is used when the model has no known tiktoken encoding.
const DefaultEncoding = "cl100k_base"

// TokenCounter measures text in model tokens.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with a tiktoken encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter picks the encoding for model, falling back to
// cl100k_base.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(DefaultEncoding)
		if err != nil {
			return nil, fmt.Errorf("loading %s encoding: %w", DefaultEncoding, err)
		}
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count implements TokenCounter. Each turn carries a small fixed overhead
// for its role tag.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil)) + 4
}
