package extract

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// Extractor is the text-extraction collaborator: raw document bytes in,
// raw text out. PDF parsing lives behind this interface, outside the
// analysis pipeline.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// PlainText treats the input bytes as UTF-8 text. It is the extractor
// used for .txt and .md inputs and for tests.
type PlainText struct{}

func (PlainText) Extract(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty input")
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("input is not valid UTF-8 text")
	}
	return string(data), nil
}
