package textproc

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DefaultMaxChunkSize bounds the length of a single chunk handed to the
// generation service.
const DefaultMaxChunkSize = 6000

// Chunk is a bounded, non-overlapping slice of the cleaned document text.
// Hash is a stable content digest, so identical text produces the same
// hash across documents and runs.
type Chunk struct {
	Index int
	Text  string
	Hash  string
}

// NewChunk builds a chunk with its content hash.
func NewChunk(index int, text string) Chunk {
	sum := sha256.Sum256([]byte(text))
	return Chunk{
		Index: index,
		Text:  text,
		Hash:  hex.EncodeToString(sum[:]),
	}
}

// Split partitions text into chunks of at most maxSize characters, cutting
// at word boundaries. Boundaries are pure cut points: concatenating the
// chunk texts in index order reconstructs the input exactly.
//
// The cut is placed after the last space inside the size window, so no
// word is ever split. When a single unbroken token is longer than maxSize
// it is passed through as one oversized chunk rather than rejected.
func Split(text string, maxSize int) []Chunk {
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}
	if text == "" {
		return nil
	}

	var chunks []Chunk
	pos := 0
	for pos < len(text) {
		remaining := len(text) - pos
		if remaining <= maxSize {
			chunks = append(chunks, NewChunk(len(chunks), text[pos:]))
			break
		}

		window := text[pos : pos+maxSize]
		cut := strings.LastIndexByte(window, ' ')
		if cut >= 0 {
			// Keep the boundary space with the left chunk.
			cut = pos + cut + 1
		} else {
			// Oversized token: extend to the token's end (or EOF).
			next := strings.IndexByte(text[pos+maxSize:], ' ')
			if next < 0 {
				cut = len(text)
			} else {
				cut = pos + maxSize + next + 1
			}
		}
		chunks = append(chunks, NewChunk(len(chunks), text[pos:cut]))
		pos = cut
	}
	return chunks
}
