// Package chunker splits documents into bounded, overlapping chunks suitable
// for embedding and prompt inclusion.
package chunker

import (
	"errors"
	"fmt"
	"iter"
	"maps"

	"github.com/papercomputeco/docqa/pkg/document"
)

// ErrInvalidConfig is returned by New for sizes that cannot produce chunks.
var ErrInvalidConfig = errors.New("invalid chunker config")

// DefaultSeparators prefers paragraph breaks over line breaks over spaces.
var DefaultSeparators = []string{"\n\n", "\n", " "}

// Config configures a Chunker. Size and Overlap are counted in characters
// (runes), not bytes.
type Config struct {
	Size    int
	Overlap int

	// Separators lists preferred cut points, highest priority first.
	// When empty, chunks are cut at the exact size boundary.
	Separators []string
}

// Chunker produces chunks for documents. It holds no per-document state and
// is safe for concurrent use.
type Chunker struct {
	size       int
	overlap    int
	separators [][]rune
}

// New validates c and returns a Chunker.
func New(c Config) (*Chunker, error) {
	if c.Size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidConfig, c.Size)
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidConfig, c.Size, c.Overlap)
	}

	seps := make([][]rune, 0, len(c.Separators))
	for _, s := range c.Separators {
		if s == "" {
			continue
		}
		seps = append(seps, []rune(s))
	}

	return &Chunker{
		size:       c.Size,
		overlap:    c.Overlap,
		separators: seps,
	}, nil
}

// Chunks returns a lazy sequence of the chunks of doc. The sequence may be
// ranged over any number of times and yields the same chunks each time.
//
// Consecutive chunks share exactly the configured overlap. Dropping each
// chunk's leading Overlap runes and concatenating the rest reproduces the
// document text.
func (c *Chunker) Chunks(doc document.Document) iter.Seq[document.Chunk] {
	return func(yield func(document.Chunk) bool) {
		runes := []rune(doc.Text)
		n := len(runes)
		if n == 0 {
			return
		}

		meta := doc.ChunkMetadata()
		docID := doc.ID()

		start, overlap := 0, 0
		for seq := 0; ; seq++ {
			end := start + c.size
			if end >= n {
				end = n
			} else {
				end = c.cut(runes, start, end)
			}

			chunk := document.Chunk{
				DocumentID: docID,
				Seq:        seq,
				Text:       string(runes[start:end]),
				Start:      start,
				End:        end,
				Overlap:    overlap,
				Metadata:   maps.Clone(meta),
			}
			if !yield(chunk) || end == n {
				return
			}

			start = end - c.overlap
			overlap = c.overlap
		}
	}
}

// Collect returns all chunks of doc.
func (c *Chunker) Collect(doc document.Document) []document.Chunk {
	var out []document.Chunk
	for ch := range c.Chunks(doc) {
		out = append(out, ch)
	}
	return out
}

// cut picks the end of the chunk starting at start whose hard limit is end.
// It returns the position just past the last occurrence of the first
// separator (in priority order) that ends inside (start+overlap, end]. The
// lower bound keeps the next chunk's start moving forward.
func (c *Chunker) cut(runes []rune, start, end int) int {
	floor := start + c.overlap
	for _, sep := range c.separators {
		for i := end - len(sep); i >= start; i-- {
			if i+len(sep) <= floor {
				break
			}
			if hasPrefixAt(runes, i, sep) {
				return i + len(sep)
			}
		}
	}
	return end
}

func hasPrefixAt(runes []rune, i int, sep []rune) bool {
	if i < 0 || i+len(sep) > len(runes) {
		return false
	}
	for j, r := range sep {
		if runes[i+j] != r {
			return false
		}
	}
	return true
}
