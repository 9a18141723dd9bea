// Package document defines the source documents docqa indexes and the chunks
// they are split into.
package document

import (
	"errors"
	"maps"
)

// ErrLoad indicates a source document could not be read or held no text.
var ErrLoad = errors.New("load error")

// Metadata keys set on every chunk.
const (
	MetaSource  = "source"
	MetaLocator = "locator"
)

// Document is a unit of raw text read from a source.
// Documents are immutable once loaded.
type Document struct {
	// Source identifies where the text came from, usually a file name.
	Source string `json:"source"`

	// Locator narrows the source down, e.g. "row 3" or "page 2".
	// Empty when the whole source is one document.
	Locator string `json:"locator,omitempty"`

	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ID returns a stable identifier for the document.
func (d Document) ID() string {
	if d.Locator == "" {
		return d.Source
	}
	return d.Source + "#" + d.Locator
}

// Chunk is a contiguous segment of a Document's text.
type Chunk struct {
	DocumentID string `json:"document_id"`

	// Seq is the 0-based position of the chunk within its document.
	Seq int `json:"seq"`

	Text string `json:"text"`

	// Start and End are rune offsets into the document text, End exclusive.
	Start int `json:"start"`
	End   int `json:"end"`

	// Overlap is the number of leading runes shared with the previous chunk.
	Overlap int `json:"overlap"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// ChunkMetadata returns the metadata every chunk of d carries: the document
// metadata plus its source and locator.
func (d Document) ChunkMetadata() map[string]string {
	meta := make(map[string]string, len(d.Metadata)+2)
	maps.Copy(meta, d.Metadata)
	meta[MetaSource] = d.Source
	if d.Locator != "" {
		meta[MetaLocator] = d.Locator
	}
	return meta
}

// Source returns the source recorded in the chunk metadata.
func (c Chunk) Source() string {
	return c.Metadata[MetaSource]
}

// Locator returns the locator recorded in the chunk metadata.
func (c Chunk) Locator() string {
	return c.Metadata[MetaLocator]
}
