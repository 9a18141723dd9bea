package vector

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/papercomputeco/docqa/pkg/document"
)

// Store persists a whole Index. Save replaces whatever was stored before;
// Load returns an empty index when nothing was saved. An index read back
// with Load answers every query exactly as the saved one did.
type Store interface {
	Save(ctx context.Context, ix *Index) error
	Load(ctx context.Context) (*Index, error)

	// Close releases any resources held by the store.
	Close() error
}

// Record is the flat, storable form of one index entry.
type Record struct {
	// Position is the entry's insertion order within the index.
	Position int

	DocumentID string
	Seq        int
	Start      int
	End        int
	Overlap    int
	Text       string
	Metadata   map[string]string

	// Vector is the normalized vector as held by the index.
	Vector []float32
}

// Records flattens ix for storage.
func Records(ix *Index) []Record {
	recs := make([]Record, len(ix.entries))
	for i, e := range ix.entries {
		recs[i] = Record{
			Position:   i,
			DocumentID: e.Chunk.DocumentID,
			Seq:        e.Chunk.Seq,
			Start:      e.Chunk.Start,
			End:        e.Chunk.End,
			Overlap:    e.Chunk.Overlap,
			Text:       e.Chunk.Text,
			Metadata:   e.Chunk.Metadata,
			Vector:     e.Vector,
		}
	}
	return recs
}

// FromRecords restores an index from stored records in any order.
func FromRecords(recs []Record) (*Index, error) {
	sorted := slices.Clone(recs)
	slices.SortFunc(sorted, func(a, b Record) int { return a.Position - b.Position })

	entries := make([]Entry, len(sorted))
	for i, r := range sorted {
		if r.Position != i {
			return nil, fmt.Errorf("%w: expected entry %d, found %d", ErrCorrupt, i, r.Position)
		}
		entries[i] = Entry{
			Chunk: document.Chunk{
				DocumentID: r.DocumentID,
				Seq:        r.Seq,
				Text:       r.Text,
				Start:      r.Start,
				End:        r.End,
				Overlap:    r.Overlap,
				Metadata:   r.Metadata,
			},
			Vector: r.Vector,
		}
	}

	return Restore(entries)
}

// EncodeVector converts a float32 slice to a little-endian byte slice.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector converts a little-endian byte slice back to a float32 slice.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: vector blob length %d is not divisible by 4", ErrCorrupt, len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// EncodeMetadata serializes chunk metadata as JSON.
func EncodeMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}
	return string(data), nil
}

// DecodeMetadata parses metadata written by EncodeMetadata.
func DecodeMetadata(s string) (map[string]string, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrCorrupt, err)
	}
	return m, nil
}
