// Package chromem provides a vector.Store backed by an embedded chromem-go
// database, optionally persisted to a directory.
package chromem

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/philippgille/chromem-go"

	"github.com/papercomputeco/docqa/pkg/vector"
)

// DefaultCollectionName prefixes every collection the store writes.
const DefaultCollectionName = "docqa"

const (
	manifestID = "manifest"

	keyPosition = "position"
	keyDocID    = "document_id"
	keySeq      = "seq"
	keyStart    = "start"
	keyEnd      = "end"
	keyOverlap  = "overlap"
	keyMetadata = "metadata"
	keyVector   = "vector"
	keyEntries  = "entries"
)

// Config holds configuration for the chromem store.
type Config struct {
	// Path is the directory the database persists to. Empty keeps the
	// database in memory.
	Path string

	// Compress gzips persisted documents.
	Compress bool

	// CollectionName defaults to DefaultCollectionName.
	CollectionName string
}

// Store implements vector.Store on chromem-go. Each Save writes a new
// generation collection, finished by a manifest document, and then drops
// older generations. Load reads the newest complete generation.
type Store struct {
	db     *chromem.DB
	prefix string
	logger *slog.Logger

	mu sync.Mutex
}

var _ vector.Store = (*Store)(nil)

// NewStore opens the database described by c.
func NewStore(c Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	name := c.CollectionName
	if name == "" {
		name = DefaultCollectionName
	}

	db := chromem.NewDB()
	if c.Path != "" {
		var err error
		db, err = chromem.NewPersistentDB(c.Path, c.Compress)
		if err != nil {
			return nil, fmt.Errorf("%w: opening chromem database: %w", vector.ErrConnection, err)
		}
	}

	logger.Debug("chromem index store opened", "path", c.Path, "collection", name)

	return &Store{db: db, prefix: name + "-", logger: logger}, nil
}

// Save writes ix as a new generation and removes the previous ones.
func (s *Store) Save(ctx context.Context, ix *vector.Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	name := fmt.Sprintf("%s%020d", s.prefix, time.Now().UnixNano())
	coll, err := s.db.GetOrCreateCollection(name, map[string]string{"hnsw:space": "cosine"}, nil)
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}

	recs := vector.Records(ix)
	docs := make([]chromem.Document, 0, len(recs)+1)
	for _, r := range recs {
		doc, err := toDocument(r)
		if err != nil {
			_ = s.db.DeleteCollection(name)
			return err
		}
		docs = append(docs, doc)
	}

	if len(docs) > 0 {
		if err := coll.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			_ = s.db.DeleteCollection(name)
			return fmt.Errorf("adding entries: %w", err)
		}
	}

	// The manifest goes in last; a generation without one is incomplete.
	manifest := chromem.Document{
		ID:        manifestID,
		Metadata:  map[string]string{keyEntries: strconv.Itoa(len(recs))},
		Embedding: []float32{1},
		Content:   manifestID,
	}
	if err := coll.AddDocument(ctx, manifest); err != nil {
		_ = s.db.DeleteCollection(name)
		return fmt.Errorf("writing manifest: %w", err)
	}

	for _, old := range s.generations() {
		if old == name {
			continue
		}
		if err := s.db.DeleteCollection(old); err != nil {
			s.logger.Warn("failed to drop old index generation", "collection", old, "error", err)
		}
	}

	s.logger.Debug("saved index to chromem", "collection", name, "entries", len(recs))
	return nil
}

// Load reads the newest complete generation.
func (s *Store) Load(ctx context.Context) (*vector.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gens := s.generations()
	for i := len(gens) - 1; i >= 0; i-- {
		coll := s.db.GetCollection(gens[i], nil)
		if coll == nil {
			continue
		}

		manifest, err := coll.GetByID(ctx, manifestID)
		if err != nil {
			s.logger.Warn("skipping incomplete index generation", "collection", gens[i])
			continue
		}
		n, err := strconv.Atoi(manifest.Metadata[keyEntries])
		if err != nil {
			return nil, fmt.Errorf("%w: manifest of %s: %v", vector.ErrCorrupt, gens[i], err)
		}

		recs := make([]vector.Record, n)
		for pos := range n {
			doc, err := coll.GetByID(ctx, entryID(pos))
			if err != nil {
				return nil, fmt.Errorf("%w: entry %d of %s: %v", vector.ErrCorrupt, pos, gens[i], err)
			}
			if recs[pos], err = fromDocument(doc); err != nil {
				return nil, err
			}
		}
		return vector.FromRecords(recs)
	}

	return vector.Empty(), nil
}

// Close is a no-op; chromem persists on every write.
func (s *Store) Close() error {
	return nil
}

// generations lists this store's collections, oldest first.
func (s *Store) generations() []string {
	var names []string
	for name := range s.db.ListCollections() {
		if strings.HasPrefix(name, s.prefix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func entryID(pos int) string {
	return "entry-" + strconv.Itoa(pos)
}

func toDocument(r vector.Record) (chromem.Document, error) {
	meta, err := vector.EncodeMetadata(r.Metadata)
	if err != nil {
		return chromem.Document{}, err
	}

	// chromem renormalizes embeddings on insert, so the exact vector is kept
	// in metadata and the embedding only serves similarity search.
	embedding := slices.Clone(r.Vector)
	if !slices.ContainsFunc(embedding, func(f float32) bool { return f != 0 }) {
		embedding[0] = 1
	}

	return chromem.Document{
		ID: entryID(r.Position),
		Metadata: map[string]string{
			keyPosition: strconv.Itoa(r.Position),
			keyDocID:    r.DocumentID,
			keySeq:      strconv.Itoa(r.Seq),
			keyStart:    strconv.Itoa(r.Start),
			keyEnd:      strconv.Itoa(r.End),
			keyOverlap:  strconv.Itoa(r.Overlap),
			keyMetadata: meta,
			keyVector:   base64.StdEncoding.EncodeToString(vector.EncodeVector(r.Vector)),
		},
		Embedding: embedding,
		Content:   r.Text,
	}, nil
}

func fromDocument(doc chromem.Document) (vector.Record, error) {
	r := vector.Record{DocumentID: doc.Metadata[keyDocID], Text: doc.Content}

	ints := []struct {
		key string
		dst *int
	}{
		{keyPosition, &r.Position},
		{keySeq, &r.Seq},
		{keyStart, &r.Start},
		{keyEnd, &r.End},
		{keyOverlap, &r.Overlap},
	}
	for _, f := range ints {
		v, err := strconv.Atoi(doc.Metadata[f.key])
		if err != nil {
			return r, fmt.Errorf("%w: %s of %s: %v", vector.ErrCorrupt, f.key, doc.ID, err)
		}
		*f.dst = v
	}

	var err error
	if r.Metadata, err = vector.DecodeMetadata(doc.Metadata[keyMetadata]); err != nil {
		return r, err
	}

	blob, err := base64.StdEncoding.DecodeString(doc.Metadata[keyVector])
	if err != nil {
		return r, fmt.Errorf("%w: vector of %s: %v", vector.ErrCorrupt, doc.ID, err)
	}
	if r.Vector, err = vector.DecodeVector(blob); err != nil {
		return r, err
	}

	return r, nil
}
