// Package chroma provides a vector.Store backed by a Chroma server's REST API.
package chroma

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/docqa/pkg/vector"
)

const (
	// DefaultCollectionName is the collection holding the docqa index.
	DefaultCollectionName = "docqa"

	// DefaultMaxRetries is how many times NewStore tries to reach Chroma.
	DefaultMaxRetries = 5

	// DefaultRetryDelay is the first wait between connection attempts.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay caps the wait between connection attempts.
	DefaultMaxRetryDelay = 5 * time.Second

	// addBatchSize bounds the records sent in one add request.
	addBatchSize = 256
)

const (
	// pointerID is the record naming the live generation.
	pointerID     = "current"
	keyGeneration = "generation"
)

var errNotFound = errors.New("not found")

// Config holds configuration for the Chroma store.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName defaults to DefaultCollectionName.
	CollectionName string

	// MaxRetries, RetryDelay and MaxRetryDelay control how NewStore waits
	// for a server that is still starting. Zero values use the defaults.
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// Store implements vector.Store on Chroma. Each Save writes a new generation
// collection and then flips a pointer record in the collection named by
// CollectionName. Readers follow the pointer, so a failed or interrupted save
// leaves the previous generation live.
type Store struct {
	baseURL    string
	collection string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ vector.Store = (*Store)(nil)

// NewStore verifies the server is reachable, retrying with backoff.
func NewStore(ctx context.Context, c Config, logger *slog.Logger) (*Store, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if c.CollectionName == "" {
		c.CollectionName = DefaultCollectionName
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = DefaultMaxRetryDelay
	}

	s := &Store{
		baseURL:    strings.TrimSuffix(c.URL, "/"),
		collection: c.CollectionName,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}

	delay := c.RetryDelay
	var lastErr error
	for attempt := 1; attempt <= c.MaxRetries; attempt++ {
		lastErr = s.do(ctx, http.MethodGet, s.baseURL+"/api/v2/heartbeat", nil, nil)
		if lastErr == nil {
			logger.Info("connected to Chroma", "url", c.URL, "collection", c.CollectionName)
			return s, nil
		}

		if attempt == c.MaxRetries {
			break
		}
		logger.Warn("chroma not ready, retrying", "attempt", attempt, "delay", delay, "error", lastErr)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, c.MaxRetryDelay)
	}

	return nil, fmt.Errorf("%w: chroma at %s unreachable after %d attempts: %w",
		vector.ErrConnection, c.URL, c.MaxRetries, lastErr)
}

// Save writes ix as a new generation, points the pointer record at it and
// then drops every other generation.
func (s *Store) Save(ctx context.Context, ix *vector.Index) error {
	gen := fmt.Sprintf("%s%d", s.generationPrefix(), time.Now().UnixNano())

	var created chromaCollection
	err := s.do(ctx, http.MethodPost, s.collectionsURL(), chromaCreateRequest{
		Name:     gen,
		Metadata: map[string]any{"hnsw:space": "cosine"},
	}, &created)
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", gen, err)
	}

	if err := s.add(ctx, created.ID, vector.Records(ix)); err != nil {
		s.drop(ctx, gen)
		return err
	}

	if err := s.setCurrent(ctx, gen, ix.Len()); err != nil {
		s.drop(ctx, gen)
		return fmt.Errorf("switching to generation %s: %w", gen, err)
	}

	s.dropGenerationsExcept(ctx, gen)

	s.logger.Debug("saved index to chroma", "collection", s.collection, "generation", gen, "entries", ix.Len())
	return nil
}

// Load reads the generation the pointer record names. No pointer is an empty
// index.
func (s *Store) Load(ctx context.Context) (*vector.Index, error) {
	// A save can drop the generation between reading the pointer and reading
	// the records; the second pass sees the new pointer.
	for range 2 {
		gen, err := s.current(ctx)
		if err != nil {
			return nil, err
		}
		if gen == "" {
			return vector.Empty(), nil
		}

		ix, err := s.loadGeneration(ctx, gen)
		if errors.Is(err, errNotFound) {
			continue
		}
		return ix, err
	}
	return nil, fmt.Errorf("%w: collection %s points at a missing generation", vector.ErrCorrupt, s.collection)
}

func (s *Store) loadGeneration(ctx context.Context, gen string) (*vector.Index, error) {
	var coll chromaCollection
	if err := s.do(ctx, http.MethodGet, s.collectionsURL()+"/"+gen, nil, &coll); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("getting collection %s: %w", gen, err)
	}

	var resp chromaGetResponse
	err := s.do(ctx, http.MethodPost, s.collectionsURL()+"/"+coll.ID+"/get", chromaGetRequest{
		Include: []string{"documents", "metadatas"},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	if len(resp.Documents) != len(resp.IDs) || len(resp.Metadatas) != len(resp.IDs) {
		return nil, fmt.Errorf("%w: chroma returned %d ids, %d documents, %d metadatas",
			vector.ErrCorrupt, len(resp.IDs), len(resp.Documents), len(resp.Metadatas))
	}

	recs := make([]vector.Record, len(resp.IDs))
	for i := range resp.IDs {
		if recs[i], err = fromRecord(resp.IDs[i], resp.Documents[i], resp.Metadatas[i]); err != nil {
			return nil, err
		}
	}

	return vector.FromRecords(recs)
}

// current returns the generation the pointer record names, or "" when
// nothing was saved yet.
func (s *Store) current(ctx context.Context) (string, error) {
	var coll chromaCollection
	err := s.do(ctx, http.MethodGet, s.collectionsURL()+"/"+s.collection, nil, &coll)
	if errors.Is(err, errNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting collection %s: %w", s.collection, err)
	}

	var resp chromaGetResponse
	err = s.do(ctx, http.MethodPost, s.collectionsURL()+"/"+coll.ID+"/get", chromaGetRequest{
		IDs:     []string{pointerID},
		Include: []string{"metadatas"},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("reading pointer: %w", err)
	}
	if len(resp.IDs) == 0 {
		return "", nil
	}
	if len(resp.Metadatas) == 0 || resp.Metadatas[0][keyGeneration] == "" {
		return "", fmt.Errorf("%w: pointer record in %s has no generation", vector.ErrCorrupt, s.collection)
	}
	return resp.Metadatas[0][keyGeneration], nil
}

// setCurrent points the pointer record at gen with a single upsert.
func (s *Store) setCurrent(ctx context.Context, gen string, entries int) error {
	var coll chromaCollection
	err := s.do(ctx, http.MethodPost, s.collectionsURL(), chromaCreateRequest{
		Name:        s.collection,
		GetOrCreate: true,
	}, &coll)
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", s.collection, err)
	}

	return s.do(ctx, http.MethodPost, s.collectionsURL()+"/"+coll.ID+"/upsert", chromaAddRequest{
		IDs:        []string{pointerID},
		Embeddings: [][]float32{{0}},
		Metadatas:  []map[string]string{{keyGeneration: gen, "entries": strconv.Itoa(entries)}},
		Documents:  []string{pointerID},
	}, nil)
}

// dropGenerationsExcept removes every generation but keep, including ones
// left behind by an interrupted save. Failures are only logged.
func (s *Store) dropGenerationsExcept(ctx context.Context, keep string) {
	var colls []chromaCollection
	if err := s.do(ctx, http.MethodGet, s.collectionsURL(), nil, &colls); err != nil {
		s.logger.Warn("failed to list chroma collections", "error", err)
		return
	}
	for _, c := range colls {
		if c.Name != keep && strings.HasPrefix(c.Name, s.generationPrefix()) {
			s.drop(ctx, c.Name)
		}
	}
}

func (s *Store) generationPrefix() string {
	return s.collection + "-gen-"
}

// Close releases resources held by the store.
func (s *Store) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

func (s *Store) add(ctx context.Context, collectionID string, recs []vector.Record) error {
	for start := 0; start < len(recs); start += addBatchSize {
		batch := recs[start:min(start+addBatchSize, len(recs))]

		req := chromaAddRequest{
			IDs:        make([]string, len(batch)),
			Embeddings: make([][]float32, len(batch)),
			Metadatas:  make([]map[string]string, len(batch)),
			Documents:  make([]string, len(batch)),
		}
		for i, r := range batch {
			meta, err := toMetadata(r)
			if err != nil {
				return err
			}
			req.IDs[i] = strconv.Itoa(r.Position)
			req.Embeddings[i] = r.Vector
			req.Metadatas[i] = meta
			req.Documents[i] = r.Text
		}

		if err := s.do(ctx, http.MethodPost, s.collectionsURL()+"/"+collectionID+"/add", req, nil); err != nil {
			return fmt.Errorf("adding records %d-%d: %w", start, start+len(batch)-1, err)
		}
	}
	return nil
}

func (s *Store) drop(ctx context.Context, name string) {
	if err := s.do(ctx, http.MethodDelete, s.collectionsURL()+"/"+name, nil, nil); err != nil {
		s.logger.Warn("failed to drop index generation", "collection", name, "error", err)
	}
}

func (s *Store) collectionsURL() string {
	return s.baseURL + "/api/v2/tenants/default_tenant/databases/default_database/collections"
}

// do sends body as JSON and decodes a JSON response into out when non-nil.
func (s *Store) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func toMetadata(r vector.Record) (map[string]string, error) {
	meta, err := vector.EncodeMetadata(r.Metadata)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"document_id": r.DocumentID,
		"seq":         strconv.Itoa(r.Seq),
		"start":       strconv.Itoa(r.Start),
		"end":         strconv.Itoa(r.End),
		"overlap":     strconv.Itoa(r.Overlap),
		"metadata":    meta,
		// Chroma may renormalize embeddings, so the exact vector rides along.
		"vector": base64.StdEncoding.EncodeToString(vector.EncodeVector(r.Vector)),
	}, nil
}

func fromRecord(id, text string, meta map[string]string) (vector.Record, error) {
	r := vector.Record{DocumentID: meta["document_id"], Text: text}

	fields := []struct {
		val string
		dst *int
	}{
		{id, &r.Position},
		{meta["seq"], &r.Seq},
		{meta["start"], &r.Start},
		{meta["end"], &r.End},
		{meta["overlap"], &r.Overlap},
	}
	for _, f := range fields {
		v, err := strconv.Atoi(f.val)
		if err != nil {
			return r, fmt.Errorf("%w: record %s: %v", vector.ErrCorrupt, id, err)
		}
		*f.dst = v
	}

	var err error
	if r.Metadata, err = vector.DecodeMetadata(meta["metadata"]); err != nil {
		return r, err
	}
	blob, err := base64.StdEncoding.DecodeString(meta["vector"])
	if err != nil {
		return r, fmt.Errorf("%w: vector of record %s: %v", vector.ErrCorrupt, id, err)
	}
	if r.Vector, err = vector.DecodeVector(blob); err != nil {
		return r, err
	}
	return r, nil
}
