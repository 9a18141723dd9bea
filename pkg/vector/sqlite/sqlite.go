// Package sqlite provides a vector.Store that persists the index in a SQLite
// database file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/docqa/pkg/vector"
)

// DefaultFileName is the index database created in the docqa dot directory.
const DefaultFileName = "index.db"

const schema = `
CREATE TABLE IF NOT EXISTS index_entries (
	position    INTEGER PRIMARY KEY,
	document_id TEXT    NOT NULL,
	seq         INTEGER NOT NULL,
	start_rune  INTEGER NOT NULL,
	end_rune    INTEGER NOT NULL,
	overlap     INTEGER NOT NULL,
	text        TEXT    NOT NULL,
	metadata    TEXT    NOT NULL DEFAULT '{}',
	vector      BLOB    NOT NULL
)`

// Store implements vector.Store on a SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ vector.Store = (*Store)(nil)

// Config holds configuration for the SQLite store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string
}

// NewStore opens (creating if needed) the database at c.DBPath.
func NewStore(c Config, logger *slog.Logger) (*Store, error) {
	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating schema: %w", vector.ErrConnection, err)
	}

	logger.Debug("sqlite index store opened", "db_path", c.DBPath)

	return &Store{db: db, logger: logger}, nil
}

// Save replaces every stored entry with those of ix in one transaction.
func (s *Store) Save(ctx context.Context, ix *vector.Index) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM index_entries`); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO index_entries
			(position, document_id, seq, start_rune, end_rune, overlap, text, metadata, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	recs := vector.Records(ix)
	for _, r := range recs {
		meta, err := vector.EncodeMetadata(r.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			r.Position, r.DocumentID, r.Seq, r.Start, r.End, r.Overlap, r.Text, meta,
			vector.EncodeVector(r.Vector),
		); err != nil {
			return fmt.Errorf("inserting entry %d: %w", r.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("saved index to sqlite", "entries", len(recs))
	return nil
}

// Load reads the stored entries back into an index.
func (s *Store) Load(ctx context.Context) (*vector.Index, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, document_id, seq, start_rune, end_rune, overlap, text, metadata, vector
		FROM index_entries
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var recs []vector.Record
	for rows.Next() {
		var (
			r    vector.Record
			meta string
			blob []byte
		)
		if err := rows.Scan(&r.Position, &r.DocumentID, &r.Seq, &r.Start, &r.End, &r.Overlap, &r.Text, &meta, &blob); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		if r.Metadata, err = vector.DecodeMetadata(meta); err != nil {
			return nil, err
		}
		if r.Vector, err = vector.DecodeVector(blob); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}

	return vector.FromRecords(recs)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
