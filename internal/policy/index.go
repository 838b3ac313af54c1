package policy

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// Embedder turns text into embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Document is a passage awaiting indexing.
type Document struct {
	Content string
	Source  string
}

// SQLiteIndex stores passages with their embeddings in SQLite and ranks them
// by cosine similarity at query time.
type SQLiteIndex struct {
	db       *sql.DB
	embedder Embedder
}

// NewSQLiteIndex opens (or creates) a passage index at dbPath.
func NewSQLiteIndex(dbPath string, embedder Embedder) (*SQLiteIndex, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping index database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS passages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		source TEXT NOT NULL,
		embedding BLOB NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create index schema: %w", err)
	}

	return &SQLiteIndex{db: db, embedder: embedder}, nil
}

// Close closes the index database.
func (idx *SQLiteIndex) Close() error {
	if err := idx.db.Close(); err != nil {
		return fmt.Errorf("close index database: %w", err)
	}
	return nil
}

// Count returns the number of indexed passages.
func (idx *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := idx.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count passages: %w", err)
	}
	return n, nil
}

// Index embeds and stores the given passages.
func (idx *SQLiteIndex) Index(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}

	vectors, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed passages: %w", err)
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO passages (content, source, embedding) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare passage insert: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			slog.Warn("failed to close passage statement", "error", closeErr)
		}
	}()

	for i, d := range docs {
		if _, err := stmt.ExecContext(ctx, d.Content, d.Source, encodeVector(vectors[i])); err != nil {
			return fmt.Errorf("insert passage: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit passages: %w", err)
	}

	slog.Info("Indexed passages", "count", len(docs))
	return nil
}

// Retrieve embeds the query and returns the k most similar passages.
func (idx *SQLiteIndex) Retrieve(ctx context.Context, query string, k int) ([]Passage, error) {
	queryVec, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := idx.db.QueryContext(ctx, `SELECT content, source, embedding FROM passages`)
	if err != nil {
		return nil, fmt.Errorf("query passages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close passage rows", "error", closeErr)
		}
	}()

	var scored []Passage
	for rows.Next() {
		var p Passage
		var blob []byte
		if err := rows.Scan(&p.Content, &p.Source, &blob); err != nil {
			return nil, fmt.Errorf("scan passage row: %w", err)
		}
		p.Score = cosineSimilarity(queryVec, decodeVector(blob))
		scored = append(scored, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passage rows: %w", err)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// encodeVector serializes a float32 vector as little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
