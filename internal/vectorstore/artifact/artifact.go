// Package artifact persists a built vector index as a directory tree:
// a SQLite database holding chunk texts and embeddings, plus a YAML
// manifest describing how the index was built.
package artifact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite" // SQLite driver

	"syllabus-rag/internal/domain"
	"syllabus-rag/internal/vectorstore"
	"syllabus-rag/internal/vectorstore/memory"
)

const (
	IndexFile    = "index.db"
	ManifestFile = "manifest.yaml"
)

var ErrIncomplete = errors.New("artifact is incomplete")

// EmbedderInfo records which model produced the stored vectors.
type EmbedderInfo struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// Manifest describes one artifact.
type Manifest struct {
	BuildID      string       `yaml:"build_id"`
	Branch       string       `yaml:"branch"`
	Year         string       `yaml:"year"`
	Source       string       `yaml:"source,omitempty"`
	Embedder     EmbedderInfo `yaml:"embedder"`
	Dimension    int          `yaml:"dimension"`
	ChunkCount   int          `yaml:"chunk_count"`
	ChunkSize    int          `yaml:"chunk_size"`
	ChunkOverlap int          `yaml:"chunk_overlap"`
	Summary      string       `yaml:"summary,omitempty"`
	CreatedAt    time.Time    `yaml:"created_at"`
}

const schema = `CREATE TABLE chunks (
	position  INTEGER PRIMARY KEY,
	content   TEXT NOT NULL,
	embedding BLOB NOT NULL
)`

// Write stores the snapshot and manifest under dir. Dimension and ChunkCount
// in the manifest are taken from the snapshot.
func Write(ctx context.Context, dir string, snap vectorstore.Snapshotter, m Manifest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	chunks, vectors := snap.Entries()
	m.Dimension = snap.Dimension()
	m.ChunkCount = len(chunks)

	dbPath := filepath.Join(dir, IndexFile)
	if err := os.Remove(dbPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale index: %w", err)
	}
	if err := writeIndex(ctx, dbPath, chunks, vectors); err != nil {
		return err
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func writeIndex(ctx context.Context, path string, chunks []domain.Chunk, vectors [][]float32) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create index schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks(position, content, embedding) VALUES(?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, ch := range chunks {
		if _, err := stmt.ExecContext(ctx, ch.Index, ch.Text, EncodeEmbedding(vectors[i])); err != nil {
			return fmt.Errorf("insert chunk %d: %w", ch.Index, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index: %w", err)
	}
	return nil
}

// ReadManifest parses the manifest under dir.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: missing %s", ErrIncomplete, ManifestFile)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Load reads the artifact under dir into a fresh in-memory store.
func Load(ctx context.Context, dir string) (*memory.Storage, *Manifest, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, nil, err
	}
	dbPath := filepath.Join(dir, IndexFile)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, nil, fmt.Errorf("%w: missing %s", ErrIncomplete, IndexFile)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open index: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT position, content, embedding FROM chunks ORDER BY position`)
	if err != nil {
		return nil, nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	var (
		chunks  []domain.Chunk
		vectors [][]float32
	)
	for rows.Next() {
		var (
			ch   domain.Chunk
			blob []byte
		)
		if err := rows.Scan(&ch.Index, &ch.Text, &blob); err != nil {
			return nil, nil, err
		}
		vec, err := DecodeEmbedding(blob)
		if err != nil {
			return nil, nil, fmt.Errorf("chunk %d: %w", ch.Index, err)
		}
		chunks = append(chunks, ch)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(chunks) != m.ChunkCount {
		return nil, nil, fmt.Errorf("%w: manifest lists %d chunks, index holds %d", ErrIncomplete, m.ChunkCount, len(chunks))
	}

	store := memory.NewStorage()
	if err := store.Init(m.Dimension); err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}
	if err := store.Upsert(chunks, vectors); err != nil {
		return nil, nil, fmt.Errorf("load vectors: %w", err)
	}
	return store, m, nil
}
