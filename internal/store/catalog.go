// Package store persists the product catalog: canonical listing metadata
// plus embedding vectors in a single sqlite database. Nearest-neighbor
// search goes through the sqlite-vec extension when the binary was built
// with it, and falls back to a Go-side cosine scan otherwise; results are
// identical, only the speed differs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"partscout/internal/embedding"
	"partscout/internal/logging"
	"partscout/internal/types"
)

// Record is one catalog row ready for persistence: the composite product id,
// the embedded document text, its vector, and the flat metadata map.
type Record struct {
	ID        string
	Document  string
	Embedding []float32
	Metadata  map[string]string
}

// Catalog is the persistent product index. Single writer; reads are safe
// concurrently with each other.
type Catalog struct {
	db         *sql.DB
	mu         sync.RWMutex
	collection string
	hasVec     bool
	vecDims    int
}

// Open opens (or creates) the catalog database at path. The collection name
// scopes rows so multiple part categories can share one file.
func Open(path, collection string) (*Catalog, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite handles one writer; serialize at the pool level.
	db.SetMaxOpenConns(1)

	c := &Catalog{db: db, collection: collection}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	c.hasVec = c.probeVec()
	if c.hasVec {
		logging.Store("Catalog open at %s (collection=%s, ANN via sqlite-vec)", path, collection)
	} else {
		logging.Store("Catalog open at %s (collection=%s, brute-force search)", path, collection)
	}
	return c, nil
}

func (c *Catalog) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id         TEXT NOT NULL,
		collection TEXT NOT NULL,
		document   TEXT NOT NULL,
		embedding  BLOB,
		metadata   TEXT,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collection, id)
	);
	CREATE INDEX IF NOT EXISTS idx_products_collection ON products(collection);
	`
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// probeVec checks whether the vec0 module is available in this build.
func (c *Catalog) probeVec() bool {
	if _, err := c.db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS vec_probe USING vec0(embedding float[4])"); err != nil {
		return false
	}
	_, _ = c.db.Exec("DROP TABLE IF EXISTS vec_probe")
	return true
}

// ensureVecTable creates the ANN side table once the embedding dimensionality
// is known. Dimensions are fixed per vec0 table, so the first upsert pins
// them. Runs on the caller's transaction: the pool holds a single connection.
// The collection partition key keeps the KNN itself scoped, so collections
// sharing one file never steal each other's k slots.
func (c *Catalog) ensureVecTable(ctx context.Context, tx *sql.Tx, dims int) error {
	if c.vecDims == dims {
		return nil
	}
	stmt := fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS vec_products USING vec0(id TEXT PRIMARY KEY, collection TEXT partition key, embedding float[%d] distance_metric=cosine)",
		dims,
	)
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create vec table: %w", err)
	}
	c.vecDims = dims
	return nil
}

// vecKey namespaces the vec row id by collection so the same product id in
// two collections never collides.
func (c *Catalog) vecKey(id string) string {
	return c.collection + ":" + id
}

// Upsert writes records idempotently: INSERT OR REPLACE on the composite id,
// so re-ingesting a listing supersedes the prior row instead of duplicating
// it. Returns the number of rows written.
func (c *Catalog) Upsert(ctx context.Context, records []Record) (int, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Upsert")
	defer timer.Stop()

	if len(records) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO products (id, collection, document, embedding, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		metaJSON, err := json.Marshal(rec.Metadata)
		if err != nil {
			logging.Get(logging.CategoryStore).Error("Failed to marshal metadata for %s: %v", rec.ID, err)
			continue
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, c.collection, rec.Document,
			EncodeVector(rec.Embedding), string(metaJSON), time.Now()); err != nil {
			return written, fmt.Errorf("failed to upsert %s: %w", rec.ID, err)
		}
		written++
	}

	if c.hasVec {
		if err := c.upsertVecRows(ctx, tx, records); err != nil {
			// ANN side table is an accelerator; the catalog row is the
			// source of truth, so fall back rather than failing the run.
			logging.Get(logging.CategoryStore).Error("Vec upsert failed, disabling ANN path: %v", err)
			c.hasVec = false
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upsert: %w", err)
	}

	logging.Store("Upserted %d of %d records into %s", written, len(records), c.collection)
	return written, nil
}

func (c *Catalog) upsertVecRows(ctx context.Context, tx *sql.Tx, records []Record) error {
	for _, rec := range records {
		if rec.ID == "" || len(rec.Embedding) == 0 {
			continue
		}
		if err := c.ensureVecTable(ctx, tx, len(rec.Embedding)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM vec_products WHERE id = ?", c.vecKey(rec.ID)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO vec_products (id, collection, embedding) VALUES (?, ?, ?)",
			c.vecKey(rec.ID), c.collection, EncodeVector(rec.Embedding)); err != nil {
			return err
		}
	}
	return nil
}

// Search returns up to topK entries nearest to the query embedding, ascending
// by cosine distance. An empty catalog yields an empty result, not an error.
func (c *Catalog) Search(ctx context.Context, query []float32, topK int) (types.RetrievalResult, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Search")
	defer timer.Stop()

	if topK <= 0 {
		topK = 10
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.hasVec && c.vecDims == len(query) {
		result, err := c.searchVec(ctx, query, topK)
		if err == nil {
			return result, nil
		}
		logging.Get(logging.CategoryStore).Error("ANN search failed, falling back to scan: %v", err)
	}
	return c.searchScan(ctx, query, topK)
}

// searchVec runs the KNN through the vec0 virtual table, constrained to this
// catalog's partition so the k nearest are the k nearest of the collection.
func (c *Catalog) searchVec(ctx context.Context, query []float32, topK int) (types.RetrievalResult, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT p.id, v.distance, p.document, p.metadata
		FROM vec_products v
		JOIN products p ON p.collection = ? AND v.id = ? || ':' || p.id
		WHERE v.embedding MATCH ? AND v.k = ? AND v.collection = ?
		ORDER BY v.distance`,
		c.collection, c.collection, EncodeVector(query), topK, c.collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result types.RetrievalResult
	for rows.Next() {
		var entry types.IndexEntry
		var distance float64
		var metaJSON string
		if err := rows.Scan(&entry.ID, &distance, &entry.Document, &metaJSON); err != nil {
			return nil, err
		}
		entry.Metadata = decodeMetadata(metaJSON)
		result = append(result, types.Match{Entry: entry, Distance: distance})
	}
	return result, rows.Err()
}

// searchScan is the portable path: load every row in the collection and rank
// by cosine similarity in Go. Fine at the catalog sizes one operator ingests.
func (c *Catalog) searchScan(ctx context.Context, query []float32, topK int) (types.RetrievalResult, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT id, document, embedding, metadata FROM products WHERE collection = ? AND embedding IS NOT NULL",
		c.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to scan catalog: %w", err)
	}
	defer rows.Close()

	var entries []types.IndexEntry
	var corpus [][]float32
	for rows.Next() {
		var entry types.IndexEntry
		var blob []byte
		var metaJSON string
		if err := rows.Scan(&entry.ID, &entry.Document, &blob, &metaJSON); err != nil {
			return nil, err
		}
		entry.Metadata = decodeMetadata(metaJSON)
		entries = append(entries, entry)
		corpus = append(corpus, DecodeVector(blob))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	ranked, err := embedding.FindTopK(query, corpus, topK)
	if err != nil {
		return nil, fmt.Errorf("similarity ranking failed: %w", err)
	}

	result := make(types.RetrievalResult, 0, len(ranked))
	for _, r := range ranked {
		result = append(result, types.Match{
			Entry:    entries[r.Index],
			Distance: 1 - r.Similarity,
		})
	}
	return result, nil
}

// Count returns the number of products in the collection.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products WHERE collection = ?", c.collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// List returns up to limit entries, most recently updated first. Inventory
// view; no ranking involved.
func (c *Catalog) List(ctx context.Context, limit int) ([]types.IndexEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(ctx,
		"SELECT id, document, metadata FROM products WHERE collection = ? ORDER BY updated_at DESC LIMIT ?",
		c.collection, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var entries []types.IndexEntry
	for rows.Next() {
		var entry types.IndexEntry
		var metaJSON string
		if err := rows.Scan(&entry.ID, &entry.Document, &metaJSON); err != nil {
			return nil, err
		}
		entry.Metadata = decodeMetadata(metaJSON)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}

func decodeMetadata(metaJSON string) map[string]string {
	if metaJSON == "" {
		return nil
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
		logging.StoreDebug("Failed to decode metadata: %v", err)
		return nil
	}
	return meta
}
