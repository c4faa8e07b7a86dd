package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/amandocs/internal/document"
	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// Files inside a store directory.
const (
	dbFileName    = "collection.db"
	graphFileName = "vectors.hnsw"
)

// maxSQLVars bounds the ids bound into one IN (...) clause.
const maxSQLVars = 500

const chunkColumns = `id, parent_id, chunk_index, title, url, project, source_path,
	source_path_stem, source_url, description, is_reference`

// SQLiteCollection implements Collection with SQLite rows and an HNSW graph
// for unfiltered queries. Filtered queries scan the matching rows exactly.
type SQLiteCollection struct {
	mu     sync.RWMutex
	dir    string
	db     *sql.DB
	graph  *vectorGraph
	dims   int
	closed bool
}

// Verify interface implementation at compile time
var _ Collection = (*SQLiteCollection)(nil)

// Open opens or creates the collection stored in dir. A damaged database is
// reported as an ERR_207 store corruption error; panics from the driver are
// converted to the same. A damaged graph file is rebuilt from the rows.
func Open(ctx context.Context, dir string) (*SQLiteCollection, error) {
	var c *SQLiteCollection
	err := Guard("open", func() error {
		var err error
		c, err = open(ctx, dir)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func open(ctx context.Context, dir string) (*SQLiteCollection, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, amerrors.IOError("failed to create store directory "+dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, dbFileName))
	if err != nil {
		return nil, wrapErr("open", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	c := &SQLiteCollection{dir: dir, db: db}
	if err := c.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *SQLiteCollection) init(ctx context.Context) error {
	// modernc.org/sqlite ignores most DSN parameters, so pragmas run as statements.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := c.db.ExecContext(ctx, pragma); err != nil {
			return wrapErr("pragma", err)
		}
	}

	var check string
	if err := c.db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&check); err != nil {
		return wrapErr("integrity check", err)
	}
	if check != "ok" {
		return amerrors.StoreCorruptError("store integrity check failed: "+check, nil)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id               TEXT PRIMARY KEY,
		parent_id        TEXT NOT NULL,
		chunk_index      INTEGER NOT NULL,
		content          TEXT NOT NULL,
		title            TEXT NOT NULL,
		url              TEXT NOT NULL,
		project          TEXT NOT NULL,
		source_path      TEXT NOT NULL,
		source_path_stem TEXT NOT NULL,
		source_url       TEXT NOT NULL,
		description      TEXT NOT NULL,
		is_reference     INTEGER NOT NULL,
		embedding        BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_project ON chunks(project);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(project, source_path);
	CREATE INDEX IF NOT EXISTS idx_chunks_stem ON chunks(source_path_stem);
	CREATE INDEX IF NOT EXISTS idx_chunks_parent ON chunks(parent_id);

	CREATE TABLE IF NOT EXISTS collection_meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return wrapErr("schema", err)
	}

	var dims string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM collection_meta WHERE key = 'dimensions'`).Scan(&dims)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return wrapErr("read metadata", err)
	default:
		n, convErr := strconv.Atoi(dims)
		if convErr != nil {
			return amerrors.StoreCorruptError("invalid stored dimension "+strconv.Quote(dims), convErr)
		}
		c.dims = n
	}

	return c.loadGraph(ctx)
}

// loadGraph loads the saved graph, rebuilding it from the rows when the file
// is missing, unreadable or out of step with the table.
func (c *SQLiteCollection) loadGraph(ctx context.Context) error {
	count, err := c.count(ctx)
	if err != nil {
		return err
	}

	var g *vectorGraph
	loadErr := Guard("load graph", func() error {
		var err error
		g, err = loadVectorGraph(c.dir)
		return err
	})
	if loadErr == nil && g.len() == count {
		c.graph = g
		return nil
	}
	if loadErr != nil && !errors.Is(loadErr, os.ErrNotExist) {
		slog.Warn("vector_graph_unreadable",
			slog.String("dir", c.dir),
			slog.String("error", loadErr.Error()))
	}
	if count == 0 {
		c.graph = newVectorGraph()
		return nil
	}
	return c.rebuildGraph(ctx, count)
}

func (c *SQLiteCollection) rebuildGraph(ctx context.Context, count int) error {
	rows, err := c.db.QueryContext(ctx, `SELECT id, embedding FROM chunks ORDER BY rowid`)
	if err != nil {
		return wrapErr("rebuild graph", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0, count)
	vectors := make([][]float32, 0, count)
	for rows.Next() {
		var (
			id   string
			blob []byte
		)
		if err := rows.Scan(&id, &blob); err != nil {
			return wrapErr("rebuild graph", err)
		}
		vec, err := decodeVector(blob, c.dims)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return wrapErr("rebuild graph", err)
	}

	g := newVectorGraph()
	g.add(ids, vectors)
	c.graph = g
	if err := g.save(c.dir); err != nil {
		return amerrors.IOError("failed to save vector graph", err)
	}

	slog.Info("vector_graph_rebuilt",
		slog.String("dir", c.dir),
		slog.Int("vectors", len(ids)))
	return nil
}

// Dimensions returns the embedding dimension, or 0 for an empty collection.
func (c *SQLiteCollection) Dimensions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dims
}

// Dir returns the store directory.
func (c *SQLiteCollection) Dir() string {
	return c.dir
}

// Add inserts entries in one transaction, replacing existing ids.
func (c *SQLiteCollection) Add(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}

	dims := c.dims
	if dims == 0 {
		dims = len(entries[0].Embedding)
	}
	ids := make([]string, len(entries))
	vectors := make([][]float32, len(entries))
	for i, e := range entries {
		if e.Chunk.ID == "" {
			return amerrors.ValidationError(fmt.Sprintf("entry %d has no chunk id", i), nil)
		}
		if len(e.Embedding) == 0 || len(e.Embedding) != dims {
			return dimensionMismatch(dims, len(e.Embedding))
		}
		ids[i] = e.Chunk.ID
		vectors[i] = normalize(e.Embedding)
	}

	return Guard("add", func() error {
		if err := c.insert(ctx, entries, vectors, dims); err != nil {
			return err
		}
		c.dims = dims
		c.graph.add(ids, vectors)
		if err := c.graph.save(c.dir); err != nil {
			return amerrors.IOError("failed to save vector graph", err)
		}
		return nil
	})
}

func (c *SQLiteCollection) insert(ctx context.Context, entries []Entry, vectors [][]float32, dims int) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO chunks (`+chunkColumns+`, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return wrapErr("prepare insert", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, e := range entries {
		ch := e.Chunk
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.ParentID, ch.ChunkIndex, ch.Title, ch.URL, ch.Project, ch.SourcePath,
			ch.SourcePathStem, ch.SourceURL, ch.Description, boolToInt(ch.IsReference),
			ch.Content, encodeVector(vectors[i]),
		); err != nil {
			return wrapErr("insert", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO collection_meta (key, value) VALUES ('dimensions', ?)`,
		strconv.Itoa(dims)); err != nil {
		return wrapErr("insert", err)
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("commit", err)
	}
	return nil
}

// Query returns the n chunks nearest to vector. With an empty filter the
// HNSW graph answers; otherwise every matching row is compared exactly.
// Ties keep insertion order.
func (c *SQLiteCollection) Query(ctx context.Context, vector []float32, n int, where Where) ([]Match, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, errClosed
	}
	if n <= 0 || c.dims == 0 {
		return []Match{}, nil
	}
	if len(vector) != c.dims {
		return nil, dimensionMismatch(c.dims, len(vector))
	}
	query := normalize(vector)

	var matches []Match
	err := Guard("query", func() error {
		var err error
		if where.IsZero() {
			matches, err = c.queryGraph(ctx, query, n)
		} else {
			matches, err = c.queryScan(ctx, query, n, where)
		}
		return err
	})
	return matches, err
}

func (c *SQLiteCollection) queryGraph(ctx context.Context, query []float32, n int) ([]Match, error) {
	hits := c.graph.search(query, n)
	if len(hits) == 0 {
		return []Match{}, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	chunks, err := c.get(ctx, GetRequest{IDs: ids})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]document.Chunk, len(chunks))
	for _, ch := range chunks {
		byID[ch.ID] = ch
	}

	matches := make([]Match, 0, len(hits))
	for _, h := range hits {
		ch, ok := byID[h.ID]
		if !ok {
			continue
		}
		matches = append(matches, Match{Chunk: ch, Distance: h.Distance})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	return matches, nil
}

func (c *SQLiteCollection) queryScan(ctx context.Context, query []float32, n int, where Where) ([]Match, error) {
	cond, args := where.sql()
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+chunkColumns+`, content, embedding FROM chunks WHERE `+cond+` ORDER BY rowid`, args...)
	if err != nil {
		return nil, wrapErr("query", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []Match
	for rows.Next() {
		var (
			ch   document.Chunk
			blob []byte
		)
		if err := scanChunk(rows, &ch, &ch.Content, &blob); err != nil {
			return nil, wrapErr("query", err)
		}
		vec, err := decodeVector(blob, c.dims)
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{Chunk: ch, Distance: cosineDistance(query, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("query", err)
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if len(matches) > n {
		matches = matches[:n]
	}
	if matches == nil {
		matches = []Match{}
	}
	return matches, nil
}

// Get returns chunks selected by req in insertion order.
func (c *SQLiteCollection) Get(ctx context.Context, req GetRequest) ([]document.Chunk, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, errClosed
	}

	var chunks []document.Chunk
	err := Guard("get", func() error {
		var err error
		chunks, err = c.get(ctx, req)
		return err
	})
	return chunks, err
}

func (c *SQLiteCollection) get(ctx context.Context, req GetRequest) ([]document.Chunk, error) {
	if req.IDs != nil && len(req.IDs) == 0 {
		return []document.Chunk{}, nil
	}
	if len(req.IDs) <= maxSQLVars {
		return c.getBatch(ctx, req.IDs, req)
	}

	// Large id lists are split; the limit then applies to the combined result.
	var out []document.Chunk
	for start := 0; start < len(req.IDs); start += maxSQLVars {
		batch, err := c.getBatch(ctx, req.IDs[start:min(start+maxSQLVars, len(req.IDs))], GetRequest{
			Where:        req.Where,
			MetadataOnly: req.MetadataOnly,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

func (c *SQLiteCollection) getBatch(ctx context.Context, ids []string, req GetRequest) ([]document.Chunk, error) {
	content := "content"
	if req.MetadataOnly {
		content = "''"
	}

	var (
		conds []string
		args  []any
	)
	if len(ids) > 0 {
		conds = append(conds, "id IN ("+placeholders(len(ids))+")")
		for _, id := range ids {
			args = append(args, id)
		}
	}
	if cond, wargs := req.Where.sql(); cond != "" {
		conds = append(conds, cond)
		args = append(args, wargs...)
	}

	q := `SELECT ` + chunkColumns + `, ` + content + ` FROM chunks`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY rowid`
	if req.Limit > 0 {
		q += ` LIMIT ` + strconv.Itoa(req.Limit)
	}

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrapErr("get", err)
	}
	defer func() { _ = rows.Close() }()

	chunks := []document.Chunk{}
	for rows.Next() {
		var ch document.Chunk
		if err := scanChunk(rows, &ch, &ch.Content); err != nil {
			return nil, wrapErr("get", err)
		}
		chunks = append(chunks, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("get", err)
	}
	return chunks, nil
}

// Delete removes chunks by id. Emptying the collection also forgets its
// embedding dimension, as Reset does.
func (c *SQLiteCollection) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}

	return Guard("delete", func() error {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return wrapErr("begin", err)
		}
		defer func() { _ = tx.Rollback() }()

		for start := 0; start < len(ids); start += maxSQLVars {
			batch := ids[start:min(start+maxSQLVars, len(ids))]
			args := make([]any, len(batch))
			for i, id := range batch {
				args[i] = id
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM chunks WHERE id IN (`+placeholders(len(batch))+`)`, args...); err != nil {
				return wrapErr("delete", err)
			}
		}
		var left int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&left); err != nil {
			return wrapErr("delete", err)
		}
		if left == 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM collection_meta`); err != nil {
				return wrapErr("delete", err)
			}
		}
		if err := tx.Commit(); err != nil {
			return wrapErr("commit", err)
		}

		if left == 0 {
			// An empty collection accepts any dimension again.
			c.dims = 0
			c.graph = newVectorGraph()
		} else {
			c.graph.remove(ids)
		}
		if err := c.graph.save(c.dir); err != nil {
			return amerrors.IOError("failed to save vector graph", err)
		}
		return nil
	})
}

// Count returns the number of stored chunks.
func (c *SQLiteCollection) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return 0, errClosed
	}

	var n int
	err := Guard("count", func() error {
		var err error
		n, err = c.count(ctx)
		return err
	})
	return n, err
}

func (c *SQLiteCollection) count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, wrapErr("count", err)
	}
	return n, nil
}

// Reset drops every chunk and starts a fresh graph.
func (c *SQLiteCollection) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}

	return Guard("reset", func() error {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return wrapErr("begin", err)
		}
		defer func() { _ = tx.Rollback() }()

		for _, stmt := range []string{`DELETE FROM chunks`, `DELETE FROM collection_meta`} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return wrapErr("reset", err)
			}
		}
		if err := tx.Commit(); err != nil {
			return wrapErr("commit", err)
		}

		c.dims = 0
		c.graph = newVectorGraph()
		if err := c.graph.save(c.dir); err != nil {
			return amerrors.IOError("failed to save vector graph", err)
		}
		return nil
	})
}

// Close releases the database. Closing twice is a no-op.
func (c *SQLiteCollection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.graph = nil
	return c.db.Close()
}

var errClosed = amerrors.InternalError("store is closed", nil)

func dimensionMismatch(want, got int) error {
	return amerrors.New(amerrors.ErrCodeDimensionMismatch,
		fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", want, got), nil).
		WithSuggestion("Rebuild the index after changing the embedding model")
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanChunk reads chunkColumns followed by extra into ch.
func scanChunk(rows rowScanner, ch *document.Chunk, extra ...any) error {
	var isRef int
	dest := []any{
		&ch.ID, &ch.ParentID, &ch.ChunkIndex, &ch.Title, &ch.URL, &ch.Project, &ch.SourcePath,
		&ch.SourcePathStem, &ch.SourceURL, &ch.Description, &isRef,
	}
	if err := rows.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	ch.IsReference = isRef != 0
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// encodeVector serialises v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(blob []byte, dims int) ([]float32, error) {
	if len(blob)%4 != 0 || (dims > 0 && len(blob) != dims*4) {
		return nil, amerrors.StoreCorruptError(fmt.Sprintf("stored embedding has %d bytes, want %d", len(blob), dims*4), nil)
	}
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v, nil
}
