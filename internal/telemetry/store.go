package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// maxZeroResults bounds the retained zero-result queries.
const maxZeroResults = 200

// Daily counter families in the daily_counts table.
const (
	metricKind    = "kind"
	metricProject = "project"
	metricLatency = "latency"
	metricFailed  = "failed"
	metricZero    = "zero"
)

// SQLiteStore implements Store in its own SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open opens or creates the metrics database at path.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create metrics directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open metrics db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	schema := `
	PRAGMA journal_mode = WAL;
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS daily_counts (
		day    TEXT NOT NULL,
		metric TEXT NOT NULL,
		key    TEXT NOT NULL,
		count  INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (day, metric, key)
	);

	CREATE TABLE IF NOT EXISTS query_terms (
		term      TEXT PRIMARY KEY,
		count     INTEGER NOT NULL DEFAULT 0,
		last_seen TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);

	CREATE TABLE IF NOT EXISTS zero_result_queries (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		kind      TEXT NOT NULL,
		query     TEXT NOT NULL,
		project   TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create metrics schema: %w", err)
	}
	return nil
}

// Apply adds d to the counters for day in one transaction.
func (s *SQLiteStore) Apply(ctx context.Context, day string, d Delta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	counts, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_counts (day, metric, key, count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(day, metric, key) DO UPDATE SET count = count + excluded.count
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer counts.Close()

	add := func(metric, key string, n int64) error {
		if n == 0 {
			return nil
		}
		if _, err := counts.ExecContext(ctx, day, metric, key, n); err != nil {
			return fmt.Errorf("upsert %s count: %w", metric, err)
		}
		return nil
	}
	for kind, n := range d.Kinds {
		if err := add(metricKind, string(kind), n); err != nil {
			return err
		}
	}
	for project, n := range d.Projects {
		if err := add(metricProject, project, n); err != nil {
			return err
		}
	}
	for bucket, n := range d.Latencies {
		if err := add(metricLatency, string(bucket), n); err != nil {
			return err
		}
	}
	if err := add(metricFailed, "", d.Failures); err != nil {
		return err
	}
	if err := add(metricZero, "", int64(len(d.ZeroResults))); err != nil {
		return err
	}

	if err := upsertTerms(ctx, tx, d.Terms); err != nil {
		return err
	}
	if err := insertZeroResults(ctx, tx, d.ZeroResults); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func upsertTerms(ctx context.Context, tx *sql.Tx, terms map[string]int64) error {
	if len(terms) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO query_terms (term, count, last_seen)
		VALUES (?, ?, ?)
		ON CONFLICT(term) DO UPDATE SET
			count = count + excluded.count,
			last_seen = excluded.last_seen
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for term, n := range terms {
		if _, err := stmt.ExecContext(ctx, term, n, now); err != nil {
			return fmt.Errorf("upsert term count: %w", err)
		}
	}
	return nil
}

func insertZeroResults(ctx context.Context, tx *sql.Tx, zeros []ZeroResult) error {
	if len(zeros) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO zero_result_queries (kind, query, project, timestamp)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, z := range zeros {
		if _, err := stmt.ExecContext(ctx, string(z.Kind), z.Query, z.Project, z.Timestamp.UTC()); err != nil {
			return fmt.Errorf("insert zero-result query: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM zero_result_queries
		WHERE id NOT IN (
			SELECT id FROM zero_result_queries
			ORDER BY id DESC
			LIMIT ?
		)
	`, maxZeroResults)
	if err != nil {
		return fmt.Errorf("trim zero-result queries: %w", err)
	}
	return nil
}

// Report aggregates the days from..to inclusive (YYYY-MM-DD). Terms are
// all-time; limit bounds terms and zero-result queries.
func (s *SQLiteStore) Report(ctx context.Context, from, to string, limit int) (*Report, error) {
	if limit <= 0 {
		limit = 10
	}
	r := &Report{
		From:      from,
		To:        to,
		Kinds:     map[QueryKind]int64{},
		Projects:  map[string]int64{},
		Latencies: map[LatencyBucket]int64{},
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT metric, key, SUM(count)
		FROM daily_counts
		WHERE day >= ? AND day <= ?
		GROUP BY metric, key
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query daily counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			metric, key string
			n           int64
		)
		if err := rows.Scan(&metric, &key, &n); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		switch metric {
		case metricKind:
			r.Kinds[QueryKind(key)] = n
			r.Total += n
		case metricProject:
			r.Projects[key] = n
		case metricLatency:
			r.Latencies[LatencyBucket(key)] = n
		case metricFailed:
			r.Failures = n
		case metricZero:
			r.ZeroCount = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if r.TopTerms, err = s.topTerms(ctx, limit); err != nil {
		return nil, err
	}
	if r.ZeroResults, err = s.recentZeroResults(ctx, limit); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *SQLiteStore) topTerms(ctx context.Context, limit int) ([]TermCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT term, count
		FROM query_terms
		ORDER BY count DESC, term
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top terms: %w", err)
	}
	defer rows.Close()

	terms := []TermCount{}
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		terms = append(terms, tc)
	}
	sortTerms(terms)
	return terms, rows.Err()
}

func (s *SQLiteStore) recentZeroResults(ctx context.Context, limit int) ([]ZeroResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, query, project, timestamp
		FROM zero_result_queries
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query zero-result queries: %w", err)
	}
	defer rows.Close()

	zeros := []ZeroResult{}
	for rows.Next() {
		var (
			z    ZeroResult
			kind string
		)
		if err := rows.Scan(&kind, &z.Query, &z.Project, &z.Timestamp); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		z.Kind = QueryKind(kind)
		zeros = append(zeros, z)
	}
	return zeros, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
