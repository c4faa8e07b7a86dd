// Package index owns the persistent chunk collection. It opens the store with
// a corruption health check, rebuilds it from ingested documents behind a
// backup, and hands the collection to readers under a shared lock.
package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/Aman-CERP/amandocs/internal/chunk"
	"github.com/Aman-CERP/amandocs/internal/config"
	"github.com/Aman-CERP/amandocs/internal/document"
	"github.com/Aman-CERP/amandocs/internal/embed"
	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/ingest"
	"github.com/Aman-CERP/amandocs/internal/logging"
	"github.com/Aman-CERP/amandocs/internal/store"
)

// Opener opens the collection persisted in dir.
type Opener func(ctx context.Context, dir string) (store.Collection, error)

// OpenSQLite is the default Opener.
func OpenSQLite(ctx context.Context, dir string) (store.Collection, error) {
	coll, err := store.Open(ctx, dir)
	if err != nil {
		return nil, err
	}
	return coll, nil
}

// ProjectSummary counts what one project contributed to a rebuild.
type ProjectSummary struct {
	Documents int `json:"documents"`
	Reference int `json:"reference"`
	Regular   int `json:"regular"`
	Chunks    int `json:"chunks"`
}

// Summary describes a completed rebuild.
type Summary struct {
	RunID     string                    `json:"run_id"`
	Documents int                       `json:"documents"`
	Chunks    int                       `json:"chunks"`
	Projects  map[string]ProjectSummary `json:"projects"`
	Duration  time.Duration             `json:"duration"`
	Finished  time.Time                 `json:"finished"`
}

func (s *Summary) add(doc *document.Document, chunks int) {
	p := s.Projects[doc.Project]
	p.Documents++
	if doc.IsReference {
		p.Reference++
	} else {
		p.Regular++
	}
	p.Chunks += chunks
	s.Projects[doc.Project] = p
	s.Documents++
	s.Chunks += chunks
}

// Status is a point-in-time view of the index.
type Status struct {
	Indexed     bool     `json:"indexed"`
	Chunks      int      `json:"chunks"`
	Projects    []string `json:"projects"`
	StoreDir    string   `json:"store_dir"`
	BackupDir   string   `json:"backup_dir"`
	HasBackup   bool     `json:"has_backup"`
	Embedder    string   `json:"embedder"`
	LastRebuild *Summary `json:"last_rebuild,omitempty"`
}

// Manager serializes rebuilds of the collection and shares it with readers.
type Manager struct {
	storeDir  string
	backupDir string

	source    ingest.Source
	embedder  embed.Embedder
	chunker   *chunk.Chunker
	opener    Opener
	reporter  logging.Reporter
	batchSize int
	workers   int
	fileLock  *FileLock

	// rebuildSem admits one rebuild at a time and lets waiters give up with
	// their context. mu guards coll and is held exclusively only while the
	// live collection is being replaced.
	rebuildSem *semaphore.Weighted
	mu         sync.RWMutex
	coll       store.Collection
	last       *Summary
}

// Option customises a Manager.
type Option func(*Manager)

// WithOpener replaces the SQLite opener.
func WithOpener(o Opener) Option {
	return func(m *Manager) { m.opener = o }
}

// WithReporter replaces the slog reporter.
func WithReporter(r logging.Reporter) Option {
	return func(m *Manager) { m.reporter = r }
}

// WithChunker replaces the chunker built from the search config.
func WithChunker(c *chunk.Chunker) Option {
	return func(m *Manager) { m.chunker = c }
}

// WithEmbedWorkers sets how many embedding batches run at once.
func WithEmbedWorkers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

// New opens the store under cfg.StoreDir. A store that fails its health
// check with corruption is wiped and recreated empty; cancellation and any
// other failure are returned.
func New(ctx context.Context, cfg *config.Config, source ingest.Source, embedder embed.Embedder, opts ...Option) (*Manager, error) {
	storeDir := filepath.Clean(cfg.StoreDir)
	m := &Manager{
		storeDir:  storeDir,
		backupDir: cfg.BackupDir(),
		source:    source,
		embedder:  embedder,
		chunker:   chunk.New(cfg.Search.MinChunkChars),
		opener:    OpenSQLite,
		reporter:  logging.NewSlogReporter(nil),
		batchSize: cfg.Embeddings.BatchSize,
		workers:   embed.DefaultBatchWorkers,
		fileLock:  NewFileLock(storeDir + ".lock"),

		rebuildSem: semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(m)
	}

	coll, err := m.openHealthy(ctx)
	if err != nil {
		return nil, err
	}
	m.coll = coll
	return m, nil
}

// openHealthy opens the store, wiping it once if it is corrupt.
func (m *Manager) openHealthy(ctx context.Context) (store.Collection, error) {
	coll, err := m.openChecked(ctx)
	if err == nil {
		return coll, nil
	}
	if store.Classify(err) != store.ClassCorruption {
		return nil, err
	}

	m.reporter.Warn(ctx, "store_corrupted",
		slog.String("store_dir", m.storeDir),
		slog.Any("error", amerrors.FormatForLog(err)))
	if rmErr := os.RemoveAll(m.storeDir); rmErr != nil {
		return nil, m.reporter.Fatal(ctx, amerrors.IOError("failed to remove corrupted store "+m.storeDir, rmErr))
	}

	coll, err = m.openChecked(ctx)
	if err != nil {
		return nil, err
	}
	m.reporter.Info(ctx, "store_recovered", slog.String("store_dir", m.storeDir))
	return coll, nil
}

// openChecked opens the store and reads its count.
func (m *Manager) openChecked(ctx context.Context) (store.Collection, error) {
	var coll store.Collection
	err := store.Guard("open", func() error {
		var err error
		if coll, err = m.opener(ctx, m.storeDir); err != nil {
			return err
		}
		_, err = coll.Count(ctx)
		return err
	})
	if err != nil {
		if coll != nil {
			_ = coll.Close()
		}
		return nil, err
	}
	return coll, nil
}

// StoreDir returns the live store directory.
func (m *Manager) StoreDir() string {
	return m.storeDir
}

// BackupDir returns the directory holding the pre-rebuild copy.
func (m *Manager) BackupDir() string {
	return m.backupDir
}

// IsIndexed reports whether the collection holds any chunks. Failing to
// read the count counts as not indexed.
func (m *Manager) IsIndexed(ctx context.Context) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, err := m.countLocked(ctx)
	if err != nil {
		slog.Debug("index_count_failed", slog.String("error", err.Error()))
		return false
	}
	return n > 0
}

func (m *Manager) countLocked(ctx context.Context) (int, error) {
	if m.coll == nil {
		return 0, errUnavailable()
	}
	var n int
	err := store.Guard("count", func() error {
		var err error
		n, err = m.coll.Count(ctx)
		return err
	})
	return n, err
}

// EnsureIndexed rebuilds the index if it is empty.
func (m *Manager) EnsureIndexed(ctx context.Context) error {
	if m.IsIndexed(ctx) {
		return nil
	}
	_, err := m.rebuild(ctx, true)
	return err
}

// IndexDocumentation ingests every configured repository and replaces the
// collection with the result. On a write failure the previous collection is
// restored from the backup before the error is returned.
func (m *Manager) IndexDocumentation(ctx context.Context) (*Summary, error) {
	return m.rebuild(ctx, false)
}

func (m *Manager) rebuild(ctx context.Context, onlyIfEmpty bool) (_ *Summary, err error) {
	if err := m.rebuildSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer m.rebuildSem.Release(1)

	// Another caller may have finished a rebuild while this one waited.
	if onlyIfEmpty && m.IsIndexed(ctx) {
		return m.lastSummary(), nil
	}

	if err := m.fileLock.Lock(ctx); err != nil {
		if amerrors.IsCancellation(err) {
			return nil, err
		}
		return nil, m.reporter.Fatal(ctx, amerrors.IOError("failed to lock store "+m.storeDir, err))
	}
	defer func() {
		if err := m.fileLock.Unlock(); err != nil {
			m.reporter.Warn(ctx, "store_unlock_failed", slog.String("error", err.Error()))
		}
	}()

	runID := uuid.NewString()
	start := time.Now()
	defer func() {
		if err != nil && amerrors.IsCancellation(err) {
			m.reporter.Warn(context.WithoutCancel(ctx), "index_rebuild_cancelled", slog.String("run_id", runID))
		}
	}()
	m.reporter.Info(ctx, "index_rebuild_started",
		slog.String("run_id", runID),
		slog.String("store_dir", m.storeDir),
		slog.String("embedder", m.embedder.ModelName()))

	docs, err := m.source.Documents(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, m.reporter.Fatal(ctx, amerrors.New(amerrors.ErrCodeIndexFailed,
			"no documents were ingested; the existing index was kept", nil).
			WithSuggestion("Check the repository URLs and network access, then run 'amandocs index' again"))
	}

	entries, summary, err := m.stage(ctx, docs)
	if err != nil {
		return nil, err
	}
	if err := m.replace(ctx, runID, entries); err != nil {
		return nil, err
	}

	summary.RunID = runID
	summary.Finished = time.Now()
	summary.Duration = summary.Finished.Sub(start)
	m.logSummary(ctx, summary)

	m.mu.Lock()
	m.last = summary
	m.mu.Unlock()
	return summary, nil
}

// stage chunks and embeds docs without touching the store.
func (m *Manager) stage(ctx context.Context, docs []*document.Document) ([]store.Entry, *Summary, error) {
	summary := &Summary{Projects: make(map[string]ProjectSummary)}
	var chunks []document.Chunk
	for _, doc := range docs {
		if err := doc.Validate(); err != nil {
			return nil, nil, m.reporter.Fatal(ctx, amerrors.ValidationError(err.Error(), err))
		}
		cs := m.chunker.Chunk(doc)
		chunks = append(chunks, cs...)
		summary.add(doc, len(cs))
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	vectors, err := embed.EmbedAll(ctx, m.embedder, texts, m.batchSize, m.workers)
	if err != nil {
		if amerrors.IsCancellation(err) {
			return nil, nil, err
		}
		return nil, nil, m.reporter.Fatal(ctx, amerrors.New(amerrors.ErrCodeEmbeddingFailed, "failed to embed chunks", err))
	}

	entries := make([]store.Entry, len(chunks))
	for i := range chunks {
		entries[i] = store.Entry{Chunk: chunks[i], Embedding: vectors[i]}
	}
	return entries, summary, nil
}

// replace backs up the live collection, clears it and adds entries, with
// readers excluded throughout.
func (m *Manager) replace(ctx context.Context, runID string, entries []store.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.backupLocked(ctx); err != nil {
		if amerrors.IsCancellation(err) {
			return err
		}
		return m.reporter.Fatal(ctx, err)
	}

	err := store.Guard("rebuild", func() error {
		if err := m.clearLocked(ctx); err != nil {
			return err
		}
		return m.coll.Add(ctx, entries)
	})
	if err == nil {
		return nil
	}

	m.reporter.Warn(ctx, "index_write_failed",
		slog.String("run_id", runID),
		slog.Any("error", amerrors.FormatForLog(err)))
	if restoreErr := m.restoreLocked(context.WithoutCancel(ctx)); restoreErr != nil {
		return m.reporter.Fatal(ctx, amerrors.New(amerrors.ErrCodeBackupFailed,
			"index rebuild failed and the backup could not be restored", restoreErr).
			WithDetail("write_error", err.Error()).
			WithSuggestion("Run 'amandocs index' to rebuild from scratch"))
	}
	m.reporter.Info(ctx, "index_restored", slog.String("run_id", runID), slog.String("backup_dir", m.backupDir))

	if amerrors.IsCancellation(err) {
		return err
	}
	return m.reporter.Fatal(ctx, amerrors.New(amerrors.ErrCodeIndexFailed,
		"index rebuild failed; the previous index was restored", err))
}

// backupLocked copies the store directory to the backup directory. The
// collection is closed for the copy and reopened afterwards.
func (m *Manager) backupLocked(ctx context.Context) error {
	if m.coll != nil {
		if err := m.coll.Close(); err != nil {
			m.reporter.Warn(ctx, "store_close_failed", slog.String("error", err.Error()))
		}
		m.coll = nil
	}

	var copyErr error
	if _, err := os.Stat(m.storeDir); err == nil {
		copyErr = replaceDir(m.storeDir, m.backupDir)
	}

	coll, err := m.openHealthy(ctx)
	if err != nil {
		return err
	}
	m.coll = coll

	if copyErr != nil {
		return amerrors.New(amerrors.ErrCodeBackupFailed, "failed to back up store to "+m.backupDir, copyErr)
	}
	m.reporter.Info(ctx, "store_backed_up", slog.String("backup_dir", m.backupDir))
	return nil
}

// clearLocked deletes every chunk, recreating the collection when deletion
// fails.
func (m *Manager) clearLocked(ctx context.Context) error {
	existing, err := m.coll.Get(ctx, store.GetRequest{MetadataOnly: true})
	if err == nil {
		ids := make([]string, len(existing))
		for i := range existing {
			ids[i] = existing[i].ID
		}
		if err = m.coll.Delete(ctx, ids); err == nil {
			return nil
		}
	}
	if amerrors.IsCancellation(err) {
		return err
	}

	m.reporter.Warn(ctx, "store_delete_failed", slog.String("error", err.Error()))
	return m.coll.Reset(ctx)
}

// restoreLocked replaces the store directory with the backup and reopens it.
func (m *Manager) restoreLocked(ctx context.Context) error {
	if m.coll != nil {
		_ = m.coll.Close()
		m.coll = nil
	}
	if _, err := os.Stat(m.backupDir); err != nil {
		return amerrors.IOError("no backup at "+m.backupDir, err)
	}
	if err := replaceDir(m.backupDir, m.storeDir); err != nil {
		return amerrors.IOError("failed to copy backup into "+m.storeDir, err)
	}

	coll, err := m.openChecked(ctx)
	if err != nil {
		return err
	}
	m.coll = coll
	return nil
}

func (m *Manager) logSummary(ctx context.Context, s *Summary) {
	projects := make([]string, 0, len(s.Projects))
	for name := range s.Projects {
		projects = append(projects, name)
	}
	sort.Strings(projects)

	for _, name := range projects {
		p := s.Projects[name]
		m.reporter.Info(ctx, "index_summary",
			slog.String("run_id", s.RunID),
			slog.String("project", name),
			slog.Int("documents", p.Documents),
			slog.Int("reference", p.Reference),
			slog.Int("regular", p.Regular),
			slog.Int("chunks", p.Chunks))
	}
	m.reporter.Info(ctx, "index_rebuild_completed",
		slog.String("run_id", s.RunID),
		slog.Int("projects", len(projects)),
		slog.Int("documents", s.Documents),
		slog.Int("chunks", s.Chunks),
		slog.Duration("duration", s.Duration))
}

func (m *Manager) lastSummary() *Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// View runs fn with the collection while holding the shared lock, so fn
// never observes a rebuild half way through.
func (m *Manager) View(ctx context.Context, fn func(store.Collection) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.coll == nil {
		return errUnavailable()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return store.Guard("read", func() error { return fn(m.coll) })
}

// Status reports the current index state.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	st := &Status{
		StoreDir:  m.storeDir,
		BackupDir: m.backupDir,
		Embedder:  m.embedder.ModelName(),
		Projects:  []string{},
	}
	if _, err := os.Stat(m.backupDir); err == nil {
		st.HasBackup = true
	}

	err := m.View(ctx, func(coll store.Collection) error {
		n, err := coll.Count(ctx)
		if err != nil {
			return err
		}
		st.Chunks = n
		st.Indexed = n > 0
		st.Projects, err = Projects(ctx, coll)
		return err
	})
	if err != nil {
		return nil, err
	}
	st.LastRebuild = m.lastSummary()
	return st, nil
}

// Projects returns the distinct sorted project names stored in coll.
func Projects(ctx context.Context, coll store.Collection) ([]string, error) {
	chunks, err := coll.Get(ctx, store.GetRequest{MetadataOnly: true})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	projects := []string{}
	for i := range chunks {
		name := chunks[i].Project
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		projects = append(projects, name)
	}
	sort.Strings(projects)
	return projects, nil
}

// Close closes the collection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.coll == nil {
		return nil
	}
	err := m.coll.Close()
	m.coll = nil
	return err
}

func errUnavailable() error {
	return amerrors.New(amerrors.ErrCodeIndexFailed, "index store is not open", nil).
		WithSuggestion("Run 'amandocs index' to rebuild the index")
}
