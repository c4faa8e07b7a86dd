// Package async tracks index rebuilds as they happen and runs them in the
// background so the server can answer while the index is being built.
package async

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Aman-CERP/amandocs/internal/logging"
)

// State is the overall state of the most recent rebuild.
type State string

const (
	// StateIdle means no rebuild has run in this process.
	StateIdle State = "idle"
	// StateBuilding means a rebuild is in progress.
	StateBuilding State = "building"
	// StateReady means the last rebuild completed.
	StateReady State = "ready"
	// StateFailed means the last rebuild failed or was cancelled.
	StateFailed State = "failed"
)

// Stage is the current step of a running rebuild.
type Stage string

const (
	// StageSyncing covers cloning and extracting repositories.
	StageSyncing Stage = "syncing"
	// StageEmbedding covers chunking and embedding documents.
	StageEmbedding Stage = "embedding"
	// StageWriting covers backing up and replacing the store.
	StageWriting Stage = "writing"
)

// Snapshot is an immutable copy of rebuild progress.
type Snapshot struct {
	State          State    `json:"state"`
	Stage          Stage    `json:"stage,omitempty"`
	RunID          string   `json:"run_id,omitempty"`
	ProjectsTotal  int      `json:"projects_total"`
	ProjectsSynced int      `json:"projects_synced"`
	Skipped        []string `json:"skipped_projects,omitempty"`
	Documents      int      `json:"documents"`
	ElapsedSeconds int      `json:"elapsed_seconds"`
	Error          string   `json:"error,omitempty"`
}

// Tracker is a logging.Reporter that forwards every event to a base
// reporter and derives rebuild progress from the events it sees.
type Tracker struct {
	base logging.Reporter

	mu        sync.RWMutex
	state     State
	stage     Stage
	runID     string
	total     int
	synced    map[string]bool
	skipped   map[string]bool
	documents int
	started   time.Time
	finished  time.Time
	errMsg    string
}

// NewTracker returns a Tracker expecting projects repositories per rebuild.
// A nil base uses the default slog reporter.
func NewTracker(base logging.Reporter, projects int) *Tracker {
	if base == nil {
		base = logging.NewSlogReporter(nil)
	}
	return &Tracker{
		base:    base,
		state:   StateIdle,
		total:   projects,
		synced:  map[string]bool{},
		skipped: map[string]bool{},
	}
}

// Info forwards msg and records progress.
func (t *Tracker) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	t.base.Info(ctx, msg, attrs...)
	t.observe(msg, attrs)
}

// Warn forwards msg and records progress.
func (t *Tracker) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	t.base.Warn(ctx, msg, attrs...)
	t.observe(msg, attrs)
}

// Fatal marks a running rebuild as failed and forwards err.
func (t *Tracker) Fatal(ctx context.Context, err error) error {
	if err != nil {
		t.mu.Lock()
		if t.state == StateBuilding {
			t.finish(StateFailed, err.Error())
		}
		t.mu.Unlock()
	}
	return t.base.Fatal(ctx, err)
}

func (t *Tracker) observe(msg string, attrs []slog.Attr) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch msg {
	case "index_rebuild_started":
		t.state = StateBuilding
		t.stage = StageSyncing
		t.runID = attrString(attrs, "run_id")
		t.synced = map[string]bool{}
		t.skipped = map[string]bool{}
		t.documents = 0
		t.started = time.Now()
		t.finished = time.Time{}
		t.errMsg = ""
	case "repository_extracted":
		t.synced[attrString(attrs, "project")] = true
		t.documents += attrInt(attrs, "documents")
		t.advanceSync()
	case "repository_skipped":
		t.skipped[attrString(attrs, "project")] = true
		t.advanceSync()
	case "store_backed_up":
		if t.state == StateBuilding {
			t.stage = StageWriting
		}
	case "index_rebuild_completed":
		t.documents = attrInt(attrs, "documents")
		t.finish(StateReady, "")
	case "index_rebuild_cancelled":
		if t.state == StateBuilding {
			t.finish(StateFailed, "rebuild cancelled")
		}
	}
}

// advanceSync moves to embedding once every repository has reported.
func (t *Tracker) advanceSync() {
	if t.state == StateBuilding && t.stage == StageSyncing && len(t.synced)+len(t.skipped) >= t.total {
		t.stage = StageEmbedding
	}
}

func (t *Tracker) finish(state State, errMsg string) {
	t.state = state
	t.stage = ""
	t.errMsg = errMsg
	t.finished = time.Now()
}

// Building reports whether a rebuild is in progress.
func (t *Tracker) Building() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state == StateBuilding
}

// Snapshot returns the current progress.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Snapshot{
		State:          t.state,
		Stage:          t.stage,
		RunID:          t.runID,
		ProjectsTotal:  t.total,
		ProjectsSynced: len(t.synced),
		Documents:      t.documents,
		Error:          t.errMsg,
	}
	for name := range t.skipped {
		s.Skipped = append(s.Skipped, name)
	}
	sort.Strings(s.Skipped)

	switch {
	case t.started.IsZero():
	case t.finished.IsZero():
		s.ElapsedSeconds = int(time.Since(t.started).Seconds())
	default:
		s.ElapsedSeconds = int(t.finished.Sub(t.started).Seconds())
	}
	return s
}

func attrString(attrs []slog.Attr, key string) string {
	for _, a := range attrs {
		if a.Key == key {
			return a.Value.String()
		}
	}
	return ""
}

func attrInt(attrs []slog.Attr, key string) int {
	for _, a := range attrs {
		if a.Key == key && a.Value.Kind() == slog.KindInt64 {
			return int(a.Value.Int64())
		}
	}
	return 0
}
