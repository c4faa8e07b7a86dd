// Package telemetry records how the documentation tools are queried so that
// gaps in the index show up: popular terms, queries that found nothing and
// latency. All data stays in a local SQLite file.
package telemetry

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
)

// QueryKind is the tool a query came through.
type QueryKind string

const (
	KindSearch    QueryKind = "search"
	KindReference QueryKind = "reference"
	KindDocument  QueryKind = "document"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketUnder50ms  LatencyBucket = "<50ms"
	BucketUnder200ms LatencyBucket = "50-200ms"
	BucketUnder1s    LatencyBucket = "200ms-1s"
	BucketUnder5s    LatencyBucket = "1-5s"
	BucketOver5s     LatencyBucket = ">=5s"
)

// LatencyBuckets lists every bucket from fastest to slowest.
var LatencyBuckets = []LatencyBucket{
	BucketUnder50ms, BucketUnder200ms, BucketUnder1s, BucketUnder5s, BucketOver5s,
}

// LatencyToBucket returns the bucket d falls into. Embedding a query with
// Ollama dominates latency, hence the wide upper buckets.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch {
	case d < 50*time.Millisecond:
		return BucketUnder50ms
	case d < 200*time.Millisecond:
		return BucketUnder200ms
	case d < time.Second:
		return BucketUnder1s
	case d < 5*time.Second:
		return BucketUnder5s
	default:
		return BucketOver5s
	}
}

// QueryEvent is one answered or failed query.
type QueryEvent struct {
	Kind        QueryKind
	Query       string
	Project     string
	ResultCount int
	Latency     time.Duration
	Failed      bool
	Timestamp   time.Time
}

// IsZeroResult reports a query that succeeded but matched nothing.
func (e QueryEvent) IsZeroResult() bool {
	return !e.Failed && e.ResultCount == 0
}

// ExtractTerms lowercases query, splits it on anything that is not a letter,
// digit or underscore, and keeps terms of three or more characters.
func ExtractTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	var terms []string
	for _, f := range fields {
		if len([]rune(f)) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}

// TermCount is a term and how often it was queried.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// ZeroResult is a query that matched nothing.
type ZeroResult struct {
	Kind      QueryKind `json:"kind"`
	Query     string    `json:"query"`
	Project   string    `json:"project,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Delta is the set of counts gathered since the last flush.
type Delta struct {
	Kinds       map[QueryKind]int64
	Projects    map[string]int64
	Terms       map[string]int64
	Latencies   map[LatencyBucket]int64
	ZeroResults []ZeroResult
	Failures    int64
}

func newDelta() Delta {
	return Delta{
		Kinds:     map[QueryKind]int64{},
		Projects:  map[string]int64{},
		Terms:     map[string]int64{},
		Latencies: map[LatencyBucket]int64{},
	}
}

// Empty reports whether d holds nothing to persist.
func (d Delta) Empty() bool {
	return len(d.Kinds) == 0 && d.Failures == 0
}

// Store persists metric deltas and answers reports over them.
type Store interface {
	Apply(ctx context.Context, day string, d Delta) error
	Report(ctx context.Context, from, to string, limit int) (*Report, error)
	Close() error
}

// Options tunes a QueryMetrics collector.
type Options struct {
	// TermsCapacity bounds distinct terms held between flushes.
	TermsCapacity int
	// ZeroResultsCapacity bounds zero-result queries held between flushes.
	ZeroResultsCapacity int
	// FlushInterval is how often pending counts are written; 0 disables the
	// background flush.
	FlushInterval time.Duration
	Logger        *slog.Logger
}

// DefaultOptions returns the collector defaults.
func DefaultOptions() Options {
	return Options{
		TermsCapacity:       500,
		ZeroResultsCapacity: 100,
		FlushInterval:       time.Minute,
	}
}

// QueryMetrics aggregates query events in memory and periodically moves
// them into a Store. Safe for concurrent use.
type QueryMetrics struct {
	mu      sync.Mutex
	pending Delta
	terms   *lru.Cache[string, int64]
	zeroCap int
	total   int64

	store  Store
	logger *slog.Logger
	stopCh chan struct{}
	doneCh chan struct{}
	closed bool
}

// New creates a collector over store. A nil store keeps metrics in memory
// only.
func New(store Store, opts Options) *QueryMetrics {
	def := DefaultOptions()
	if opts.TermsCapacity <= 0 {
		opts.TermsCapacity = def.TermsCapacity
	}
	if opts.ZeroResultsCapacity <= 0 {
		opts.ZeroResultsCapacity = def.ZeroResultsCapacity
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	terms, _ := lru.New[string, int64](opts.TermsCapacity)
	m := &QueryMetrics{
		pending: newDelta(),
		terms:   terms,
		zeroCap: opts.ZeroResultsCapacity,
		store:   store,
		logger:  opts.Logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	if opts.FlushInterval > 0 && store != nil {
		go m.flushLoop(opts.FlushInterval)
	} else {
		close(m.doneCh)
	}
	return m
}

func (m *QueryMetrics) flushLoop(interval time.Duration) {
	defer close(m.doneCh)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := m.Flush(context.Background()); err != nil {
				m.logger.Warn("metrics_flush_failed", slog.String("error", err.Error()))
			}
		case <-m.stopCh:
			return
		}
	}
}

// Record adds event to the pending counts.
func (m *QueryMetrics) Record(event QueryEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.total++
	if event.Failed {
		m.pending.Failures++
		return
	}

	m.pending.Kinds[event.Kind]++
	if event.Project != "" {
		m.pending.Projects[event.Project]++
	}
	m.pending.Latencies[LatencyToBucket(event.Latency)]++

	// Document fetches are looked up by path, so their terms say little.
	if event.Kind != KindDocument {
		for _, term := range ExtractTerms(event.Query) {
			count, _ := m.terms.Get(term)
			m.terms.Add(term, count+1)
		}
	}

	if event.IsZeroResult() {
		m.pending.ZeroResults = append(m.pending.ZeroResults, ZeroResult{
			Kind:      event.Kind,
			Query:     event.Query,
			Project:   event.Project,
			Timestamp: event.Timestamp,
		})
		if over := len(m.pending.ZeroResults) - m.zeroCap; over > 0 {
			m.pending.ZeroResults = m.pending.ZeroResults[over:]
		}
	}
}

// Total returns the number of events recorded since creation.
func (m *QueryMetrics) Total() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// Pending returns a copy of the counts not yet flushed, with terms
// materialised from the LRU.
func (m *QueryMetrics) Pending() Delta {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *QueryMetrics) snapshotLocked() Delta {
	d := newDelta()
	for k, v := range m.pending.Kinds {
		d.Kinds[k] = v
	}
	for k, v := range m.pending.Projects {
		d.Projects[k] = v
	}
	for k, v := range m.pending.Latencies {
		d.Latencies[k] = v
	}
	for _, term := range m.terms.Keys() {
		if count, ok := m.terms.Peek(term); ok {
			d.Terms[term] = count
		}
	}
	d.ZeroResults = append([]ZeroResult(nil), m.pending.ZeroResults...)
	d.Failures = m.pending.Failures
	return d
}

// Flush moves pending counts into the store. On failure the counts are
// merged back so the next flush retries them.
func (m *QueryMetrics) Flush(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	d := m.snapshotLocked()
	m.pending = newDelta()
	m.terms.Purge()
	m.mu.Unlock()

	if d.Empty() {
		return nil
	}
	if err := m.store.Apply(ctx, Today(), d); err != nil {
		m.mu.Lock()
		m.mergeLocked(d)
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *QueryMetrics) mergeLocked(d Delta) {
	for k, v := range d.Kinds {
		m.pending.Kinds[k] += v
	}
	for k, v := range d.Projects {
		m.pending.Projects[k] += v
	}
	for k, v := range d.Latencies {
		m.pending.Latencies[k] += v
	}
	for term, count := range d.Terms {
		cur, _ := m.terms.Get(term)
		m.terms.Add(term, cur+count)
	}
	m.pending.ZeroResults = append(d.ZeroResults, m.pending.ZeroResults...)
	if over := len(m.pending.ZeroResults) - m.zeroCap; over > 0 {
		m.pending.ZeroResults = m.pending.ZeroResults[over:]
	}
	m.pending.Failures += d.Failures
}

// Today is the UTC date counts are filed under.
func Today() string {
	return time.Now().UTC().Format(time.DateOnly)
}

// Close stops the background flush and writes what is pending. The store
// is not closed.
func (m *QueryMetrics) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.stopCh)
	<-m.doneCh
	return m.Flush(ctx)
}

// Report is the aggregate view shown by the stats command.
type Report struct {
	From        string                  `json:"from"`
	To          string                  `json:"to"`
	Total       int64                   `json:"total_queries"`
	Failures    int64                   `json:"failed_queries"`
	ZeroCount   int64                   `json:"zero_result_count"`
	Kinds       map[QueryKind]int64     `json:"kinds"`
	Projects    map[string]int64        `json:"projects"`
	Latencies   map[LatencyBucket]int64 `json:"latency"`
	TopTerms    []TermCount             `json:"top_terms"`
	ZeroResults []ZeroResult            `json:"zero_result_queries"`
}

// ZeroResultPercentage is the share of successful queries that found
// nothing.
func (r *Report) ZeroResultPercentage() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.ZeroCount) / float64(r.Total) * 100
}

// sortTerms orders by count descending, then term.
func sortTerms(terms []TermCount) {
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})
}
