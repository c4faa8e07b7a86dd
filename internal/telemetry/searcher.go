package telemetry

import (
	"context"
	"time"

	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/search"
)

// Searcher wraps a search.Searcher and records every query it answers.
// Cancelled queries are not recorded.
type Searcher struct {
	next    search.Searcher
	metrics *QueryMetrics
}

var _ search.Searcher = (*Searcher)(nil)

// NewSearcher instruments next with metrics.
func NewSearcher(next search.Searcher, metrics *QueryMetrics) *Searcher {
	return &Searcher{next: next, metrics: metrics}
}

func (s *Searcher) record(kind QueryKind, query, project string, start time.Time, results int, err error) {
	if err != nil && amerrors.IsCancellation(err) {
		return
	}
	s.metrics.Record(QueryEvent{
		Kind:        kind,
		Query:       query,
		Project:     project,
		ResultCount: results,
		Latency:     time.Since(start),
		Failed:      err != nil && amerrors.GetCode(err) != amerrors.ErrCodeNotFound,
		Timestamp:   start,
	})
}

// Search records the query and its result count.
func (s *Searcher) Search(ctx context.Context, query string, opts search.SearchOptions) ([]search.Document, error) {
	start := time.Now()
	docs, err := s.next.Search(ctx, query, opts)
	s.record(KindSearch, query, opts.Project, start, len(docs), err)
	return docs, err
}

// GetDocument records the path; a missing document counts as zero results.
func (s *Searcher) GetDocument(ctx context.Context, path, project string) (*search.Document, error) {
	start := time.Now()
	doc, err := s.next.GetDocument(ctx, path, project)
	n := 0
	if doc != nil {
		n = 1
	}
	s.record(KindDocument, path, project, start, n, err)
	return doc, err
}

// SearchReferenceGuide records the component name.
func (s *Searcher) SearchReferenceGuide(ctx context.Context, component string, opts search.ReferenceOptions) ([]search.Document, error) {
	start := time.Now()
	docs, err := s.next.SearchReferenceGuide(ctx, component, opts)
	s.record(KindReference, component, opts.Project, start, len(docs), err)
	return docs, err
}

// ListProjects is passed through unrecorded.
func (s *Searcher) ListProjects(ctx context.Context) ([]string, error) {
	return s.next.ListProjects(ctx)
}
