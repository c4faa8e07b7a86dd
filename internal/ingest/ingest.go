// Package ingest clones the configured documentation repositories and turns
// their files into documents.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/amandocs/internal/config"
	"github.com/Aman-CERP/amandocs/internal/doctext"
	"github.com/Aman-CERP/amandocs/internal/document"
	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/gitrepo"
	"github.com/Aman-CERP/amandocs/internal/glob"
	"github.com/Aman-CERP/amandocs/internal/logging"
	"github.com/Aman-CERP/amandocs/internal/notebook"
	"github.com/Aman-CERP/amandocs/internal/scanner"
)

// Source ingests documents from one batch of repositories.
type Source interface {
	Documents(ctx context.Context) ([]*document.Document, error)
}

// Ingester reads every configured repository.
type Ingester struct {
	repos           map[string]config.RepositoryConfig
	reposDir        string
	indexPatterns   glob.Set
	excludePatterns glob.Set
	maxFileSize     int64
	workers         int

	cloner    gitrepo.Cloner
	converter notebook.Converter
	scanner   *scanner.Scanner
	reporter  logging.Reporter
}

// Option customises an Ingester.
type Option func(*Ingester)

// WithCloner replaces the git CLI cloner.
func WithCloner(c gitrepo.Cloner) Option {
	return func(in *Ingester) { in.cloner = c }
}

// WithConverter replaces the notebook converter.
func WithConverter(c notebook.Converter) Option {
	return func(in *Ingester) { in.converter = c }
}

// WithReporter sets where progress and skipped repositories are reported.
func WithReporter(r logging.Reporter) Option {
	return func(in *Ingester) { in.reporter = r }
}

// New creates an Ingester from the docs and ingest sections of cfg.
func New(cfg *config.Config, opts ...Option) (*Ingester, error) {
	include, err := glob.CompileAll(cfg.Docs.IndexPatterns)
	if err != nil {
		return nil, amerrors.ConfigError("invalid docs.index_patterns", err)
	}
	exclude, err := glob.CompileAll(cfg.Docs.ExcludePatterns)
	if err != nil {
		return nil, amerrors.ConfigError("invalid docs.exclude_patterns", err)
	}

	in := &Ingester{
		repos:           cfg.Docs.Repositories,
		reposDir:        cfg.ReposDir,
		indexPatterns:   include,
		excludePatterns: exclude,
		maxFileSize:     cfg.Docs.MaxFileSize,
		workers:         cfg.Ingest.Workers,
		cloner:          gitrepo.NewGitCLI(),
		converter:       notebook.NewMarkdownConverter(),
		scanner:         scanner.New(),
		reporter:        logging.NewSlogReporter(nil),
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.workers <= 0 {
		in.workers = 1
	}
	return in, nil
}

// Documents clones or updates every repository and extracts its documents.
// A repository that fails to clone or scan is reported and skipped. The
// combined batch must have unique ids; a collision fails the whole batch
// with an *errors.DuplicateIDError.
func (in *Ingester) Documents(ctx context.Context) ([]*document.Document, error) {
	names := make([]string, 0, len(in.repos))
	for name := range in.repos {
		names = append(names, name)
	}
	sort.Strings(names)

	perRepo := make([][]*document.Document, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.workers)
	for i, name := range names {
		g.Go(func() error {
			docs, err := in.Repository(gctx, name)
			if err != nil {
				if amerrors.IsCancellation(err) {
					return err
				}
				in.reporter.Warn(gctx, "repository_skipped",
					slog.String("project", name),
					slog.String("error", err.Error()))
				return nil
			}
			perRepo[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []*document.Document
	for _, docs := range perRepo {
		all = append(all, docs...)
	}
	if err := ValidateUniqueIDs(all); err != nil {
		return nil, in.reporter.Fatal(ctx, err)
	}
	return all, nil
}

// Repository clones or updates one project and extracts its documents.
func (in *Ingester) Repository(ctx context.Context, name string) ([]*document.Document, error) {
	repo, ok := in.repos[name]
	if !ok {
		return nil, amerrors.NotFoundError(fmt.Sprintf("repository %q is not configured", name))
	}

	dest := filepath.Join(in.reposDir, name)
	in.reporter.Info(ctx, "repository_sync_started",
		slog.String("project", name),
		slog.String("url", repo.URL),
		slog.String("path", dest))

	ref := gitrepo.Ref{Branch: repo.Branch, Tag: repo.Tag, Commit: repo.Commit}
	local, err := in.cloner.CloneOrUpdate(ctx, repo.URL, ref, dest)
	if err != nil {
		return nil, err
	}
	return in.Extract(ctx, name, repo, local)
}

// Extract walks the configured folders of a local checkout.
func (in *Ingester) Extract(ctx context.Context, name string, repo config.RepositoryConfig, repoPath string) ([]*document.Document, error) {
	transform, err := repo.Transform()
	if err != nil {
		return nil, amerrors.ConfigError("invalid url_transform", err)
	}
	refPatterns, err := glob.CompileAll(repo.ReferencePatterns)
	if err != nil {
		return nil, amerrors.ConfigError("invalid reference_patterns", err)
	}

	folders := repo.EffectiveFolders()
	names := make([]string, 0, len(folders))
	for _, f := range folders {
		names = append(names, f.Name)
	}

	files, err := in.scanner.Collect(ctx, &scanner.ScanOptions{
		RootDir:         repoPath,
		Folders:         names,
		IncludePatterns: in.indexPatterns,
		ExcludePatterns: in.excludePatterns,
		MaxFileSize:     in.maxFileSize,
	})
	if err != nil {
		return nil, err
	}

	p := &fileProcessor{
		project:     name,
		repo:        repo,
		ref:         gitrepo.Ref{Branch: repo.Branch, Tag: repo.Tag, Commit: repo.Commit},
		transform:   transform,
		refPatterns: refPatterns,
		converter:   in.converter,
	}

	var docs []*document.Document
	reference := 0
	for _, f := range files {
		doc, err := p.process(ctx, f)
		if err != nil {
			if amerrors.IsCancellation(err) {
				return nil, err
			}
			in.reporter.Warn(ctx, "file_skipped",
				slog.String("project", name),
				slog.String("path", f.Path),
				slog.String("error", err.Error()))
			continue
		}
		if doc == nil {
			continue
		}
		if doc.IsReference {
			reference++
		}
		docs = append(docs, doc)
	}

	in.reporter.Info(ctx, "repository_extracted",
		slog.String("project", name),
		slog.Int("documents", len(docs)),
		slog.Int("regular", len(docs)-reference),
		slog.Int("reference", reference))
	return docs, nil
}

type fileProcessor struct {
	project     string
	repo        config.RepositoryConfig
	ref         gitrepo.Ref
	transform   doctext.URLTransform
	refPatterns glob.Set
	converter   notebook.Converter
}

// process converts one file. Unsupported extensions return nil, nil.
func (p *fileProcessor) process(ctx context.Context, f *scanner.FileInfo) (*document.Document, error) {
	var content string
	switch strings.ToLower(path.Ext(f.Path)) {
	case ".md", ".rst", ".txt":
		data, err := os.ReadFile(f.AbsPath)
		if err != nil {
			return nil, amerrors.IOError("failed to read document", err).WithDetail("path", f.Path)
		}
		content = string(data)
	case ".ipynb":
		md, err := p.converter.Convert(ctx, f.AbsPath)
		if err != nil {
			return nil, err
		}
		content = md
	default:
		slog.Debug("unsupported_file_skipped", slog.String("project", p.project), slog.String("path", f.Path))
		return nil, nil
	}

	doc := &document.Document{
		ID: document.NewID(p.project, f.Path),
		Metadata: document.Metadata{
			Title:          doctext.ExtractTitle(content, path.Base(f.Path)),
			URL:            p.docURL(f.Path),
			Project:        p.project,
			SourcePath:     f.Path,
			SourcePathStem: document.Stem(f.Path),
			SourceURL:      SourceURL(p.repo.URL, p.ref, f.Path),
			Description:    doctext.ExtractDescription(content, doctext.DefaultDescriptionLength),
			IsReference:    doctext.IsReferenceDocument(f.Path, p.refPatterns),
		},
		Content: content,
	}
	if err := doc.Validate(); err != nil {
		return nil, amerrors.ValidationError("invalid document", err)
	}
	return doc, nil
}

// docURL maps a repository-relative path to its published URL. Files in a
// folder with a url_path drop the folder prefix; others drop their first
// path segment.
func (p *fileProcessor) docURL(relPath string) string {
	if folder, ok := p.repo.FolderFor(relPath); ok && folder.URLPath != "" {
		name := strings.Trim(path.Clean(folder.Name), "/")
		inner := relPath
		if name != "." {
			inner = strings.TrimPrefix(strings.TrimPrefix(relPath, name), "/")
		}
		return doctext.JoinURL(p.repo.BaseURL, folder.URLPath, doctext.PathToURL(inner, p.transform, 0))
	}
	return doctext.JoinURL(p.repo.BaseURL, "", doctext.PathToURL(relPath, p.transform, 1))
}
