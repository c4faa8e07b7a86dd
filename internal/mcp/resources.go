package mcp

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

const (
	uriScheme = "amandocs://"

	// ProjectsURI lists the indexed projects.
	ProjectsURI = uriScheme + "projects"

	// documentPrefix precedes {project}/{path} in document URIs.
	documentPrefix = uriScheme + "docs/"

	// bestPracticesPrefix precedes {package} in best-practice URIs.
	bestPracticesPrefix = uriScheme + "best-practices/"
)

// BestPracticesURI returns the resource URI of the guide for pkg.
func BestPracticesURI(pkg string) string {
	return bestPracticesPrefix + url.PathEscape(pkg)
}

// DocumentURI returns the resource URI of the document at path in project.
func DocumentURI(project, path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return documentPrefix + url.PathEscape(project) + "/" + strings.Join(segments, "/")
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		URI:         ProjectsURI,
		Name:        "projects",
		Description: "Projects present in the documentation index",
		MIMEType:    "application/json",
	}, s.handleProjectsResource)

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: documentPrefix + "{project}/{+path}",
		Name:        "document",
		Description: "Full content of an indexed document, addressed by project and source path",
		MIMEType:    "text/markdown",
	}, s.handleDocumentResource)

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: bestPracticesPrefix + "{package}",
		Name:        "best-practices",
		Description: "Best practices for writing code with a package",
		MIMEType:    "text/markdown",
	}, s.handleBestPracticesResource)
}

// handleProjectsResource returns the project list as JSON.
func (s *Server) handleProjectsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	projects, err := s.searcher.ListProjects(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	if projects == nil {
		projects = []string{}
	}

	content, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      ProjectsURI,
			MIMEType: "application/json",
			Text:     string(content),
		}},
	}, nil
}

// handleDocumentResource returns the reassembled content of one document.
func (s *Server) handleDocumentResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	project, path, ok := parseDocumentURI(uri)
	if !ok {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	doc, err := s.searcher.GetDocument(ctx, path, project)
	if err != nil {
		if amerrors.GetCode(err) == amerrors.ErrCodeNotFound {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return nil, MapError(err)
	}

	text := ""
	if doc.Content != nil {
		text = *doc.Content
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: MimeTypeForPath(doc.SourcePath),
			Text:     text,
		}},
	}, nil
}

// handleBestPracticesResource returns one best-practice guide.
func (s *Server) handleBestPracticesResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	rest, found := strings.CutPrefix(uri, bestPracticesPrefix)
	if !found {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	name, err := url.PathUnescape(rest)
	if err != nil || name == "" {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	guide, err := s.guides.Get(name)
	if err != nil {
		switch amerrors.GetCode(err) {
		case amerrors.ErrCodeNotFound, amerrors.ErrCodeInvalidInput:
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return nil, MapError(err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     guide.Content,
		}},
	}, nil
}

// parseDocumentURI splits amandocs://docs/{project}/{path}. The path keeps
// its slashes and must not climb out of the repository.
func parseDocumentURI(uri string) (project, path string, ok bool) {
	rest, found := strings.CutPrefix(uri, documentPrefix)
	if !found {
		return "", "", false
	}
	project, path, found = strings.Cut(rest, "/")
	if !found {
		return "", "", false
	}

	var err error
	if project, err = url.PathUnescape(project); err != nil {
		return "", "", false
	}
	if path, err = url.PathUnescape(path); err != nil {
		return "", "", false
	}
	if project == "" || !isValidPath(path) {
		return "", "", false
	}
	return project, path, true
}

// isValidPath reports whether path is a relative path that stays inside the
// repository root.
func isValidPath(path string) bool {
	if path == "" || strings.HasPrefix(path, "/") {
		return false
	}
	// Windows drive letters
	if len(path) >= 2 && path[1] == ':' {
		return false
	}
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
