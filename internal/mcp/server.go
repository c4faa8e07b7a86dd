package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/amandocs/internal/async"
	"github.com/Aman-CERP/amandocs/internal/bestpractices"
	"github.com/Aman-CERP/amandocs/internal/config"
	"github.com/Aman-CERP/amandocs/internal/embed"
	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/index"
	"github.com/Aman-CERP/amandocs/internal/search"
	"github.com/Aman-CERP/amandocs/pkg/version"
)

// ServerName is the implementation name announced to clients.
const ServerName = "amandocs"

// Indexer is what the tool layer needs from the index manager.
type Indexer interface {
	IsIndexed(ctx context.Context) bool
	IndexDocumentation(ctx context.Context) (*index.Summary, error)
	Status(ctx context.Context) (*index.Status, error)
}

// Progress reports the state of a rebuild running in this process.
type Progress interface {
	Snapshot() async.Snapshot
}

// Guides serves best-practice guides.
type Guides interface {
	Get(name string) (*bestpractices.Guide, error)
	List() ([]string, error)
}

// Server is the MCP server for amandocs. It bridges AI clients with the
// documentation index.
type Server struct {
	mcp      *mcp.Server
	searcher search.Searcher
	indexer  Indexer
	embedder embed.Embedder // May be nil; reported as unavailable
	config   *config.Config
	progress Progress // Optional; set with SetProgress
	guides   Guides
	logger   *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// Tool names.
const (
	ToolSearch            = "search"
	ToolGetDocument       = "get_document"
	ToolGetReferenceGuide = "get_reference_guide"
	ToolListProjects      = "list_projects"
	ToolUpdateIndex       = "update_index"
	ToolIndexStatus       = "index_status"
	ToolGetBestPractices  = "get_best_practices"
	ToolListBestPractices = "list_best_practices"
)

var tools = []ToolInfo{
	{
		Name:        ToolSearch,
		Description: "Semantic search over the indexed documentation. Returns the best matching documents, at most one per source file, with title, URL, project and content. Use project to narrow to one library and content to choose chunk, truncated or full text.",
	},
	{
		Name:        ToolGetDocument,
		Description: "Fetch one document by its source path and project, with the full reassembled content. Use the source_path and project fields of a search result.",
	},
	{
		Name:        ToolGetReferenceGuide,
		Description: "Find the reference guide pages for a component by its exact name, e.g. Button or scatter. Returns every matching reference page across projects unless project is given.",
	},
	{
		Name:        ToolListProjects,
		Description: "List the projects present in the documentation index.",
	},
	{
		Name:        ToolUpdateIndex,
		Description: "Clone or update every configured documentation repository and rebuild the index. Slow; the previous index is kept if the rebuild fails.",
	},
	{
		Name:        ToolIndexStatus,
		Description: "Report whether the index is populated, its chunk count and projects, which embedder is active, and the progress of a rebuild started by the server.",
	},
	{
		Name:        ToolGetBestPractices,
		Description: "Get the best practices for writing code with a package, e.g. panel or hvplot, as markdown. Read these before generating code for that package. Hyphenated and underscored names are both accepted.",
	},
	{
		Name:        ToolListBestPractices,
		Description: "List the packages that have best practices available.",
	},
}

// NewServer creates a new MCP server over searcher and indexer.
func NewServer(searcher search.Searcher, indexer Indexer, embedder embed.Embedder, cfg *config.Config) (*Server, error) {
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if indexer == nil {
		return nil, errors.New("indexer is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		searcher: searcher,
		indexer:  indexer,
		embedder: embedder,
		config:   cfg,
		guides:   bestpractices.New(cfg.BestPracticesDir()),
		logger:   slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil, // capabilities are inferred from registered tools and resources
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// SetProgress attaches the tracker whose snapshot index_status reports.
func (s *Server) SetProgress(p Progress) {
	s.progress = p
}

// SetGuides replaces the best-practice guides read from the data directory.
func (s *Server) SetGuides(g Guides) {
	s.guides = g
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

func describe(name string) string {
	for _, t := range tools {
		if t.Name == name {
			return t.Description
		}
	}
	return ""
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolSearch, Description: describe(ToolSearch)}, s.mcpSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolGetDocument, Description: describe(ToolGetDocument)}, s.mcpGetDocumentHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolGetReferenceGuide, Description: describe(ToolGetReferenceGuide)}, s.mcpReferenceGuideHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolListProjects, Description: describe(ToolListProjects)}, s.mcpListProjectsHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolUpdateIndex, Description: describe(ToolUpdateIndex)}, s.mcpUpdateIndexHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolIndexStatus, Description: describe(ToolIndexStatus)}, s.mcpIndexStatusHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolGetBestPractices, Description: describe(ToolGetBestPractices)}, s.mcpGetBestPracticesHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolListBestPractices, Description: describe(ToolListBestPractices)}, s.mcpListBestPracticesHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

// CallTool invokes a tool by name with JSON-style arguments, the way a
// client call would arrive.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolSearch:
		return invoke(ctx, args, s.mcpSearchHandler)
	case ToolGetDocument:
		return invoke(ctx, args, s.mcpGetDocumentHandler)
	case ToolGetReferenceGuide:
		return invoke(ctx, args, s.mcpReferenceGuideHandler)
	case ToolListProjects:
		return invoke(ctx, args, s.mcpListProjectsHandler)
	case ToolUpdateIndex:
		return invoke(ctx, args, s.mcpUpdateIndexHandler)
	case ToolIndexStatus:
		return invoke(ctx, args, s.mcpIndexStatusHandler)
	case ToolGetBestPractices:
		return invoke(ctx, args, s.mcpGetBestPracticesHandler)
	case ToolListBestPractices:
		return invoke(ctx, args, s.mcpListBestPracticesHandler)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

type toolHandler[In, Out any] func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error)

func invoke[In, Out any](ctx context.Context, args map[string]any, h toolHandler[In, Out]) (any, error) {
	var in In
	if len(args) > 0 {
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
		}
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
		}
	}
	_, out, err := h(ctx, &mcp.CallToolRequest{}, in)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// call prepares ctx for a tool invocation and logs its outcome.
func (s *Server) call(ctx context.Context, req *mcp.CallToolRequest, tool string, fn func(context.Context) (int, error)) error {
	if req != nil {
		ctx = withSession(ctx, req.Session)
	}
	start := time.Now()
	requestID := generateRequestID()

	s.logger.Info("tool_started",
		slog.String("tool", tool),
		slog.String("request_id", requestID))

	n, err := fn(ctx)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("tool_failed",
			slog.String("tool", tool),
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error_code", amerrors.GetCode(err)),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	s.logger.Info("tool_completed",
		slog.String("tool", tool),
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", n))
	return nil
}

// mcpSearchHandler is the MCP SDK handler for the search tool.
func (s *Server) mcpSearchHandler(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}
	if input.Limit < 0 {
		return nil, SearchOutput{}, NewInvalidParamsError("limit must not be negative")
	}

	var output SearchOutput
	err := s.call(ctx, req, ToolSearch, func(ctx context.Context) (int, error) {
		mode, err := parseContent(input.Content)
		if err != nil {
			return 0, err
		}
		results, err := s.searcher.Search(ctx, input.Query, search.SearchOptions{
			Project:         input.Project,
			Content:         mode,
			Limit:           input.Limit,
			MaxContentChars: input.MaxContentChars,
		})
		output.Results = results
		return len(results), err
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}
	if output.Results == nil {
		output.Results = []search.Document{}
	}

	return textResult(FormatSearchResults(input.Query, output.Results)), output, nil
}

// mcpGetDocumentHandler is the MCP SDK handler for the get_document tool.
func (s *Server) mcpGetDocumentHandler(ctx context.Context, req *mcp.CallToolRequest, input GetDocumentInput) (
	*mcp.CallToolResult,
	*search.Document,
	error,
) {
	if strings.TrimSpace(input.Path) == "" || strings.TrimSpace(input.Project) == "" {
		return nil, nil, NewInvalidParamsError("path and project parameters are required")
	}

	var doc *search.Document
	err := s.call(ctx, req, ToolGetDocument, func(ctx context.Context) (int, error) {
		var err error
		doc, err = s.searcher.GetDocument(ctx, input.Path, input.Project)
		if err != nil {
			return 0, err
		}
		return 1, nil
	})
	if err != nil {
		return nil, nil, err
	}

	return textResult(FormatDocument(doc)), doc, nil
}

// mcpReferenceGuideHandler is the MCP SDK handler for the get_reference_guide tool.
func (s *Server) mcpReferenceGuideHandler(ctx context.Context, req *mcp.CallToolRequest, input GetReferenceGuideInput) (
	*mcp.CallToolResult,
	ReferenceGuideOutput,
	error,
) {
	if strings.TrimSpace(input.Component) == "" {
		return nil, ReferenceGuideOutput{}, NewInvalidParamsError("component parameter is required")
	}

	var output ReferenceGuideOutput
	err := s.call(ctx, req, ToolGetReferenceGuide, func(ctx context.Context) (int, error) {
		mode, err := parseContent(input.Content)
		if err != nil {
			return 0, err
		}
		results, err := s.searcher.SearchReferenceGuide(ctx, input.Component, search.ReferenceOptions{
			Project:         input.Project,
			Content:         mode,
			MaxContentChars: input.MaxContentChars,
		})
		output.Results = results
		return len(results), err
	})
	if err != nil {
		return nil, ReferenceGuideOutput{}, err
	}
	if output.Results == nil {
		output.Results = []search.Document{}
	}

	return textResult(FormatReferenceResults(input.Component, output.Results)), output, nil
}

// mcpListProjectsHandler is the MCP SDK handler for the list_projects tool.
func (s *Server) mcpListProjectsHandler(ctx context.Context, req *mcp.CallToolRequest, _ ListProjectsInput) (
	*mcp.CallToolResult,
	ListProjectsOutput,
	error,
) {
	var output ListProjectsOutput
	err := s.call(ctx, req, ToolListProjects, func(ctx context.Context) (int, error) {
		projects, err := s.searcher.ListProjects(ctx)
		output.Projects = projects
		return len(projects), err
	})
	if err != nil {
		return nil, ListProjectsOutput{}, err
	}
	if output.Projects == nil {
		output.Projects = []string{}
	}

	return textResult(FormatProjects(output.Projects)), output, nil
}

// mcpUpdateIndexHandler is the MCP SDK handler for the update_index tool.
func (s *Server) mcpUpdateIndexHandler(ctx context.Context, req *mcp.CallToolRequest, _ UpdateIndexInput) (
	*mcp.CallToolResult,
	UpdateIndexOutput,
	error,
) {
	var output UpdateIndexOutput
	err := s.call(ctx, req, ToolUpdateIndex, func(ctx context.Context) (int, error) {
		summary, err := s.indexer.IndexDocumentation(ctx)
		if err != nil {
			return 0, err
		}
		output = updateOutput(summary)
		return summary.Documents, nil
	})
	if err != nil {
		return nil, UpdateIndexOutput{}, err
	}
	return nil, output, nil
}

func updateOutput(summary *index.Summary) UpdateIndexOutput {
	out := UpdateIndexOutput{
		RunID:      summary.RunID,
		Projects:   summary.Projects,
		Documents:  summary.Documents,
		Chunks:     summary.Chunks,
		DurationMS: summary.Duration.Milliseconds(),
	}
	if out.Projects == nil {
		out.Projects = map[string]index.ProjectSummary{}
	}
	out.Message = fmt.Sprintf("Indexed %d documents (%d chunks) across %d projects",
		summary.Documents, summary.Chunks, len(out.Projects))
	return out
}

// mcpIndexStatusHandler is the MCP SDK handler for the index_status tool.
func (s *Server) mcpIndexStatusHandler(ctx context.Context, req *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	var output *IndexStatusOutput
	err := s.call(ctx, req, ToolIndexStatus, func(ctx context.Context) (int, error) {
		st, err := s.indexer.Status(ctx)
		if err != nil {
			return 0, err
		}
		output = &IndexStatusOutput{
			Indexed:    st.Indexed,
			Chunks:     st.Chunks,
			Projects:   st.Projects,
			StoreDir:   st.StoreDir,
			HasBackup:  st.HasBackup,
			Embeddings: s.embeddingInfo(ctx),
		}
		if st.LastRebuild != nil {
			output.LastRun = st.LastRebuild.RunID
		}
		if s.progress != nil {
			snap := s.progress.Snapshot()
			output.Rebuild = &snap
		}
		return st.Chunks, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return nil, output, nil
}

// mcpGetBestPracticesHandler is the MCP SDK handler for the get_best_practices tool.
func (s *Server) mcpGetBestPracticesHandler(ctx context.Context, req *mcp.CallToolRequest, input GetBestPracticesInput) (
	*mcp.CallToolResult,
	*bestpractices.Guide,
	error,
) {
	if strings.TrimSpace(input.Package) == "" {
		return nil, nil, NewInvalidParamsError("package parameter is required")
	}

	var guide *bestpractices.Guide
	err := s.call(ctx, req, ToolGetBestPractices, func(context.Context) (int, error) {
		var err error
		guide, err = s.guides.Get(input.Package)
		if err != nil {
			return 0, err
		}
		return 1, nil
	})
	if err != nil {
		return nil, nil, err
	}

	return textResult(guide.Content), guide, nil
}

// mcpListBestPracticesHandler is the MCP SDK handler for the list_best_practices tool.
func (s *Server) mcpListBestPracticesHandler(ctx context.Context, req *mcp.CallToolRequest, _ ListBestPracticesInput) (
	*mcp.CallToolResult,
	ListBestPracticesOutput,
	error,
) {
	var output ListBestPracticesOutput
	err := s.call(ctx, req, ToolListBestPractices, func(context.Context) (int, error) {
		names, err := s.guides.List()
		output.Packages = names
		return len(names), err
	})
	if err != nil {
		return nil, ListBestPracticesOutput{}, err
	}
	if output.Packages == nil {
		output.Packages = []string{}
	}

	return textResult(FormatBestPractices(output.Packages)), output, nil
}

// embeddingInfo reports the configured and the running embedder so clients
// can tell when the low quality hash embedder is serving.
func (s *Server) embeddingInfo(ctx context.Context) EmbeddingInfo {
	info := EmbeddingInfo{
		Provider: s.config.Embeddings.Provider,
		Model:    s.config.Embeddings.Model,
	}
	if s.embedder == nil {
		info.Status = "unavailable"
		info.ActualProvider = "none"
		info.ActualModel = "none"
		info.IsFallbackActive = true
		info.SemanticQuality = "none"
		return info
	}

	rt := embed.GetInfo(ctx, s.embedder)
	info.ActualProvider = string(rt.Provider)
	info.ActualModel = rt.Model
	info.Dimensions = rt.Dimensions
	info.IsFallbackActive = rt.Provider == embed.ProviderStatic
	info.Status = "ready"
	if !rt.Available {
		info.Status = "unavailable"
	}
	info.SemanticQuality = "high"
	if info.IsFallbackActive {
		info.SemanticQuality = "low"
	}
	return info
}

// parseContent accepts the content parameter as a mode name or the legacy
// boolean. Absent means the engine default.
func parseContent(v any) (search.ContentMode, error) {
	switch c := v.(type) {
	case nil:
		return "", nil
	case bool:
		return search.ContentModeFromBool(c), nil
	case string:
		return search.ParseContentMode(c)
	default:
		return "", amerrors.New(amerrors.ErrCodeInvalidContentMode,
			fmt.Sprintf("content must be a string or boolean, got %T", v), nil).
			WithSuggestion("Use one of: " + strings.Join(search.ValidContentModes, ", "))
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting",
		slog.String("transport", transport),
		slog.String("version", version.Version))

	switch transport {
	case "stdio", "":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped",
				slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
