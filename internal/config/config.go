package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/amandocs/configs"
	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// Config is the complete amandocs configuration.
type Config struct {
	DataDir  string `yaml:"data_dir" json:"data_dir"`
	ReposDir string `yaml:"repos_dir" json:"repos_dir"`
	StoreDir string `yaml:"store_dir" json:"store_dir"`

	Docs       DocsConfig       `yaml:"docs" json:"docs"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Ingest     IngestConfig     `yaml:"ingest" json:"ingest"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" json:"telemetry"`
}

// DocsConfig lists documentation sources and which files to index.
type DocsConfig struct {
	Repositories    map[string]RepositoryConfig `yaml:"repositories" json:"repositories"`
	IndexPatterns   []string                    `yaml:"index_patterns" json:"index_patterns"`
	ExcludePatterns []string                    `yaml:"exclude_patterns" json:"exclude_patterns"`
	// MaxFileSize in bytes; larger files are skipped.
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`
}

// SearchConfig holds retrieval defaults.
type SearchConfig struct {
	MaxResults      int `yaml:"max_results" json:"max_results"`
	MaxContentChars int `yaml:"max_content_chars" json:"max_content_chars"`
	MinChunkChars   int `yaml:"min_chunk_chars" json:"min_chunk_chars"`
	ContextChars    int `yaml:"context_chars" json:"context_chars"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	CacheSize  int    `yaml:"cache_size" json:"cache_size"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// IngestConfig tunes repository ingestion.
type IngestConfig struct {
	// Workers bounds concurrent clone/update operations.
	Workers int `yaml:"workers" json:"workers"`
}

// TelemetryConfig controls local query metrics. Nothing leaves the machine.
type TelemetryConfig struct {
	Disabled bool `yaml:"disabled" json:"disabled"`
}

// Embedding providers.
const (
	ProviderStatic = "static"
	ProviderOllama = "ollama"
)

// DefaultIndexPatterns are the globs matched inside each configured folder.
var DefaultIndexPatterns = []string{"**/*.md", "**/*.rst", "**/*.txt", "**/*.ipynb"}

var defaultExcludePatterns = []string{"**/node_modules/**", "**/.git/**", "**/build/**"}

// DefaultDataDir returns ~/.amandocs, or a temp-dir fallback without a home.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".amandocs")
	}
	return filepath.Join(home, ".amandocs")
}

// UserConfigPath returns ~/.amandocs/config.yaml.
func UserConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// NewConfig creates a Config with defaults, without the built-in catalogue.
func NewConfig() *Config {
	return &Config{
		Docs: DocsConfig{
			Repositories:    map[string]RepositoryConfig{},
			IndexPatterns:   append([]string(nil), DefaultIndexPatterns...),
			ExcludePatterns: append([]string(nil), defaultExcludePatterns...),
			MaxFileSize:     1024 * 1024,
		},
		Search: SearchConfig{
			MaxResults:      5,
			MaxContentChars: 10000,
			MinChunkChars:   100,
			ContextChars:    500,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   ProviderStatic,
			Model:      "nomic-embed-text",
			OllamaHost: "http://localhost:11434",
			BatchSize:  32,
			CacheSize:  1000,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
		Ingest: IngestConfig{Workers: 4},
	}
}

// Default returns NewConfig overlaid with the embedded documentation catalogue.
func Default() (*Config, error) {
	cfg := NewConfig()
	if err := cfg.mergeYAML(configs.DefaultCatalogue, "built-in catalogue"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load builds the effective configuration. Precedence, lowest first:
//  1. Defaults and the built-in catalogue
//  2. The config file at path, or ~/.amandocs/config.yaml when path is empty
//  3. Environment variables (AMANDOCS_*)
//
// An explicit path must exist; the default path is optional.
// Derived directories are filled in and the result is validated.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	filePath := path
	if filePath == "" {
		filePath = UserConfigPath()
	}
	data, err := os.ReadFile(filePath)
	switch {
	case err == nil:
		if err := cfg.mergeYAML(data, filePath); err != nil {
			return nil, err
		}
	case os.IsNotExist(err) && path == "":
		// no user config is fine
	default:
		return nil, amerrors.New(amerrors.ErrCodeConfigNotFound,
			fmt.Sprintf("cannot read config file %s", filePath), err)
	}

	cfg.applyEnvOverrides()
	cfg.resolveDirs()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeYAML parses data and overlays every section it sets onto c.
func (c *Config) mergeYAML(data []byte, source string) error {
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return amerrors.ConfigError(fmt.Sprintf("failed to parse %s", source), err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero values from other onto c. Repositories are
// replaced per project; list settings are replaced whole.
func (c *Config) mergeWith(other *Config) {
	if other.DataDir != "" {
		c.DataDir = other.DataDir
	}
	if other.ReposDir != "" {
		c.ReposDir = other.ReposDir
	}
	if other.StoreDir != "" {
		c.StoreDir = other.StoreDir
	}

	if c.Docs.Repositories == nil {
		c.Docs.Repositories = map[string]RepositoryConfig{}
	}
	for name, repo := range other.Docs.Repositories {
		c.Docs.Repositories[name] = repo
	}
	if len(other.Docs.IndexPatterns) > 0 {
		c.Docs.IndexPatterns = other.Docs.IndexPatterns
	}
	if len(other.Docs.ExcludePatterns) > 0 {
		c.Docs.ExcludePatterns = other.Docs.ExcludePatterns
	}
	if other.Docs.MaxFileSize != 0 {
		c.Docs.MaxFileSize = other.Docs.MaxFileSize
	}

	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	if other.Search.MaxContentChars != 0 {
		c.Search.MaxContentChars = other.Search.MaxContentChars
	}
	if other.Search.MinChunkChars != 0 {
		c.Search.MinChunkChars = other.Search.MinChunkChars
	}
	if other.Search.ContextChars != 0 {
		c.Search.ContextChars = other.Search.ContextChars
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}

	if other.Ingest.Workers != 0 {
		c.Ingest.Workers = other.Ingest.Workers
	}

	if other.Telemetry.Disabled {
		c.Telemetry.Disabled = true
	}
}

// applyEnvOverrides applies AMANDOCS_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AMANDOCS_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("AMANDOCS_REPOS_DIR"); v != "" {
		c.ReposDir = v
	}
	if v := os.Getenv("AMANDOCS_EMBEDDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("AMANDOCS_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("AMANDOCS_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("AMANDOCS_TELEMETRY"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			c.Telemetry.Disabled = !on
		}
	}
	if v := os.Getenv("AMANDOCS_INGEST_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Ingest.Workers = n
		}
	}
}

// resolveDirs expands ~ and derives repos_dir and store_dir from data_dir.
func (c *Config) resolveDirs() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	c.DataDir = expandHome(c.DataDir)
	if c.ReposDir == "" {
		c.ReposDir = filepath.Join(c.DataDir, "repos")
	}
	c.ReposDir = expandHome(c.ReposDir)
	if c.StoreDir == "" {
		c.StoreDir = filepath.Join(c.DataDir, "chroma")
	}
	c.StoreDir = expandHome(c.StoreDir)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// BackupDir is the sibling directory holding the pre-rebuild store copy.
func (c *Config) BackupDir() string {
	return filepath.Clean(c.StoreDir) + ".bak"
}

// MetricsPath is the SQLite file holding query metrics.
func (c *Config) MetricsPath() string {
	return filepath.Join(c.DataDir, "metrics.db")
}

// BestPracticesDir holds user best-practice guides that override the
// built-in ones. It is empty until data_dir is set.
func (c *Config) BestPracticesDir() string {
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.DataDir, "best-practices")
}

// ProjectNames returns configured project names in sorted order.
func (c *Config) ProjectNames() []string {
	names := make([]string, 0, len(c.Docs.Repositories))
	for name := range c.Docs.Repositories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	for _, name := range c.ProjectNames() {
		if err := c.Docs.Repositories[name].validate(name); err != nil {
			return err
		}
	}
	if len(c.Docs.IndexPatterns) == 0 {
		return amerrors.ConfigError("docs.index_patterns must not be empty", nil)
	}
	if c.Docs.MaxFileSize <= 0 {
		return amerrors.ConfigError(fmt.Sprintf("docs.max_file_size must be positive, got %d", c.Docs.MaxFileSize), nil)
	}

	positives := []struct {
		name  string
		value int
	}{
		{"search.max_results", c.Search.MaxResults},
		{"search.max_content_chars", c.Search.MaxContentChars},
		{"search.context_chars", c.Search.ContextChars},
		{"embeddings.cache_size", c.Embeddings.CacheSize},
		{"ingest.workers", c.Ingest.Workers},
	}
	for _, p := range positives {
		if p.value <= 0 {
			return amerrors.ConfigError(fmt.Sprintf("%s must be positive, got %d", p.name, p.value), nil)
		}
	}
	if c.Search.MinChunkChars < 0 {
		return amerrors.ConfigError(fmt.Sprintf("search.min_chunk_chars must be non-negative, got %d", c.Search.MinChunkChars), nil)
	}
	if c.Embeddings.BatchSize < 1 || c.Embeddings.BatchSize > 512 {
		return amerrors.ConfigError(fmt.Sprintf("embeddings.batch_size must be between 1 and 512, got %d", c.Embeddings.BatchSize), nil)
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case ProviderStatic, ProviderOllama:
	default:
		return amerrors.ConfigError(fmt.Sprintf("embeddings.provider must be 'static' or 'ollama', got %q", c.Embeddings.Provider), nil)
	}

	if strings.ToLower(c.Server.Transport) != "stdio" {
		return amerrors.ConfigError(fmt.Sprintf("server.transport must be 'stdio', got %q", c.Server.Transport), nil)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return amerrors.ConfigError(fmt.Sprintf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %q", c.Server.LogLevel), nil)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
