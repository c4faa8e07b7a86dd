package embed

import "time"

const (
	DefaultOllamaHost = "http://localhost:11434"

	// DefaultOllamaModel is a general text embedding model suited to prose docs.
	DefaultOllamaModel = "nomic-embed-text"

	// OllamaPoolSize caps idle connections to the Ollama host.
	OllamaPoolSize = 4
)

// OllamaConfig configures the Ollama embedder. Zero fields take the
// package defaults.
type OllamaConfig struct {
	Host  string
	Model string
	// Dimensions skips detection when set. Detection embeds one sample text.
	Dimensions int
	BatchSize  int
	// Timeout bounds one warm request; the first request gets at least
	// DefaultColdTimeout while the model loads.
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	PoolSize   int
	// SkipHealthCheck trusts Host and Model without calling /api/tags.
	SkipHealthCheck bool
}

// DefaultOllamaConfig returns the defaults used for a zero OllamaConfig.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:       DefaultOllamaHost,
		Model:      DefaultOllamaModel,
		BatchSize:  DefaultBatchSize,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: 100 * time.Millisecond,
		PoolSize:   OllamaPoolSize,
	}
}

// OllamaEmbedRequest is the body of POST /api/embed. Input is always a
// list so single and batch calls share one path.
type OllamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// OllamaEmbedResponse is the /api/embed reply, one vector per input.
type OllamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// OllamaModelListResponse is the GET /api/tags reply.
type OllamaModelListResponse struct {
	Models []OllamaModelInfo `json:"models"`
}

// OllamaModelInfo is one installed model. Only the name is used.
type OllamaModelInfo struct {
	Name string `json:"name"`
}
