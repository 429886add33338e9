package config

const (
	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultTopK                = 5
	defaultSearchK             = 5
	defaultStageTimeoutSeconds = 60

	defaultVectorProvider   = "sqlite"
	defaultVectorCollection = "judgments"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultCacheTTLMinutes = 24 * 60

	defaultLLMProvider    = "openai"
	defaultLLMModel       = "gpt-4"
	defaultLLMTemperature = 0.5
	defaultLLMTopP        = 0.9

	// 20 question/answer exchanges, each a user turn, an answer turn and a
	// sources turn.
	defaultHistoryMaxTurns    = 60
	defaultSessionIdleMinutes = 60

	defaultAuditProvider  = "sqlite"
	defaultAuditWorkers   = 3
	defaultAuditQueueSize = 256

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "vakki.answers"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	temperature := defaultLLMTemperature
	topP := defaultLLMTopP

	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Retrieval: RetrievalConfig{
			TopK:                defaultTopK,
			SearchK:             defaultSearchK,
			StageTimeoutSeconds: defaultStageTimeoutSeconds,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		EmbeddingCache: EmbeddingCacheConfig{
			TTLMinutes: defaultCacheTTLMinutes,
		},
		LLM: LLMConfig{
			Provider:    defaultLLMProvider,
			Model:       defaultLLMModel,
			Temperature: &temperature,
			TopP:        &topP,
		},
		History: HistoryConfig{
			MaxTurns:           defaultHistoryMaxTurns,
			SessionIdleMinutes: defaultSessionIdleMinutes,
		},
		Audit: AuditConfig{
			Provider:  defaultAuditProvider,
			Workers:   defaultAuditWorkers,
			QueueSize: defaultAuditQueueSize,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}
