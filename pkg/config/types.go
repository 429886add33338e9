package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent vakki configuration stored as config.toml
// in the .vakki/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version        int                  `toml:"version"`
	API            APIConfig            `toml:"api"`
	Client         ClientConfig         `toml:"client"`
	Retrieval      RetrievalConfig      `toml:"retrieval"`
	VectorStore    VectorStoreConfig    `toml:"vector_store"`
	Embedding      EmbeddingConfig      `toml:"embedding"`
	EmbeddingCache EmbeddingCacheConfig `toml:"embedding_cache"`
	LLM            LLMConfig            `toml:"llm"`
	History        HistoryConfig        `toml:"history"`
	Audit          AuditConfig          `toml:"audit"`
	Events         EventsConfig         `toml:"events"`
	Prompts        PromptsConfig        `toml:"prompts"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running API
// server (e.g. vakki ask, vakki chat). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// RetrievalConfig controls the answer pipeline.
type RetrievalConfig struct {
	// TopK is how many retrieved chunks make it into the context block.
	TopK uint `toml:"top_k,omitempty"`

	// SearchK is the index default k used when searching.
	SearchK uint `toml:"search_k,omitempty"`

	// HistoryAware retrieves with the history-combined query instead of
	// the raw query.
	HistoryAware bool `toml:"history_aware,omitempty"`

	// StageTimeoutSeconds bounds each external call (search, generate, embed).
	StageTimeoutSeconds uint `toml:"stage_timeout_seconds,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// EmbeddingCacheConfig configures the redis backed embedding cache.
type EmbeddingCacheConfig struct {
	Enabled    bool   `toml:"enabled,omitempty"`
	RedisAddr  string `toml:"redis_addr,omitempty"`
	TTLMinutes uint   `toml:"ttl_minutes,omitempty"`
}

// LLMConfig configures the language model used for answers and tools.
// Temperature and TopP are pointers so an explicit 0 survives default merging.
type LLMConfig struct {
	Provider    string   `toml:"provider,omitempty"`
	Model       string   `toml:"model,omitempty"`
	Target      string   `toml:"target,omitempty"`
	Temperature *float64 `toml:"temperature,omitempty"`
	TopP        *float64 `toml:"top_p,omitempty"`
}

// HistoryConfig bounds per-session conversation history.
type HistoryConfig struct {
	MaxTurns           uint `toml:"max_turns,omitempty"`
	MaxTokens          uint `toml:"max_tokens,omitempty"`
	SessionIdleMinutes uint `toml:"session_idle_minutes,omitempty"`
}

// AuditConfig configures the answer audit log.
type AuditConfig struct {
	Enabled   bool   `toml:"enabled,omitempty"`
	Provider  string `toml:"provider,omitempty"`
	Target    string `toml:"target,omitempty"`
	Workers   uint   `toml:"workers,omitempty"`
	QueueSize uint   `toml:"queue_size,omitempty"`
}

// EventsConfig configures where answer events are published.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// PromptsConfig points at an optional directory of prompt overrides.
type PromptsConfig struct {
	Dir string `toml:"dir,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func floatKey(name string, field func(c *Config) **float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == nil {
				return ""
			}
			return strconv.FormatFloat(**field(c), 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = &f
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.listen":        stringKey(func(c *Config) *string { return &c.API.Listen }),
	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"retrieval.top_k":                 uintKey("retrieval.top_k", func(c *Config) *uint { return &c.Retrieval.TopK }),
	"retrieval.search_k":              uintKey("retrieval.search_k", func(c *Config) *uint { return &c.Retrieval.SearchK }),
	"retrieval.history_aware":         boolKey("retrieval.history_aware", func(c *Config) *bool { return &c.Retrieval.HistoryAware }),
	"retrieval.stage_timeout_seconds": uintKey("retrieval.stage_timeout_seconds", func(c *Config) *uint { return &c.Retrieval.StageTimeoutSeconds }),

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),

	"embedding_cache.enabled":     boolKey("embedding_cache.enabled", func(c *Config) *bool { return &c.EmbeddingCache.Enabled }),
	"embedding_cache.redis_addr":  stringKey(func(c *Config) *string { return &c.EmbeddingCache.RedisAddr }),
	"embedding_cache.ttl_minutes": uintKey("embedding_cache.ttl_minutes", func(c *Config) *uint { return &c.EmbeddingCache.TTLMinutes }),

	"llm.provider":    stringKey(func(c *Config) *string { return &c.LLM.Provider }),
	"llm.model":       stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.target":      stringKey(func(c *Config) *string { return &c.LLM.Target }),
	"llm.temperature": floatKey("llm.temperature", func(c *Config) **float64 { return &c.LLM.Temperature }),
	"llm.top_p":       floatKey("llm.top_p", func(c *Config) **float64 { return &c.LLM.TopP }),

	"history.max_turns":            uintKey("history.max_turns", func(c *Config) *uint { return &c.History.MaxTurns }),
	"history.max_tokens":           uintKey("history.max_tokens", func(c *Config) *uint { return &c.History.MaxTokens }),
	"history.session_idle_minutes": uintKey("history.session_idle_minutes", func(c *Config) *uint { return &c.History.SessionIdleMinutes }),

	"audit.enabled":    boolKey("audit.enabled", func(c *Config) *bool { return &c.Audit.Enabled }),
	"audit.provider":   stringKey(func(c *Config) *string { return &c.Audit.Provider }),
	"audit.target":     stringKey(func(c *Config) *string { return &c.Audit.Target }),
	"audit.workers":    uintKey("audit.workers", func(c *Config) *uint { return &c.Audit.Workers }),
	"audit.queue_size": uintKey("audit.queue_size", func(c *Config) *uint { return &c.Audit.QueueSize }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),

	"prompts.dir": stringKey(func(c *Config) *string { return &c.Prompts.Dir }),
}
