package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/papercomputeco/vakki/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the VAKKI_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (VAKKI_API_LISTEN, VAKKI_LLM_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: VAKKI_API_LISTEN, VAKKI_RETRIEVAL_TOP_K, etc.
	v.SetEnvPrefix("VAKKI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// Unmarshal decodes the merged viper state into a Config, reusing the toml
// struct tags as keys.
func Unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
	})
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("client.api_target", d.Client.APITarget)

	// Retrieval
	v.SetDefault("retrieval.top_k", d.Retrieval.TopK)
	v.SetDefault("retrieval.search_k", d.Retrieval.SearchK)
	v.SetDefault("retrieval.history_aware", d.Retrieval.HistoryAware)
	v.SetDefault("retrieval.stage_timeout_seconds", d.Retrieval.StageTimeoutSeconds)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding_cache.enabled", d.EmbeddingCache.Enabled)
	v.SetDefault("embedding_cache.redis_addr", d.EmbeddingCache.RedisAddr)
	v.SetDefault("embedding_cache.ttl_minutes", d.EmbeddingCache.TTLMinutes)

	// LLM
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.target", d.LLM.Target)
	v.SetDefault("llm.temperature", *d.LLM.Temperature)
	v.SetDefault("llm.top_p", *d.LLM.TopP)

	// History
	v.SetDefault("history.max_turns", d.History.MaxTurns)
	v.SetDefault("history.max_tokens", d.History.MaxTokens)
	v.SetDefault("history.session_idle_minutes", d.History.SessionIdleMinutes)

	// Audit + events
	v.SetDefault("audit.enabled", d.Audit.Enabled)
	v.SetDefault("audit.provider", d.Audit.Provider)
	v.SetDefault("audit.target", d.Audit.Target)
	v.SetDefault("audit.workers", d.Audit.Workers)
	v.SetDefault("audit.queue_size", d.Audit.QueueSize)
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	v.SetDefault("prompts.dir", d.Prompts.Dir)
}
