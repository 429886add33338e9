package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/vakki/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	ddm := dotdir.NewManager()
	target, err := ddm.Target(override)
	if err != nil {
		return nil, err
	}

	return newConfiger(ddm, target)
}

// NewWritableConfiger is NewConfiger for commands that persist config: it
// creates ~/.vakki/ when no directory resolves.
func NewWritableConfiger(override string) (*Configer, error) {
	ddm := dotdir.NewManager()
	target, err := ddm.Ensure(override)
	if err != nil {
		return nil, err
	}

	return newConfiger(ddm, target)
}

func newConfiger(ddm *dotdir.Manager, target string) (*Configer, error) {
	cfger := &Configer{ddm: ddm}

	// If no .vakki/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err := os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Always set targetPath when the directory exists so SaveConfig
	// can create or overwrite the file.
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns the sorted list of all supported configuration key names.
func ValidConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}

	// Return in a stable, logical order matching the TOML section layout.
	ordered := []string{
		"api.listen",
		"client.api_target",
		"retrieval.top_k",
		"retrieval.search_k",
		"retrieval.history_aware",
		"retrieval.stage_timeout_seconds",
		"vector_store.provider",
		"vector_store.target",
		"vector_store.collection",
		"embedding.provider",
		"embedding.target",
		"embedding.model",
		"embedding.dimensions",
		"embedding_cache.enabled",
		"embedding_cache.redis_addr",
		"embedding_cache.ttl_minutes",
		"llm.provider",
		"llm.model",
		"llm.target",
		"llm.temperature",
		"llm.top_p",
		"history.max_turns",
		"history.max_tokens",
		"history.session_idle_minutes",
		"audit.enabled",
		"audit.provider",
		"audit.target",
		"audit.workers",
		"audit.queue_size",
		"events.provider",
		"events.brokers",
		"events.topic",
		"prompts.dir",
	}

	// Sanity: only return keys that actually exist in the map.
	result := make([]string, 0, len(ordered))
	for _, k := range ordered {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
		}
	}

	// Append any keys in the map that we missed in the ordered list.
	seen := make(map[string]bool, len(result))
	for _, k := range result {
		seen[k] = true
	}
	for _, k := range keys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// Dir returns the resolved .vakki/ directory, or "" when none resolved.
func (c *Configer) Dir() string {
	if c.targetPath == "" {
		return ""
	}
	return filepath.Dir(c.targetPath)
}

// LoadConfig loads the configuration from config.toml in the target .vakki/ directory.
// If the file does not exist, returns DefaultConfig() so callers always receive
// a fully-populated Config with sane defaults. Fields explicitly set in the file
// override the defaults.
// If overrideDir is non-empty, it is used instead of the default .vakki/ location.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	// Merge in defaults: fill in any zero-value fields from the loaded config
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from DefaultConfig().
// Booleans are opt-in and are never overwritten.
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	fillString(&cfg.API.Listen, defaults.API.Listen)
	fillString(&cfg.Client.APITarget, defaults.Client.APITarget)

	fillUint(&cfg.Retrieval.TopK, defaults.Retrieval.TopK)
	fillUint(&cfg.Retrieval.SearchK, defaults.Retrieval.SearchK)
	fillUint(&cfg.Retrieval.StageTimeoutSeconds, defaults.Retrieval.StageTimeoutSeconds)

	fillString(&cfg.VectorStore.Provider, defaults.VectorStore.Provider)
	fillString(&cfg.VectorStore.Collection, defaults.VectorStore.Collection)

	fillString(&cfg.Embedding.Provider, defaults.Embedding.Provider)
	fillString(&cfg.Embedding.Target, defaults.Embedding.Target)
	fillString(&cfg.Embedding.Model, defaults.Embedding.Model)
	fillUint(&cfg.Embedding.Dimensions, defaults.Embedding.Dimensions)

	fillUint(&cfg.EmbeddingCache.TTLMinutes, defaults.EmbeddingCache.TTLMinutes)

	fillString(&cfg.LLM.Provider, defaults.LLM.Provider)
	fillString(&cfg.LLM.Model, defaults.LLM.Model)
	if cfg.LLM.Temperature == nil {
		cfg.LLM.Temperature = defaults.LLM.Temperature
	}
	if cfg.LLM.TopP == nil {
		cfg.LLM.TopP = defaults.LLM.TopP
	}

	fillUint(&cfg.History.MaxTurns, defaults.History.MaxTurns)
	fillUint(&cfg.History.SessionIdleMinutes, defaults.History.SessionIdleMinutes)

	fillString(&cfg.Audit.Provider, defaults.Audit.Provider)
	fillUint(&cfg.Audit.Workers, defaults.Audit.Workers)
	fillUint(&cfg.Audit.QueueSize, defaults.Audit.QueueSize)

	fillString(&cfg.Events.Provider, defaults.Events.Provider)
	fillString(&cfg.Events.Topic, defaults.Events.Topic)
}

func fillString(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

func fillUint(field *uint, def uint) {
	if *field == 0 {
		*field = def
	}
}

// SaveConfig persists the configuration to config.toml in the target .vakki/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config with sane defaults for the named provider preset.
// Supported presets: "openai", "anthropic", "ollama".
// Returns an error if the preset name is not recognized.
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "openai":
		cfg.LLM.Provider = "openai"
		cfg.LLM.Model = "gpt-4"
		cfg.Embedding = EmbeddingConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
		}

	case "anthropic":
		// Anthropic has no embeddings endpoint; keep the local ollama embedder.
		cfg.LLM.Provider = "anthropic"
		cfg.LLM.Model = "claude-sonnet-4-5"

	case "ollama":
		cfg.LLM.Provider = "ollama"
		cfg.LLM.Model = "llama3.1"
		cfg.LLM.Target = "http://localhost:11434"

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: openai, anthropic, ollama)", name)
	}

	return cfg, nil
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"openai", "anthropic", "ollama"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentConfigVersion.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
