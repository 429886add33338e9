// Package embeddingutils builds the configured Embedder.
package embeddingutils

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/papercomputeco/vakki/pkg/embeddings"
	"github.com/papercomputeco/vakki/pkg/embeddings/cache"
	"github.com/papercomputeco/vakki/pkg/embeddings/ollama"
	"github.com/papercomputeco/vakki/pkg/embeddings/openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	Dimensions   uint

	// CacheEnabled wraps the embedder in the two level cache.
	CacheEnabled bool

	// RedisAddr is optional; without it only the in-process cache is used.
	RedisAddr string
	CacheTTL  time.Duration
	OnLookup  func(cache.Result)

	Logger *slog.Logger
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	var (
		e   embeddings.Embedder
		err error
	)

	switch o.ProviderType {
	case "ollama":
		e, err = ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "openai":
		e, err = openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:     os.Getenv("OPENAI_API_KEY"),
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
	if err != nil {
		return nil, err
	}

	if !o.CacheEnabled {
		return e, nil
	}

	var rdb redis.UniversalClient
	if o.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: o.RedisAddr})
	}

	return cache.New(e, rdb, cache.Config{
		Model:    o.ProviderType + "/" + o.Model,
		TTL:      o.CacheTTL,
		OnLookup: o.OnLookup,
	}, o.Logger), nil
}
