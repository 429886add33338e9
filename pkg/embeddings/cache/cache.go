// Package cache wraps an Embedder with a two level embedding cache: a bounded
// in-process map in front of an optional redis instance.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/papercomputeco/vakki/pkg/embeddings"
)

const (
	keyPrefix       = "vakki:emb:"
	defaultTTL      = 24 * time.Hour
	defaultMaxLocal = 10000
)

// Result labels a cache lookup for metrics.
type Result string

const (
	Hit  Result = "hit"
	Miss Result = "miss"
)

// Config configures the cache.
type Config struct {
	// Model namespaces keys so two models never share vectors.
	Model string

	// TTL applies to redis entries only.
	TTL time.Duration

	// MaxLocal bounds the in-process map. Zero uses 10000.
	MaxLocal int

	// OnLookup, if set, is called once per text looked up.
	OnLookup func(Result)
}

type cachedEmbedding struct {
	Vector    []float32 `json:"vector"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// Embedder is a caching embeddings.Embedder.
type Embedder struct {
	next   embeddings.Embedder
	redis  redis.UniversalClient
	cfg    Config
	logger *slog.Logger

	mu    sync.RWMutex
	local map[string][]float32
}

// New wraps next. rdb may be nil for a local-only cache.
func New(next embeddings.Embedder, rdb redis.UniversalClient, cfg Config, logger *slog.Logger) *Embedder {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.MaxLocal <= 0 {
		cfg.MaxLocal = defaultMaxLocal
	}
	return &Embedder{
		next:   next,
		redis:  rdb,
		cfg:    cfg,
		logger: logger,
		local:  make(map[string][]float32),
	}
}

// Embed returns the cached vector for text or computes and stores it.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedMany serves hits from the cache and sends only the misses to the
// wrapped embedder, in one batch.
func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		missTexts []string
		missIdx   []int
	)

	for i, text := range texts {
		if vec, ok := e.get(ctx, text); ok {
			out[i] = vec
			e.observe(Hit)
			continue
		}
		e.observe(Miss)
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := e.next.EmbedMany(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, errors.New("embedder returned a different number of vectors than texts")
	}

	for j, vec := range vecs {
		out[missIdx[j]] = vec
		e.set(ctx, missTexts[j], vec)
	}

	return out, nil
}

// Close closes the wrapped embedder and the redis client.
func (e *Embedder) Close() error {
	var errs []error
	if err := e.next.Close(); err != nil {
		errs = append(errs, err)
	}
	if e.redis != nil {
		if err := e.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Embedder) get(ctx context.Context, text string) ([]float32, bool) {
	key := e.key(text)

	e.mu.RLock()
	vec, ok := e.local[key]
	e.mu.RUnlock()
	if ok {
		return vec, true
	}

	if e.redis == nil {
		return nil, false
	}

	data, err := e.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			e.logger.Warn("embedding cache read failed", "error", err)
		}
		return nil, false
	}

	var cached cachedEmbedding
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}

	e.setLocal(key, cached.Vector)
	return cached.Vector, true
}

// set never fails the caller; a broken redis degrades to the local map.
func (e *Embedder) set(ctx context.Context, text string, vec []float32) {
	key := e.key(text)
	e.setLocal(key, vec)

	if e.redis == nil {
		return
	}

	data, err := json.Marshal(cachedEmbedding{
		Vector:    vec,
		Model:     e.cfg.Model,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if err := e.redis.Set(ctx, key, data, e.cfg.TTL).Err(); err != nil {
		e.logger.Warn("embedding cache write failed", "error", err)
	}
}

func (e *Embedder) setLocal(key string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.local) >= e.cfg.MaxLocal {
		clear(e.local)
	}
	e.local[key] = vec
}

func (e *Embedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return keyPrefix + e.cfg.Model + ":" + hex.EncodeToString(sum[:16])
}

func (e *Embedder) observe(r Result) {
	if e.cfg.OnLookup != nil {
		e.cfg.OnLookup(r)
	}
}

var _ embeddings.Embedder = (*Embedder)(nil)
