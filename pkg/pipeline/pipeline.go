// Package pipeline answers a legal query from retrieved judgment text: it
// retrieves context, generates a grounded answer, scores the answer against
// the query and the evidence, and records the exchange in the caller's
// conversation history.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/vakki/pkg/embeddings"
	"github.com/papercomputeco/vakki/pkg/history"
	"github.com/papercomputeco/vakki/pkg/llm"
	"github.com/papercomputeco/vakki/pkg/retrieval"
)

// DefaultTopK is the number of retrieved chunks used for context and scoring.
const DefaultTopK = 5

// Outcome classifies a finished Answer call.
type Outcome string

const (
	OutcomeAnswered    Outcome = "answered"
	OutcomeFallback    Outcome = "fallback"
	OutcomeNoDocuments Outcome = "no_documents"
	OutcomeFailed      Outcome = "failed"
)

// Observer is notified as Answer progresses. Implementations must be safe
// for concurrent use.
type Observer interface {
	StageDone(stage Stage, elapsed time.Duration, err error)
	AnswerDone(outcome Outcome, similarity, faithfulness float64)
}

// Config tunes a Pipeline.
type Config struct {
	// TopK chunks feed the context block. Zero uses DefaultTopK.
	TopK int

	// HistoryAware retrieves with the history-combined query. By default
	// only the raw query reaches the index.
	HistoryAware bool

	// StageTimeout bounds each external call. Zero means no timeout.
	StageTimeout time.Duration
}

// Result is the outcome of one answered query.
type Result struct {
	// Answer is the generated answer followed by the source listing.
	Answer string `json:"answer"`

	// RawAnswer is the generated answer alone, after the empty fallback.
	RawAnswer string `json:"-"`

	Similarity   float64          `json:"similarity"`
	Faithfulness float64          `json:"faithfulness"`
	Sources      []history.Source `json:"sources"`

	Outcome Outcome       `json:"-"`
	Elapsed time.Duration `json:"-"`
}

// Pipeline is safe for concurrent use when its collaborators are; all
// per-session state arrives through the History argument of Answer.
type Pipeline struct {
	index     retrieval.Index
	generator llm.Generator
	embedder  embeddings.Embedder
	cfg       Config
	observer  Observer
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver reports stage timings and outcomes to o.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// New creates a Pipeline.
func New(index retrieval.Index, generator llm.Generator, embedder embeddings.Embedder, cfg Config, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if index == nil {
		return nil, errors.New("index is required")
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}

	p := &Pipeline{
		index:     index,
		generator: generator,
		embedder:  embedder,
		cfg:       cfg,
		observer:  nopObserver{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// CombinedQuery prefixes query with the rendered history. Without a history
// it is the query itself.
func CombinedQuery(h *history.History, query string) string {
	if h == nil {
		return query
	}
	return h.Buffer() + "\n" + "User: " + query
}

// Answer answers query. h may be nil; when given it is appended to only
// after generation and scoring have both succeeded. Callers reject empty
// queries before calling.
//
// Any failure of an external call is logged and returned as a *StageError
// matching ErrRetrievalFailed.
func (p *Pipeline) Answer(ctx context.Context, query string, h *history.History) (*Result, error) {
	start := time.Now()
	p.logger.Info("answering query", "query", query)

	combined := CombinedQuery(h, query)
	searchQuery := query
	if p.cfg.HistoryAware {
		searchQuery = combined
	}
	p.logger.Debug("composed query",
		"combined", combined,
		"history_aware", p.cfg.HistoryAware,
	)

	var chunks []retrieval.Chunk
	err := p.run(ctx, StageRetrieve, func(ctx context.Context) error {
		var err error
		chunks, err = p.index.Search(ctx, searchQuery, 0)
		return err
	})
	if err != nil {
		return nil, p.fail(query, err)
	}

	if len(chunks) == 0 {
		p.logger.Info("no relevant documents", "query", query)
		p.observer.AnswerDone(OutcomeNoDocuments, 0, 0)
		return &Result{
			Answer:    NoDocumentsAnswer,
			RawAnswer: NoDocumentsAnswer,
			Sources:   []history.Source{},
			Outcome:   OutcomeNoDocuments,
			Elapsed:   time.Since(start),
		}, nil
	}

	// Context, sources and scoring see single-line content with the
	// source/page defaults applied, whatever the Index returned.
	top := make([]retrieval.Chunk, min(p.cfg.TopK, len(chunks)))
	sources := make([]history.Source, len(top))
	for i, c := range chunks[:len(top)] {
		top[i] = retrieval.NewChunk(c.Content, c.Source, c.Page)
		sources[i] = history.NewSource(top[i].Source, top[i].Page, top[i].Content)
	}

	var answer string
	err = p.run(ctx, StageGenerate, func(ctx context.Context) error {
		var err error
		answer, err = p.generator.Generate(ctx, query, ContextBlock(top))
		return err
	})
	if err != nil {
		return nil, p.fail(query, err)
	}

	outcome := OutcomeAnswered
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = FallbackAnswer
		outcome = OutcomeFallback
	}

	var similarity, faithfulness float64
	err = p.run(ctx, StageEmbed, func(ctx context.Context) error {
		var err error
		similarity, faithfulness, err = p.score(ctx, query, answer, top)
		return err
	})
	if err != nil {
		return nil, p.fail(query, err)
	}

	p.logger.Info("answer scored",
		"query", query,
		"similarity", similarity,
		"faithfulness", faithfulness,
		"sources", len(sources),
	)

	if h != nil {
		h.AppendExchange(query, answer, sources)
	}

	p.observer.AnswerDone(outcome, similarity, faithfulness)

	return &Result{
		Answer:       FormatAnswer(answer, sources),
		RawAnswer:    answer,
		Similarity:   similarity,
		Faithfulness: faithfulness,
		Sources:      sources,
		Outcome:      outcome,
		Elapsed:      time.Since(start),
	}, nil
}

// score embeds query, answer and every chunk in one batch.
func (p *Pipeline) score(ctx context.Context, query, answer string, chunks []retrieval.Chunk) (float64, float64, error) {
	texts := make([]string, 0, len(chunks)+2)
	texts = append(texts, query, answer)
	for _, c := range chunks {
		texts = append(texts, c.Content)
	}

	vecs, err := p.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return 0, 0, err
	}
	if len(vecs) != len(texts) {
		return 0, 0, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vecs))
	}

	queryVec, answerVec := vecs[0], vecs[1]
	contextVec, err := Mean(vecs[2:])
	if err != nil {
		return 0, 0, err
	}

	return Cosine(queryVec, answerVec), Cosine(contextVec, answerVec), nil
}

func (p *Pipeline) run(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	if p.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.StageTimeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	p.observer.StageDone(stage, time.Since(start), err)

	if err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}

func (p *Pipeline) fail(query string, err error) error {
	var stageErr *StageError
	stage := Stage("unknown")
	if errors.As(err, &stageErr) {
		stage = stageErr.Stage
	}

	p.logger.Error("retrieval failed",
		"query", query,
		"stage", string(stage),
		"error", err,
	)
	p.observer.AnswerDone(OutcomeFailed, 0, 0)
	return err
}

type nopObserver struct{}

func (nopObserver) StageDone(Stage, time.Duration, error) {}
func (nopObserver) AnswerDone(Outcome, float64, float64) {}
