package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vakki/pkg/history"
	"github.com/papercomputeco/vakki/pkg/logger"
	"github.com/papercomputeco/vakki/pkg/pipeline"
	"github.com/papercomputeco/vakki/pkg/retrieval"
	testutils "github.com/papercomputeco/vakki/pkg/utils/test"
)

const (
	theftQuery  = "What is the punishment for theft under Section 379?"
	theftAnswer = "Theft is punishable with imprisonment up to three years, or fine, or both."
	page45      = "Section 379. Punishment for theft. Whoever commits theft shall be punished with imprisonment of either description for a term which may extend to three years, or with fine, or with both."
	page46      = "Section 380. Theft in dwelling house, etc."
)

type recordingObserver struct {
	mu       sync.Mutex
	stages   []pipeline.Stage
	outcomes []pipeline.Outcome
}

func (o *recordingObserver) StageDone(stage pipeline.Stage, _ time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, stage)
}

func (o *recordingObserver) AnswerDone(outcome pipeline.Outcome, _, _ float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

// blockingIndex waits for its context to end.
type blockingIndex struct{}

func (blockingIndex) Search(ctx context.Context, _ string, _ int) ([]retrieval.Chunk, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

var _ = Describe("Pipeline", func() {
	var (
		ctx       context.Context
		index     *testutils.MockIndex
		generator *testutils.MockGenerator
		embedder  *testutils.MockEmbedder
		observer  *recordingObserver
		cfg       pipeline.Config
		h         *history.History
	)

	newPipeline := func() *pipeline.Pipeline {
		p, err := pipeline.New(index, generator, embedder, cfg, logger.Nop(), pipeline.WithObserver(observer))
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	BeforeEach(func() {
		ctx = context.Background()
		index = testutils.NewMockIndex(
			retrieval.NewChunk(page45, "ipc.pdf", "45"),
			retrieval.NewChunk(page46, "ipc.pdf", "46"),
		)
		generator = testutils.NewMockGenerator(theftAnswer)
		embedder = testutils.NewMockEmbedder()
		embedder.Embeddings[theftQuery] = []float32{1, 0.2, 0}
		embedder.Embeddings[theftAnswer] = []float32{0.9, 0.3, 0.1}
		embedder.Embeddings[page45] = []float32{0.8, 0.2, 0.1}
		embedder.Embeddings[page46] = []float32{0.6, 0.4, 0.2}
		observer = &recordingObserver{}
		cfg = pipeline.Config{}
		h = history.New()
	})

	Describe("New", func() {
		It("requires every collaborator", func() {
			_, err := pipeline.New(nil, generator, embedder, cfg, logger.Nop())
			Expect(err).To(HaveOccurred())
			_, err = pipeline.New(index, nil, embedder, cfg, logger.Nop())
			Expect(err).To(HaveOccurred())
			_, err = pipeline.New(index, generator, nil, cfg, logger.Nop())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Answer", func() {
		It("answers the Section 379 question with cited sources", func() {
			res, err := newPipeline().Answer(ctx, theftQuery, h)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Sources).To(HaveLen(2))
			Expect(res.Sources[0].Source).To(Equal("ipc.pdf"))
			Expect(res.Sources[0].Page).To(Equal("45"))
			Expect(res.Sources[1].Source).To(Equal("ipc.pdf"))
			Expect(res.Sources[1].Page).To(Equal("46"))

			Expect(res.Answer).To(HavePrefix(theftAnswer))
			header := strings.Index(res.Answer, "Sources Referenced")
			Expect(header).To(BeNumerically(">", len(theftAnswer)))
			Expect(res.Answer[header:]).To(ContainSubstring("[ipc.pdf](ipc.pdf) (Page 45)"))
			Expect(res.Answer[header:]).To(ContainSubstring("[ipc.pdf](ipc.pdf) (Page 46)"))

			Expect(res.Similarity).To(BeNumerically(">", 0))
			Expect(res.Faithfulness).To(BeNumerically(">", 0))
			Expect(res.RawAnswer).To(Equal(theftAnswer))
			Expect(res.Outcome).To(Equal(pipeline.OutcomeAnswered))
		})

		It("passes the raw query and the annotated context to the generator", func() {
			_, err := newPipeline().Answer(ctx, theftQuery, h)
			Expect(err).NotTo(HaveOccurred())

			calls := generator.Calls()
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].Query).To(Equal(theftQuery))
			Expect(calls[0].Context).To(Equal(
				page45 + "\n📄 **Source**: `ipc.pdf` | **Page**: 45" +
					"\n\n---\n\n" +
					page46 + "\n📄 **Source**: `ipc.pdf` | **Page**: 46",
			))
		})

		It("returns the sentinel when nothing is retrieved", func() {
			index.Chunks = nil
			h.AppendExchange("earlier", "answer", nil)

			res, err := newPipeline().Answer(ctx, "What is adverse possession?", h)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Answer).To(Equal(pipeline.NoDocumentsAnswer))
			Expect(res.Similarity).To(Equal(0.0))
			Expect(res.Faithfulness).To(Equal(0.0))
			Expect(res.Sources).To(BeEmpty())
			Expect(res.Sources).NotTo(BeNil())

			Expect(generator.Calls()).To(BeEmpty())
			Expect(h.Len()).To(Equal(3))
			Expect(observer.outcomes).To(Equal([]pipeline.Outcome{pipeline.OutcomeNoDocuments}))
		})

		It("keeps at most top_k sources in rank order", func() {
			chunks := make([]retrieval.Chunk, 7)
			for i := range chunks {
				chunks[i] = retrieval.NewChunk(fmt.Sprintf("chunk %d", i), "ipc.pdf", fmt.Sprint(i))
			}
			index.Chunks = chunks

			res, err := newPipeline().Answer(ctx, theftQuery, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Sources).To(HaveLen(pipeline.DefaultTopK))
			for i, s := range res.Sources {
				Expect(s.Page).To(Equal(fmt.Sprint(i)))
			}

			Expect(strings.Count(generator.Calls()[0].Context, "📄 **Source**")).To(Equal(pipeline.DefaultTopK))

			batches := embedder.Calls()
			Expect(batches).To(HaveLen(1))
			Expect(batches[0]).To(HaveLen(2 + pipeline.DefaultTopK))
		})

		It("uses fewer sources when fewer are retrieved", func() {
			cfg.TopK = 3
			index.Chunks = index.Chunks[:1]

			res, err := newPipeline().Answer(ctx, theftQuery, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Sources).To(HaveLen(1))
		})

		It("flattens chunk content the index left multi-line", func() {
			index.Chunks = []retrieval.Chunk{
				{Content: "  Section 379.\nPunishment\r\nfor\rtheft.  ", Source: "", Page: ""},
			}

			res, err := newPipeline().Answer(ctx, theftQuery, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(generator.Calls()[0].Context).To(Equal(
				"Section 379. Punishment for theft.\n📄 **Source**: `unknown` | **Page**: N/A",
			))
			Expect(res.Sources).To(Equal([]history.Source{
				{Source: retrieval.UnknownSource, Page: retrieval.UnknownPage, Excerpt: "Section 379. Punishment for theft."},
			}))
			Expect(embedder.Calls()[0]).To(ContainElement("Section 379. Punishment for theft."))
		})

		It("keeps excerpts as prefixes of chunk content", func() {
			long := strings.Repeat("The accused was convicted. ", 60)
			index.Chunks = []retrieval.Chunk{retrieval.NewChunk(long, "judgment.pdf", "3")}

			res, err := newPipeline().Answer(ctx, theftQuery, nil)
			Expect(err).NotTo(HaveOccurred())

			content := index.Chunks[0].Content
			excerpt := res.Sources[0].Excerpt
			Expect(strings.HasPrefix(content, excerpt)).To(BeTrue())
			Expect(len([]rune(excerpt))).To(BeNumerically("<=", history.ExcerptLimit))
		})

		It("substitutes and scores the fallback when the generator returns nothing", func() {
			generator.Answer = "   "

			res, err := newPipeline().Answer(ctx, theftQuery, h)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Answer).To(HavePrefix(pipeline.FallbackAnswer))
			Expect(res.Outcome).To(Equal(pipeline.OutcomeFallback))

			batch := embedder.Calls()[0]
			Expect(batch[1]).To(Equal(pipeline.FallbackAnswer))

			Expect(h.Turns()[1].Content).To(Equal(pipeline.FallbackAnswer))
		})

		It("scores within the cosine range", func() {
			embedder.Embeddings[theftAnswer] = []float32{-0.9, -0.1, 0.4}

			res, err := newPipeline().Answer(ctx, theftQuery, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Similarity).To(BeNumerically(">=", -1))
			Expect(res.Similarity).To(BeNumerically("<=", 1))
			Expect(res.Similarity).To(BeNumerically("<", 0))
			Expect(res.Faithfulness).To(BeNumerically(">=", -1))
			Expect(res.Faithfulness).To(BeNumerically("<=", 1))
		})

		It("scores zero-magnitude embeddings as 0", func() {
			embedder.Embeddings[theftAnswer] = []float32{0, 0, 0}

			res, err := newPipeline().Answer(ctx, theftQuery, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Similarity).To(Equal(0.0))
			Expect(res.Faithfulness).To(Equal(0.0))
		})

		It("appends user, answer and sources turns on success", func() {
			res, err := newPipeline().Answer(ctx, theftQuery, h)
			Expect(err).NotTo(HaveOccurred())

			turns := h.Turns()
			Expect(turns).To(HaveLen(3))
			Expect(turns[0]).To(Equal(history.Turn{Role: history.RoleUser, Content: theftQuery}))
			Expect(turns[1].Role).To(Equal(history.RoleAssistant))
			Expect(turns[1].Content).To(Equal(theftAnswer))
			Expect(turns[2].Role).To(Equal(history.RoleAssistant))
			Expect(turns[2].Sources).To(Equal(res.Sources))
		})

		It("preserves call order across many answers", func() {
			p := newPipeline()
			queries := []string{"first question", "second question", "third question", "fourth question"}
			for _, q := range queries {
				_, err := p.Answer(ctx, q, h)
				Expect(err).NotTo(HaveOccurred())
			}

			turns := h.Turns()
			Expect(turns).To(HaveLen(3 * len(queries)))
			for i, q := range queries {
				Expect(turns[3*i].Content).To(Equal(q))
				Expect(turns[3*i+1].Content).To(Equal(theftAnswer))
				Expect(turns[3*i+2].IsSources()).To(BeTrue())
			}
		})

		It("works without a history", func() {
			res, err := newPipeline().Answer(ctx, theftQuery, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Sources).To(HaveLen(2))
		})

		It("retrieves with the raw query by default", func() {
			h.AppendExchange("What is Section 378?", "It defines theft.", nil)

			_, err := newPipeline().Answer(ctx, theftQuery, h)
			Expect(err).NotTo(HaveOccurred())
			Expect(index.Queries()).To(Equal([]string{theftQuery}))
		})

		It("retrieves with the combined query when history aware", func() {
			cfg.HistoryAware = true
			h.AppendExchange("What is Section 378?", "It defines theft.", nil)
			combined := pipeline.CombinedQuery(h, theftQuery)

			_, err := newPipeline().Answer(ctx, theftQuery, h)
			Expect(err).NotTo(HaveOccurred())
			Expect(index.Queries()).To(Equal([]string{combined}))
			Expect(combined).To(HaveSuffix("\nUser: " + theftQuery))
			Expect(combined).To(HavePrefix("User: What is Section 378?"))
		})

		It("reports each stage to the observer", func() {
			_, err := newPipeline().Answer(ctx, theftQuery, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(observer.stages).To(Equal([]pipeline.Stage{
				pipeline.StageRetrieve, pipeline.StageGenerate, pipeline.StageEmbed,
			}))
			Expect(observer.outcomes).To(Equal([]pipeline.Outcome{pipeline.OutcomeAnswered}))
		})
	})

	Describe("failures", func() {
		expectStageFailure := func(err error, stage pipeline.Stage) {
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, pipeline.ErrRetrievalFailed)).To(BeTrue())
			var stageErr *pipeline.StageError
			Expect(errors.As(err, &stageErr)).To(BeTrue())
			Expect(stageErr.Stage).To(Equal(stage))
		}

		It("propagates index failures", func() {
			cause := errors.New("index unavailable")
			index.Err = cause

			_, err := newPipeline().Answer(ctx, theftQuery, h)
			expectStageFailure(err, pipeline.StageRetrieve)
			Expect(errors.Is(err, cause)).To(BeTrue())
			Expect(h.Len()).To(Equal(0))
			Expect(observer.outcomes).To(Equal([]pipeline.Outcome{pipeline.OutcomeFailed}))
		})

		It("propagates generation failures without touching history", func() {
			generator.Err = errors.New("model overloaded")

			_, err := newPipeline().Answer(ctx, theftQuery, h)
			expectStageFailure(err, pipeline.StageGenerate)
			Expect(err).To(MatchError(ContainSubstring("model overloaded")))
			Expect(h.Len()).To(Equal(0))
		})

		It("propagates embedding failures without touching history", func() {
			embedder.FailOn = theftAnswer

			_, err := newPipeline().Answer(ctx, theftQuery, h)
			expectStageFailure(err, pipeline.StageEmbed)
			Expect(h.Len()).To(Equal(0))
		})

		It("fails a stage that exceeds its timeout", func() {
			cfg.StageTimeout = 20 * time.Millisecond
			p, err := pipeline.New(blockingIndex{}, generator, embedder, cfg, logger.Nop())
			Expect(err).NotTo(HaveOccurred())

			_, err = p.Answer(ctx, theftQuery, h)
			expectStageFailure(err, pipeline.StageRetrieve)
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
		})
	})
})
