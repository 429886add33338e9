// Package servecmder provides the serve command that runs the vakki API
// server with its MCP endpoint and metrics.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vakki/api"
	"github.com/papercomputeco/vakki/api/mcp"
	"github.com/papercomputeco/vakki/cmd/vakki/sqlitepath"
	"github.com/papercomputeco/vakki/pkg/config"
	embeddingsutils "github.com/papercomputeco/vakki/pkg/embeddings/utils"
	"github.com/papercomputeco/vakki/pkg/eventstream"
	"github.com/papercomputeco/vakki/pkg/eventstream/kafka"
	"github.com/papercomputeco/vakki/pkg/eventstream/nop"
	"github.com/papercomputeco/vakki/pkg/history"
	"github.com/papercomputeco/vakki/pkg/llm"
	"github.com/papercomputeco/vakki/pkg/llm/provider"
	"github.com/papercomputeco/vakki/pkg/logger"
	"github.com/papercomputeco/vakki/pkg/metrics"
	"github.com/papercomputeco/vakki/pkg/pipeline"
	"github.com/papercomputeco/vakki/pkg/prompt"
	"github.com/papercomputeco/vakki/pkg/retrieval"
	"github.com/papercomputeco/vakki/pkg/session"
	"github.com/papercomputeco/vakki/pkg/storage"
	"github.com/papercomputeco/vakki/pkg/storage/inmemory"
	"github.com/papercomputeco/vakki/pkg/storage/postgres"
	"github.com/papercomputeco/vakki/pkg/storage/sqlite"
	"github.com/papercomputeco/vakki/pkg/tools"
	vectorutils "github.com/papercomputeco/vakki/pkg/vector/utils"
	"github.com/papercomputeco/vakki/pkg/worker"
)

// sweepInterval is how often idle sessions are checked for.
const sweepInterval = time.Minute

type serveCommander struct {
	listen         string
	topK           uint
	searchK        uint
	vectorProvider string
	vectorTarget   string
	collection     string
	embProvider    string
	embTarget      string
	embModel       string
	embDimensions  uint
	llmProvider    string
	llmModel       string
	llmTarget      string
	promptsDir     string

	logFormat string
	logFile   string
	debug     bool

	cfg    *config.Config
	dotdir string
	logger *slog.Logger
}

var serveFlagKeys = []string{
	config.FlagAPIListenStandalone,
	config.FlagTopK,
	config.FlagSearchK,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagCollection,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagLLMProvider,
	config.FlagLLMModel,
	config.FlagLLMTarget,
	config.FlagPromptsDir,
}

const serveLongDesc string = `Run the vakki API server.

The server answers questions over the indexed judgment corpus and exposes:
  POST /v1/answer                  Answer a question within a session
  POST /v1/summarize, /v1/draft    Summarize an answer, draft a legal document
  POST /v1/judgments/metadata      Extract judgment metadata
  GET  /v1/search                  Search the judgment index
  GET  /v1/sessions/:id/transcript Export a session transcript
  GET  /v1/answers                 List audited answers (when audit is enabled)
  ALL  /mcp                        MCP tools over streamable HTTP
  GET  /metrics                    Prometheus metrics

Flags override config.toml values and VAKKI_* environment variables.

Examples:
  vakki serve
  vakki serve --llm-provider anthropic --llm-model claude-sonnet-4-5
  vakki serve --vector-store-provider qdrant --vector-store-target localhost:6334`

const serveShortDesc string = "Run the vakki API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.ServeFlags, serveFlagKeys)

			cmder.cfg, err = config.Unmarshal(v)
			if err != nil {
				return err
			}

			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.dotdir = cfger.Dir()
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.ServeFlags, config.FlagAPIListenStandalone, &cmder.listen)
	config.AddUintFlag(cmd, config.ServeFlags, config.FlagTopK, &cmder.topK)
	config.AddUintFlag(cmd, config.ServeFlags, config.FlagSearchK, &cmder.searchK)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagCollection, &cmder.collection)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEmbeddingProv, &cmder.embProvider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEmbeddingTgt, &cmder.embTarget)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEmbeddingModel, &cmder.embModel)
	config.AddUintFlag(cmd, config.ServeFlags, config.FlagEmbeddingDims, &cmder.embDimensions)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagLLMProvider, &cmder.llmProvider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagLLMModel, &cmder.llmModel)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagLLMTarget, &cmder.llmTarget)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagPromptsDir, &cmder.promptsDir)
	cmd.Flags().StringVar(&cmder.logFormat, "log-format", string(logger.FormatPretty),
		"Console log format: "+strings.Join(logger.Formats(), ", "))
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	var closeLog func()
	var err error
	c.logger, closeLog, err = c.newLogger(os.Stdout)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := c.cfg
	recorder := metrics.New()

	// Retrieval
	vectorTarget := cfg.VectorStore.Target
	if cfg.VectorStore.Provider == "sqlite" {
		vectorTarget, err = sqlitepath.Resolve(vectorTarget, c.dotdir, sqlitepath.VectorsDB)
		if err != nil {
			return err
		}
	}

	driver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		Target:       vectorTarget,
		Collection:   cfg.VectorStore.Collection,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector driver: %w", err)
	}
	defer driver.Close()

	embedder, err := embeddingsutils.NewEmbedder(&embeddingsutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		Dimensions:   cfg.Embedding.Dimensions,
		CacheEnabled: cfg.EmbeddingCache.Enabled,
		RedisAddr:    cfg.EmbeddingCache.RedisAddr,
		CacheTTL:     time.Duration(cfg.EmbeddingCache.TTLMinutes) * time.Minute,
		OnLookup:     recorder.CacheLookup,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	index, err := retrieval.NewVectorIndex(embedder, driver, int(cfg.Retrieval.SearchK), c.logger)
	if err != nil {
		return err
	}

	// Generation
	llmProvider, err := provider.New(cfg.LLM.Provider, cfg.LLM.Model, provider.Config{
		BaseURL: cfg.LLM.Target,
	})
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}
	completer := provider.NewCompleter(llmProvider, provider.Settings{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		TopP:        cfg.LLM.TopP,
	})

	prompts, err := prompt.New(cfg.Prompts.Dir, c.logger)
	if err != nil {
		return fmt.Errorf("loading prompts: %w", err)
	}
	go func() {
		if err := prompts.Watch(ctx); err != nil {
			c.logger.Warn("prompt watcher stopped", "error", err)
		}
	}()

	generator, err := llm.NewAnswerGenerator(completer, prompts)
	if err != nil {
		return err
	}

	pipe, err := pipeline.New(index, generator, embedder, pipeline.Config{
		TopK:         int(cfg.Retrieval.TopK),
		HistoryAware: cfg.Retrieval.HistoryAware,
		StageTimeout: time.Duration(cfg.Retrieval.StageTimeoutSeconds) * time.Second,
	}, c.logger, pipeline.WithObserver(recorder))
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	toolset := tools.New(completer, prompts)

	// Sessions
	sessions, err := c.newSessionManager()
	if err != nil {
		return err
	}
	go sessions.Run(ctx, sweepInterval)

	apiConfig := api.Config{
		ListenAddr:     cfg.API.Listen,
		Pipeline:       pipe,
		Tools:          toolset,
		Sessions:       sessions,
		Index:          index,
		MetricsHandler: recorder.Handler(),
		Model:          cfg.LLM.Model,
	}

	// Audit
	if cfg.Audit.Enabled {
		store, err := c.newAuditStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		publisher, err := c.newPublisher()
		if err != nil {
			return err
		}
		defer publisher.Close()

		pool, err := worker.NewPool(&worker.Config{
			Driver:     store,
			Publisher:  publisher,
			NumWorkers: cfg.Audit.Workers,
			QueueSize:  cfg.Audit.QueueSize,
			Logger:     c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating audit worker pool: %w", err)
		}
		// Drain queued jobs before the store and publisher close.
		defer pool.Close()

		apiConfig.Auditor = pool
		apiConfig.AuditStore = store
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Pipeline: pipe,
		Tools:    toolset,
		Index:    index,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}
	apiConfig.MCPHandler = mcpServer.Handler()

	server, err := api.NewServer(apiConfig, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.logger.Info("starting API server",
		"listen", cfg.API.Listen,
		"vector_store", cfg.VectorStore.Provider,
		"embedding_provider", cfg.Embedding.Provider,
		"llm_provider", llmProvider.Name(),
		"llm_model", cfg.LLM.Model,
		"audit", cfg.Audit.Enabled,
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("received signal, shutting down")
		return server.Shutdown()
	}
}

// newLogger builds the console logger and, with --log-file, tees it with a
// JSON file logger. The returned func closes the file.
func (c *serveCommander) newLogger(console io.Writer) (*slog.Logger, func(), error) {
	format, err := logger.ParseFormat(c.logFormat)
	if err != nil {
		return nil, nil, err
	}

	l := logger.New(
		logger.WithDebug(c.debug),
		logger.WithFormat(format),
		logger.WithWriter(console),
	)
	if c.logFile == "" {
		return l, func() {}, nil
	}

	fileLogger, closer, err := logger.OpenFile(c.logFile,
		logger.WithDebug(c.debug),
		logger.WithSource(c.debug),
	)
	if err != nil {
		return nil, nil, err
	}

	return logger.Multi(l, fileLogger), func() { _ = closer.Close() }, nil
}

func (c *serveCommander) newSessionManager() (*session.Manager, error) {
	hc := c.cfg.History
	historyOpts := []history.Option{history.WithMaxTurns(int(hc.MaxTurns))}

	if hc.MaxTokens > 0 {
		counter, err := history.NewTiktokenCounter(c.cfg.LLM.Model)
		if err != nil {
			return nil, fmt.Errorf("creating token counter: %w", err)
		}
		historyOpts = append(historyOpts, history.WithMaxTokens(int(hc.MaxTokens), counter))
	}

	return session.NewManager(c.logger,
		session.WithHistoryOptions(historyOpts...),
		session.WithIdleTimeout(time.Duration(hc.SessionIdleMinutes)*time.Minute),
	), nil
}

func (c *serveCommander) newAuditStore(ctx context.Context) (storage.Driver, error) {
	ac := c.cfg.Audit

	switch ac.Provider {
	case "sqlite":
		path, err := sqlitepath.Resolve(ac.Target, c.dotdir, sqlitepath.AuditDB)
		if err != nil {
			return nil, err
		}
		driver, err := sqlite.NewSQLiteDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite audit store: %w", err)
		}
		c.logger.Info("using SQLite audit store", "path", path)
		return driver, nil

	case "postgres":
		if ac.Target == "" {
			return nil, errors.New("postgres audit store needs a connection string (audit.target)")
		}
		driver, err := postgres.NewDriver(ctx, ac.Target)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres audit store: %w", err)
		}
		c.logger.Info("using postgres audit store")
		return driver, nil

	case "memory":
		c.logger.Info("using in-memory audit store")
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unsupported audit provider: %s", ac.Provider)
	}
}

func (c *serveCommander) newPublisher() (eventstream.Publisher, error) {
	ec := c.cfg.Events

	switch ec.Provider {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: ec.Brokers,
			Topic:   ec.Topic,
		}, c.logger)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		c.logger.Info("publishing answer events to kafka", "topic", ec.Topic)
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", ec.Provider)
	}
}
