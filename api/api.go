package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// SessionHeader carries the session id on requests and responses.
const SessionHeader = "X-Session-ID"

// Server is the vakki API server.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	if config.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if config.Sessions == nil {
		return nil, errors.New("session manager is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return errorJSON(c, fe.Code, fe.Message)
			}
			return errorJSON(c, fiber.StatusInternalServerError, err.Error())
		},
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	app.Use(recover.New())
	app.Use(s.requestLogger)

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Post("/answer", s.handleAnswer)
	v1.Post("/summarize", s.handleSummarize)
	v1.Post("/draft", s.handleDraft)
	v1.Post("/judgments/metadata", s.handleJudgmentMetadata)
	v1.Get("/search", s.handleSearchEndpoint)
	v1.Get("/sessions/:id/transcript", s.handleTranscript)
	v1.Delete("/sessions/:id", s.handleDeleteSession)
	v1.Get("/answers", s.handleListAnswers)

	if config.MetricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(config.MetricsHandler))
	}
	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	s.logger.Debug("request handled",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return err
}
