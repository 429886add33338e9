// Package mcp provides an MCP (Model Context Protocol) server exposing the
// legal assistant's tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/vakki/pkg/history"
	"github.com/papercomputeco/vakki/pkg/pipeline"
	"github.com/papercomputeco/vakki/pkg/retrieval"
	"github.com/papercomputeco/vakki/pkg/utils"
)

// Answerer answers a query against an optional history.
type Answerer interface {
	Answer(ctx context.Context, query string, h *history.History) (*pipeline.Result, error)
}

// Toolset runs the single-turn summarize and draft tools.
type Toolset interface {
	Summarize(ctx context.Context, text string) (string, error)
	Draft(ctx context.Context, instruction string) (string, error)
}

type Config struct {
	// Pipeline answers questions. MCP calls are stateless and never carry history.
	Pipeline Answerer

	// Tools backs the summarize and draft tools.
	Tools Toolset

	// Index enables the search_judgments tool. Optional.
	Index retrieval.Index

	// Noop for empty MCP server
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the legal tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "vakki",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Pipeline == nil {
			return nil, errors.New("pipeline is required")
		}
		if c.Tools == nil {
			return nil, errors.New("tools are required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        answerToolName,
			Description: answerDescription,
		}, s.handleAnswer)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        summarizeToolName,
			Description: summarizeDescription,
		}, s.handleSummarize)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        draftToolName,
			Description: draftDescription,
		}, s.handleDraft)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        judgmentToolName,
			Description: judgmentDescription,
		}, s.handleJudgmentMetadata)

		if c.Index != nil {
			mcp.AddTool(mcpServer, &mcp.Tool{
				Name:        searchToolName,
				Description: searchDescription,
			}, s.handleSearch)
		}
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying server, e.g. for in-memory transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}
