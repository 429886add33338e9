// Package api provides the HTTP API server for asking legal questions over
// indexed judgments, with per-session history and the drafting tools.
package api

import (
	"context"
	"net/http"

	"github.com/papercomputeco/vakki/pkg/history"
	"github.com/papercomputeco/vakki/pkg/pipeline"
	"github.com/papercomputeco/vakki/pkg/retrieval"
	"github.com/papercomputeco/vakki/pkg/session"
	"github.com/papercomputeco/vakki/pkg/storage"
	"github.com/papercomputeco/vakki/pkg/worker"
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

// Auditor accepts audit jobs without blocking.
type Auditor interface {
	Enqueue(job worker.Job) bool
}

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	Pipeline Answerer
	Tools    Toolset
	Sessions *session.Manager

	// Index backs GET /v1/search. Optional.
	Index retrieval.Index

	// Auditor receives a job per answer. Optional.
	Auditor Auditor

	// AuditStore backs GET /v1/answers. Optional.
	AuditStore storage.Driver

	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler

	// MCPHandler is mounted at /mcp when set.
	MCPHandler http.Handler

	// Model is recorded on audit events.
	Model string
}
