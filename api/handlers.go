package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/vakki/pkg/judgment"
	"github.com/papercomputeco/vakki/pkg/pipeline"
	"github.com/papercomputeco/vakki/pkg/storage"
	"github.com/papercomputeco/vakki/pkg/utils"
	"github.com/papercomputeco/vakki/pkg/worker"
)

// AnswerRequest is the body of POST /v1/answer.
type AnswerRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// AnswerResponse carries the pipeline result and the session it was recorded in.
type AnswerResponse struct {
	SessionID string `json:"session_id"`
	*pipeline.Result
}

// SummarizeRequest is the body of POST /v1/summarize. Without Answer the
// session's last answer is summarized.
type SummarizeRequest struct {
	Answer    string `json:"answer,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// SummarizeResponse is the summary text.
type SummarizeResponse struct {
	Summary string `json:"summary"`
}

// DraftRequest is the body of POST /v1/draft.
type DraftRequest struct {
	Instruction string `json:"instruction"`
}

// DraftResponse is the drafted document.
type DraftResponse struct {
	Draft string `json:"draft"`
}

// JudgmentRequest is the JSON body of POST /v1/judgments/metadata. A
// text/plain body is read as the judgment text directly.
type JudgmentRequest struct {
	Text string `json:"text"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleAnswer runs the pipeline for one query within a session.
func (s *Server) handleAnswer(c *fiber.Ctx) error {
	var req AnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return errorJSON(c, fiber.StatusBadRequest, "query is required")
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = c.Get(SessionHeader)
	}

	sess, created, err := s.config.Sessions.GetOrCreate(sessionID)
	if err != nil {
		return errorJSON(c, statusFor(err), err.Error())
	}
	c.Set(SessionHeader, sess.ID)

	s.logger.Debug("answer request",
		"session_id", sess.ID,
		"new_session", created,
		"query", utils.Truncate(query, 120),
	)

	res, err := s.config.Pipeline.Answer(c.UserContext(), query, sess.History)
	if err != nil {
		return errorJSON(c, statusFor(err), err.Error())
	}

	if res.Outcome == pipeline.OutcomeAnswered || res.Outcome == pipeline.OutcomeFallback {
		sess.SetLastAnswer(res.RawAnswer)
	}
	s.audit(sess.ID, query, res)

	return c.JSON(AnswerResponse{SessionID: sess.ID, Result: res})
}

// audit hands the answer to the audit pool. Dropped jobs are logged by the pool.
func (s *Server) audit(sessionID, query string, res *pipeline.Result) {
	if s.config.Auditor == nil {
		return
	}

	s.config.Auditor.Enqueue(worker.Job{
		Record: &storage.AnswerRecord{
			ID:           uuid.NewString(),
			SessionID:    sessionID,
			Query:        query,
			Answer:       res.Answer,
			Outcome:      string(res.Outcome),
			Similarity:   res.Similarity,
			Faithfulness: res.Faithfulness,
			Sources:      res.Sources,
			DurationMs:   res.Elapsed.Milliseconds(),
			CreatedAt:    time.Now().UTC(),
		},
		Model: s.config.Model,
	})
}

// handleSummarize summarizes the given text or the session's last answer.
func (s *Server) handleSummarize(c *fiber.Ctx) error {
	if s.config.Tools == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "tools are not configured")
	}

	var req SummarizeRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	text := req.Answer
	if strings.TrimSpace(text) == "" {
		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = c.Get(SessionHeader)
		}
		if sess, ok := s.config.Sessions.Get(sessionID); ok {
			text = sess.LastAnswer()
		}
	}
	if strings.TrimSpace(text) == "" {
		return errorJSON(c, fiber.StatusBadRequest, "nothing to summarize: provide an answer or a session with an answer")
	}

	summary, err := s.config.Tools.Summarize(c.UserContext(), text)
	if err != nil {
		return s.toolError(c, "summarize", err)
	}

	return c.JSON(SummarizeResponse{Summary: summary})
}

// handleDraft drafts a legal document from an instruction.
func (s *Server) handleDraft(c *fiber.Ctx) error {
	if s.config.Tools == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "tools are not configured")
	}

	var req DraftRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	draft, err := s.config.Tools.Draft(c.UserContext(), req.Instruction)
	if err != nil {
		return s.toolError(c, "draft", err)
	}

	return c.JSON(DraftResponse{Draft: draft})
}

func (s *Server) toolError(c *fiber.Ctx, tool string, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("tool failed", "tool", tool, "error", err)
		// completer failures are upstream failures
		status = fiber.StatusBadGateway
	}
	return errorJSON(c, status, err.Error())
}

// handleJudgmentMetadata extracts metadata from judgment text.
func (s *Server) handleJudgmentMetadata(c *fiber.Ctx) error {
	var text string
	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMETextPlain) {
		text = string(c.Body())
	} else {
		var req JudgmentRequest
		if err := c.BodyParser(&req); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
		}
		text = req.Text
	}

	if strings.TrimSpace(text) == "" {
		return errorJSON(c, fiber.StatusBadRequest, "judgment text is required")
	}

	return c.JSON(judgment.Extract(text))
}
