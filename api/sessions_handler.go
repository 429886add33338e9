package api

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/vakki/pkg/storage"
	"github.com/papercomputeco/vakki/pkg/transcript"
)

// handleTranscript renders a session's conversation as markdown or JSON.
func (s *Server) handleTranscript(c *fiber.Ctx) error {
	id := c.Params("id")

	format, err := transcript.ParseFormat(c.Query("format"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	sess, ok := s.config.Sessions.Get(id)
	if !ok {
		return errorJSON(c, fiber.StatusNotFound, "session not found")
	}

	var buf bytes.Buffer
	if err := transcript.Write(&buf, sess.ID, sess.History.Turns(), format); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	c.Set(fiber.HeaderContentType, format.ContentType())
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="vakki-%s.%s"`, sess.ID, format.Extension()))
	return c.Send(buf.Bytes())
}

// handleDeleteSession drops a session and its history.
func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	if !s.config.Sessions.Delete(c.Params("id")) {
		return errorJSON(c, fiber.StatusNotFound, "session not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleListAnswers lists recent audit records, newest first.
func (s *Server) handleListAnswers(c *fiber.Ctx) error {
	if s.config.AuditStore == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, errNoAudit.Error())
	}

	limit := storage.DefaultListLimit
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return errorJSON(c, fiber.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	records, err := s.config.AuditStore.List(c.UserContext(), limit)
	if err != nil {
		s.logger.Error("failed to list answers", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to list answers")
	}
	if records == nil {
		records = []*storage.AnswerRecord{}
	}

	return c.JSON(map[string]any{
		"count":   len(records),
		"answers": records,
	})
}
