package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/vakki/pkg/retrieval"
)

// SearchOutput is the body of GET /v1/search.
type SearchOutput struct {
	Query   string            `json:"query"`
	Results []retrieval.Chunk `json:"results"`
	Count   int               `json:"count"`
}

// handleSearchEndpoint handles GET /v1/search requests.
// Query parameters:
//   - query (required): the search query text
//   - top_k (optional, index default when absent): number of chunks to return
func (s *Server) handleSearchEndpoint(c *fiber.Ctx) error {
	if s.config.Index == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "search is not configured")
	}

	query := c.Query("query")
	if query == "" {
		return errorJSON(c, fiber.StatusBadRequest, "query parameter is required")
	}

	topK := 0
	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return errorJSON(c, fiber.StatusBadRequest, "top_k must be a positive integer")
		}
		topK = parsed
	}

	chunks, err := s.config.Index.Search(c.UserContext(), query, topK)
	if err != nil {
		s.logger.Error("search failed", "query", query, "error", err)
		return errorJSON(c, fiber.StatusBadGateway, err.Error())
	}
	if chunks == nil {
		chunks = []retrieval.Chunk{}
	}

	return c.JSON(SearchOutput{
		Query:   query,
		Results: chunks,
		Count:   len(chunks),
	})
}
