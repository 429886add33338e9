package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/vakki/pkg/history"
	"github.com/papercomputeco/vakki/pkg/judgment"
	"github.com/papercomputeco/vakki/pkg/retrieval"
)

var (
	answerToolName    = "answer"
	answerDescription = "Answer a question about Indian law from the indexed court judgments. Returns the answer with its cited sources and two relevance scores: similarity (query to answer) and faithfulness (retrieved context to answer)."

	summarizeToolName    = "summarize"
	summarizeDescription = "Summarize a legal answer or passage in plain language."

	draftToolName    = "draft"
	draftDescription = "Draft a formal Indian legal document (petition, notice, affidavit) from an instruction."

	judgmentToolName    = "judgment_metadata"
	judgmentDescription = "Extract court, date, case name, bench, case numbers and cited reports from the text of an Indian judgment."

	searchToolName    = "search_judgments"
	searchDescription = "Semantic search over the indexed judgment chunks. Returns the raw passages with their source document and page."
)

// AnswerInput represents the input arguments for the answer tool.
type AnswerInput struct {
	Query string `json:"query" jsonschema:"the legal question to answer"`
}

// AnswerOutput represents the output of the answer tool.
type AnswerOutput struct {
	Answer       string           `json:"answer"`
	Similarity   float64          `json:"similarity"`
	Faithfulness float64          `json:"faithfulness"`
	Sources      []history.Source `json:"sources"`
}

// TextInput is the input of the summarize tool.
type TextInput struct {
	Text string `json:"text" jsonschema:"the text to summarize"`
}

// SummarizeOutput is the output of the summarize tool.
type SummarizeOutput struct {
	Summary string `json:"summary"`
}

// DraftInput is the input of the draft tool.
type DraftInput struct {
	Instruction string `json:"instruction" jsonschema:"what to draft, including parties and facts where known"`
}

// DraftOutput is the output of the draft tool.
type DraftOutput struct {
	Draft string `json:"draft"`
}

// JudgmentInput is the input of the judgment_metadata tool.
type JudgmentInput struct {
	Text string `json:"text" jsonschema:"the full text of the judgment"`
}

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query text"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of passages to return (default: 5)"`
}

// SearchOutput represents the output of the search tool.
type SearchOutput struct {
	Query   string            `json:"query"`
	Results []retrieval.Chunk `json:"results"`
	Count   int               `json:"count"`
}

func (s *Server) handleAnswer(ctx context.Context, _ *mcp.CallToolRequest, input AnswerInput) (*mcp.CallToolResult, AnswerOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return errorResult("query is required"), emptyAnswer(), nil
	}

	s.config.Logger.Debug("MCP answer request", "query", input.Query)

	res, err := s.config.Pipeline.Answer(ctx, input.Query, nil)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to answer: %v", err)), emptyAnswer(), nil
	}

	out := AnswerOutput{
		Answer:       res.Answer,
		Similarity:   res.Similarity,
		Faithfulness: res.Faithfulness,
		Sources:      res.Sources,
	}
	return s.jsonResult(out), out, nil
}

func (s *Server) handleSummarize(ctx context.Context, _ *mcp.CallToolRequest, input TextInput) (*mcp.CallToolResult, SummarizeOutput, error) {
	summary, err := s.config.Tools.Summarize(ctx, input.Text)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to summarize: %v", err)), SummarizeOutput{}, nil
	}

	out := SummarizeOutput{Summary: summary}
	return textResult(summary), out, nil
}

func (s *Server) handleDraft(ctx context.Context, _ *mcp.CallToolRequest, input DraftInput) (*mcp.CallToolResult, DraftOutput, error) {
	draft, err := s.config.Tools.Draft(ctx, input.Instruction)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to draft: %v", err)), DraftOutput{}, nil
	}

	out := DraftOutput{Draft: draft}
	return textResult(draft), out, nil
}

func (s *Server) handleJudgmentMetadata(_ context.Context, _ *mcp.CallToolRequest, input JudgmentInput) (*mcp.CallToolResult, judgment.Metadata, error) {
	if strings.TrimSpace(input.Text) == "" {
		return errorResult("judgment text is required"), judgment.Extract(""), nil
	}

	out := judgment.Extract(input.Text)
	return s.jsonResult(out), out, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return errorResult("query is required"), emptySearch(input.Query), nil
	}

	chunks, err := s.config.Index.Search(ctx, input.Query, input.TopK)
	if err != nil {
		s.config.Logger.Error("MCP search failed", "query", input.Query, "error", err)
		return errorResult(fmt.Sprintf("Failed to search: %v", err)), emptySearch(input.Query), nil
	}
	if chunks == nil {
		chunks = []retrieval.Chunk{}
	}

	out := SearchOutput{Query: input.Query, Results: chunks, Count: len(chunks)}
	return s.jsonResult(out), out, nil
}

// Structured output is validated against the output schema even on error
// results, so list fields must be empty rather than null.
func emptyAnswer() AnswerOutput {
	return AnswerOutput{Sources: []history.Source{}}
}

func emptySearch(query string) SearchOutput {
	return SearchOutput{Query: query, Results: []retrieval.Chunk{}}
}

// jsonResult serializes structured output into a TextContent block as well,
// for clients that ignore structured content.
func (s *Server) jsonResult(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		s.config.Logger.Error("failed to marshal tool output", "error", err)
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err))
	}
	return textResult(string(b))
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
