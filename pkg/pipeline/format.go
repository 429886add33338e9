package pipeline

import (
	"strings"

	"github.com/papercomputeco/vakki/pkg/history"
	"github.com/papercomputeco/vakki/pkg/retrieval"
)

const (
	// NoDocumentsAnswer is returned when the index has nothing for a query.
	NoDocumentsAnswer = "❗ No relevant documents found."

	// FallbackAnswer replaces an empty generated answer.
	FallbackAnswer = "⚠️ No clear answer could be generated from the retrieved legal documents."

	SourcesHeader = "📚 **Sources Referenced:**"

	contextSeparator = "\n\n---\n\n"
)

// FormatAnswer appends the source listing to an answer. It is pure: the
// same inputs always produce the same bytes.
func FormatAnswer(answer string, sources []history.Source) string {
	var b strings.Builder
	b.WriteString(answer)
	b.WriteString("\n\n")
	b.WriteString(SourcesHeader)
	for _, s := range sources {
		b.WriteString("\n- 📄 ")
		b.WriteString(SourceLink(s.Source))
		b.WriteString(" (Page ")
		b.WriteString(s.Page)
		b.WriteString("): ")
		b.WriteString(s.Excerpt)
		b.WriteString("...")
	}
	return b.String()
}

// SourceLink renders a URL or PDF path as a markdown link and anything
// else as inline code.
func SourceLink(source string) string {
	if strings.HasPrefix(source, "http") || strings.HasSuffix(source, ".pdf") {
		return "[" + source + "](" + source + ")"
	}
	return "`" + source + "`"
}

// ContextBlock renders chunks as single-line content, each followed by its
// source annotation, joined by a horizontal rule.
func ContextBlock(chunks []retrieval.Chunk) string {
	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		blocks[i] = retrieval.NormalizeContent(c.Content) + "\n" + "📄 **Source**: `" + c.Source + "` | **Page**: " + c.Page
	}
	return strings.Join(blocks, contextSeparator)
}
