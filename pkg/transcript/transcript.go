// Package transcript exports a session's conversation history.
package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/papercomputeco/vakki/pkg/history"
)

// Format is an export format.
type Format string

const (
	Markdown Format = "markdown"
	JSON     Format = "json"
)

// ParseFormat accepts "md", "markdown" and "json". Empty means Markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return Markdown, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("unsupported transcript format %q (use markdown or json)", s)
	}
}

// ContentType is the HTTP content type for f.
func (f Format) ContentType() string {
	if f == JSON {
		return "application/json"
	}
	return "text/markdown; charset=utf-8"
}

// Extension is the file extension for f, without the dot.
func (f Format) Extension() string {
	if f == JSON {
		return "json"
	}
	return "md"
}

type document struct {
	SessionID string         `json:"session_id,omitempty"`
	Turns     []history.Turn `json:"turns"`
}

// Write renders turns to w.
func Write(w io.Writer, sessionID string, turns []history.Turn, f Format) error {
	switch f {
	case JSON:
		if turns == nil {
			turns = []history.Turn{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(document{SessionID: sessionID, Turns: turns})
	case Markdown:
		_, err := io.WriteString(w, RenderMarkdown(turns))
		return err
	default:
		return fmt.Errorf("unsupported transcript format %q", f)
	}
}

var bareURL = regexp.MustCompile(`(^|\s)(https?://[^\s<>()\[\]]+)`)

// RenderMarkdown renders turns as "**You:**" and "**Assistant:**" blocks.
// Bare URLs in assistant text become autolinks; source turns become
// bullet lists.
func RenderMarkdown(turns []history.Turn) string {
	if len(turns) == 0 {
		return "_No conversation yet._\n"
	}

	blocks := make([]string, 0, len(turns))
	for _, t := range turns {
		switch {
		case t.Role == history.RoleUser:
			blocks = append(blocks, "**You:** "+t.Content)
		case t.IsSources():
			blocks = append(blocks, "**Assistant:** Sources:"+sourceList(t.Sources))
		default:
			blocks = append(blocks, "**Assistant:** "+linkify(t.Content))
		}
	}

	return strings.Join(blocks, "\n\n") + "\n"
}

func linkify(s string) string {
	return bareURL.ReplaceAllString(s, "$1<$2>")
}

func sourceList(sources []history.Source) string {
	if len(sources) == 0 {
		return " none"
	}

	var b strings.Builder
	for _, s := range sources {
		fmt.Fprintf(&b, "\n- %s (Page %s)", linkify(s.Source), s.Page)
	}
	return b.String()
}
