// Package history keeps the per-session conversation log the answer pipeline
// reads from and appends to.
package history

import (
	"fmt"
	"strings"
	"sync"
)

// Role is who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Label is the role tag used in Buffer.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// ExcerptLimit is the maximum number of characters in a Source excerpt.
const ExcerptLimit = 1000

// Source is the user-facing projection of one retrieved chunk.
type Source struct {
	Source  string `json:"source"`
	Page    string `json:"page"`
	Excerpt string `json:"excerpt"`
}

// NewSource builds a Source whose excerpt is the first ExcerptLimit
// characters of content.
func NewSource(source, page, content string) Source {
	return Source{
		Source:  source,
		Page:    page,
		Excerpt: Excerpt(content),
	}
}

// Excerpt returns the first ExcerptLimit runes of content.
func Excerpt(content string) string {
	n := 0
	for i := range content {
		if n == ExcerptLimit {
			return content[:i]
		}
		n++
	}
	return content
}

// Turn is one entry in the log. Sources is set only on source-list turns.
type Turn struct {
	Role    Role     `json:"role"`
	Content string   `json:"content"`
	Sources []Source `json:"sources,omitempty"`
}

// IsSources reports whether the turn carries a source list.
func (t Turn) IsSources() bool {
	return t.Sources != nil
}

// History is an ordered, in-memory conversation log owned by one session.
// It is safe for concurrent readers while the owner appends.
type History struct {
	mu    sync.RWMutex
	turns []Turn

	maxTurns  int
	maxTokens int
	counter   TokenCounter
}

// Option configures a History.
type Option func(*History)

// minTurns fits one full exchange: question, answer and sources.
const minTurns = 3

// WithMaxTurns keeps at most n turns, evicting the oldest. Zero means
// unbounded; values below 3 are raised to 3.
func WithMaxTurns(n int) Option {
	return func(h *History) {
		if n > 0 && n < minTurns {
			n = minTurns
		}
		h.maxTurns = n
	}
}

// WithMaxTokens keeps the rendered history within n tokens as measured by
// counter, evicting the oldest turns. The latest exchange is never evicted.
func WithMaxTokens(n int, counter TokenCounter) Option {
	return func(h *History) {
		if counter == nil {
			return
		}
		h.maxTokens = n
		h.counter = counter
	}
}

// New creates an empty History.
func New(opts ...Option) *History {
	h := &History{}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AppendUser adds a user turn.
func (h *History) AppendUser(text string) {
	h.append(Turn{Role: RoleUser, Content: text})
}

// AppendAssistant adds an assistant turn.
func (h *History) AppendAssistant(text string) {
	h.append(Turn{Role: RoleAssistant, Content: text})
}

// AppendSources adds an assistant turn carrying the source list.
func (h *History) AppendSources(sources []Source) {
	h.append(sourcesTurn(sources))
}

// AppendExchange adds the user, answer and sources turns of one answered
// query under a single lock, so readers never observe half an exchange.
func (h *History) AppendExchange(query, answer string, sources []Source) {
	h.append(
		Turn{Role: RoleUser, Content: query},
		Turn{Role: RoleAssistant, Content: answer},
		sourcesTurn(sources),
	)
}

func sourcesTurn(sources []Source) Turn {
	s := make([]Source, len(sources))
	copy(s, sources)
	return Turn{Role: RoleAssistant, Content: renderSources(s), Sources: s}
}

func (h *History) append(turns ...Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, turns...)
	h.trim()
}

// trim must be called with the write lock held.
func (h *History) trim() {
	if len(h.turns) == 0 {
		return
	}

	// Never evict from the most recent user turn onward. Without a user
	// turn only the newest turn is kept back.
	protected := len(h.turns) - 1
	hasUser := false
	for i := len(h.turns) - 1; i >= 0; i-- {
		if h.turns[i].Role == RoleUser {
			protected = i
			hasUser = true
			break
		}
	}

	drop := 0
	if h.maxTurns > 0 && len(h.turns) > h.maxTurns {
		drop = len(h.turns) - h.maxTurns
	}

	if h.maxTokens > 0 {
		total := 0
		for _, t := range h.turns {
			total += h.counter.Count(t.line())
		}
		for i := 0; i < drop; i++ {
			total -= h.counter.Count(h.turns[i].line())
		}
		for drop < protected && total > h.maxTokens {
			total -= h.counter.Count(h.turns[drop].line())
			drop++
		}
	}

	if drop > protected {
		drop = protected
	}

	if drop == 0 {
		return
	}

	// after an eviction the log restarts at a user turn
	if hasUser {
		for drop < protected && h.turns[drop].Role != RoleUser {
			drop++
		}
	}

	kept := make([]Turn, len(h.turns)-drop)
	copy(kept, h.turns[drop:])
	h.turns = kept
}

// Buffer renders every turn as "<Role>: <content>", one per line, in
// insertion order.
func (h *History) Buffer() string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	lines := make([]string, 0, len(h.turns))
	for _, t := range h.turns {
		lines = append(lines, t.line())
	}
	return strings.Join(lines, "\n")
}

// Turns returns a copy of the turns in insertion order.
func (h *History) Turns() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of turns.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// Clear drops every turn.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}

func (t Turn) line() string {
	return t.Role.Label() + ": " + t.Content
}

func renderSources(sources []Source) string {
	if len(sources) == 0 {
		return "Sources: none"
	}
	refs := make([]string, len(sources))
	for i, s := range sources {
		refs[i] = fmt.Sprintf("%s (Page %s)", s.Source, s.Page)
	}
	return "Sources: " + strings.Join(refs, "; ")
}
