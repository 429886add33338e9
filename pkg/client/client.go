// Package client calls a running vakki API server. It backs the CLI
// commands that do not answer locally.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/vakki/api"
	"github.com/papercomputeco/vakki/pkg/judgment"
	"github.com/papercomputeco/vakki/pkg/transcript"
)

// DefaultTimeout leaves room for a slow model behind /v1/answer.
const DefaultTimeout = 5 * time.Minute

// Client is a thin JSON client for the /v1 routes.
type Client struct {
	target     *url.URL
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a Client for the API at target, e.g. http://localhost:8081.
func New(target string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(target, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API target URL: %q", target)
	}

	c := &Client{
		target:     u,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// StatusError is a non-2xx response from the API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vakki API request failed (HTTP %d): %s", e.StatusCode, e.Message)
}

// Answer asks a question within sessionID. An empty sessionID lets the
// server start a new session, returned on the response.
func (c *Client) Answer(ctx context.Context, query, sessionID string) (*api.AnswerResponse, error) {
	var out api.AnswerResponse
	err := c.do(ctx, http.MethodPost, "/v1/answer", nil, api.AnswerRequest{
		Query:     query,
		SessionID: sessionID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Summarize condenses answer, or the session's last answer when answer is empty.
func (c *Client) Summarize(ctx context.Context, answer, sessionID string) (string, error) {
	var out api.SummarizeResponse
	err := c.do(ctx, http.MethodPost, "/v1/summarize", nil, api.SummarizeRequest{
		Answer:    answer,
		SessionID: sessionID,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Summary, nil
}

// Draft writes a legal document from an instruction.
func (c *Client) Draft(ctx context.Context, instruction string) (string, error) {
	var out api.DraftResponse
	err := c.do(ctx, http.MethodPost, "/v1/draft", nil, api.DraftRequest{Instruction: instruction}, &out)
	if err != nil {
		return "", err
	}
	return out.Draft, nil
}

// JudgmentMetadata extracts metadata from judgment text on the server.
func (c *Client) JudgmentMetadata(ctx context.Context, text string) (*judgment.Metadata, error) {
	var out judgment.Metadata
	err := c.do(ctx, http.MethodPost, "/v1/judgments/metadata", nil, api.JudgmentRequest{Text: text}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Search returns the k chunks nearest to query. k <= 0 uses the server default.
func (c *Client) Search(ctx context.Context, query string, k int) (*api.SearchOutput, error) {
	q := url.Values{}
	q.Set("query", query)
	if k > 0 {
		q.Set("top_k", strconv.Itoa(k))
	}

	var out api.SearchOutput
	if err := c.do(ctx, http.MethodGet, "/v1/search", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transcript downloads a session transcript in the given format.
func (c *Client) Transcript(ctx context.Context, sessionID string, format transcript.Format) ([]byte, error) {
	q := url.Values{}
	q.Set("format", string(format))

	resp, err := c.send(ctx, http.MethodGet, "/v1/sessions/"+url.PathEscape(sessionID)+"/transcript", q, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, body)
	}
	return body, nil
}

// DeleteSession drops a session and its history on the server.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(sessionID), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	resp, err := c.send(ctx, method, path, query, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, body)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, in any) (*http.Response, error) {
	u := *c.target
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vakki API at %s: %w", c.target, err)
	}
	return resp, nil
}

func statusError(code int, body []byte) error {
	var er api.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		return &StatusError{StatusCode: code, Message: er.Error}
	}
	return &StatusError{StatusCode: code, Message: strings.TrimSpace(string(body))}
}
