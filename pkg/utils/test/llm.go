package testutils

import (
	"context"
	"sync"
)

// CompleterCall records one Complete invocation.
type CompleterCall struct {
	System string
	User   string
}

// MockCompleter returns a fixed response and records every call.
type MockCompleter struct {
	Response string

	// Err is returned instead of Response when set.
	Err error

	mu    sync.Mutex
	calls []CompleterCall
}

func NewMockCompleter(response string) *MockCompleter {
	return &MockCompleter{Response: response}
}

func (m *MockCompleter) Complete(_ context.Context, system, user string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, CompleterCall{System: system, User: user})
	m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockCompleter) Calls() []CompleterCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompleterCall(nil), m.calls...)
}

// GeneratorCall records one Generate invocation.
type GeneratorCall struct {
	Query   string
	Context string
}

// MockGenerator is a test answer generator.
type MockGenerator struct {
	Answer string
	Err    error

	mu    sync.Mutex
	calls []GeneratorCall
}

func NewMockGenerator(answer string) *MockGenerator {
	return &MockGenerator{Answer: answer}
}

func (m *MockGenerator) Generate(_ context.Context, query, contextBlock string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, GeneratorCall{Query: query, Context: contextBlock})
	m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	return m.Answer, nil
}

func (m *MockGenerator) Calls() []GeneratorCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GeneratorCall(nil), m.calls...)
}
