package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// OpenFile opens (or creates) path for appending and returns a JSON logger
// writing to it. The returned closer releases the file. Options may change
// the level or add source locations; the format is always JSON.
func OpenFile(path string, opts ...Option) (*slog.Logger, io.Closer, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("log file path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	c := &config{level: slog.LevelInfo, writer: f}
	for _, opt := range opts {
		opt(c)
	}
	c.format = FormatJSON
	c.writer = f

	return slog.New(c.handler()), f, nil
}
