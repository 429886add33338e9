// Package prompt holds the system instructions sent to the language model.
// Built-in defaults can be overridden per file from a directory, and the
// directory is watched so edits apply without a restart.
package prompt

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Name identifies one prompt.
type Name string

const (
	Answer    Name = "answer"
	Summarize Name = "summarize"
	Draft     Name = "draft"
)

// ContextSlot is replaced with the retrieved context block in the answer prompt.
const ContextSlot = "{context}"

// Names lists every prompt in a stable order.
func Names() []Name {
	return []Name{Answer, Summarize, Draft}
}

//go:embed defaults/*.md
var defaults embed.FS

// Store serves prompts. The zero value is not usable; call New.
type Store struct {
	dir    string
	logger *slog.Logger

	mu      sync.RWMutex
	prompts map[Name]string
}

// New loads the built-in prompts and overlays any <name>.md found in dir.
// dir may be empty.
func New(dir string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		dir:     dir,
		logger:  logger,
		prompts: make(map[Name]string, len(Names())),
	}

	for _, n := range Names() {
		b, err := fs.ReadFile(defaults, "defaults/"+string(n)+".md")
		if err != nil {
			return nil, fmt.Errorf("reading built-in prompt %s: %w", n, err)
		}
		s.prompts[n] = strings.TrimSpace(string(b))
	}

	if err := s.Reload(); err != nil {
		return nil, err
	}

	return s, nil
}

// Get returns the current text of a prompt.
func (s *Store) Get(n Name) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompts[n]
}

// AnswerSystem renders the answer prompt around a context block.
func (s *Store) AnswerSystem(contextBlock string) string {
	return strings.ReplaceAll(s.Get(Answer), ContextSlot, contextBlock)
}

// Reload re-reads the override directory. Removed override files fall back
// to the built-in prompt.
func (s *Store) Reload() error {
	if s.dir == "" {
		return nil
	}

	loaded := make(map[Name]string, len(Names()))
	for _, n := range Names() {
		b, err := fs.ReadFile(defaults, "defaults/"+string(n)+".md")
		if err != nil {
			return fmt.Errorf("reading built-in prompt %s: %w", n, err)
		}
		loaded[n] = strings.TrimSpace(string(b))

		override, err := os.ReadFile(filepath.Join(s.dir, string(n)+".md"))
		switch {
		case err == nil:
			if text := strings.TrimSpace(string(override)); text != "" {
				loaded[n] = text
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return fmt.Errorf("reading prompt override %s: %w", n, err)
		}
	}

	if !strings.Contains(loaded[Answer], ContextSlot) {
		s.logger.Warn("answer prompt has no context slot, retrieved context will be appended",
			"slot", ContextSlot,
		)
		loaded[Answer] += "\n\n" + ContextSlot
	}

	s.mu.Lock()
	s.prompts = loaded
	s.mu.Unlock()

	return nil
}

// Watch reloads prompts whenever a file in the override directory changes,
// until ctx is done. It returns immediately when no directory is configured.
func (s *Store) Watch(ctx context.Context) error {
	if s.dir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating prompt watcher: %w", err)
	}

	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching prompt dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Ext(event.Name) != ".md" {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if err := s.Reload(); err != nil {
					s.logger.Error("reloading prompts", "error", err)
					continue
				}
				s.logger.Info("prompts reloaded", "file", filepath.Base(event.Name))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("prompt watcher error", "error", err)
			}
		}
	}()

	return nil
}
