package reasoner

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"unikrew/internal/port"
)

const (
	systemPromptFile = "system_prompt.txt"
	humanPromptFile  = "human_prompt.txt"
)

//go:embed prompts/*.txt
var defaultPrompts embed.FS

// Prompts holds the system prompt and the human prompt template.
type Prompts struct {
	System string
	Human  string
}

// PromptStore serves the current prompts and reloads them from disk.
// It is safe for concurrent use.
type PromptStore struct {
	mu       sync.RWMutex
	dir      string
	prompts  Prompts
	debounce time.Duration
}

// NewPromptStore loads prompts from dir. Files missing from dir (or an empty
// dir) fall back to the built-in prompts.
func NewPromptStore(dir string) (*PromptStore, error) {
	s := &PromptStore{dir: dir, debounce: 300 * time.Millisecond}
	p, err := s.load()
	if err != nil {
		return nil, err
	}
	s.prompts = p
	return s, nil
}

// Get returns the current prompts.
func (s *PromptStore) Get() Prompts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompts
}

// Reload re-reads the prompt files. On error the previous prompts are kept.
func (s *PromptStore) Reload() error {
	p, err := s.load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.prompts = p
	s.mu.Unlock()
	return nil
}

func (s *PromptStore) load() (Prompts, error) {
	system, err := s.readPrompt(systemPromptFile)
	if err != nil {
		return Prompts{}, err
	}
	human, err := s.readPrompt(humanPromptFile)
	if err != nil {
		return Prompts{}, err
	}
	if _, err := FormatTemplate(human, map[string]string{"ocr_text": "", "extracted_json": ""}); err != nil {
		return Prompts{}, fmt.Errorf("%s: %w", humanPromptFile, err)
	}
	return Prompts{System: system, Human: human}, nil
}

func (s *PromptStore) readPrompt(name string) (string, error) {
	if s.dir != "" {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("reading %s: %w", name, err)
		}
	}
	data, err := defaultPrompts.ReadFile("prompts/" + name)
	if err != nil {
		return "", fmt.Errorf("reading built-in %s: %w", name, err)
	}
	return string(data), nil
}

// Watch reloads the prompts whenever a file in the prompt directory changes.
// Bursts of events are coalesced. It blocks until ctx is done.
func (s *PromptStore) Watch(ctx context.Context) error {
	if s.dir == "" {
		return errors.New("prompt directory not configured")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watching %s: %w", s.dir, err)
	}
	zap.L().Info("reasoner.PromptStore: watching prompts", zap.String("dir", s.dir))

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			base := filepath.Base(event.Name)
			if base != systemPromptFile && base != humanPromptFile {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			zap.L().Warn("reasoner.PromptStore: watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			if err := s.Reload(); err != nil {
				zap.L().Error("reasoner.PromptStore: reload failed, keeping previous prompts", zap.Error(err))
				continue
			}
			zap.L().Info("reasoner.PromptStore: prompts reloaded", zap.String("dir", s.dir))
		}
	}
}

// Messages is the rendered conversation sent to a provider.
type Messages struct {
	System string
	User   string
}

// BuildMessages renders the human prompt for one receipt.
func BuildMessages(store *PromptStore, input port.ReasonInput) (Messages, error) {
	p := store.Get()

	entities, err := IndentJSON(input.Entities)
	if err != nil {
		return Messages{}, fmt.Errorf("marshaling entities: %w", err)
	}

	user, err := FormatTemplate(p.Human, map[string]string{
		"ocr_text":       input.OCRText,
		"extracted_json": string(entities),
	})
	if err != nil {
		return Messages{}, err
	}
	return Messages{System: p.System, User: user}, nil
}
