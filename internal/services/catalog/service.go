package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/mcoot/imposter/internal/model"
)

//go:embed data/*.json
var builtin embed.FS

// Service resolves a category name to its pool of topics
type Service struct {
	logger *slog.Logger

	mu         sync.RWMutex
	categories map[string][]model.Topic
}

// New creates an empty catalog
func New(logger *slog.Logger) *Service {
	return &Service{
		logger:     logger.With(slog.String("component", "catalog")),
		categories: make(map[string][]model.Topic),
	}
}

// LoadBuiltin loads the category files compiled into the binary
func (s *Service) LoadBuiltin() error {
	sub, err := fs.Sub(builtin, "data")
	if err != nil {
		return err
	}
	return s.LoadFromFS(sub)
}

// LoadFromFS loads every <category>.json file at the root of fsys.
// Each file holds a JSON array of {"name", "hint"} objects.
func (s *Service) LoadFromFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return err
		}

		var topics []model.Topic
		if err := json.Unmarshal(data, &topics); err != nil {
			return fmt.Errorf("parse %s: %w", entry.Name(), err)
		}

		category := strings.TrimSuffix(entry.Name(), ".json")
		if len(topics) == 0 {
			s.logger.Warn("skipping empty category", slog.String("category", category))
			continue
		}
		s.LoadTopics(category, topics)
		s.logger.Info("category loaded",
			slog.String("category", category),
			slog.Int("topics", len(topics)))
	}
	return nil
}

// LoadTopics replaces the topics for a category (useful for testing).
// An empty pool removes the category.
func (s *Service) LoadTopics(category string, topics []model.Topic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(topics) == 0 {
		delete(s.categories, normalize(category))
		return
	}
	s.categories[normalize(category)] = slices.Clone(topics)
}

// Topics returns a copy of the topic pool for category
func (s *Service) Topics(category string) ([]model.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topics, ok := s.categories[normalize(category)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownCategory, category)
	}
	return slices.Clone(topics), nil
}

// Categories returns the known category names, sorted
func (s *Service) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.categories))
	for name := range s.categories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func normalize(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
