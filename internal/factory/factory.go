package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mcoot/imposter/internal/dependencies/clock"
	"github.com/mcoot/imposter/internal/dependencies/random"
	"github.com/mcoot/imposter/internal/services/catalog"
	"github.com/mcoot/imposter/internal/services/session"
	"github.com/mcoot/imposter/internal/storage"
	"github.com/mcoot/imposter/internal/storage/memory"
	redisstorage "github.com/mcoot/imposter/internal/storage/redis"
	"github.com/mcoot/imposter/internal/web/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Catalog     *catalog.Service
	Coordinator *session.Coordinator

	// Transport
	Registry  *ws.Registry
	WSHandler *ws.Handler
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// CatalogDir is a directory of extra <category>.json topic files (optional)
	CatalogDir string
	// Seed makes room codes and deals reproducible when non-zero
	Seed uint64
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	catalogService, err := newCatalog(cfg.CatalogDir, logger)
	if err != nil {
		return nil, err
	}

	var rnd random.Random = random.New()
	if cfg.Seed != 0 {
		rnd = random.NewSeeded(cfg.Seed)
	}

	return newWithDependencies(store, clock.New(), rnd, catalogService, logger), nil
}

func newCatalog(dir string, logger *slog.Logger) (*catalog.Service, error) {
	svc := catalog.New(logger)
	if err := svc.LoadBuiltin(); err != nil {
		return nil, fmt.Errorf("loading built-in topics: %w", err)
	}
	if dir != "" {
		if err := svc.LoadFromFS(os.DirFS(dir)); err != nil {
			return nil, fmt.Errorf("loading topics from %s: %w", dir, err)
		}
	}
	return svc, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, catalogService *catalog.Service, logger *slog.Logger) *App {
	registry := ws.NewRegistry(logger)
	coordinator := session.NewCoordinator(store, clk, rnd, registry, logger)
	wsHandler := ws.NewHandler(coordinator, catalogService, registry, logger)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Catalog:     catalogService,
		Coordinator: coordinator,
		Registry:    registry,
		WSHandler:   wsHandler,
	}
}

// Close releases the storage backend's connections, if it holds any
func (a *App) Close() error {
	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
