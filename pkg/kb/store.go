package kb

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// DefaultPurpose names the knowledge base the simulation engine uses.
const DefaultPurpose = "world"

// Store hands out one Manager per (world, purpose) pair, creating and
// loading it on first access. Managers are cached for the life of the
// Store so every caller in the process shares the same collection.
type Store struct {
	mu       sync.Mutex
	dir      string
	executor *Executor
	logger   *slog.Logger
	managers map[string]*Manager
}

// NewStore builds a Store persisting knowledge bases under dir.
func NewStore(dir string, executor *Executor, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:      dir,
		executor: executor,
		logger:   logger,
		managers: make(map[string]*Manager),
	}
}

// ForWorld returns the default-purpose Manager for a world.
func (s *Store) ForWorld(worldID uuid.UUID) *Manager {
	return s.For(worldID, DefaultPurpose)
}

// For returns the Manager for a (world, purpose) pair, loading the
// persisted collection on first access. Load failures leave an empty
// collection and are logged, not returned: a corrupt file should not keep
// a simulation from starting.
func (s *Store) For(worldID uuid.UUID, purpose string) *Manager {
	key := worldID.String() + "/" + purpose

	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.managers[key]; ok {
		return m
	}

	filename := worldID.String() + "_" + Atomize(purpose) + ".pl"
	m := NewManager(filepath.Join(s.dir, filename), s.executor, s.logger)
	if err := m.Load(); err != nil {
		s.logger.Warn("Failed to load knowledge base", "world_id", worldID, "purpose", purpose, "error", err)
	}
	s.managers[key] = m
	return m
}
