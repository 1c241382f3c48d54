package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"hamlet/internal/config"
	"hamlet/internal/logger"
	"hamlet/internal/storage"
	"hamlet/pkg/kb"
	"hamlet/pkg/world"
)

// setup loads configuration and installs the process logger. Every
// command starts here so HAMLET_* env vars and hamlet.yaml behave the
// same across subcommands.
func setup() (*config.Config, *slog.Logger) {
	cfg := config.Load()
	return cfg, logger.Setup(cfg)
}

// openStore connects to Redis and verifies the connection.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*storage.RedisStorage, error) {
	store := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, log)
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisURL, err)
	}
	return store, nil
}

// openKB builds the per-world knowledge base store. The solver is
// optional; without it the KB still syncs and exports, but queries
// return errors.
func openKB(cfg *config.Config, log *slog.Logger) *kb.Store {
	executor := kb.NewExecutor(kb.ExecutorConfig{
		SolverPath: cfg.SolverPath,
		Timeout:    cfg.SolverTimeout,
		ScratchDir: cfg.ScratchDir,
	}, log)
	return kb.NewStore(cfg.KBDir, executor, log)
}

// resolveWorld accepts a world UUID or a world name (case-insensitive)
// and returns the matching world.
func resolveWorld(ctx context.Context, store *storage.RedisStorage, ref string) (*world.World, error) {
	if ref == "" {
		return nil, fmt.Errorf("no world given (use --world)")
	}
	if id, err := uuid.Parse(ref); err == nil {
		w, err := store.GetWorld(ctx, id)
		if err != nil {
			return nil, err
		}
		if w == nil {
			return nil, fmt.Errorf("world %s not found", id)
		}
		return w, nil
	}
	worlds, err := store.ListWorlds(ctx)
	if err != nil {
		return nil, err
	}
	for _, w := range worlds {
		if strings.EqualFold(w.Name, ref) {
			return w, nil
		}
	}
	return nil, fmt.Errorf("no world named %q (run seed first, or pass a UUID)", ref)
}
