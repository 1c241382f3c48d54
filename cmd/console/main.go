package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"hamlet/internal/config"
	"hamlet/internal/storage"
	"hamlet/internal/watch"
	"hamlet/pkg/kb"
	"hamlet/pkg/sim"
)

func main() {
	cfg := config.Load()

	// The alternate screen owns the terminal, so engine log lines would
	// tear the display; the console discards them.
	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	store := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, log)
	if err := store.Ping(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Could not connect to Redis at %s.\nStart it first, or set REDIS_URL.\n", cfg.RedisURL)
		os.Exit(1)
	}
	defer func() {
		_ = store.Close() // Ignore error in defer
	}()

	executor := kb.NewExecutor(kb.ExecutorConfig{
		SolverPath: cfg.SolverPath,
		Timeout:    cfg.SolverTimeout,
		ScratchDir: cfg.ScratchDir,
	}, log)
	engine := sim.NewEngine(store, kb.NewStore(cfg.KBDir, executor, log), log)

	p := tea.NewProgram(NewConsoleUI(engine, store, executor.Available()),
		tea.WithAltScreen())

	// Edits to authored rules or grammars reload on the next step.
	if watcher, err := watch.New(cfg.DataDir, func() { p.Send(dataChangedMsg{}) }, log); err == nil {
		watcher.Start(context.Background())
		defer watcher.Close()
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
