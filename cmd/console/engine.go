package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"hamlet/pkg/sim"
	"hamlet/pkg/storage"
	"hamlet/pkg/world"
)

// simulationID scopes the console's step history; every console session
// continues the same simulation for a world.
const simulationID = "console"

// engineCallTimeout bounds one storage-backed engine call so a wedged
// backend cannot hang the UI forever.
const engineCallTimeout = 30 * time.Second

type worldsLoadedMsg struct {
	worlds []*world.World
	err    error
}

type simReadyMsg struct {
	world      *world.World
	characters int
	err        error
}

type stepDoneMsg struct {
	result *sim.StepResult
}

// dataChangedMsg arrives when authored rule or grammar files change on
// disk; the UI resets the engine so the next step reloads them.
type dataChangedMsg struct{}

// loadWorlds lists the seeded worlds for the selection modal.
func loadWorlds(store storage.Storage) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), engineCallTimeout)
		defer cancel()

		worlds, err := store.ListWorlds(ctx)
		return worldsLoadedMsg{worlds: worlds, err: err}
	}
}

// initSimulation builds the engine context for the chosen world, which
// also projects the world into its knowledge base.
func initSimulation(engine *sim.Engine, w *world.World) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), engineCallTimeout)
		defer cancel()

		sctx, err := engine.InitializeContext(ctx, w.ID, simulationID)
		if err != nil {
			return simReadyMsg{world: w, err: err}
		}
		return simReadyMsg{world: w, characters: len(sctx.Characters)}
	}
}

// stepSimulation advances the simulation one timestep. The UI gates on
// its loading flag, so at most one step runs at a time.
func stepSimulation(engine *sim.Engine, w *world.World) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), engineCallTimeout)
		defer cancel()

		return stepDoneMsg{result: engine.ExecuteStep(ctx, w.ID, simulationID)}
	}
}
