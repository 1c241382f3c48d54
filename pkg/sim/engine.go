package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"

	"hamlet/pkg/grammar"
	"hamlet/pkg/kb"
	"hamlet/pkg/rules"
	"hamlet/pkg/storage"
)

// ErrNoKnowledgeBase is returned by Resync when the engine was built
// without a knowledge base store.
var ErrNoKnowledgeBase = errors.New("no knowledge base configured")

// Engine drives timestep execution for one simulation at a time. It owns
// the active simulation context, the loaded rule set and grammars, and the
// knowledge base projection for the current world.
type Engine struct {
	store   storage.Storage
	kbStore *kb.Store
	logger  *slog.Logger
	rng     *rand.Rand

	sctx     *SimulationContext
	rules    []*rules.Rule
	grammars map[string]*grammar.Grammar
	synced   map[uuid.UUID]bool
}

// NewEngine builds an engine over the given storage and knowledge bases.
// kbStore may be nil; logic conditions then never pass.
func NewEngine(store storage.Storage, kbStore *kb.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:   store,
		kbStore: kbStore,
		logger:  logger,
		synced:  make(map[uuid.UUID]bool),
	}
}

// WithRand fixes the randomness source used for grammar expansion.
func (e *Engine) WithRand(rng *rand.Rand) *Engine {
	e.rng = rng
	return e
}

// InitializeContext loads the world, its rules and grammars, projects the
// world into its knowledge base, and starts a fresh simulation context at
// timestep zero. A failed projection is logged and the simulation proceeds
// without logic queries.
func (e *Engine) InitializeContext(ctx context.Context, worldID uuid.UUID, simulationID string) (*SimulationContext, error) {
	w, err := e.store.GetWorld(ctx, worldID)
	if err != nil {
		return nil, fmt.Errorf("loading world: %w", err)
	}
	if w == nil {
		return nil, fmt.Errorf("world %s not found", worldID)
	}
	characters, err := e.store.ListCharacters(ctx, worldID)
	if err != nil {
		return nil, fmt.Errorf("loading characters: %w", err)
	}

	if err := e.loadResources(ctx, worldID); err != nil {
		return nil, err
	}

	if e.kbStore != nil && !e.synced[worldID] {
		sync := NewSynchronizer(e.store, e.kbStore.ForWorld(worldID), e.logger)
		if err := sync.SyncWorld(ctx, worldID); err != nil {
			e.logger.Warn("World projection failed, logic conditions will not pass",
				"world_id", worldID, "error", err)
		} else {
			e.synced[worldID] = true
		}
	}

	e.sctx = NewSimulationContext(w, simulationID, characters)
	e.sctx.snapshotAll()

	e.logger.Info("Simulation context initialized",
		"world_id", worldID,
		"simulation_id", simulationID,
		"characters", len(characters),
		"rules", len(e.rules))
	return e.sctx, nil
}

func (e *Engine) loadResources(ctx context.Context, worldID uuid.UUID) error {
	rs, err := e.store.ListRules(ctx, worldID)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}
	rules.Sort(rs)
	e.rules = rs

	gs, err := e.store.ListGrammars(ctx, worldID)
	if err != nil {
		return fmt.Errorf("loading grammars: %w", err)
	}
	byName := make(map[string]*grammar.Grammar, len(gs))
	for _, g := range gs {
		byName[g.Name] = g
	}
	e.grammars = byName
	return nil
}

// ExecuteStep advances the simulation one timestep: evaluate every enabled
// rule in priority order, apply the effects of the ones whose conditions
// hold, then snapshot every character. The result is always non-nil; a
// panic inside the step comes back as a failed result, never as a crash.
func (e *Engine) ExecuteStep(ctx context.Context, worldID uuid.UUID, simulationID string) (result *StepResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Step panicked", "world_id", worldID, "panic", r)
			result = &StepResult{
				Success:      false,
				Message:      fmt.Sprintf("step failed: %v", r),
				WorldID:      worldID,
				SimulationID: simulationID,
			}
		}
	}()

	if e.sctx == nil || e.sctx.WorldID != worldID || e.sctx.SimulationID != simulationID {
		if _, err := e.InitializeContext(ctx, worldID, simulationID); err != nil {
			return &StepResult{
				Success:      false,
				Message:      err.Error(),
				WorldID:      worldID,
				SimulationID: simulationID,
			}
		}
	}

	sc := e.sctx
	sc.CurrentTimestep++
	sc.refreshVariables()

	for _, r := range e.rules {
		if !r.IsEnabled() {
			e.logger.Debug("Rule disabled", "rule", r.Name)
			continue
		}
		if !e.conditionsMet(ctx, worldID, r) {
			e.logger.Debug("Rule conditions not met", "rule", r.Name, "timestep", sc.CurrentTimestep)
			continue
		}

		record := sc.openRecord(r)
		newEffectWorker(sc, r, record, e.store, e.grammars, e.logger).
			WithContext(ctx).
			WithRand(e.rng).
			Apply()
		sc.closeRecord()
		sc.RulesExecuted = append(sc.RulesExecuted, r.Name)
		e.logger.Info("Rule fired", "rule", r.Name, "timestep", sc.CurrentTimestep)
	}

	sc.snapshotAll()

	return &StepResult{
		Success:       true,
		WorldID:       sc.WorldID,
		SimulationID:  sc.SimulationID,
		Timestep:      sc.CurrentTimestep,
		Narratives:    sc.Narratives,
		Events:        sc.Events,
		RulesExecuted: sc.RulesExecuted,
		TruthIDs:      sc.TruthIDs,
		Snapshots:     sc.Snapshots,
		Records:       sc.Records,
	}
}

// conditionsMet evaluates every condition on the rule; all must hold and a
// rule with no conditions always fires. Logic queries that error, including
// a missing solver, evaluate to false rather than failing the step.
func (e *Engine) conditionsMet(ctx context.Context, worldID uuid.UUID, r *rules.Rule) bool {
	for _, cond := range r.Conditions {
		switch cond.Kind {
		case rules.ConditionLogic:
			if e.kbStore == nil {
				e.logger.Warn("Logic condition with no knowledge base", "rule", r.Name)
				return false
			}
			results, err := e.kbStore.ForWorld(worldID).Query(ctx, cond.Query)
			if err != nil {
				e.logger.Warn("Logic condition query failed",
					"rule", r.Name, "query", cond.Query, "error", err)
				return false
			}
			if len(results) == 0 {
				return false
			}
		case rules.ConditionAttribute:
			if !rules.EvaluateAttribute(cond, e.sctx) {
				return false
			}
		default:
			e.logger.Warn("Unknown condition kind", "rule", r.Name, "kind", cond.Kind)
			return false
		}
	}
	return true
}

// Reset drops the active context and loaded resources; the next step
// reinitializes everything from storage.
func (e *Engine) Reset() {
	e.sctx = nil
	e.rules = nil
	e.grammars = nil
	e.synced = make(map[uuid.UUID]bool)
}

// Resync clears the world's knowledge base and projects it again from the
// current storage state.
func (e *Engine) Resync(ctx context.Context, worldID uuid.UUID) error {
	if e.kbStore == nil {
		return ErrNoKnowledgeBase
	}
	manager := e.kbStore.ForWorld(worldID)
	if err := manager.Clear(); err != nil {
		return fmt.Errorf("clearing knowledge base: %w", err)
	}
	if err := NewSynchronizer(e.store, manager, e.logger).SyncWorld(ctx, worldID); err != nil {
		return err
	}
	e.synced[worldID] = true
	return nil
}

// Context returns the active simulation context, nil before initialization.
func (e *Engine) Context() *SimulationContext {
	return e.sctx
}

// Diff reports how a character changed between two snapshotted timesteps.
// Returns nil when either timestep has no snapshot for the character.
func (e *Engine) Diff(characterID uuid.UUID, from, to int) *SnapshotDiff {
	if e.sctx == nil {
		return nil
	}
	return DiffSnapshots(e.sctx.Snapshots[from][characterID], e.sctx.Snapshots[to][characterID])
}
