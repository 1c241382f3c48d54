package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"hamlet/pkg/grammar"
	"hamlet/pkg/rules"
	"hamlet/pkg/storage"
	"hamlet/pkg/world"
)

// effectWorker applies the effects of a single fired rule to the
// simulation context. Effects run in declaration order; a failing effect
// records an unsuccessful outcome and never aborts the effects after it.
type effectWorker struct {
	sim      *SimulationContext
	rule     *rules.Rule
	record   *RuleExecutionRecord
	store    storage.Storage
	grammars map[string]*grammar.Grammar
	rng      *rand.Rand
	logger   *slog.Logger
	ctx      context.Context
}

func newEffectWorker(sc *SimulationContext, rule *rules.Rule, record *RuleExecutionRecord, store storage.Storage, grammars map[string]*grammar.Grammar, logger *slog.Logger) *effectWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &effectWorker{
		sim:      sc,
		rule:     rule,
		record:   record,
		store:    store,
		grammars: grammars,
		logger:   logger,
		ctx:      context.Background(),
	}
}

// WithContext sets the context used for storage writes.
func (ew *effectWorker) WithContext(ctx context.Context) *effectWorker {
	if ctx != nil {
		ew.ctx = ctx
	}
	return ew
}

// WithRand sets the randomness source used for grammar expansion.
func (ew *effectWorker) WithRand(rng *rand.Rand) *effectWorker {
	ew.rng = rng
	return ew
}

// Apply dispatches every effect of the rule in order.
func (ew *effectWorker) Apply() {
	for i := range ew.rule.Effects {
		ew.apply(&ew.rule.Effects[i])
	}
}

func (ew *effectWorker) apply(e *rules.Effect) {
	switch e.Kind {
	case rules.EffectGenerateText:
		ew.handleGenerateText(e)
	case rules.EffectModifyAttribute:
		ew.handleModifyAttribute(e)
	case rules.EffectCreateEntity:
		ew.handleCreateEntity(e)
	case rules.EffectTriggerEvent:
		ew.handleTriggerEvent(e)
	case rules.EffectUnknown:
		ew.logger.Warn("Skipping unrecognized effect", "rule", ew.rule.Name, "effect_type", e.RawKind)
	default:
		ew.logger.Warn("Skipping unhandled effect kind", "rule", ew.rule.Name, "kind", e.Kind)
	}
}

// handleGenerateText expands the effect's grammar with the merged variable
// set and records the result as a narrative. A missing grammar still
// produces a placeholder narrative so the step output shows the gap.
func (ew *effectWorker) handleGenerateText(e *rules.Effect) {
	vars := ew.mergedVariables(e)
	source := map[string]string{"rule": ew.rule.Name, "grammar": e.Grammar}
	for k, v := range e.Variables {
		source["var_"+k] = v
	}

	g := ew.grammars[e.Grammar]
	if g == nil {
		text := fmt.Sprintf("[missing grammar: %s]", e.Grammar)
		ew.sim.Narratives = append(ew.sim.Narratives, text)
		ew.appendEvent(EventNarrative, text, ew.attributedCharacters(vars), source)
		ew.outcome(e, text, false)
		ew.logger.Warn("Grammar not found", "rule", ew.rule.Name, "grammar", e.Grammar)
		return
	}

	text, err := grammar.ExpandWith(g, vars, ew.rng)
	if err != nil {
		ew.outcome(e, fmt.Sprintf("expanding grammar %s: %v", e.Grammar, err), false)
		ew.logger.Warn("Grammar expansion failed", "rule", ew.rule.Name, "grammar", e.Grammar, "error", err)
		return
	}

	ew.sim.Narratives = append(ew.sim.Narratives, text)
	if ew.record != nil && ew.record.Narrative == "" {
		ew.record.Narrative = text
	}
	ew.appendEvent(EventNarrative, text, ew.attributedCharacters(vars), source)
	ew.outcome(e, text, true)
}

// handleModifyAttribute resolves the target character and writes the new
// attribute value onto it, persisting the change through storage. The
// attribute name comes from the "attribute" variable, falling back to the
// effect action; the value comes from the "value" variable.
func (ew *effectWorker) handleModifyAttribute(e *rules.Effect) {
	attribute := e.Variables["attribute"]
	if attribute == "" {
		attribute = e.Action
	}
	if attribute == "" {
		ew.outcome(e, "attribute effect names no attribute", false)
		ew.logger.Warn("Attribute effect names no attribute", "rule", ew.rule.Name)
		return
	}
	value := e.Variables["value"]

	c := ew.sim.CharacterByRef(e.Target)
	if c == nil {
		desc := fmt.Sprintf("no character matches %q", e.Target)
		ew.appendEvent(EventAttributeModified, desc, nil, map[string]string{"rule": ew.rule.Name})
		ew.outcome(e, desc, false)
		ew.logger.Warn("Attribute effect target not found", "rule", ew.rule.Name, "target", e.Target)
		return
	}

	previous := ew.setAttribute(c, attribute, value)
	desc := fmt.Sprintf("%s %s changed from %q to %q", c.FullName(), attribute, previous, value)

	success := true
	if ew.store != nil {
		if err := ew.store.SaveCharacter(ew.ctx, c); err != nil {
			success = false
			ew.logger.Warn("Persisting character failed", "character_id", c.ID, "error", err)
		}
	}
	ew.appendEvent(EventAttributeModified, desc, []uuid.UUID{c.ID}, map[string]string{
		"rule":      ew.rule.Name,
		"attribute": attribute,
		"value":     value,
	})
	ew.outcome(e, desc, success)
}

// handleCreateEntity records the request as an event without creating
// anything. Entity creation mid-simulation would invalidate the knowledge
// base projection for the step, so for now the event is the whole effect.
func (ew *effectWorker) handleCreateEntity(e *rules.Effect) {
	kind := e.Target
	if kind == "" {
		kind = "entity"
	}
	desc := fmt.Sprintf("rule %q requested creation of a new %s", ew.rule.Name, kind)
	ew.appendEvent(EventEntityCreated, desc, nil, map[string]string{
		"rule":   ew.rule.Name,
		"entity": kind,
	})
	ew.outcome(e, desc, true)
}

func (ew *effectWorker) handleTriggerEvent(e *rules.Effect) {
	eventType := e.Action
	if eventType == "" {
		eventType = EventCustom
	}
	desc := fmt.Sprintf("rule %q triggered %s", ew.rule.Name, eventType)

	var ids []uuid.UUID
	if e.Target != "" {
		if c := ew.sim.CharacterByRef(e.Target); c != nil {
			ids = append(ids, c.ID)
			desc = fmt.Sprintf("rule %q triggered %s for %s", ew.rule.Name, eventType, c.FullName())
		}
	}
	ew.appendEvent(eventType, desc, ids, map[string]string{"rule": ew.rule.Name})
	ew.outcome(e, desc, true)
}

// appendEvent records an event on the context and mints the matching
// truth record. Every narrative and every event leaves exactly one truth.
// A failed truth write is logged; the in-memory step output keeps the ID
// either way.
func (ew *effectWorker) appendEvent(eventType, description string, characterIDs []uuid.UUID, source map[string]string) {
	ew.sim.Events = append(ew.sim.Events, Event{
		Type:         eventType,
		Description:  description,
		Timestep:     ew.sim.CurrentTimestep,
		CharacterIDs: characterIDs,
	})
	if ew.record != nil {
		for _, id := range characterIDs {
			ew.record.Touch(id)
		}
	}

	truth := world.NewTruth(ew.sim.WorldID, ew.sim.SimulationID, ew.sim.CurrentTimestep, description)
	truth.CharacterIDs = characterIDs
	if eventType == EventNarrative {
		truth.Tags = []string{world.TruthTagNarrative}
	} else {
		truth.Tags = []string{world.TruthTagEvent, eventType}
	}
	truth.Source = source

	if ew.store != nil {
		if err := ew.store.CreateTruth(ew.ctx, truth); err != nil {
			ew.logger.Warn("Persisting truth failed", "truth_id", truth.ID, "error", err)
		}
	}
	ew.sim.TruthIDs = append(ew.sim.TruthIDs, truth.ID)
}

func (ew *effectWorker) outcome(e *rules.Effect, description string, success bool) {
	if ew.record == nil {
		return
	}
	ew.record.Outcomes = append(ew.record.Outcomes, EffectOutcome{
		Kind:        e.Kind,
		Description: description,
		Success:     success,
	})
}

// mergedVariables overlays the effect's variables on the context's, with
// the effect winning ties.
func (ew *effectWorker) mergedVariables(e *rules.Effect) map[string]string {
	vars := make(map[string]string, len(ew.sim.Variables)+len(e.Variables))
	for k, v := range ew.sim.Variables {
		vars[k] = v
	}
	for k, v := range e.Variables {
		vars[k] = v
	}
	return vars
}

// attributedCharacters resolves variable values against character names so
// narratives mentioning a character by variable get attributed to them.
func (ew *effectWorker) attributedCharacters(vars map[string]string) []uuid.UUID {
	var ids []uuid.UUID
	seen := make(map[uuid.UUID]struct{})
	for _, key := range sortedKeys(vars) {
		c := ew.sim.CharacterByRef(vars[key])
		if c == nil {
			continue
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		ids = append(ids, c.ID)
	}
	return ids
}

// setAttribute writes dedicated character fields for the well-known
// attribute names and falls back to the free-form attribute map.
func (ew *effectWorker) setAttribute(c *world.Character, attribute, value string) string {
	switch strings.ToLower(attribute) {
	case "occupation":
		previous := c.Occupation
		c.Occupation = value
		return previous
	case "location":
		previous := c.Location
		c.Location = value
		return previous
	case "status":
		previous := c.Status
		c.Status = value
		return previous
	}
	if c.Attributes == nil {
		c.Attributes = make(map[string]string)
	}
	previous := c.Attributes[attribute]
	c.Attributes[attribute] = value
	return previous
}
