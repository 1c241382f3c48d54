package sim

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"hamlet/pkg/rules"
	"hamlet/pkg/world"
)

// Event types emitted by effect handlers.
const (
	EventNarrative         = "narrative"
	EventAttributeModified = "attribute_modified"
	EventEntityCreated     = "entity_created"
	EventCustom            = "custom_event"
)

// Event is one generic occurrence produced during a simulation step.
type Event struct {
	Type         string      `json:"type"`
	Description  string      `json:"description"`
	Timestep     int         `json:"timestep"`
	CharacterIDs []uuid.UUID `json:"character_ids,omitempty"`
}

// EffectOutcome is the result of executing one effect of a rule.
type EffectOutcome struct {
	Kind        rules.EffectKind `json:"kind"`
	Description string           `json:"description"`
	Success     bool             `json:"success"`
}

// RuleExecutionRecord is the provenance trail of one rule firing: what was
// evaluated, what each effect did, who was touched, and the single
// narrative the rule produced, if any.
type RuleExecutionRecord struct {
	RuleID       uuid.UUID         `json:"rule_id"`
	RuleName     string            `json:"rule_name"`
	RuleType     string            `json:"rule_type,omitempty"`
	Timestep     int               `json:"timestep"`
	Conditions   []rules.Condition `json:"conditions,omitempty"`
	Outcomes     []EffectOutcome   `json:"outcomes,omitempty"`
	CharacterIDs []uuid.UUID       `json:"character_ids,omitempty"`
	Narrative    string            `json:"narrative,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Touch adds a character to the record's touched set, once.
func (r *RuleExecutionRecord) Touch(id uuid.UUID) {
	for _, existing := range r.CharacterIDs {
		if existing == id {
			return
		}
	}
	r.CharacterIDs = append(r.CharacterIDs, id)
}

// SimulationContext is the mutable state of one running simulation.
// Exactly one context is live per engine instance; narratives, events and
// records accumulate across steps until the context is replaced or reset.
type SimulationContext struct {
	WorldID         uuid.UUID                                `json:"world_id"`
	SimulationID    string                                   `json:"simulation_id"`
	World           *world.World                             `json:"world,omitempty"`
	Characters      []*world.Character                       `json:"characters,omitempty"`
	CurrentTimestep int                                      `json:"current_timestep"`
	Narratives      []string                                 `json:"narratives,omitempty"`
	Events          []Event                                  `json:"events,omitempty"`
	RulesExecuted   []string                                 `json:"rules_executed,omitempty"`
	TruthIDs        []uuid.UUID                              `json:"truth_ids,omitempty"`
	Snapshots       map[int]map[uuid.UUID]*CharacterSnapshot `json:"snapshots,omitempty"`
	Records         []*RuleExecutionRecord                   `json:"records,omitempty"`
	Variables       map[string]string                        `json:"variables,omitempty"`

	// current is the in-progress record for the rule executing right now.
	// At most one record is open at a time.
	current *RuleExecutionRecord
}

// NewSimulationContext builds a fresh context for one (world, simulation)
// run, seeding context variables from the world record.
func NewSimulationContext(w *world.World, simulationID string, characters []*world.Character) *SimulationContext {
	sctx := &SimulationContext{
		WorldID:      w.ID,
		SimulationID: simulationID,
		World:        w,
		Characters:   characters,
		Snapshots:    make(map[int]map[uuid.UUID]*CharacterSnapshot),
		Variables:    make(map[string]string),
	}
	sctx.refreshVariables()
	return sctx
}

// refreshVariables reseeds the context-level grammar variables that track
// world state and the current timestep.
func (sc *SimulationContext) refreshVariables() {
	sc.Variables["world_name"] = sc.World.Name
	sc.Variables["year"] = strconv.Itoa(sc.World.CurrentYear)
	sc.Variables["timestep"] = strconv.Itoa(sc.CurrentTimestep)
}

// openRecord starts the provenance record for one rule firing.
func (sc *SimulationContext) openRecord(r *rules.Rule) *RuleExecutionRecord {
	sc.current = &RuleExecutionRecord{
		RuleID:     r.ID,
		RuleName:   r.Name,
		RuleType:   r.Type,
		Timestep:   sc.CurrentTimestep,
		Conditions: r.Conditions,
		CreatedAt:  time.Now().UTC(),
	}
	return sc.current
}

// closeRecord moves the in-progress record into the execution sequence.
func (sc *SimulationContext) closeRecord() {
	if sc.current == nil {
		return
	}
	sc.Records = append(sc.Records, sc.current)
	sc.current = nil
}

// CharacterByRef resolves a character by ID string, full name, or first
// name, in that order. Name matching is case-insensitive. Returns nil when
// nothing matches.
func (sc *SimulationContext) CharacterByRef(ref string) *world.Character {
	if ref == "" {
		return nil
	}
	if id, err := uuid.Parse(ref); err == nil {
		for _, c := range sc.Characters {
			if c.ID == id {
				return c
			}
		}
		return nil
	}
	for _, c := range sc.Characters {
		if strings.EqualFold(c.FullName(), ref) {
			return c
		}
	}
	for _, c := range sc.Characters {
		if strings.EqualFold(c.FirstName, ref) {
			return c
		}
	}
	return nil
}

// snapshotAll captures every character at the current timestep. Snapshots
// are written once per (timestep, character) pair and never mutated.
func (sc *SimulationContext) snapshotAll() {
	year := 0
	if sc.World != nil {
		year = sc.World.CurrentYear
	}
	byID := make(map[uuid.UUID]*CharacterSnapshot, len(sc.Characters))
	for _, c := range sc.Characters {
		byID[c.ID] = SnapshotCharacter(c, sc.CurrentTimestep, year)
	}
	sc.Snapshots[sc.CurrentTimestep] = byID
}

// AttributeValue implements rules.CharacterView over the context, letting
// attribute conditions resolve characters and their fields. Dedicated
// fields are checked before the free-form attribute map.
func (sc *SimulationContext) AttributeValue(character, attribute string) (string, bool) {
	c := sc.CharacterByRef(character)
	if c == nil {
		return "", false
	}
	switch attribute {
	case "occupation":
		return c.Occupation, true
	case "location":
		return c.Location, true
	case "status":
		return c.Status, true
	}
	v, ok := c.Attributes[attribute]
	return v, ok
}

// StepResult is what ExecuteStep always returns: a success flag plus the
// context's accumulated output. Callers inspect Success rather than
// handling errors.
type StepResult struct {
	Success       bool                                     `json:"success"`
	Message       string                                   `json:"message,omitempty"`
	WorldID       uuid.UUID                                `json:"world_id"`
	SimulationID  string                                   `json:"simulation_id"`
	Timestep      int                                      `json:"timestep"`
	Narratives    []string                                 `json:"narratives,omitempty"`
	Events        []Event                                  `json:"events,omitempty"`
	RulesExecuted []string                                 `json:"rules_executed,omitempty"`
	TruthIDs      []uuid.UUID                              `json:"truth_ids,omitempty"`
	Snapshots     map[int]map[uuid.UUID]*CharacterSnapshot `json:"snapshots,omitempty"`
	Records       []*RuleExecutionRecord                   `json:"records,omitempty"`
}
