package world

import (
	"time"

	"github.com/google/uuid"
)

// Truth tags applied by the simulation when recording provenance.
const (
	TruthTagNarrative = "narrative"
	TruthTagEvent     = "event"
)

// Truth is a provenance ledger entry: one durable record of something that
// happened during a simulation step, with enough metadata to trace it back
// to the rule and characters involved.
type Truth struct {
	ID           uuid.UUID         `json:"id"`
	WorldID      uuid.UUID         `json:"world_id"`
	SimulationID string            `json:"simulation_id"`
	Timestep     int               `json:"timestep"`
	Description  string            `json:"description"`
	CharacterIDs []uuid.UUID       `json:"character_ids,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Source       map[string]string `json:"source,omitempty"` // e.g. rule name, grammar name
	CreatedAt    time.Time         `json:"created_at"`
}

// NewTruth builds a ledger entry with a fresh ID and timestamp.
func NewTruth(worldID uuid.UUID, simulationID string, timestep int, description string) *Truth {
	return &Truth{
		ID:           uuid.New(),
		WorldID:      worldID,
		SimulationID: simulationID,
		Timestep:     timestep,
		Description:  description,
		CreatedAt:    time.Now().UTC(),
	}
}
