package world

import "github.com/google/uuid"

// Settlement is a named place characters can live and work in.
type Settlement struct {
	ID          uuid.UUID `json:"id"`
	WorldID     uuid.UUID `json:"world_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Founded     int       `json:"founded,omitempty"` // in-world year
}

// Business is a workplace within a settlement.
type Business struct {
	ID           uuid.UUID  `json:"id"`
	WorldID      uuid.UUID  `json:"world_id"`
	SettlementID uuid.UUID  `json:"settlement_id"`
	Name         string     `json:"name"`
	Type         string     `json:"type,omitempty"` // e.g. "tavern", "bakery", "farm"
	OwnerID      *uuid.UUID `json:"owner_id,omitempty"`
}
