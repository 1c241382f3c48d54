package world

import (
	"time"

	"github.com/google/uuid"
)

// World is the top-level container for a simulated town and its population.
type World struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CurrentYear int       `json:"current_year"` // in-world calendar year, advanced by the simulation
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}
