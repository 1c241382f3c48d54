package world

import (
	"time"

	"github.com/google/uuid"
)

// Character is a simulated person. Family and social ties are stored as
// ID references; the knowledge base derives everything else (siblings,
// ancestors, co-location) from these.
type Character struct {
	ID         uuid.UUID   `json:"id"`
	WorldID    uuid.UUID   `json:"world_id"`
	FirstName  string      `json:"first_name"`
	LastName   string      `json:"last_name"`
	Gender     string      `json:"gender,omitempty"` // e.g. "female", "male", "nonbinary"
	BirthYear  int         `json:"birth_year"`
	Alive      bool        `json:"alive"`
	DeathYear  int         `json:"death_year,omitempty"`
	Occupation string      `json:"occupation,omitempty"`
	EmployerID *uuid.UUID  `json:"employer_id,omitempty"` // business where the character works
	Location   string      `json:"location,omitempty"`    // current place name
	Status     string      `json:"status,omitempty"`      // free-form, e.g. "content", "grieving"
	SpouseID   *uuid.UUID  `json:"spouse_id,omitempty"`
	ParentIDs  []uuid.UUID `json:"parent_ids,omitempty"`
	ChildIDs   []uuid.UUID `json:"child_ids,omitempty"`
	FriendIDs  []uuid.UUID `json:"friend_ids,omitempty"`

	// Attributes holds rule-modifiable traits that have no dedicated field,
	// e.g. "mood" or "reputation".
	Attributes map[string]string `json:"attributes,omitempty"`

	// MentalModels is this character's knowledge of other characters,
	// keyed by the subject character's ID string.
	MentalModels map[string]*MentalModel `json:"mental_models,omitempty"`
}

// FullName returns the character's display name.
func (c *Character) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Age returns the character's age in the given year. Dead characters age
// up to their death year only.
func (c *Character) Age(year int) int {
	end := year
	if !c.Alive && c.DeathYear > 0 && c.DeathYear < end {
		end = c.DeathYear
	}
	age := end - c.BirthYear
	if age < 0 {
		return 0
	}
	return age
}

// MentalModel is one character's picture of another: what they know and
// what they believe, with confidence.
type MentalModel struct {
	SubjectID       uuid.UUID         `json:"subject_id"`
	Confidence      float64           `json:"confidence"` // 0.0 (stranger) to 1.0 (knows intimately)
	LastUpdated     time.Time         `json:"last_updated,omitempty"`
	KnownFacts      []string          `json:"known_facts,omitempty"`
	KnownAttributes map[string]string `json:"known_attributes,omitempty"` // attribute name -> believed value
	Beliefs         []Belief          `json:"beliefs,omitempty"`
}

// Belief is a held statement with confidence and supporting evidence.
type Belief struct {
	Statement  string   `json:"statement"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence,omitempty"`
}
