package sim

import (
	"sort"
	"strconv"

	"github.com/google/uuid"

	"hamlet/pkg/world"
)

// CharacterSnapshot is an immutable-once-captured projection of one
// character at one timestep. Slices and maps are copied on capture so
// later mutation of the character cannot reach back into history.
type CharacterSnapshot struct {
	CharacterID uuid.UUID         `json:"character_id"`
	Timestep    int               `json:"timestep"`
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	Alive       bool              `json:"alive"`
	Age         int               `json:"age"`
	Occupation  string            `json:"occupation,omitempty"`
	Location    string            `json:"location,omitempty"`
	Status      string            `json:"status,omitempty"`
	SpouseID    *uuid.UUID        `json:"spouse_id,omitempty"`
	ParentIDs   []uuid.UUID       `json:"parent_ids,omitempty"`
	ChildIDs    []uuid.UUID       `json:"child_ids,omitempty"`
	FriendIDs   []uuid.UUID       `json:"friend_ids,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// SnapshotCharacter captures a character's observable state at a timestep.
func SnapshotCharacter(c *world.Character, timestep, currentYear int) *CharacterSnapshot {
	snap := &CharacterSnapshot{
		CharacterID: c.ID,
		Timestep:    timestep,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Alive:       c.Alive,
		Age:         c.Age(currentYear),
		Occupation:  c.Occupation,
		Location:    c.Location,
		Status:      c.Status,
		ParentIDs:   append([]uuid.UUID(nil), c.ParentIDs...),
		ChildIDs:    append([]uuid.UUID(nil), c.ChildIDs...),
		FriendIDs:   append([]uuid.UUID(nil), c.FriendIDs...),
	}
	if c.SpouseID != nil {
		spouse := *c.SpouseID
		snap.SpouseID = &spouse
	}
	if len(c.Attributes) > 0 {
		snap.Attributes = make(map[string]string, len(c.Attributes))
		for k, v := range c.Attributes {
			snap.Attributes[k] = v
		}
	}
	return snap
}

// Change describes one observed difference between two snapshots. Scalar
// fields populate From/To; relationship lists populate Added/Removed via
// set difference.
type Change struct {
	Field   string   `json:"field"`
	From    string   `json:"from,omitempty"`
	To      string   `json:"to,omitempty"`
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// SnapshotDiff is the comparison of one character across two timesteps.
type SnapshotDiff struct {
	CharacterID  uuid.UUID `json:"character_id"`
	FromTimestep int       `json:"from_timestep"`
	ToTimestep   int       `json:"to_timestep"`
	Changed      bool      `json:"changed"`
	Changes      []Change  `json:"changes,omitempty"`
}

// DiffSnapshots compares two snapshots of the same character. Returns nil
// if either snapshot is missing. Identical snapshots produce Changed=false
// with an empty change list.
func DiffSnapshots(from, to *CharacterSnapshot) *SnapshotDiff {
	if from == nil || to == nil {
		return nil
	}

	diff := &SnapshotDiff{
		CharacterID:  from.CharacterID,
		FromTimestep: from.Timestep,
		ToTimestep:   to.Timestep,
	}

	scalar := func(field, fromVal, toVal string) {
		if fromVal != toVal {
			diff.Changes = append(diff.Changes, Change{Field: field, From: fromVal, To: toVal})
		}
	}

	scalar("first_name", from.FirstName, to.FirstName)
	scalar("last_name", from.LastName, to.LastName)
	scalar("alive", strconv.FormatBool(from.Alive), strconv.FormatBool(to.Alive))
	scalar("age", strconv.Itoa(from.Age), strconv.Itoa(to.Age))
	scalar("occupation", from.Occupation, to.Occupation)
	scalar("location", from.Location, to.Location)
	scalar("status", from.Status, to.Status)
	scalar("spouse_id", uuidOrEmpty(from.SpouseID), uuidOrEmpty(to.SpouseID))

	// Custom attributes: compare the union of keys from both sides.
	for _, key := range attributeKeys(from.Attributes, to.Attributes) {
		scalar("attributes."+key, from.Attributes[key], to.Attributes[key])
	}

	listDiff := func(field string, fromIDs, toIDs []uuid.UUID) {
		added, removed := setDifference(fromIDs, toIDs)
		if len(added) > 0 || len(removed) > 0 {
			diff.Changes = append(diff.Changes, Change{Field: field, Added: added, Removed: removed})
		}
	}

	listDiff("parent_ids", from.ParentIDs, to.ParentIDs)
	listDiff("child_ids", from.ChildIDs, to.ChildIDs)
	listDiff("friend_ids", from.FriendIDs, to.FriendIDs)

	diff.Changed = len(diff.Changes) > 0
	return diff
}

// setDifference reports added (in to, not in from) and removed (in from,
// not in to) IDs as strings, sorted for stable output.
func setDifference(from, to []uuid.UUID) (added, removed []string) {
	fromSet := make(map[uuid.UUID]struct{}, len(from))
	for _, id := range from {
		fromSet[id] = struct{}{}
	}
	toSet := make(map[uuid.UUID]struct{}, len(to))
	for _, id := range to {
		toSet[id] = struct{}{}
	}

	for id := range toSet {
		if _, ok := fromSet[id]; !ok {
			added = append(added, id.String())
		}
	}
	for id := range fromSet {
		if _, ok := toSet[id]; !ok {
			removed = append(removed, id.String())
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func attributeKeys(a, b map[string]string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var keys []string
	for k := range a {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	for k := range b {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func uuidOrEmpty(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
