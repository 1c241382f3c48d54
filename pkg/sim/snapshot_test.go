package sim

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"hamlet/pkg/world"
)

func TestSnapshotCharacterDeepCopy(t *testing.T) {
	spouse := uuid.New()
	friend := uuid.New()
	c := &world.Character{
		ID:         uuid.New(),
		FirstName:  "Ada",
		LastName:   "Lovelace",
		BirthYear:  1815,
		Alive:      true,
		SpouseID:   &spouse,
		FriendIDs:  []uuid.UUID{friend},
		Attributes: map[string]string{"temperament": "curious"},
	}

	snap := SnapshotCharacter(c, 3, 1851)
	if snap.Age != 36 {
		t.Errorf("expected age 36, got %d", snap.Age)
	}
	if snap.Timestep != 3 {
		t.Errorf("expected timestep 3, got %d", snap.Timestep)
	}

	// Mutating the character must not reach the snapshot.
	c.Attributes["temperament"] = "stern"
	c.FriendIDs[0] = uuid.New()
	*c.SpouseID = uuid.New()

	if got := snap.Attributes["temperament"]; got != "curious" {
		t.Errorf("expected snapshot attribute curious, got %q", got)
	}
	if snap.FriendIDs[0] != friend {
		t.Errorf("expected snapshot friend %s, got %s", friend, snap.FriendIDs[0])
	}
	if *snap.SpouseID != spouse {
		t.Errorf("expected snapshot spouse %s, got %s", spouse, *snap.SpouseID)
	}
}

func TestDiffSnapshotsNoChange(t *testing.T) {
	c := &world.Character{ID: uuid.New(), FirstName: "Tom", BirthYear: 1820, Alive: true}
	before := SnapshotCharacter(c, 0, 1850)
	after := SnapshotCharacter(c, 1, 1850)

	diff := DiffSnapshots(before, after)
	if diff == nil {
		t.Fatal("expected a diff for two valid snapshots")
	}
	if diff.Changed {
		t.Errorf("expected no changes, got %+v", diff.Changes)
	}
	if diff.FromTimestep != 0 || diff.ToTimestep != 1 {
		t.Errorf("expected timesteps 0 and 1, got %d and %d", diff.FromTimestep, diff.ToTimestep)
	}
}

func TestDiffSnapshotsScalarChanges(t *testing.T) {
	c := &world.Character{
		ID:        uuid.New(),
		FirstName: "Mara",
		BirthYear: 1820,
		Alive:     true,
		Status:    "healthy",
	}
	before := SnapshotCharacter(c, 0, 1850)

	c.Status = "ill"
	c.Occupation = "baker"
	after := SnapshotCharacter(c, 1, 1851)

	diff := DiffSnapshots(before, after)
	if !diff.Changed {
		t.Fatal("expected changes")
	}
	want := []Change{
		{Field: "age", From: "30", To: "31"},
		{Field: "occupation", From: "", To: "baker"},
		{Field: "status", From: "healthy", To: "ill"},
	}
	if d := cmp.Diff(want, diff.Changes); d != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", d)
	}
}

func TestDiffSnapshotsAttributes(t *testing.T) {
	c := &world.Character{
		ID:         uuid.New(),
		FirstName:  "Edwin",
		BirthYear:  1810,
		Alive:      true,
		Attributes: map[string]string{"mood": "sunny", "debt": "none"},
	}
	before := SnapshotCharacter(c, 0, 1850)

	c.Attributes["mood"] = "stormy"
	delete(c.Attributes, "debt")
	c.Attributes["reputation"] = "rising"
	after := SnapshotCharacter(c, 1, 1850)

	diff := DiffSnapshots(before, after)
	want := []Change{
		{Field: "attributes.debt", From: "none", To: ""},
		{Field: "attributes.mood", From: "sunny", To: "stormy"},
		{Field: "attributes.reputation", From: "", To: "rising"},
	}
	if d := cmp.Diff(want, diff.Changes); d != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", d)
	}
}

func TestDiffSnapshotsFriendList(t *testing.T) {
	oldFriend := uuid.New()
	newFriend := uuid.New()
	c := &world.Character{
		ID:        uuid.New(),
		FirstName: "Nell",
		BirthYear: 1830,
		Alive:     true,
		FriendIDs: []uuid.UUID{oldFriend},
	}
	before := SnapshotCharacter(c, 0, 1850)

	c.FriendIDs = []uuid.UUID{newFriend}
	after := SnapshotCharacter(c, 1, 1850)

	diff := DiffSnapshots(before, after)
	if len(diff.Changes) != 1 {
		t.Fatalf("expected one change, got %+v", diff.Changes)
	}
	want := Change{
		Field:   "friend_ids",
		Added:   []string{newFriend.String()},
		Removed: []string{oldFriend.String()},
	}
	if d := cmp.Diff(want, diff.Changes[0]); d != "" {
		t.Errorf("friend change mismatch (-want +got):\n%s", d)
	}
}

func TestDiffSnapshotsMissingSnapshot(t *testing.T) {
	c := &world.Character{ID: uuid.New(), FirstName: "Iris", BirthYear: 1825, Alive: true}
	snap := SnapshotCharacter(c, 0, 1850)

	if got := DiffSnapshots(nil, snap); got != nil {
		t.Errorf("expected nil diff for missing from-snapshot, got %+v", got)
	}
	if got := DiffSnapshots(snap, nil); got != nil {
		t.Errorf("expected nil diff for missing to-snapshot, got %+v", got)
	}
}
