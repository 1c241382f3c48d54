package sim

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"hamlet/pkg/kb"
	"hamlet/pkg/storage"
	"hamlet/pkg/world"
)

func newSyncManager(t *testing.T) *kb.Manager {
	t.Helper()
	return kb.NewManager(filepath.Join(t.TempDir(), "world.pl"), nil, noopLogger)
}

// seedFamily builds a world with a married couple, their child, and a
// friendship edge, exercising every relationship shape the synchronizer
// projects.
func seedFamily(store *storage.MockStorage) (w *world.World, ada, charles, junior *world.Character) {
	w = &world.World{ID: uuid.New(), Name: "Thornbury", CurrentYear: 1851}
	store.AddWorld(w)

	adaID := uuid.New()
	charlesID := uuid.New()
	juniorID := uuid.New()

	ada = &world.Character{
		ID:         adaID,
		WorldID:    w.ID,
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Gender:     "female",
		BirthYear:  1815,
		Alive:      true,
		Occupation: "Mathematician",
		Location:   "Thornbury",
		SpouseID:   &charlesID,
		ChildIDs:   []uuid.UUID{juniorID},
		Attributes: map[string]string{"temperament": "curious"},
	}
	charles = &world.Character{
		ID:        charlesID,
		WorldID:   w.ID,
		FirstName: "Charles",
		LastName:  "Babbage",
		Gender:    "male",
		BirthYear: 1791,
		Alive:     true,
		Location:  "Thornbury",
		SpouseID:  &adaID,
		FriendIDs: []uuid.UUID{adaID},
	}
	junior = &world.Character{
		ID:        juniorID,
		WorldID:   w.ID,
		FirstName: "Junior",
		LastName:  "Lovelace",
		BirthYear: 1840,
		Alive:     true,
		ParentIDs: []uuid.UUID{adaID, charlesID},
	}
	store.AddCharacter(ada)
	store.AddCharacter(charles)
	store.AddCharacter(junior)
	return w, ada, charles, junior
}

func TestSyncWorldCharacterFacts(t *testing.T) {
	store := storage.NewMockStorage()
	manager := newSyncManager(t)
	w, ada, _, _ := seedFamily(store)

	sync := NewSynchronizer(store, manager, noopLogger)
	if err := sync.SyncWorld(context.Background(), w.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	export := manager.Export()
	adaAtom := kb.AtomizeEntity("Ada", "Lovelace", ada.ID)
	for _, fact := range []string{
		"person(" + adaAtom + ").",
		"character_id(" + adaAtom + ", '" + ada.ID.String() + "').",
		"first_name(" + adaAtom + ", 'Ada').",
		"full_name(" + adaAtom + ", 'Ada Lovelace').",
		"gender(" + adaAtom + ", female).",
		"birth_year(" + adaAtom + ", 1815).",
		"alive(" + adaAtom + ").",
		"age(" + adaAtom + ", 36).",
		"occupation(" + adaAtom + ", mathematician).",
		"located_in(" + adaAtom + ", thornbury).",
		"has_attribute(" + adaAtom + ", temperament, 'curious').",
	} {
		if !strings.Contains(export, fact) {
			t.Errorf("expected export to contain %q", fact)
		}
	}

	// Empty fields stay out of the projection.
	if strings.Contains(export, "status("+adaAtom) {
		t.Error("expected no status fact for a character without one")
	}
}

func TestSyncWorldRelationshipFacts(t *testing.T) {
	store := storage.NewMockStorage()
	manager := newSyncManager(t)
	w, ada, charles, junior := seedFamily(store)

	sync := NewSynchronizer(store, manager, noopLogger)
	if err := sync.SyncWorld(context.Background(), w.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	export := manager.Export()
	adaAtom := kb.AtomizeEntity("Ada", "Lovelace", ada.ID)
	charlesAtom := kb.AtomizeEntity("Charles", "Babbage", charles.ID)
	juniorAtom := kb.AtomizeEntity("Junior", "Lovelace", junior.ID)

	for _, fact := range []string{
		"spouse_of(" + adaAtom + ", " + charlesAtom + ").",
		"spouse_of(" + charlesAtom + ", " + adaAtom + ").",
		"friend_of(" + adaAtom + ", " + charlesAtom + ").",
		"friend_of(" + charlesAtom + ", " + adaAtom + ").",
		"parent_of(" + charlesAtom + ", " + juniorAtom + ").",
	} {
		if !strings.Contains(export, fact) {
			t.Errorf("expected export to contain %q", fact)
		}
	}

	// ada -> junior is declared from both sides; the duplicate must fold.
	parentFact := "parent_of(" + adaAtom + ", " + juniorAtom + ")."
	if got := strings.Count(export, parentFact); got != 1 {
		t.Errorf("expected exactly one %q, got %d", parentFact, got)
	}
}

func TestSyncWorldSettlementsAndBusinesses(t *testing.T) {
	store := storage.NewMockStorage()
	manager := newSyncManager(t)
	w, ada, charles, _ := seedFamily(store)

	settlement := &world.Settlement{ID: uuid.New(), WorldID: w.ID, Name: "Thornbury", Founded: 1632}
	store.AddSettlement(settlement)
	bakery := &world.Business{
		ID:           uuid.New(),
		WorldID:      w.ID,
		SettlementID: settlement.ID,
		Name:         "Hearth and Crust",
		Type:         "bakery",
		OwnerID:      &charles.ID,
	}
	store.AddBusiness(bakery)
	ada.EmployerID = &bakery.ID

	sync := NewSynchronizer(store, manager, noopLogger)
	if err := sync.SyncWorld(context.Background(), w.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	export := manager.Export()
	adaAtom := kb.AtomizeEntity("Ada", "Lovelace", ada.ID)
	charlesAtom := kb.AtomizeEntity("Charles", "Babbage", charles.ID)

	for _, fact := range []string{
		"settlement(thornbury).",
		"settlement_name(thornbury, 'Thornbury').",
		"settlement_founded(thornbury, 1632).",
		"business(hearth_and_crust).",
		"business_type(hearth_and_crust, bakery).",
		"business_in(hearth_and_crust, thornbury).",
		"owns_business(" + charlesAtom + ", hearth_and_crust).",
		"works_at(" + adaAtom + ", hearth_and_crust).",
	} {
		if !strings.Contains(export, fact) {
			t.Errorf("expected export to contain %q", fact)
		}
	}
}

func TestSyncWorldMentalModels(t *testing.T) {
	store := storage.NewMockStorage()
	manager := newSyncManager(t)
	w, ada, charles, _ := seedFamily(store)

	ada.MentalModels = map[string]*world.MentalModel{
		charles.ID.String(): {
			SubjectID:       charles.ID,
			Confidence:      0.75,
			KnownFacts:      []string{"owns the bakery"},
			KnownAttributes: map[string]string{"temperament": "gruff"},
			Beliefs: []world.Belief{{
				Statement:  "hiding money troubles",
				Confidence: 0.4,
				Evidence:   []string{"unpaid supplier"},
			}},
		},
	}

	sync := NewSynchronizer(store, manager, noopLogger)
	if err := sync.SyncWorld(context.Background(), w.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	export := manager.Export()
	adaAtom := kb.AtomizeEntity("Ada", "Lovelace", ada.ID)
	charlesAtom := kb.AtomizeEntity("Charles", "Babbage", charles.ID)

	for _, fact := range []string{
		"mental_model(" + adaAtom + ", " + charlesAtom + ").",
		"model_confidence(" + adaAtom + ", " + charlesAtom + ", 0.75).",
		"knows_fact(" + adaAtom + ", " + charlesAtom + ", 'owns the bakery').",
		"knows_attribute(" + adaAtom + ", " + charlesAtom + ", temperament, 'gruff').",
		"belief(" + adaAtom + ", " + charlesAtom + ", 'hiding money troubles', 0.4).",
		"belief_evidence(" + adaAtom + ", " + charlesAtom + ", 'hiding money troubles', 'unpaid supplier').",
	} {
		if !strings.Contains(export, fact) {
			t.Errorf("expected export to contain %q", fact)
		}
	}
	if strings.Contains(export, "model_updated_at(") {
		t.Error("expected no freshness fact for a zero LastUpdated")
	}
}

func TestSyncWorldInstallsDerivedRules(t *testing.T) {
	store := storage.NewMockStorage()
	manager := newSyncManager(t)
	w, _, _, _ := seedFamily(store)

	sync := NewSynchronizer(store, manager, noopLogger)
	if err := sync.SyncWorld(context.Background(), w.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	export := manager.Export()
	for _, rule := range []string{
		"sibling_of(X, Y) :- parent_of(P, X), parent_of(P, Y), X \\== Y.",
		"ancestor_of(A, D) :- parent_of(A, P), ancestor_of(P, D).",
		"unmarried(X) :- person(X), \\+ spouse_of(X, _).",
		"adult(X) :- age(X, A), A >= 18.",
	} {
		if !strings.Contains(export, rule) {
			t.Errorf("expected export to contain %q", rule)
		}
	}
}

func TestDerivedRulesAreValidStatements(t *testing.T) {
	for _, rule := range derivedRules {
		if err := kb.Validate(rule); err != nil {
			t.Errorf("derived rule %q failed validation: %v", rule, err)
		}
	}
}

type failingSettlementStore struct {
	*storage.MockStorage
}

func (f *failingSettlementStore) ListSettlements(ctx context.Context, worldID uuid.UUID) ([]*world.Settlement, error) {
	return nil, errors.New("settlement backend down")
}

func TestSyncWorldPhaseFailureDoesNotAbort(t *testing.T) {
	store := storage.NewMockStorage()
	manager := newSyncManager(t)
	w, ada, _, _ := seedFamily(store)

	sync := NewSynchronizer(&failingSettlementStore{store}, manager, noopLogger)
	if err := sync.SyncWorld(context.Background(), w.ID); err != nil {
		t.Fatalf("expected phase failure to be swallowed, got %v", err)
	}

	export := manager.Export()
	adaAtom := kb.AtomizeEntity("Ada", "Lovelace", ada.ID)
	if !strings.Contains(export, "person("+adaAtom+").") {
		t.Error("expected character facts despite settlement failure")
	}
	if !strings.Contains(export, "sibling_of(X, Y)") {
		t.Error("expected derived rules despite settlement failure")
	}
}

func TestSyncWorldMissingWorld(t *testing.T) {
	store := storage.NewMockStorage()
	manager := newSyncManager(t)

	sync := NewSynchronizer(store, manager, noopLogger)
	if err := sync.SyncWorld(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error for unknown world")
	}
}

func TestSyncWorldIdempotent(t *testing.T) {
	store := storage.NewMockStorage()
	manager := newSyncManager(t)
	w, _, _, _ := seedFamily(store)

	sync := NewSynchronizer(store, manager, noopLogger)
	if err := sync.SyncWorld(context.Background(), w.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := manager.Len()

	if err := sync.SyncWorld(context.Background(), w.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second := manager.Len(); second != first {
		t.Errorf("expected re-sync to add nothing, went from %d to %d statements", first, second)
	}
}

// TestSyncWorldSiblingQuery runs the projected base through a real solver
// when one is installed.
func TestSyncWorldSiblingQuery(t *testing.T) {
	executor := kb.NewExecutor(kb.ExecutorConfig{}, noopLogger)
	if !executor.Available() {
		t.Skip("swipl not installed")
	}

	store := storage.NewMockStorage()
	manager := kb.NewManager(filepath.Join(t.TempDir(), "world.pl"), executor, noopLogger)
	w, ada, _, junior := seedFamily(store)

	rose := &world.Character{
		ID:        uuid.New(),
		WorldID:   w.ID,
		FirstName: "Rose",
		LastName:  "Lovelace",
		BirthYear: 1843,
		Alive:     true,
		ParentIDs: []uuid.UUID{ada.ID},
	}
	store.AddCharacter(rose)

	sync := NewSynchronizer(store, manager, noopLogger)
	if err := sync.SyncWorld(context.Background(), w.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := manager.Query(context.Background(), "sibling_of(X, Y)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected both sibling orderings, got %d results: %v", len(results), results)
	}

	juniorAtom := kb.AtomizeEntity("Junior", "Lovelace", junior.ID)
	roseAtom := kb.AtomizeEntity("Rose", "Lovelace", rose.ID)
	seen := make(map[string]bool, len(results))
	for _, binding := range results {
		seen[binding["X"]+"|"+binding["Y"]] = true
	}
	if !seen[juniorAtom+"|"+roseAtom] || !seen[roseAtom+"|"+juniorAtom] {
		t.Errorf("expected sibling pairs in both orders, got %v", results)
	}
}
