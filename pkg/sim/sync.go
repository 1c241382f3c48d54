package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"hamlet/pkg/kb"
	"hamlet/pkg/storage"
	"hamlet/pkg/world"
)

// derivedRules is the fixed helper library installed as the last sync
// phase, so simulation rules can query family structure, proximity and
// social knowledge without the synchronizer materializing every derived
// edge as a fact.
var derivedRules = []string{
	"sibling_of(X, Y) :- parent_of(P, X), parent_of(P, Y), X \\== Y.",
	"grandparent_of(G, C) :- parent_of(G, P), parent_of(P, C).",
	"ancestor_of(A, D) :- parent_of(A, D).",
	"ancestor_of(A, D) :- parent_of(A, P), ancestor_of(P, D).",
	"unmarried(X) :- person(X), \\+ spouse_of(X, _).",
	"same_location(X, Y) :- located_in(X, L), located_in(Y, L), X \\== Y.",
	"eldest_child(P, C) :- parent_of(P, C), age(C, A), \\+ (parent_of(P, D), D \\== C, age(D, B), B > A).",
	"adult(X) :- age(X, A), A >= 18.",
	"child(X) :- age(X, A), A < 18.",
	"can_share_knowledge(X, Y) :- same_location(X, Y), alive(X), alive(Y).",
	"can_eavesdrop(X, Y) :- same_location(X, Y), alive(X), alive(Y), \\+ friend_of(X, Y).",
	"strong_belief(O, S, B) :- belief(O, S, B, C), C >= 0.8.",
	"weak_belief(O, S, B) :- belief(O, S, B, C), C < 0.3.",
	"knows_well(X, Y) :- mental_model(X, Y), model_confidence(X, Y, C), C >= 0.7.",
	"stranger_to(X, Y) :- person(X), person(Y), X \\== Y, \\+ mental_model(X, Y).",
}

// Synchronizer projects the structured world model into knowledge base
// statements. Projection runs in a fixed phase order; a failing phase is
// logged and does not abort the phases after it.
type Synchronizer struct {
	store  storage.Storage
	kb     *kb.Manager
	logger *slog.Logger
}

// NewSynchronizer builds a synchronizer writing into the given manager.
func NewSynchronizer(store storage.Storage, manager *kb.Manager, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		store:  store,
		kb:     manager,
		logger: logger,
	}
}

// SyncWorld projects one world into the knowledge base. Facts accumulate:
// callers wanting a fresh projection clear the manager first. Only a world
// that cannot be loaded at all fails the sync; per-phase errors are logged
// and swallowed.
func (s *Synchronizer) SyncWorld(ctx context.Context, worldID uuid.UUID) error {
	w, err := s.store.GetWorld(ctx, worldID)
	if err != nil {
		return fmt.Errorf("loading world: %w", err)
	}
	if w == nil {
		return fmt.Errorf("world %s not found", worldID)
	}
	characters, err := s.store.ListCharacters(ctx, worldID)
	if err != nil {
		return fmt.Errorf("loading characters: %w", err)
	}

	atoms := make(map[uuid.UUID]string, len(characters))
	for _, c := range characters {
		atoms[c.ID] = kb.AtomizeEntity(c.FirstName, c.LastName, c.ID)
	}

	phases := []struct {
		name string
		run  func() error
	}{
		{"world metadata", func() error { return s.syncWorldMetadata(w) }},
		{"characters", func() error { return s.syncCharacters(w, characters, atoms) }},
		{"relationships", func() error { return s.syncRelationships(characters, atoms) }},
		{"settlements", func() error { return s.syncSettlements(ctx, w) }},
		{"businesses", func() error { return s.syncBusinesses(ctx, w, characters, atoms) }},
		{"mental models", func() error { return s.syncMentalModels(characters, atoms) }},
		{"derived rules", func() error { return s.installDerivedRules() }},
	}

	for _, phase := range phases {
		if err := phase.run(); err != nil {
			s.logger.Error("Sync phase failed", "phase", phase.name, "world_id", worldID, "error", err)
		}
	}

	s.logger.Info("World synchronized", "world_id", worldID, "statements", s.kb.Len())
	return nil
}

func (s *Synchronizer) syncWorldMetadata(w *world.World) error {
	atom := kb.Atom(kb.AtomizeEntity(w.Name, "", w.ID))
	s.kb.AssertFact(kb.NewClause("world", atom))
	s.kb.AssertFact(kb.NewClause("world_name", atom, kb.Str(w.Name)))
	s.kb.AssertFact(kb.NewClause("current_year", atom, kb.Int(w.CurrentYear)))
	return nil
}

func (s *Synchronizer) syncCharacters(w *world.World, characters []*world.Character, atoms map[uuid.UUID]string) error {
	for _, c := range characters {
		a := kb.Atom(atoms[c.ID])

		s.kb.AssertFact(kb.NewClause("person", a))
		s.kb.AssertFact(kb.NewClause("character_id", a, kb.Str(c.ID.String())))
		s.kb.AssertFact(kb.NewClause("first_name", a, kb.Str(c.FirstName)))
		if c.LastName != "" {
			s.kb.AssertFact(kb.NewClause("last_name", a, kb.Str(c.LastName)))
		}
		s.kb.AssertFact(kb.NewClause("full_name", a, kb.Str(c.FullName())))
		if c.Gender != "" {
			s.kb.AssertFact(kb.NewClause("gender", a, kb.Atom(kb.Atomize(c.Gender))))
		}
		s.kb.AssertFact(kb.NewClause("birth_year", a, kb.Int(c.BirthYear)))

		if c.Alive {
			s.kb.AssertFact(kb.NewClause("alive", a))
		} else {
			s.kb.AssertFact(kb.NewClause("dead", a))
			if c.DeathYear > 0 {
				s.kb.AssertFact(kb.NewClause("death_year", a, kb.Int(c.DeathYear)))
			}
		}
		s.kb.AssertFact(kb.NewClause("age", a, kb.Int(c.Age(w.CurrentYear))))

		if c.Occupation != "" {
			s.kb.AssertFact(kb.NewClause("occupation", a, kb.Atom(kb.Atomize(c.Occupation))))
		}
		if c.Location != "" {
			s.kb.AssertFact(kb.NewClause("located_in", a, kb.Atom(kb.Atomize(c.Location))))
		}
		if c.Status != "" {
			s.kb.AssertFact(kb.NewClause("status", a, kb.Atom(kb.Atomize(c.Status))))
		}
		for _, key := range sortedKeys(c.Attributes) {
			s.kb.AssertFact(kb.NewClause("has_attribute", a,
				kb.Atom(kb.Atomize(key)), kb.Str(c.Attributes[key])))
		}
	}
	return nil
}

// syncRelationships emits spouse, parent/child and friend edges. Symmetric
// relations are written in both directions; edges referencing characters
// outside this world are skipped.
func (s *Synchronizer) syncRelationships(characters []*world.Character, atoms map[uuid.UUID]string) error {
	for _, c := range characters {
		a := kb.Atom(atoms[c.ID])

		if c.SpouseID != nil {
			if spouse, ok := atoms[*c.SpouseID]; ok {
				s.kb.AssertFact(kb.NewClause("spouse_of", a, kb.Atom(spouse)))
				s.kb.AssertFact(kb.NewClause("spouse_of", kb.Atom(spouse), a))
			}
		}
		for _, pid := range c.ParentIDs {
			if parent, ok := atoms[pid]; ok {
				s.kb.AssertFact(kb.NewClause("parent_of", kb.Atom(parent), a))
			}
		}
		for _, cid := range c.ChildIDs {
			if childAtom, ok := atoms[cid]; ok {
				s.kb.AssertFact(kb.NewClause("parent_of", a, kb.Atom(childAtom)))
			}
		}
		for _, fid := range c.FriendIDs {
			if friend, ok := atoms[fid]; ok {
				s.kb.AssertFact(kb.NewClause("friend_of", a, kb.Atom(friend)))
				s.kb.AssertFact(kb.NewClause("friend_of", kb.Atom(friend), a))
			}
		}
	}
	return nil
}

// syncSettlements keys settlements by their name atom, matching the atoms
// located_in facts use, so co-location queries line up. The settlement's
// unique ID is preserved in a separate fact.
func (s *Synchronizer) syncSettlements(ctx context.Context, w *world.World) error {
	settlements, err := s.store.ListSettlements(ctx, w.ID)
	if err != nil {
		return fmt.Errorf("listing settlements: %w", err)
	}
	for _, st := range settlements {
		atom := kb.Atom(kb.Atomize(st.Name))
		s.kb.AssertFact(kb.NewClause("settlement", atom))
		s.kb.AssertFact(kb.NewClause("settlement_id", atom, kb.Str(st.ID.String())))
		s.kb.AssertFact(kb.NewClause("settlement_name", atom, kb.Str(st.Name)))
		if st.Founded > 0 {
			s.kb.AssertFact(kb.NewClause("settlement_founded", atom, kb.Int(st.Founded)))
		}
	}
	return nil
}

func (s *Synchronizer) syncBusinesses(ctx context.Context, w *world.World, characters []*world.Character, atoms map[uuid.UUID]string) error {
	businesses, err := s.store.ListBusinesses(ctx, w.ID)
	if err != nil {
		return fmt.Errorf("listing businesses: %w", err)
	}
	settlements, err := s.store.ListSettlements(ctx, w.ID)
	if err != nil {
		s.logger.Warn("Skipping business locations, settlements unavailable", "error", err)
		settlements = nil
	}
	settlementAtoms := make(map[uuid.UUID]string, len(settlements))
	for _, st := range settlements {
		settlementAtoms[st.ID] = kb.Atomize(st.Name)
	}

	businessAtoms := make(map[uuid.UUID]string, len(businesses))
	for _, b := range businesses {
		atom := kb.Atomize(b.Name)
		businessAtoms[b.ID] = atom

		s.kb.AssertFact(kb.NewClause("business", kb.Atom(atom)))
		s.kb.AssertFact(kb.NewClause("business_id", kb.Atom(atom), kb.Str(b.ID.String())))
		if b.Type != "" {
			s.kb.AssertFact(kb.NewClause("business_type", kb.Atom(atom), kb.Atom(kb.Atomize(b.Type))))
		}
		if st, ok := settlementAtoms[b.SettlementID]; ok {
			s.kb.AssertFact(kb.NewClause("business_in", kb.Atom(atom), kb.Atom(st)))
		}
		if b.OwnerID != nil {
			if owner, ok := atoms[*b.OwnerID]; ok {
				s.kb.AssertFact(kb.NewClause("owns_business", kb.Atom(owner), kb.Atom(atom)))
			}
		}
	}

	for _, c := range characters {
		if c.EmployerID == nil {
			continue
		}
		if b, ok := businessAtoms[*c.EmployerID]; ok {
			s.kb.AssertFact(kb.NewClause("works_at", kb.Atom(atoms[c.ID]), kb.Atom(b)))
		}
	}
	return nil
}

// syncMentalModels projects each observer's picture of other characters:
// confidence, freshness, known facts, known attribute values, and beliefs
// with their evidence.
func (s *Synchronizer) syncMentalModels(characters []*world.Character, atoms map[uuid.UUID]string) error {
	for _, c := range characters {
		observer := kb.Atom(atoms[c.ID])

		for _, sidStr := range sortedKeys(c.MentalModels) {
			mm := c.MentalModels[sidStr]
			if mm == nil {
				continue
			}
			sid, err := uuid.Parse(sidStr)
			if err != nil {
				s.logger.Debug("Skipping mental model with bad subject key", "observer", c.FullName(), "key", sidStr)
				continue
			}
			subjectAtom, ok := atoms[sid]
			if !ok {
				s.logger.Debug("Skipping mental model of unknown character", "observer", c.FullName(), "subject_id", sid)
				continue
			}
			subject := kb.Atom(subjectAtom)

			s.kb.AssertFact(kb.NewClause("mental_model", observer, subject))
			s.kb.AssertFact(kb.NewClause("model_confidence", observer, subject, kb.Float(mm.Confidence)))
			if !mm.LastUpdated.IsZero() {
				s.kb.AssertFact(kb.NewClause("model_updated_at", observer, subject,
					kb.Str(mm.LastUpdated.UTC().Format(time.RFC3339))))
			}
			for _, fact := range mm.KnownFacts {
				s.kb.AssertFact(kb.NewClause("knows_fact", observer, subject, kb.Str(fact)))
			}
			for _, key := range sortedKeys(mm.KnownAttributes) {
				s.kb.AssertFact(kb.NewClause("knows_attribute", observer, subject,
					kb.Atom(kb.Atomize(key)), kb.Str(mm.KnownAttributes[key])))
			}
			for _, belief := range mm.Beliefs {
				s.kb.AssertFact(kb.NewClause("belief", observer, subject,
					kb.Str(belief.Statement), kb.Float(belief.Confidence)))
				for _, evidence := range belief.Evidence {
					s.kb.AssertFact(kb.NewClause("belief_evidence", observer, subject,
						kb.Str(belief.Statement), kb.Str(evidence)))
				}
			}
		}
	}
	return nil
}

func (s *Synchronizer) installDerivedRules() error {
	rejected := 0
	for _, rule := range derivedRules {
		if s.kb.AddRule(rule) {
			continue
		}
		// Duplicates are expected when re-syncing into an uncleared base.
		if err := kb.Validate(rule); err != nil {
			rejected++
			s.logger.Error("Derived rule rejected", "rule", rule, "error", err)
		}
	}
	if rejected > 0 {
		return fmt.Errorf("%d derived rules rejected", rejected)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
