package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"hamlet/pkg/grammar"
	"hamlet/pkg/rules"
	"hamlet/pkg/world"
)

// MockStorage is an in-memory implementation of Storage for testing.
type MockStorage struct {
	mu          sync.RWMutex
	worlds      map[uuid.UUID]*world.World
	characters  map[uuid.UUID]*world.Character
	rules       map[uuid.UUID][]*rules.Rule
	grammars    map[uuid.UUID]map[string]*grammar.Grammar
	truths      []*world.Truth
	settlements map[uuid.UUID][]*world.Settlement
	businesses  map[uuid.UUID][]*world.Business

	pingError        error
	saveCharError    error
	createTruthError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		worlds:      make(map[uuid.UUID]*world.World),
		characters:  make(map[uuid.UUID]*world.Character),
		rules:       make(map[uuid.UUID][]*rules.Rule),
		grammars:    make(map[uuid.UUID]map[string]*grammar.Grammar),
		settlements: make(map[uuid.UUID][]*world.Settlement),
		businesses:  make(map[uuid.UUID][]*world.Business),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveCharacterError configures SaveCharacter to fail
func (m *MockStorage) SetSaveCharacterError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCharError = err
}

// SetCreateTruthError configures CreateTruth to fail
func (m *MockStorage) SetCreateTruthError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createTruthError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// AddWorld seeds a world (for testing)
func (m *MockStorage) AddWorld(w *world.World) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.worlds[w.ID] = w
}

// GetWorld mocks world lookup, nil for not found
func (m *MockStorage) GetWorld(ctx context.Context, id uuid.UUID) (*world.World, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.worlds[id], nil
}

// SaveWorld mocks saving a world
func (m *MockStorage) SaveWorld(ctx context.Context, w *world.World) error {
	if w == nil {
		return errors.New("world cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.worlds[w.ID] = w
	return nil
}

// ListWorlds mocks listing all worlds, sorted by name
func (m *MockStorage) ListWorlds(ctx context.Context) ([]*world.World, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*world.World, 0, len(m.worlds))
	for _, w := range m.worlds {
		result = append(result, w)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// AddCharacter seeds a character (for testing)
func (m *MockStorage) AddCharacter(c *world.Character) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.characters[c.ID] = c
}

// GetCharacter mocks character lookup, nil for not found
func (m *MockStorage) GetCharacter(ctx context.Context, id uuid.UUID) (*world.Character, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.characters[id], nil
}

// SaveCharacter mocks saving a character
func (m *MockStorage) SaveCharacter(ctx context.Context, c *world.Character) error {
	if c == nil {
		return errors.New("character cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveCharError != nil {
		return m.saveCharError
	}
	m.characters[c.ID] = c
	return nil
}

// ListCharacters mocks listing a world's characters, sorted by name then
// ID so callers see a stable order.
func (m *MockStorage) ListCharacters(ctx context.Context, worldID uuid.UUID) ([]*world.Character, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*world.Character, 0)
	for _, c := range m.characters {
		if c.WorldID == worldID {
			result = append(result, c)
		}
	}
	sortCharacters(result)
	return result, nil
}

// AddRule seeds a rule (for testing)
func (m *MockStorage) AddRule(r *rules.Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[r.WorldID] = append(m.rules[r.WorldID], r)
}

// ListRules mocks listing a world's rules in execution order
func (m *MockStorage) ListRules(ctx context.Context, worldID uuid.UUID) ([]*rules.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := append([]*rules.Rule(nil), m.rules[worldID]...)
	rules.Sort(result)
	return result, nil
}

// AddGrammar seeds a grammar (for testing)
func (m *MockStorage) AddGrammar(g *grammar.Grammar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grammars[g.WorldID] == nil {
		m.grammars[g.WorldID] = make(map[string]*grammar.Grammar)
	}
	m.grammars[g.WorldID][g.Name] = g
}

// GetGrammar mocks grammar lookup by name, nil for not found
func (m *MockStorage) GetGrammar(ctx context.Context, worldID uuid.UUID, name string) (*grammar.Grammar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.grammars[worldID][name], nil
}

// ListGrammars mocks listing a world's grammars, sorted by name
func (m *MockStorage) ListGrammars(ctx context.Context, worldID uuid.UUID) ([]*grammar.Grammar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*grammar.Grammar, 0, len(m.grammars[worldID]))
	for _, g := range m.grammars[worldID] {
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// CreateTruth mocks appending a provenance ledger entry
func (m *MockStorage) CreateTruth(ctx context.Context, t *world.Truth) error {
	if t == nil {
		return errors.New("truth cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createTruthError != nil {
		return m.createTruthError
	}
	m.truths = append(m.truths, t)
	return nil
}

// ListTruths mocks listing a world's ledger entries in creation order
func (m *MockStorage) ListTruths(ctx context.Context, worldID uuid.UUID) ([]*world.Truth, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*world.Truth, 0)
	for _, t := range m.truths {
		if t.WorldID == worldID {
			result = append(result, t)
		}
	}
	return result, nil
}

// AddSettlement seeds a settlement (for testing)
func (m *MockStorage) AddSettlement(s *world.Settlement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlements[s.WorldID] = append(m.settlements[s.WorldID], s)
}

// ListSettlements mocks listing a world's settlements
func (m *MockStorage) ListSettlements(ctx context.Context, worldID uuid.UUID) ([]*world.Settlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := append([]*world.Settlement(nil), m.settlements[worldID]...)
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// AddBusiness seeds a business (for testing)
func (m *MockStorage) AddBusiness(b *world.Business) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.businesses[b.WorldID] = append(m.businesses[b.WorldID], b)
}

// ListBusinesses mocks listing a world's businesses
func (m *MockStorage) ListBusinesses(ctx context.Context, worldID uuid.UUID) ([]*world.Business, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := append([]*world.Business(nil), m.businesses[worldID]...)
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// sortCharacters orders characters by full name, breaking ties by ID so
// two characters sharing a name still sort stably.
func sortCharacters(cs []*world.Character) {
	sort.Slice(cs, func(i, j int) bool {
		ni, nj := cs[i].FullName(), cs[j].FullName()
		if ni != nj {
			return ni < nj
		}
		return cs[i].ID.String() < cs[j].ID.String()
	})
}
