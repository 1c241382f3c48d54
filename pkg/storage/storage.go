package storage

import (
	"context"

	"github.com/google/uuid"

	"hamlet/pkg/grammar"
	"hamlet/pkg/rules"
	"hamlet/pkg/world"
)

// Storage defines a unified interface for all persistence operations.
// Worlds, characters and truths live in Redis; rules and grammars are
// authored JSON loaded from the filesystem. Lookups that find nothing
// return nil without an error.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// World operations
	GetWorld(ctx context.Context, id uuid.UUID) (*world.World, error)
	SaveWorld(ctx context.Context, w *world.World) error
	ListWorlds(ctx context.Context) ([]*world.World, error)

	// Character operations
	GetCharacter(ctx context.Context, id uuid.UUID) (*world.Character, error)
	SaveCharacter(ctx context.Context, c *world.Character) error
	ListCharacters(ctx context.Context, worldID uuid.UUID) ([]*world.Character, error)

	// Rule operations (filesystem-backed, ordered for execution)
	ListRules(ctx context.Context, worldID uuid.UUID) ([]*rules.Rule, error)

	// Grammar operations (filesystem-backed)
	GetGrammar(ctx context.Context, worldID uuid.UUID, name string) (*grammar.Grammar, error)
	ListGrammars(ctx context.Context, worldID uuid.UUID) ([]*grammar.Grammar, error)

	// Provenance ledger
	CreateTruth(ctx context.Context, t *world.Truth) error
	ListTruths(ctx context.Context, worldID uuid.UUID) ([]*world.Truth, error)

	// Places. Worlds without settlement or business data yield empty
	// lists, never errors.
	ListSettlements(ctx context.Context, worldID uuid.UUID) ([]*world.Settlement, error)
	ListBusinesses(ctx context.Context, worldID uuid.UUID) ([]*world.Business, error)
}
