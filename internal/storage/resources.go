package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"hamlet/pkg/grammar"
	"hamlet/pkg/rules"
)

// Rule and grammar operations (filesystem-backed). Authored files live
// under dataDir/rules and dataDir/grammars, one JSON document per file. A
// file without a world_id applies to every world. Unreadable or invalid
// files are logged and skipped, never failing the listing.

func (r *RedisStorage) ListRules(ctx context.Context, worldID uuid.UUID) ([]*rules.Rule, error) {
	rulesDir := filepath.Join(r.dataDir, "rules")
	var out []*rules.Rule

	err := filepath.WalkDir(rulesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		file, err := os.ReadFile(path)
		if err != nil {
			r.logger.Warn("Failed to read rule file", "path", path, "error", err)
			return nil
		}

		var rule rules.Rule
		if err := json.Unmarshal(file, &rule); err != nil {
			r.logger.Warn("Failed to unmarshal rule file", "path", path, "error", err)
			return nil
		}
		if rule.WorldID != uuid.Nil && rule.WorldID != worldID {
			return nil
		}
		if err := rule.Validate(); err != nil {
			r.logger.Warn("Skipping invalid rule", "path", path, "error", err)
			return nil
		}

		out = append(out, &rule)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	rules.Sort(out)
	return out, nil
}

func (r *RedisStorage) ListGrammars(ctx context.Context, worldID uuid.UUID) ([]*grammar.Grammar, error) {
	grammarsDir := filepath.Join(r.dataDir, "grammars")
	var out []*grammar.Grammar

	err := filepath.WalkDir(grammarsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		file, err := os.ReadFile(path)
		if err != nil {
			r.logger.Warn("Failed to read grammar file", "path", path, "error", err)
			return nil
		}

		var g grammar.Grammar
		if err := json.Unmarshal(file, &g); err != nil {
			r.logger.Warn("Failed to unmarshal grammar file", "path", path, "error", err)
			return nil
		}
		if g.Name == "" {
			// Filename stands in for a missing name.
			g.Name = strings.TrimSuffix(filepath.Base(path), ".json")
		}
		if g.WorldID != uuid.Nil && g.WorldID != worldID {
			return nil
		}
		if err := g.Validate(); err != nil {
			r.logger.Warn("Skipping invalid grammar", "path", path, "error", err)
			return nil
		}

		out = append(out, &g)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list grammars: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *RedisStorage) GetGrammar(ctx context.Context, worldID uuid.UUID, name string) (*grammar.Grammar, error) {
	grammars, err := r.ListGrammars(ctx, worldID)
	if err != nil {
		return nil, err
	}
	for _, g := range grammars {
		if g.Name == name {
			return g, nil
		}
	}
	return nil, nil
}
