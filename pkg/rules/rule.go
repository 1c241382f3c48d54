package rules

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Rule is one declarative simulation rule: optional conditions gating a
// list of effects. Rules are authored as JSON files and loaded per world.
type Rule struct {
	ID         uuid.UUID   `json:"id"`
	WorldID    uuid.UUID   `json:"world_id"`
	Name       string      `json:"name"`
	Type       string      `json:"type,omitempty"` // e.g. "social", "economic", "lifecycle"
	Priority   int         `json:"priority"`       // higher runs first
	Conditions []Condition `json:"conditions,omitempty"`
	Effects    []Effect    `json:"effects,omitempty"`
	Enabled    *bool       `json:"enabled,omitempty"` // nil means enabled
}

// IsEnabled reports whether the rule should run. Rules are enabled unless
// explicitly switched off.
func (r *Rule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Validate checks a rule for authoring mistakes. Runtime execution is
// tolerant of unknown effect kinds; validation is not, so authors hear
// about typos before a simulation silently skips them.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule is missing a name")
	}
	if len(r.Effects) == 0 {
		return fmt.Errorf("rule %q has no effects", r.Name)
	}
	for i, c := range r.Conditions {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("rule %q condition %d: %w", r.Name, i, err)
		}
	}
	for i, e := range r.Effects {
		if e.Kind == EffectUnknown {
			return fmt.Errorf("rule %q effect %d has unrecognized type %q", r.Name, i, e.RawKind)
		}
	}
	return nil
}

// Sort orders rules for execution: higher priority first, ties broken by
// name so execution order is stable across loads.
func Sort(rs []*Rule) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Priority != rs[j].Priority {
			return rs[i].Priority > rs[j].Priority
		}
		return rs[i].Name < rs[j].Name
	})
}
