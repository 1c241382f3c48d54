package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"hamlet/pkg/grammar"
	"hamlet/pkg/rules"
	"hamlet/pkg/world"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.json> [file.json ...]",
		Short: "Check bundle, rule, and grammar files for authoring mistakes",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	failed := 0
	for _, path := range args {
		if err := validateFile(path); err != nil {
			fmt.Fprintf(os.Stdout, "FAIL %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(os.Stdout, "ok   %s\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed validation", failed, len(args))
	}
	return nil
}

// validateFile sniffs the document shape from its top-level keys and
// runs the matching validator. Grammar names fall back to the filename
// the same way the loader's do, so what validates here also loads.
func validateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	switch {
	case probe["world"] != nil:
		var b world.Bundle
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("invalid bundle: %w", err)
		}
		return b.Normalize()
	case probe["symbols"] != nil:
		var g grammar.Grammar
		if err := json.Unmarshal(data, &g); err != nil {
			return fmt.Errorf("invalid grammar: %w", err)
		}
		if g.Name == "" {
			g.Name = strings.TrimSuffix(filepath.Base(path), ".json")
		}
		return g.Validate()
	case probe["effects"] != nil || probe["conditions"] != nil:
		var r rules.Rule
		if err := json.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("invalid rule: %w", err)
		}
		return r.Validate()
	default:
		return fmt.Errorf("unrecognized shape: expected a bundle (world), rule (effects), or grammar (symbols)")
	}
}
