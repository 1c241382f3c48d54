package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hamlet/pkg/world"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <bundle.json>",
		Short: "Import a world bundle (world, characters, settlements, businesses)",
		Args:  cobra.ExactArgs(1),
		RunE:  runSeed,
	}
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, log := setup()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading bundle: %w", err)
	}

	var bundle world.Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return fmt.Errorf("parsing bundle: %w", err)
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.ImportBundle(ctx, &bundle); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Imported world %q (%s)\n", bundle.World.Name, bundle.World.ID)
	fmt.Fprintf(os.Stdout, "  Characters:  %d\n", len(bundle.Characters))
	fmt.Fprintf(os.Stdout, "  Settlements: %d\n", len(bundle.Settlements))
	fmt.Fprintf(os.Stdout, "  Businesses:  %d\n", len(bundle.Businesses))
	return nil
}
