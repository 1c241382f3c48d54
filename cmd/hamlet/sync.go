package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hamlet/pkg/sim"
)

var syncWorld string

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Project a world into its knowledge base",
		Args:  cobra.NoArgs,
		RunE:  runSync,
	}
	cmd.Flags().StringVarP(&syncWorld, "world", "w", "", "World UUID or name")
	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, log := setup()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	w, err := resolveWorld(ctx, store, syncWorld)
	if err != nil {
		return err
	}

	manager := openKB(cfg, log).ForWorld(w.ID)
	if err := manager.Clear(); err != nil {
		return fmt.Errorf("clearing knowledge base: %w", err)
	}
	if err := sim.NewSynchronizer(store, manager, log).SyncWorld(ctx, w.ID); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Synced world %q: %d statements in %s\n", w.Name, manager.Len(), manager.Path())
	return nil
}
