package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var (
	kbWorld      string
	kbExportPath string
)

func kbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Inspect and edit a world's knowledge base",
	}
	cmd.PersistentFlags().StringVarP(&kbWorld, "world", "w", "", "World UUID or name")
	cmd.AddCommand(kbExportCmd())
	cmd.AddCommand(kbImportCmd())
	cmd.AddCommand(kbQueryCmd())
	return cmd
}

func kbExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the knowledge base as solver-ready text",
		Args:  cobra.NoArgs,
		RunE:  runKBExport,
	}
	cmd.Flags().StringVarP(&kbExportPath, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func kbImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <statements.pl>",
		Short: "Add hand-written statements to the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE:  runKBImport,
	}
}

func kbQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <goal>",
		Short: "Pose a query against the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE:  runKBQuery,
	}
}

func runKBExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, log := setup()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	w, err := resolveWorld(ctx, store, kbWorld)
	if err != nil {
		return err
	}

	export := openKB(cfg, log).ForWorld(w.ID).Export()
	if kbExportPath == "" {
		fmt.Fprint(os.Stdout, export)
		return nil
	}
	if err := os.WriteFile(kbExportPath, []byte(export), 0o644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Wrote %s\n", kbExportPath)
	return nil
}

func runKBImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, log := setup()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading statements: %w", err)
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	w, err := resolveWorld(ctx, store, kbWorld)
	if err != nil {
		return err
	}

	manager := openKB(cfg, log).ForWorld(w.ID)
	added := manager.Import(string(data))
	fmt.Fprintf(os.Stdout, "Imported %d statements (%d total)\n", added, manager.Len())
	return nil
}

func runKBQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, log := setup()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	w, err := resolveWorld(ctx, store, kbWorld)
	if err != nil {
		return err
	}

	results, err := openKB(cfg, log).ForWorld(w.ID).Query(ctx, args[0])
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(os.Stdout, "false.")
		return nil
	}
	for _, binding := range results {
		if len(binding) == 0 {
			fmt.Fprintln(os.Stdout, "true.")
			continue
		}
		vars := make([]string, 0, len(binding))
		for v := range binding {
			vars = append(vars, v)
		}
		sort.Strings(vars)
		parts := make([]string, 0, len(vars))
		for _, v := range vars {
			parts = append(parts, fmt.Sprintf("%s = %s", v, binding[v]))
		}
		fmt.Fprintln(os.Stdout, strings.Join(parts, ", "))
	}
	return nil
}
