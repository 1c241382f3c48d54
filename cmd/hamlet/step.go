package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"hamlet/internal/watch"
	"hamlet/pkg/sim"
)

var (
	stepWorld string
	stepSim   string
	stepCount int
	stepWatch bool
)

func stepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Advance the simulation by one or more timesteps",
		Args:  cobra.NoArgs,
		RunE:  runStep,
	}
	cmd.Flags().StringVarP(&stepWorld, "world", "w", "", "World UUID or name")
	cmd.Flags().StringVar(&stepSim, "sim", "cli", "Simulation ID (step history is scoped to it)")
	cmd.Flags().IntVarP(&stepCount, "count", "n", 1, "Number of timesteps to execute")
	cmd.Flags().BoolVar(&stepWatch, "watch", false, "Keep running; re-step when rule or grammar files change")
	return cmd
}

func runStep(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, log := setup()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	w, err := resolveWorld(ctx, store, stepWorld)
	if err != nil {
		return err
	}

	engine := sim.NewEngine(store, openKB(cfg, log), log)

	for i := 0; i < stepCount; i++ {
		result := engine.ExecuteStep(ctx, w.ID, stepSim)
		printStep(result)
		if !result.Success {
			return fmt.Errorf("step failed: %s", result.Message)
		}
	}

	if !stepWatch {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := watch.New(cfg.DataDir, func() {
		engine.Reset()
		printStep(engine.ExecuteStep(ctx, w.ID, stepSim))
	}, log)
	if err != nil {
		log.Warn("Watch mode unavailable", "error", err)
		return nil
	}
	defer watcher.Close()
	watcher.Start(ctx)

	fmt.Fprintln(os.Stdout, "Watching rules/ and grammars/ for changes (ctrl-c to stop)")
	<-ctx.Done()
	return nil
}

// printStep shows one timestep's output. Result fields accumulate
// across the whole run, so filter to the timestep that just executed.
func printStep(result *sim.StepResult) {
	if !result.Success {
		fmt.Fprintf(os.Stdout, "timestep %d FAILED: %s\n", result.Timestep, result.Message)
		return
	}
	var fired []string
	for _, rec := range result.Records {
		if rec.Timestep == result.Timestep {
			fired = append(fired, rec.RuleName)
		}
	}
	fmt.Fprintf(os.Stdout, "timestep %d", result.Timestep)
	if len(fired) > 0 {
		fmt.Fprintf(os.Stdout, " (rules: %s)", strings.Join(fired, ", "))
	}
	fmt.Fprintln(os.Stdout)
	for _, ev := range result.Events {
		if ev.Timestep != result.Timestep {
			continue
		}
		if ev.Type == sim.EventNarrative {
			fmt.Fprintf(os.Stdout, "  %s\n", ev.Description)
		} else {
			fmt.Fprintf(os.Stdout, "  [%s] %s\n", ev.Type, ev.Description)
		}
	}
}
