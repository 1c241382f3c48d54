package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "hamlet",
		Short: "Rule-driven social simulation engine",
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.AddCommand(seedCmd())
	root.AddCommand(syncCmd())
	root.AddCommand(stepCmd())
	root.AddCommand(kbCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
