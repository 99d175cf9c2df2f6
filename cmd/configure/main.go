package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vavebg/ops-console/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "ops-console-configure",
		Short: "Configuration tool for the ops console",
		Long:  "CLI tool for inspecting configuration and testing backing services",
	}

	rootCmd.AddCommand(commands.NewShowCmd())
	rootCmd.AddCommand(commands.NewTestCmd())
	rootCmd.AddCommand(commands.NewTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
