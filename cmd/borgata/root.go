package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "borgata",
	Short: "Hierarchical agent orchestrator",
	Long: `Borgata runs tasks through a hierarchy of LLM agents: an underboss
breaks the work into workstreams, capos split them across their crews,
and soldiers execute with filesystem and shell tools. Escalations
suspend a branch until you answer; every step streams as events.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(continueCmd)
	rootCmd.AddCommand(orgCmd)
	rootCmd.AddCommand(escalationsCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(versionCmd)
}
