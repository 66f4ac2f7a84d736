package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var orgDir string

var orgCmd = &cobra.Command{
	Use:   "org",
	Short: "Manage agent organizations",
}

var orgGenerateCmd = &cobra.Command{
	Use:   "generate <task>",
	Short: "Synthesize a bespoke organization for a task without running it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task := strings.Join(args, " ")

		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		workingDir := orgDir
		if workingDir == "" {
			workingDir, err = os.Getwd()
			if err != nil {
				return err
			}
		}

		org, err := a.orch.CreateDynamicOrg(context.Background(), task, workingDir)
		if err != nil {
			return err
		}

		okPrint("Generated organization for conversation %s:\n\n", org.ConversationID)
		for _, agent := range org.Agents {
			indent := ""
			if agent.ParentID != "" {
				indent = "  "
			}
			fmt.Printf("%s%s  %s (%s", indent, agent.ID[:8], agent.Name, agent.Role)
			if agent.Specialty != "" {
				fmt.Printf(", %s", agent.Specialty)
			}
			fmt.Println(")")
		}
		fmt.Printf("\n%d routing edges\n", len(org.Relationships))
		fmt.Printf("\nRun it with: borgata org execute %s\n", org.ConversationID)
		return nil
	},
}

var orgExecuteCmd = &cobra.Command{
	Use:   "execute <conversation-id>",
	Short: "Execute a previously generated organization",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.orch.ResumeConversation(context.Background(), args[0]); err != nil {
			return err
		}
		streamEvents(a, args[0])
		return nil
	},
}

func init() {
	orgGenerateCmd.Flags().StringVar(&orgDir, "dir", "", "Working directory for tools (default: current directory)")
	orgCmd.AddCommand(orgGenerateCmd)
	orgCmd.AddCommand(orgExecuteCmd)
}
