package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	runDir string
	runOrg bool
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Start a task and stream its events",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task := strings.Join(args, " ")

		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		workingDir := runDir
		if workingDir == "" {
			workingDir, err = os.Getwd()
			if err != nil {
				return err
			}
		}

		ctx := context.Background()
		var conversationID string

		if runOrg {
			org, err := a.orch.CreateDynamicOrg(ctx, task, workingDir)
			if err != nil {
				return err
			}
			conversationID = org.ConversationID
			okPrint("Generated organization (%d agents):\n", len(org.Agents))
			for _, agent := range org.Agents {
				fmt.Printf("  %s  %s (%s)\n", agent.ID[:8], agent.Name, agent.Role)
			}
			if err := a.orch.ResumeConversation(ctx, conversationID); err != nil {
				return err
			}
		} else {
			conv, err := a.orch.StartTask(ctx, task, nil, workingDir)
			if err != nil {
				return err
			}
			conversationID = conv.ID
		}

		fmt.Printf("conversation: %s\n", conversationID)
		streamEvents(a, conversationID)
		printRunSummary(a, conversationID)
		return nil
	},
}

// printRunSummary prints the final phase ledger and transcript size
// once the run has finished.
func printRunSummary(a *app, conversationID string) {
	if summary, ok := a.orch.ProgressSummary(conversationID); ok && summary.ProjectName != "" {
		fmt.Printf("\nProject: %s\n", summary.ProjectName)
		if summary.Status != "" {
			fmt.Printf("Status: %s\n", summary.Status)
		}
		for _, p := range summary.Phases {
			fmt.Printf("  %-12s %s\n", "["+string(p.Status)+"]", p.Name)
		}
	}
	if n, err := a.db.CountMessages(conversationID); err == nil {
		dimPrint("%d messages in transcript\n", n)
	}
}

func init() {
	runCmd.Flags().StringVar(&runDir, "dir", "", "Working directory for tools (default: current directory)")
	runCmd.Flags().BoolVar(&runOrg, "org", false, "Synthesize a bespoke agent organization for this task")
}
