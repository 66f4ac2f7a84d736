package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mfontane/borgata/internal/signals"
	"github.com/mfontane/borgata/pkg/models"
)

var escalationsCmd = &cobra.Command{
	Use:   "escalations",
	Short: "List and answer pending escalations",
}

var escalationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending escalations across all conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		pending, err := a.db.ListPendingEscalations()
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("no pending escalations")
			return nil
		}
		for _, esc := range pending {
			escalaPrint("%s  (conversation %s, agent %s)\n", esc.ID, esc.ConversationID[:8], esc.AgentID)
			fmt.Printf("  %s\n", esc.Question)
		}
		return nil
	},
}

var escalationsAnswerCmd = &cobra.Command{
	Use:   "answer <escalation-id> <answer>",
	Short: "Answer a pending escalation and wake its branch",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		esc, err := a.db.GetEscalation(args[0])
		if err != nil {
			return err
		}
		if esc == nil {
			return fmt.Errorf("escalation %s not found", args[0])
		}
		if esc.Status == models.EscalationAnswered {
			errPrint("escalation %s was already answered\n", args[0])
			return nil
		}

		answer := strings.Join(args[1:], " ")

		// The suspended branch usually lives in the process running the
		// conversation, not here; the signal directory carries the answer
		// over to it.
		if a.orch.DeliverAnswer(args[0], answer) {
			okPrint("answered\n")
			return nil
		}
		if err := signals.RequestAnswer(a.signalDir, args[0], answer); err != nil {
			return err
		}
		okPrint("answer queued; the running process will resume the branch\n")
		return nil
	},
}

func init() {
	escalationsCmd.AddCommand(escalationsListCmd)
	escalationsCmd.AddCommand(escalationsAnswerCmd)
}
