package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

var continueCmd = &cobra.Command{
	Use:   "continue <conversation-id> <message>",
	Short: "Append a message to a conversation and resume it",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		conversationID := args[0]
		message := strings.Join(args[1:], " ")

		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.orch.ContinueTask(context.Background(), conversationID, message, nil); err != nil {
			return err
		}
		streamEvents(a, conversationID)
		printRunSummary(a, conversationID)
		return nil
	},
}
