package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "List conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		conversations, err := a.db.ListConversations(nil)
		if err != nil {
			return err
		}
		if len(conversations) == 0 {
			fmt.Println("no conversations")
			return nil
		}
		for _, c := range conversations {
			n, _ := a.db.CountMessages(c.ID)
			fmt.Printf("%s  %-10s  %s  %4d msgs  %s\n", c.ID[:8], c.Status, c.CreatedAt.Format("2006-01-02 15:04"), n, c.Title)
		}
		return nil
	},
}
