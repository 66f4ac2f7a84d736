package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mfontane/borgata/pkg/models"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Inspect the agent roster",
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List agents as a hierarchy",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		agents, err := a.db.ListAgents()
		if err != nil {
			return err
		}
		if len(agents) == 0 {
			fmt.Println("no agents configured")
			return nil
		}

		children := make(map[string][]models.Agent)
		var roots []models.Agent
		for _, ag := range agents {
			if ag.ParentID == "" {
				roots = append(roots, ag)
			} else {
				children[ag.ParentID] = append(children[ag.ParentID], ag)
			}
		}
		for _, root := range roots {
			printAgentTree(root, children, 0)
		}
		return nil
	},
}

func printAgentTree(agent models.Agent, children map[string][]models.Agent, depth int) {
	for i := 0; i < depth; i++ {
		fmt.Print("  ")
	}
	tag := ""
	if agent.IsDynamic {
		tag = " [dynamic]"
	}
	fmt.Printf("%s  %s (%s", agent.ID, agent.Name, agent.Role)
	if agent.Specialty != "" {
		fmt.Printf(", %s", agent.Specialty)
	}
	fmt.Printf(")%s\n", tag)
	for _, child := range children[agent.ID] {
		printAgentTree(child, children, depth+1)
	}
}

func init() {
	agentsCmd.AddCommand(agentsListCmd)
}
