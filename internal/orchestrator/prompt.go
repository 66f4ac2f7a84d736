package orchestrator

import (
	"fmt"
	"strings"

	"github.com/mfontane/borgata/pkg/models"
)

// roleBriefs describe each role's standing in the hierarchy, appended
// to every agent's own prompt so behavior stays consistent across
// static and generated organizations.
var roleBriefs = map[models.AgentRole]string{
	models.RoleUnderboss: "You are the root coordinator. Break the boss's task into workstreams, delegate them, integrate the results, and submit the final result with submit_result.",
	models.RoleCapo:      "You are a mid-level coordinator. Split your assignment across your crew, integrate their results, and report up with submit_result.",
	models.RoleSoldier:   "You are a leaf worker. Execute your assignment directly with your tools and report with submit_result.",
}

// buildSystemPrompt assembles an agent's full system prompt for one
// turn: standing instructions, role brief, the reachable org around the
// agent, the working directory, and the current progress digest.
func (o *Orchestrator) buildSystemPrompt(rs *runState, agent *models.Agent,
	children []models.Agent, edges []models.Relationship) string {

	var b strings.Builder

	if agent.SystemPrompt != "" {
		b.WriteString(agent.SystemPrompt)
		b.WriteString("\n\n")
	}
	if brief, ok := roleBriefs[agent.Role]; ok {
		b.WriteString(brief)
		b.WriteString("\n")
	}
	if agent.Specialty != "" {
		fmt.Fprintf(&b, "Your specialty: %s\n", agent.Specialty)
	}

	if len(children) > 0 {
		b.WriteString("\nYour subordinates (use delegate_task with their agent_id):\n")
		for _, c := range children {
			fmt.Fprintf(&b, "- %s: %s (%s", c.ID, c.Name, c.Role)
			if c.Specialty != "" {
				fmt.Fprintf(&b, ", %s", c.Specialty)
			}
			b.WriteString(")\n")
		}
	}

	var pairwise []models.Relationship
	for _, e := range edges {
		if e.Action != models.ActionDelegate {
			pairwise = append(pairwise, e)
		}
	}
	if len(pairwise) > 0 {
		b.WriteString("\nAgents you may consult (use ask_agent):\n")
		for _, e := range pairwise {
			fmt.Fprintf(&b, "- %s (%s)\n", e.ToAgentID, e.Action)
		}
	}

	if rs.workingDir != "" {
		fmt.Fprintf(&b, "\nWorking directory: %s\n", rs.workingDir)
	}

	if rs.tracker.IsInitialized() {
		b.WriteString("\nProject progress:\n")
		b.WriteString(rs.tracker.BuildContextSummary())
	}

	return strings.TrimRight(b.String(), "\n")
}
