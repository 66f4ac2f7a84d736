package orchestrator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mfontane/borgata/internal/capability"
	"github.com/mfontane/borgata/internal/fault"
	"github.com/mfontane/borgata/internal/provider"
	"github.com/mfontane/borgata/internal/store"
	"github.com/mfontane/borgata/pkg/models"
)

const orgPlannerPrompt = `You design agent organizations for complex tasks.
Given a task, respond with ONLY a JSON object of this shape:

{
  "agents": [
    {
      "ref": "root",
      "name": "display name",
      "role": "underboss" | "capo" | "soldier",
      "specialty": "focus area",
      "system_prompt": "standing instructions for this agent",
      "parent": "" or the ref of the superior
    }
  ]
}

Rules: exactly one agent has an empty parent and role "underboss";
capos report to the underboss; soldiers report to a capo or the
underboss. Size the organization to the task: simple tasks need an
underboss and one or two soldiers.`

// orgPlan is the parsed shape of a planner response.
type orgPlan struct {
	Agents []orgPlanAgent `json:"agents"`
}

type orgPlanAgent struct {
	Ref          string `json:"ref"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	Specialty    string `json:"specialty"`
	SystemPrompt string `json:"system_prompt"`
	Parent       string `json:"parent"`
}

// DynamicOrg is a persisted conversation-scoped organization returned
// for display and confirmation before execution.
type DynamicOrg struct {
	ConversationID string                `json:"conversation_id"`
	Agents         []models.Agent        `json:"agents"`
	Relationships  []models.Relationship `json:"relationships"`
}

// CreateDynamicOrg asks the default provider to design an organization
// sized to the task, creates a conversation for it, and persists the
// hierarchy scoped to that conversation in one transaction, so a
// rejected plan leaves no partial state. The generated agents replace
// the static roster as the conversation's execution tree; execution
// starts separately via ContinueTask.
func (o *Orchestrator) CreateDynamicOrg(ctx context.Context, task, workingDirectory string) (*DynamicOrg, error) {
	if task == "" {
		return nil, fault.Validation("task", "must not be empty")
	}
	if workingDirectory != "" && !filepath.IsAbs(workingDirectory) {
		return nil, fault.Validation("workingDirectory", "must be an absolute path")
	}

	prov, err := o.providers.Default()
	if err != nil {
		return nil, err
	}
	resp, err := prov.Complete(ctx, &provider.Request{
		System:    orgPlannerPrompt,
		Messages:  []provider.Message{{Role: provider.RoleUser, Content: task}},
		MaxTokens: o.maxTokens,
	})
	if err != nil {
		return nil, err
	}

	conv := &models.Conversation{
		ID:               uuid.New().String(),
		Title:            truncateTitle(task),
		Status:           models.ConversationActive,
		WorkingDirectory: workingDirectory,
		CreatedAt:        time.Now(),
	}

	agents, relationships, err := parseOrgPlan(resp.Text, conv.ID, o.capability)
	if err != nil {
		return nil, err
	}

	if err := o.db.CreateConversation(conv); err != nil {
		return nil, err
	}
	if err := o.appendMessage(conv.ID, "", models.MessageRoleUser, task, nil); err != nil {
		return nil, err
	}

	err = o.db.Transaction(func(tx *sql.Tx) error {
		for i := range agents {
			if err := store.CreateAgentTx(tx, &agents[i]); err != nil {
				return err
			}
		}
		for i := range relationships {
			if err := store.CreateRelationshipTx(tx, &relationships[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("persist dynamic org: %w", err)
	}

	return &DynamicOrg{
		ConversationID: conv.ID,
		Agents:         agents,
		Relationships:  relationships,
	}, nil
}

// parseOrgPlan validates a planner response and materializes it as
// conversation-scoped agents plus their delegate edges. Pure apart from
// id generation, so plan handling is testable without a provider or a
// store.
func parseOrgPlan(text, conversationID string, reg *capability.Registry) ([]models.Agent, []models.Relationship, error) {
	payload := extractJSON(text)
	if payload == "" {
		return nil, nil, fault.Validation("plan", "planner response contains no JSON object")
	}

	var plan orgPlan
	if err := json.Unmarshal([]byte(payload), &plan); err != nil {
		return nil, nil, fault.Validation("plan", fmt.Sprintf("invalid JSON: %v", err))
	}
	if len(plan.Agents) == 0 {
		return nil, nil, fault.Validation("plan", "planner returned no agents")
	}

	refs := make(map[string]bool, len(plan.Agents))
	roots := 0
	for _, a := range plan.Agents {
		if a.Ref == "" {
			return nil, nil, fault.Validation("plan.agents.ref", "must not be empty")
		}
		if refs[a.Ref] {
			return nil, nil, fault.Validation("plan.agents.ref", fmt.Sprintf("duplicate ref %q", a.Ref))
		}
		refs[a.Ref] = true
		if a.Parent == "" {
			roots++
		}
	}
	if roots != 1 {
		return nil, nil, fault.Validation("plan.agents", fmt.Sprintf("plan must have exactly one root, found %d", roots))
	}

	ids := make(map[string]string, len(plan.Agents))
	for _, a := range plan.Agents {
		ids[a.Ref] = uuid.New().String()
	}

	agents := make([]models.Agent, 0, len(plan.Agents))
	var relationships []models.Relationship
	order := make(map[string]int)
	for _, a := range plan.Agents {
		role := models.AgentRole(a.Role)
		if !role.Valid() {
			return nil, nil, fault.Validation("plan.agents.role", fmt.Sprintf("unknown role %q for %q", a.Role, a.Ref))
		}
		if a.Parent == "" && role != models.RoleUnderboss {
			return nil, nil, fault.Validation("plan.agents.role", fmt.Sprintf("root %q must be an underboss", a.Ref))
		}
		parentID := ""
		if a.Parent != "" {
			var ok bool
			parentID, ok = ids[a.Parent]
			if !ok {
				return nil, nil, fault.Validation("plan.agents.parent", fmt.Sprintf("%q references unknown parent %q", a.Ref, a.Parent))
			}
		}

		agent := models.Agent{
			ID:             ids[a.Ref],
			Name:           a.Name,
			Role:           role,
			Specialty:      a.Specialty,
			SystemPrompt:   a.SystemPrompt,
			Provider:       capability.ToolCapableProvider,
			ParentID:       parentID,
			SortOrder:      order[a.Parent],
			ConversationID: conversationID,
			IsDynamic:      true,
		}
		order[a.Parent]++

		if err := reg.CheckAgent(agent); err != nil {
			return nil, nil, err
		}
		agents = append(agents, agent)

		if parentID != "" {
			relationships = append(relationships, models.Relationship{
				ID:          uuid.New().String(),
				FromAgentID: parentID,
				ToAgentID:   agent.ID,
				Action:      models.ActionDelegate,
			})
		}
	}
	return agents, relationships, nil
}

// extractJSON pulls the JSON object out of a planner response that may
// wrap it in prose or a fenced code block.
func extractJSON(text string) string {
	if idx := strings.Index(text, "```json"); idx >= 0 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
