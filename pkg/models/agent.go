// Package models defines the shared data types for borgata's agent hierarchy.
package models

// AgentRole identifies an agent's position in the organization.
type AgentRole string

const (
	// RoleUnderboss is the root coordinator that receives the user task.
	RoleUnderboss AgentRole = "underboss"
	// RoleCapo is a mid-level coordinator that manages a crew of soldiers.
	RoleCapo AgentRole = "capo"
	// RoleSoldier is a leaf worker that executes concrete subtasks.
	RoleSoldier AgentRole = "soldier"
)

// Valid returns true if the role is a known value.
func (r AgentRole) Valid() bool {
	switch r {
	case RoleUnderboss, RoleCapo, RoleSoldier:
		return true
	default:
		return false
	}
}

// RequiresTools returns true if agents holding this role execute tools.
// All current roles do; the method exists so analysis-only roles can be
// added without touching the capability checks.
func (r AgentRole) RequiresTools() bool {
	switch r {
	case RoleUnderboss, RoleCapo, RoleSoldier:
		return true
	default:
		return false
	}
}

// Agent is a node in a static or dynamically-generated hierarchy.
// Static agents are configured once and reused across conversations.
// Dynamic agents are scoped to exactly one conversation and deleted
// with it.
type Agent struct {
	// ID is the unique identifier for this agent.
	ID string `json:"id"`
	// Name is the display name.
	Name string `json:"name"`
	// Role is the agent's position in the organization.
	Role AgentRole `json:"role"`
	// Specialty describes the agent's focus area, if any.
	Specialty string `json:"specialty,omitempty"`
	// SystemPrompt is the agent's standing instructions.
	SystemPrompt string `json:"system_prompt"`
	// Model is the model identifier used for this agent's turns.
	Model string `json:"model"`
	// Provider is the model provider identifier (e.g. "anthropic").
	Provider string `json:"provider"`
	// ParentID points at the agent's superior in the tree, empty for roots.
	ParentID string `json:"parent_id,omitempty"`
	// SortOrder fixes the agent's position among its siblings.
	SortOrder int `json:"sort_order"`
	// ConversationID is set only for dynamic, conversation-scoped agents.
	ConversationID string `json:"conversation_id,omitempty"`
	// IsDynamic marks agents generated for a single conversation.
	IsDynamic bool `json:"is_dynamic"`
}

// AgentUpdate describes a partial update to an agent. Nil fields are
// left unchanged; capability validation runs against the merged result.
type AgentUpdate struct {
	Name         *string    `json:"name,omitempty"`
	Role         *AgentRole `json:"role,omitempty"`
	Specialty    *string    `json:"specialty,omitempty"`
	SystemPrompt *string    `json:"system_prompt,omitempty"`
	Model        *string    `json:"model,omitempty"`
	Provider     *string    `json:"provider,omitempty"`
	ParentID     *string    `json:"parent_id,omitempty"`
	SortOrder    *int       `json:"sort_order,omitempty"`
}

// Apply returns a copy of a with the update's non-nil fields applied.
// The original agent is not modified.
func (u AgentUpdate) Apply(a Agent) Agent {
	if u.Name != nil {
		a.Name = *u.Name
	}
	if u.Role != nil {
		a.Role = *u.Role
	}
	if u.Specialty != nil {
		a.Specialty = *u.Specialty
	}
	if u.SystemPrompt != nil {
		a.SystemPrompt = *u.SystemPrompt
	}
	if u.Model != nil {
		a.Model = *u.Model
	}
	if u.Provider != nil {
		a.Provider = *u.Provider
	}
	if u.ParentID != nil {
		a.ParentID = *u.ParentID
	}
	if u.SortOrder != nil {
		a.SortOrder = *u.SortOrder
	}
	return a
}
