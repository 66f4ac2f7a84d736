package models

import "testing"

func TestRelationshipActionCardinality(t *testing.T) {
	tests := []struct {
		action RelationshipAction
		want   string
	}{
		{ActionDelegate, "1:many"},
		{ActionAsk, "1:1"},
		{ActionReview, "1:1"},
		{ActionSummarize, "1:1"},
	}
	for _, tt := range tests {
		if got := tt.action.Cardinality(); got != tt.want {
			t.Errorf("Cardinality(%s) = %s, want %s", tt.action, got, tt.want)
		}
	}
}

func TestRelationshipActionValid(t *testing.T) {
	if !ActionDelegate.Valid() {
		t.Error("delegate should be valid")
	}
	if RelationshipAction("threaten").Valid() {
		t.Error("unknown action should not be valid")
	}
}

func TestAgentRoleValid(t *testing.T) {
	for _, role := range []AgentRole{RoleUnderboss, RoleCapo, RoleSoldier} {
		if !role.Valid() {
			t.Errorf("%s should be valid", role)
		}
		if !role.RequiresTools() {
			t.Errorf("%s should require tools", role)
		}
	}
	if AgentRole("consigliere").Valid() {
		t.Error("unknown role should not be valid")
	}
}

func TestConversationStatusTerminal(t *testing.T) {
	tests := []struct {
		status   ConversationStatus
		terminal bool
	}{
		{ConversationActive, false},
		{ConversationPaused, false},
		{ConversationCompleted, true},
		{ConversationStopped, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("Terminal(%s) = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestAgentUpdateApply(t *testing.T) {
	agent := Agent{
		ID:       "a1",
		Name:     "Original",
		Role:     RoleSoldier,
		Provider: "anthropic",
	}

	newName := "Renamed"
	newRole := RoleCapo
	update := AgentUpdate{Name: &newName, Role: &newRole}

	merged := update.Apply(agent)
	if merged.Name != "Renamed" {
		t.Errorf("Name = %s, want Renamed", merged.Name)
	}
	if merged.Role != RoleCapo {
		t.Errorf("Role = %s, want capo", merged.Role)
	}
	if merged.Provider != "anthropic" {
		t.Errorf("Provider should be untouched, got %s", merged.Provider)
	}
	if agent.Name != "Original" {
		t.Error("Apply must not mutate the original agent")
	}
}
