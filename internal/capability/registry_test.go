package capability

import (
	"errors"
	"testing"

	"github.com/mfontane/borgata/internal/fault"
	"github.com/mfontane/borgata/pkg/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"anthropic", "anthropic"},
		{"Claude", "anthropic"},
		{"BEDROCK", "anthropic"},
		{"openai", "openai"},
		{"analysis", "openai"},
		{" anthropic ", "anthropic"},
		{"mystery", "mystery"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCheckAllowsToolCapableProvider(t *testing.T) {
	reg := NewRegistry()
	for _, role := range []models.AgentRole{models.RoleUnderboss, models.RoleCapo, models.RoleSoldier} {
		if err := reg.Check(role, "anthropic"); err != nil {
			t.Errorf("Check(%s, anthropic) = %v, want nil", role, err)
		}
		if err := reg.Check(role, "claude"); err != nil {
			t.Errorf("alias claude should pass for %s, got %v", role, err)
		}
	}
}

func TestCheckRejectsAnalysisProviderForToolRoles(t *testing.T) {
	reg := NewRegistry()
	err := reg.Check(models.RoleSoldier, "openai")
	if err == nil {
		t.Fatal("expected capability violation")
	}
	var cv *fault.CapabilityViolation
	if !errors.As(err, &cv) {
		t.Fatalf("expected CapabilityViolation, got %T", err)
	}
	if cv.Role != models.RoleSoldier || cv.Provider != "openai" {
		t.Errorf("violation carries %s/%s, want soldier/openai", cv.Role, cv.Provider)
	}
	if cv.Hint == "" {
		t.Error("violation should carry a remediation hint")
	}
}

func TestCheckUpdateValidatesMergedPair(t *testing.T) {
	reg := NewRegistry()
	existing := models.Agent{ID: "a1", Role: models.RoleSoldier, Provider: "anthropic"}

	// Changing only the provider must be checked against the persisted role.
	openai := "openai"
	if err := reg.CheckUpdate(existing, models.AgentUpdate{Provider: &openai}); err == nil {
		t.Error("provider-only change to openai should violate for a soldier")
	}

	// Changing only the role is checked against the persisted provider.
	capo := models.RoleCapo
	if err := reg.CheckUpdate(existing, models.AgentUpdate{Role: &capo}); err != nil {
		t.Errorf("role-only change with anthropic provider should pass, got %v", err)
	}
}
