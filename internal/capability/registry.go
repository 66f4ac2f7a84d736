// Package capability gates which model providers may be assigned to
// which agent roles. Tool-required roles are restricted to providers
// capable of executing tool calls.
package capability

import (
	"strings"

	"github.com/mfontane/borgata/internal/fault"
	"github.com/mfontane/borgata/pkg/models"
)

// ToolCapableProvider is the provider id allowed to hold tool-required
// roles. Analysis-only providers may serve future non-tool roles.
const ToolCapableProvider = "anthropic"

// providerAliases maps common spellings to canonical provider ids.
var providerAliases = map[string]string{
	"claude":    "anthropic",
	"bedrock":   "anthropic",
	"openai":    "openai",
	"analysis":  "openai",
	"anthropic": "anthropic",
}

// Normalize resolves aliases and lowercases a provider id.
func Normalize(provider string) string {
	lower := strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := providerAliases[lower]; ok {
		return canonical
	}
	return lower
}

// Registry answers whether a role/provider combination is permitted.
// The zero value is not usable; construct with NewRegistry.
type Registry struct {
	toolCapable map[string]bool
}

// NewRegistry creates a Registry with the default provider table.
func NewRegistry() *Registry {
	return &Registry{
		toolCapable: map[string]bool{
			ToolCapableProvider: true,
		},
	}
}

// Check validates a role/provider pair. The pair must be the resulting
// combination after any requested change has been applied, not the
// pre-update values.
func (r *Registry) Check(role models.AgentRole, provider string) error {
	if !role.RequiresTools() {
		return nil
	}
	if r.toolCapable[Normalize(provider)] {
		return nil
	}
	return &fault.CapabilityViolation{
		Role:     role,
		Provider: provider,
		Hint:     "roles that execute tools require a tool-capable provider; set provider to \"anthropic\" or choose a non-tool role",
	}
}

// CheckAgent validates an agent record as stored or about to be stored.
func (r *Registry) CheckAgent(a models.Agent) error {
	return r.Check(a.Role, a.Provider)
}

// CheckUpdate applies the update to the existing agent hypothetically
// and validates the merged role/provider pair, so a request changing
// only one of the two fields is checked against the other's persisted
// value.
func (r *Registry) CheckUpdate(existing models.Agent, update models.AgentUpdate) error {
	merged := update.Apply(existing)
	return r.Check(merged.Role, merged.Provider)
}
