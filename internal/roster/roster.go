// Package roster loads the static organization from YAML: the standing
// agent hierarchy and its routing edges, bootstrapped into the store on
// first run.
package roster

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/mfontane/borgata/internal/capability"
	"github.com/mfontane/borgata/internal/fault"
	"github.com/mfontane/borgata/pkg/models"
)

// agentSpec is one agent entry in the roster YAML.
type agentSpec struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Role         string `yaml:"role"`
	Specialty    string `yaml:"specialty"`
	SystemPrompt string `yaml:"system_prompt"`
	Model        string `yaml:"model"`
	Provider     string `yaml:"provider"`
	Parent       string `yaml:"parent"`
}

// edgeSpec is one routing edge entry in the roster YAML.
type edgeSpec struct {
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Action string `yaml:"action"`
}

type rosterFile struct {
	Agents        []agentSpec `yaml:"agents"`
	Relationships []edgeSpec  `yaml:"relationships"`
}

// Roster is a validated static organization ready to bootstrap.
type Roster struct {
	Agents        []models.Agent
	Relationships []models.Relationship
}

// Load reads and validates a roster YAML file.
func Load(path string, reg *capability.Registry) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}
	return Parse(data, reg)
}

// Parse validates roster YAML content. Every agent's role/provider pair
// must pass the capability registry; parent and edge references must
// point at declared agents.
func Parse(data []byte, reg *capability.Registry) (*Roster, error) {
	var file rosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	if len(file.Agents) == 0 {
		return nil, fault.Validation("agents", "roster must declare at least one agent")
	}

	byID := make(map[string]agentSpec, len(file.Agents))
	roots := 0
	for _, spec := range file.Agents {
		if spec.ID == "" {
			return nil, fault.Validation("agents.id", "must not be empty")
		}
		if _, dup := byID[spec.ID]; dup {
			return nil, fault.Validation("agents.id", fmt.Sprintf("duplicate agent id %q", spec.ID))
		}
		byID[spec.ID] = spec
		if spec.Parent == "" {
			roots++
		}
	}
	if roots != 1 {
		return nil, fault.Validation("agents", fmt.Sprintf("roster must have exactly one root agent, found %d", roots))
	}

	r := &Roster{}
	order := make(map[string]int)
	for _, spec := range file.Agents {
		role := models.AgentRole(spec.Role)
		if !role.Valid() {
			return nil, fault.Validation("agents.role", fmt.Sprintf("unknown role %q for agent %q", spec.Role, spec.ID))
		}
		if spec.Parent != "" {
			if _, ok := byID[spec.Parent]; !ok {
				return nil, fault.Validation("agents.parent", fmt.Sprintf("agent %q references unknown parent %q", spec.ID, spec.Parent))
			}
		} else if role != models.RoleUnderboss {
			return nil, fault.Validation("agents.role", fmt.Sprintf("root agent %q must be an underboss", spec.ID))
		}

		agent := models.Agent{
			ID:           spec.ID,
			Name:         spec.Name,
			Role:         role,
			Specialty:    spec.Specialty,
			SystemPrompt: spec.SystemPrompt,
			Model:        spec.Model,
			Provider:     capability.Normalize(spec.Provider),
			ParentID:     spec.Parent,
			SortOrder:    order[spec.Parent],
		}
		order[spec.Parent]++

		if err := reg.CheckAgent(agent); err != nil {
			return nil, err
		}
		r.Agents = append(r.Agents, agent)
	}

	for _, edge := range file.Relationships {
		action := models.RelationshipAction(edge.Action)
		if !action.Valid() {
			return nil, fault.Validation("relationships.action", fmt.Sprintf("unknown action %q", edge.Action))
		}
		if _, ok := byID[edge.From]; !ok {
			return nil, fault.Validation("relationships.from", fmt.Sprintf("unknown agent %q", edge.From))
		}
		if _, ok := byID[edge.To]; !ok {
			return nil, fault.Validation("relationships.to", fmt.Sprintf("unknown agent %q", edge.To))
		}
		r.Relationships = append(r.Relationships, models.Relationship{
			ID:          uuid.New().String(),
			FromAgentID: edge.From,
			ToAgentID:   edge.To,
			Action:      action,
		})
	}

	// Implicit delegate edges parent -> child, unless declared explicitly.
	declared := make(map[string]bool, len(r.Relationships))
	for _, rel := range r.Relationships {
		declared[rel.FromAgentID+"\x00"+rel.ToAgentID+"\x00"+string(rel.Action)] = true
	}
	for _, a := range r.Agents {
		if a.ParentID == "" {
			continue
		}
		key := a.ParentID + "\x00" + a.ID + "\x00" + string(models.ActionDelegate)
		if !declared[key] {
			r.Relationships = append(r.Relationships, models.Relationship{
				ID:          uuid.New().String(),
				FromAgentID: a.ParentID,
				ToAgentID:   a.ID,
				Action:      models.ActionDelegate,
			})
		}
	}

	return r, nil
}

// Store is the subset of the persistence layer Bootstrap needs.
type Store interface {
	GetStaticRoot() (*models.Agent, error)
	CreateAgent(a *models.Agent) error
	CreateRelationship(r *models.Relationship) error
}

// Bootstrap writes the roster into the store if no static root exists
// yet. Returns true when agents were created.
func (r *Roster) Bootstrap(s Store) (bool, error) {
	root, err := s.GetStaticRoot()
	if err != nil {
		return false, err
	}
	if root != nil {
		return false, nil
	}
	for i := range r.Agents {
		if err := s.CreateAgent(&r.Agents[i]); err != nil {
			return false, fmt.Errorf("create agent %s: %w", r.Agents[i].ID, err)
		}
	}
	for i := range r.Relationships {
		rel := &r.Relationships[i]
		if err := s.CreateRelationship(rel); err != nil {
			return false, fmt.Errorf("create relationship %s->%s: %w", rel.FromAgentID, rel.ToAgentID, err)
		}
	}
	return true, nil
}

// DefaultYAML is the built-in roster used when no roster file is
// configured: one underboss, one capo, two soldiers.
const DefaultYAML = `agents:
  - id: underboss
    name: Underboss
    role: underboss
    provider: anthropic
    system_prompt: |
      You are the underboss. You receive the boss's task, break it into
      workstreams, and delegate to your capos. You never do leaf work
      yourself. Escalate to the boss only for decisions you cannot make.
  - id: capo-build
    name: Build Capo
    role: capo
    specialty: implementation
    provider: anthropic
    parent: underboss
    system_prompt: |
      You run the build crew. Split implementation work across your
      soldiers and integrate their results before reporting up.
  - id: soldier-impl
    name: Implementation Soldier
    role: soldier
    specialty: coding
    provider: anthropic
    parent: capo-build
    system_prompt: |
      You execute concrete implementation subtasks with the tools you
      are given. Report exactly what you did.
  - id: soldier-test
    name: Testing Soldier
    role: soldier
    specialty: testing
    provider: anthropic
    parent: capo-build
    system_prompt: |
      You write and run tests for the work your crew produces. Report
      failures verbatim.
relationships:
  - from: capo-build
    to: soldier-test
    action: review
`

// Default parses the built-in roster.
func Default(reg *capability.Registry) (*Roster, error) {
	return Parse([]byte(DefaultYAML), reg)
}
