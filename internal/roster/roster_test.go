package roster

import (
	"errors"
	"strings"
	"testing"

	"github.com/mfontane/borgata/internal/capability"
	"github.com/mfontane/borgata/internal/fault"
	"github.com/mfontane/borgata/pkg/models"
)

func TestDefaultRosterParses(t *testing.T) {
	r, err := Default(capability.NewRegistry())
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if len(r.Agents) != 4 {
		t.Fatalf("got %d agents, want 4", len(r.Agents))
	}
	if r.Agents[0].Role != models.RoleUnderboss || r.Agents[0].ParentID != "" {
		t.Errorf("first agent = %+v, want root underboss", r.Agents[0])
	}

	// One explicit review edge plus three implicit delegate edges.
	delegates, reviews := 0, 0
	for _, rel := range r.Relationships {
		switch rel.Action {
		case models.ActionDelegate:
			delegates++
		case models.ActionReview:
			reviews++
		}
	}
	if delegates != 3 || reviews != 1 {
		t.Errorf("edges = %d delegate / %d review, want 3 / 1", delegates, reviews)
	}
}

func TestParseSiblingOrderFollowsDeclaration(t *testing.T) {
	r, err := Default(capability.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	var impl, test models.Agent
	for _, a := range r.Agents {
		switch a.ID {
		case "soldier-impl":
			impl = a
		case "soldier-test":
			test = a
		}
	}
	if impl.SortOrder >= test.SortOrder {
		t.Errorf("soldier-impl order %d should precede soldier-test order %d", impl.SortOrder, test.SortOrder)
	}
}

func TestParseRejectsInvalidRosters(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no agents",
			yaml: "agents: []",
			want: "at least one agent",
		},
		{
			name: "duplicate id",
			yaml: `agents:
  - {id: a, name: A, role: underboss, provider: anthropic}
  - {id: a, name: A2, role: soldier, provider: anthropic, parent: a}`,
			want: "duplicate agent id",
		},
		{
			name: "two roots",
			yaml: `agents:
  - {id: a, name: A, role: underboss, provider: anthropic}
  - {id: b, name: B, role: underboss, provider: anthropic}`,
			want: "exactly one root",
		},
		{
			name: "root is not underboss",
			yaml: `agents:
  - {id: a, name: A, role: soldier, provider: anthropic}`,
			want: "must be an underboss",
		},
		{
			name: "unknown role",
			yaml: `agents:
  - {id: a, name: A, role: consigliere, provider: anthropic}`,
			want: "unknown role",
		},
		{
			name: "unknown parent",
			yaml: `agents:
  - {id: a, name: A, role: underboss, provider: anthropic}
  - {id: b, name: B, role: soldier, provider: anthropic, parent: ghost}`,
			want: "unknown parent",
		},
		{
			name: "edge to unknown agent",
			yaml: `agents:
  - {id: a, name: A, role: underboss, provider: anthropic}
relationships:
  - {from: a, to: ghost, action: ask}`,
			want: "unknown agent",
		},
		{
			name: "unknown edge action",
			yaml: `agents:
  - {id: a, name: A, role: underboss, provider: anthropic}
relationships:
  - {from: a, to: a, action: threaten}`,
			want: "unknown action",
		},
	}

	reg := capability.NewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), reg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestParseEnforcesCapability(t *testing.T) {
	yaml := `agents:
  - {id: a, name: A, role: underboss, provider: openai}`
	_, err := Parse([]byte(yaml), capability.NewRegistry())
	var cv *fault.CapabilityViolation
	if !errors.As(err, &cv) {
		t.Fatalf("got %v, want CapabilityViolation", err)
	}
}

func TestParseNormalizesProviderAliases(t *testing.T) {
	yaml := `agents:
  - {id: a, name: A, role: underboss, provider: claude}`
	r, err := Parse([]byte(yaml), capability.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if r.Agents[0].Provider != "anthropic" {
		t.Errorf("provider = %s, want anthropic", r.Agents[0].Provider)
	}
}

func TestParseSkipsImplicitEdgeWhenDeclared(t *testing.T) {
	yaml := `agents:
  - {id: a, name: A, role: underboss, provider: anthropic}
  - {id: b, name: B, role: soldier, provider: anthropic, parent: a}
relationships:
  - {from: a, to: b, action: delegate}`
	r, err := Parse([]byte(yaml), capability.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Relationships) != 1 {
		t.Errorf("got %d edges, want 1 (no duplicated implicit delegate)", len(r.Relationships))
	}
}

// fakeStore records bootstrap writes.
type fakeStore struct {
	root          *models.Agent
	agents        []models.Agent
	relationships []models.Relationship
}

func (f *fakeStore) GetStaticRoot() (*models.Agent, error) { return f.root, nil }
func (f *fakeStore) CreateAgent(a *models.Agent) error {
	f.agents = append(f.agents, *a)
	return nil
}
func (f *fakeStore) CreateRelationship(r *models.Relationship) error {
	f.relationships = append(f.relationships, *r)
	return nil
}

func TestBootstrapWritesOnceIntoEmptyStore(t *testing.T) {
	r, err := Default(capability.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}

	s := &fakeStore{}
	created, err := r.Bootstrap(s)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("bootstrap into an empty store should create agents")
	}
	if len(s.agents) != len(r.Agents) || len(s.relationships) != len(r.Relationships) {
		t.Errorf("wrote %d agents / %d edges, want %d / %d",
			len(s.agents), len(s.relationships), len(r.Agents), len(r.Relationships))
	}
}

func TestBootstrapSkipsWhenRootExists(t *testing.T) {
	r, err := Default(capability.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}

	s := &fakeStore{root: &models.Agent{ID: "underboss"}}
	created, err := r.Bootstrap(s)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("bootstrap must not rewrite an existing roster")
	}
	if len(s.agents) != 0 {
		t.Errorf("wrote %d agents, want 0", len(s.agents))
	}
}
