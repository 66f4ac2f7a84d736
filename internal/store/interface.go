package store

import (
	"io"

	"github.com/mfontane/borgata/pkg/models"
)

// ConversationStore handles conversation lifecycle persistence.
type ConversationStore interface {
	CreateConversation(c *models.Conversation) error
	GetConversation(id string) (*models.Conversation, error)
	UpdateConversationStatus(id string, status models.ConversationStatus) error
	DeleteConversation(id string) error
	ListConversations(status *models.ConversationStatus) ([]models.Conversation, error)
}

// AgentStore handles agent hierarchy persistence.
type AgentStore interface {
	CreateAgent(a *models.Agent) error
	GetAgent(id string) (*models.Agent, error)
	UpdateAgent(a *models.Agent) error
	DeleteAgent(id string) error
	ListAgents() ([]models.Agent, error)
	ListChildren(parentID string) ([]models.Agent, error)
	ListConversationAgents(conversationID string) ([]models.Agent, error)
	GetStaticRoot() (*models.Agent, error)
}

// RelationshipStore handles topology edge persistence.
type RelationshipStore interface {
	CreateRelationship(r *models.Relationship) error
	DeleteRelationship(id string) error
	ListRelationshipsFrom(agentID string) ([]models.Relationship, error)
	ListRelationships() ([]models.Relationship, error)
}

// MessageStore handles the append-only transcript.
type MessageStore interface {
	AppendMessage(m *models.Message) error
	ListMessages(conversationID string) ([]models.Message, error)
	CountMessages(conversationID string) (int, error)
}

// EscalationStore handles escalation persistence.
type EscalationStore interface {
	CreateEscalation(e *models.Escalation) error
	GetEscalation(id string) (*models.Escalation, error)
	AnswerEscalation(id, answer string) (bool, error)
	ListEscalations(conversationID string) ([]models.Escalation, error)
	ListPendingEscalations() ([]models.Escalation, error)
}

// Migrator applies pending schema migrations. Separated so callers can
// depend on migration alone.
type Migrator interface {
	Migrate() error
}

// Store is the full conversation store surface the orchestrator works
// against. It composes focused sub-interfaces so collaborators can
// depend on only what they use.
type Store interface {
	io.Closer
	Migrator
	ConversationStore
	AgentStore
	RelationshipStore
	MessageStore
	EscalationStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store             = (*DB)(nil)
	_ Migrator          = (*DB)(nil)
	_ ConversationStore = (*DB)(nil)
	_ AgentStore        = (*DB)(nil)
	_ RelationshipStore = (*DB)(nil)
	_ MessageStore      = (*DB)(nil)
	_ EscalationStore   = (*DB)(nil)
)
