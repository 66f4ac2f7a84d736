package models

import "time"

// ConversationStatus represents the lifecycle state of a conversation.
type ConversationStatus string

const (
	// ConversationActive indicates the conversation is executing or resumable.
	ConversationActive ConversationStatus = "active"
	// ConversationCompleted indicates the root agent submitted a result.
	ConversationCompleted ConversationStatus = "completed"
	// ConversationPaused indicates an operator-initiated suspension.
	ConversationPaused ConversationStatus = "paused"
	// ConversationStopped indicates cancellation or a terminal safety stop.
	ConversationStopped ConversationStatus = "stopped"
)

// Valid returns true if the status is a known value.
func (s ConversationStatus) Valid() bool {
	switch s {
	case ConversationActive, ConversationCompleted, ConversationPaused, ConversationStopped:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further execution may occur.
func (s ConversationStatus) Terminal() bool {
	return s == ConversationCompleted || s == ConversationStopped
}

// Conversation is one task execution context. It owns all messages,
// escalations, and dynamic agents created for it.
type Conversation struct {
	// ID is the unique identifier.
	ID string `json:"id"`
	// Title is a short summary of the task.
	Title string `json:"title"`
	// Status is the lifecycle state.
	Status ConversationStatus `json:"status"`
	// WorkingDirectory is the absolute path tools operate in, if set.
	WorkingDirectory string `json:"working_directory,omitempty"`
	// CreatedAt is when the conversation was created.
	CreatedAt time.Time `json:"created_at"`
}

// MessageRole tags who produced a message.
type MessageRole string

const (
	// MessageRoleUser is a human-authored message.
	MessageRoleUser MessageRole = "user"
	// MessageRoleAssistant is agent output.
	MessageRoleAssistant MessageRole = "assistant"
	// MessageRoleTool is a tool invocation result.
	MessageRoleTool MessageRole = "tool"
	// MessageRoleSystem is orchestrator bookkeeping (outcomes, errors).
	MessageRoleSystem MessageRole = "system"
)

// Message is an append-only transcript record. Messages are never
// mutated after creation; creation-time order is the canonical transcript.
type Message struct {
	// ID is the unique identifier.
	ID string `json:"id"`
	// ConversationID is the owning conversation.
	ConversationID string `json:"conversation_id"`
	// AgentID is the originating agent, empty for human/system messages.
	AgentID string `json:"agent_id,omitempty"`
	// Role tags the producer.
	Role MessageRole `json:"role"`
	// Content is the message body.
	Content string `json:"content"`
	// Metadata carries optional structured context (tool names, outcomes).
	Metadata map[string]any `json:"metadata,omitempty"`
	// CreatedAt is when the message was appended.
	CreatedAt time.Time `json:"created_at"`
}

// EscalationStatus represents the state of a human-decision request.
type EscalationStatus string

const (
	// EscalationPending indicates the originating branch is blocked.
	EscalationPending EscalationStatus = "pending"
	// EscalationAnswered indicates a human resolved the question.
	EscalationAnswered EscalationStatus = "answered"
)

// Escalation is a question raised by an agent that requires a human
// answer to proceed. Exactly one resolution is accepted per escalation.
type Escalation struct {
	// ID is the unique identifier, resolvable globally.
	ID string `json:"id"`
	// ConversationID is the owning conversation.
	ConversationID string `json:"conversation_id"`
	// AgentID is the agent that raised the question.
	AgentID string `json:"agent_id"`
	// Question is the text presented to the human.
	Question string `json:"question"`
	// Answer is the human's response, empty while pending.
	Answer string `json:"answer,omitempty"`
	// Status is pending until resolved.
	Status EscalationStatus `json:"status"`
	// CreatedAt is when the escalation was raised.
	CreatedAt time.Time `json:"created_at"`
}
