package models

// RelationshipAction describes how one agent may route to another.
type RelationshipAction string

const (
	// ActionDelegate allows fan-out of subtasks to the target.
	ActionDelegate RelationshipAction = "delegate"
	// ActionAsk allows a one-off question to a peer.
	ActionAsk RelationshipAction = "ask"
	// ActionReview allows requesting a review from the target.
	ActionReview RelationshipAction = "review"
	// ActionSummarize allows requesting a summary from the target.
	ActionSummarize RelationshipAction = "summarize"
)

// Valid returns true if the action is a known value.
func (a RelationshipAction) Valid() bool {
	switch a {
	case ActionDelegate, ActionAsk, ActionReview, ActionSummarize:
		return true
	default:
		return false
	}
}

// Cardinality returns the derived cardinality for this action.
// Delegation fans out; everything else is pairwise. Caller-supplied
// cardinality is never stored.
func (a RelationshipAction) Cardinality() string {
	if a == ActionDelegate {
		return "1:many"
	}
	return "1:1"
}

// Relationship is a directed edge in the communication topology.
// It is advisory metadata: the orchestrator routes through these edges
// but the edges carry no message payloads themselves.
type Relationship struct {
	// ID is the unique identifier for this edge.
	ID string `json:"id"`
	// FromAgentID is the originating agent.
	FromAgentID string `json:"from_agent_id"`
	// ToAgentID is the target agent.
	ToAgentID string `json:"to_agent_id"`
	// Action is the permitted routing action.
	Action RelationshipAction `json:"action"`
}

// Cardinality returns the derived cardinality of the edge.
func (r Relationship) Cardinality() string {
	return r.Action.Cardinality()
}
