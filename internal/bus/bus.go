// Package bus provides the per-conversation event channel that makes a
// running orchestration observable. Delivery is synchronous and in
// publish order; the bus holds no backlog, so events published with no
// subscriber are dropped.
package bus

import (
	"sync"
	"time"
)

// Event names published by the orchestrator. Transports may additionally
// emit EventHeartbeat on their own cadence for liveness detection.
const (
	EventConversationStarted   = "conversation_started"
	EventConversationCompleted = "conversation_completed"
	EventConversationStopped   = "conversation_stopped"
	EventTurnStarted           = "turn_started"
	EventAgentMessage          = "agent_message"
	EventToolCall              = "tool_call"
	EventToolResult            = "tool_result"
	EventDelegation            = "delegation"
	EventDelegationResult      = "delegation_result"
	EventEscalationRaised      = "escalation_raised"
	EventEscalationAnswered    = "escalation_answered"
	EventProgressUpdated       = "progress_updated"
	EventTurnLimitReached      = "turn_limit_reached"
	EventError                 = "error"
	EventHeartbeat             = "heartbeat"
)

// Event is one structured activity record for a conversation.
type Event struct {
	// ConversationID is the conversation the event belongs to.
	ConversationID string `json:"conversation_id"`
	// Name is the event name, one of the Event* constants.
	Name string `json:"name"`
	// Payload carries event-specific fields.
	Payload map[string]any `json:"payload,omitempty"`
	// Timestamp is when the event was published.
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives events for one subscription.
type Sink func(Event)

// Bus fans events out to the live subscribers of each conversation.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Sink
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[string]map[int]Sink)}
}

// Subscribe registers a sink for every subsequent event published
// against the conversation id. The returned function deregisters it;
// calling it more than once is harmless.
func (b *Bus) Subscribe(conversationID string, sink Sink) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[conversationID] == nil {
		b.subs[conversationID] = make(map[int]Sink)
	}
	id := b.nextID
	b.nextID++
	b.subs[conversationID][id] = sink

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sinks, ok := b.subs[conversationID]; ok {
			delete(sinks, id)
			if len(sinks) == 0 {
				delete(b.subs, conversationID)
			}
		}
	}
}

// Publish delivers an event to all current subscribers for the
// conversation, synchronously, in publish order. Concurrent subscribers
// each receive every event independently.
func (b *Bus) Publish(conversationID, name string, payload map[string]any) {
	event := Event{
		ConversationID: conversationID,
		Name:           name,
		Payload:        payload,
		Timestamp:      time.Now(),
	}

	b.mu.RLock()
	sinks := make([]Sink, 0, len(b.subs[conversationID]))
	for _, sink := range b.subs[conversationID] {
		sinks = append(sinks, sink)
	}
	b.mu.RUnlock()

	for _, sink := range sinks {
		sink(event)
	}
}

// SubscriberCount returns the number of live subscribers for a
// conversation. Used by tests and transport liveness checks.
func (b *Bus) SubscriberCount(conversationID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[conversationID])
}
