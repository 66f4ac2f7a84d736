// Package escalation holds the process-wide table of pending
// human-decision requests. A branch that escalates parks on its
// escalation's channel and is woken by the resolution event; the table
// is never polled.
package escalation

import (
	"context"
	"fmt"
	"sync"
)

// pending is the suspended-branch handle for one escalation.
type pending struct {
	conversationID string
	answerCh       chan string
	answered       bool
}

// Manager maps escalation ids to suspended-branch handles. Escalations
// are conversation-scoped but resolvable from any caller, so lookup is
// global by escalation id.
type Manager struct {
	mu      sync.Mutex
	waiting map[string]*pending
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{waiting: make(map[string]*pending)}
}

// Register reserves the waiter slot for an escalation. Registration
// must happen before the escalation is announced anywhere, so an answer
// arriving right after the announcement always finds the waiter; the
// answer channel is buffered for the same reason, a resolution landing
// between Register and Await is held until the branch collects it.
func (m *Manager) Register(escalationID, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.waiting[escalationID]; exists {
		return fmt.Errorf("escalation %s already waiting", escalationID)
	}
	m.waiting[escalationID] = &pending{
		conversationID: conversationID,
		answerCh:       make(chan string, 1),
	}
	return nil
}

// Await blocks until the registered escalation is resolved, the context
// is cancelled, or the conversation is torn down. The returned string
// is the human's answer.
func (m *Manager) Await(ctx context.Context, escalationID string) (string, error) {
	m.mu.Lock()
	p, ok := m.waiting[escalationID]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("escalation %s is not registered", escalationID)
	}

	select {
	case answer, open := <-p.answerCh:
		m.Unregister(escalationID)
		if !open {
			return "", fmt.Errorf("escalation %s abandoned: conversation torn down", escalationID)
		}
		return answer, nil
	case <-ctx.Done():
		m.Unregister(escalationID)
		return "", ctx.Err()
	}
}

// Wait registers the escalation and blocks for its answer in one step.
func (m *Manager) Wait(ctx context.Context, escalationID, conversationID string) (string, error) {
	if err := m.Register(escalationID, conversationID); err != nil {
		return "", err
	}
	return m.Await(ctx, escalationID)
}

// Unregister drops a waiter that will never be awaited, e.g. when
// persisting the escalation failed after registration. Unknown ids are
// a no-op.
func (m *Manager) Unregister(escalationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.waiting, escalationID)
}

// Registered reports whether this process hosts the escalation's
// suspended branch.
func (m *Manager) Registered(escalationID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.waiting[escalationID]
	return ok
}

// Resolve wakes the branch suspended on the escalation with the answer.
// If the id is unknown or already answered it returns false without
// side effects; exactly one resolution is accepted per escalation even
// under concurrent attempts.
func (m *Manager) Resolve(escalationID, answer string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.waiting[escalationID]
	if !ok || p.answered {
		return false
	}
	p.answered = true
	p.answerCh <- answer
	return true
}

// CancelConversation abandons every pending escalation for the
// conversation, waking the suspended branches with an error so they can
// observe the teardown. Store rows are left for the caller to audit.
func (m *Manager) CancelConversation(conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, p := range m.waiting {
		if p.conversationID != conversationID {
			continue
		}
		delete(m.waiting, id)
		if !p.answered {
			p.answered = true
			close(p.answerCh)
		}
	}
}

// Pending returns the ids of escalations currently suspending a branch
// and still awaiting an answer.
func (m *Manager) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.waiting))
	for id, p := range m.waiting {
		if p.answered {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
