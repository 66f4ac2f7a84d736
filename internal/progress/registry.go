package progress

import "sync"

// Registry hands out one Tracker per conversation, created lazily on
// first use.
type Registry struct {
	mu       sync.Mutex
	trackers map[string]*Tracker
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{trackers: make(map[string]*Tracker)}
}

// ForConversation returns the conversation's tracker, creating it if
// this is the first use.
func (r *Registry) ForConversation(conversationID string) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trackers[conversationID]
	if !ok {
		t = NewTracker()
		r.trackers[conversationID] = t
	}
	return t
}

// Peek returns the tracker if one exists, without creating it.
func (r *Registry) Peek(conversationID string) (*Tracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[conversationID]
	return t, ok
}

// Remove drops the conversation's tracker, if any. Called when the
// owning conversation is deleted.
func (r *Registry) Remove(conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trackers, conversationID)
}
