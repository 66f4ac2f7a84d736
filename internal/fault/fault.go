// Package fault defines the error taxonomy shared across borgata's
// orchestration engine. Callers classify failures with errors.As.
package fault

import (
	"fmt"

	"github.com/mfontane/borgata/pkg/models"
)

// ValidationError reports malformed or missing input to a public
// operation. It is never retried and is surfaced verbatim.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError for the given field.
func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NotFound builds a NotFoundError for the given entity kind and id.
func NotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// CapabilityViolation reports a role/provider pair that breaks the
// capability rules. No mutation is performed when it is returned.
type CapabilityViolation struct {
	Role     models.AgentRole
	Provider string
	Hint     string
}

func (e *CapabilityViolation) Error() string {
	return fmt.Sprintf("capability violation: role %q cannot use provider %q: %s", e.Role, e.Provider, e.Hint)
}

// InvalidTransitionError reports an operation applied to an entity in
// the wrong state (e.g. completing an already-completed phase).
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for %s: %s -> %s", e.Entity, e.From, e.To)
}

// InvalidStateError reports an operation against a conversation that is
// not in a state that permits it (e.g. continuing a stopped run).
type InvalidStateError struct {
	ConversationID string
	Status         models.ConversationStatus
	Op             string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("conversation %s is %s: cannot %s", e.ConversationID, e.Status, e.Op)
}

// TurnLimitError is the safety-valve terminal outcome for a run that
// exceeded the configured turn ceiling. It marks the conversation
// non-active; it is not surfaced as an error from StartTask.
type TurnLimitError struct {
	ConversationID string
	Limit          int
}

func (e *TurnLimitError) Error() string {
	return fmt.Sprintf("conversation %s exceeded turn limit %d", e.ConversationID, e.Limit)
}

// ProviderError wraps a model provider failure. It is recorded in the
// transcript and fed back to the issuing agent rather than aborting
// the whole branch.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ToolError wraps a tool execution failure. Like ProviderError it is
// turn input for the issuing agent, not a branch abort.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }
