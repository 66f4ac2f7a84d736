// Package orchestrator drives agent trees through their task loops:
// conversation lifecycle, the per-branch turn loop, delegation fan-out,
// escalation suspension, and cooperative cancellation.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mfontane/borgata/internal/bus"
	"github.com/mfontane/borgata/internal/capability"
	"github.com/mfontane/borgata/internal/escalation"
	"github.com/mfontane/borgata/internal/fault"
	"github.com/mfontane/borgata/internal/progress"
	"github.com/mfontane/borgata/internal/provider"
	"github.com/mfontane/borgata/internal/store"
	"github.com/mfontane/borgata/pkg/models"
)

// DefaultMaxAgentTurns caps total model turns per conversation across
// the whole tree when no limit is configured.
const DefaultMaxAgentTurns = 200

// Options configures an Orchestrator.
type Options struct {
	// MaxAgentTurns caps total model turns per conversation. Zero means
	// DefaultMaxAgentTurns.
	MaxAgentTurns int
	// MaxTokens is the per-turn completion cap passed to providers.
	MaxTokens int
}

// Orchestrator coordinates conversations over the store, the event bus,
// the escalation table, and the provider resolver. Execution is
// asynchronous: StartTask and ContinueTask return once the conversation
// row is durable, and the tree runs in the background until terminal.
type Orchestrator struct {
	db          *store.DB
	bus         *bus.Bus
	escalations *escalation.Manager
	progress    *progress.Registry
	providers   *provider.Resolver
	capability  *capability.Registry

	maxTurns  int
	maxTokens int

	mu   sync.Mutex
	runs map[string]*run
}

// run is the in-memory handle for one executing conversation.
type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an Orchestrator.
func New(db *store.DB, eventBus *bus.Bus, esc *escalation.Manager, prog *progress.Registry,
	providers *provider.Resolver, reg *capability.Registry, opts Options) *Orchestrator {
	maxTurns := opts.MaxAgentTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxAgentTurns
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &Orchestrator{
		db:          db,
		bus:         eventBus,
		escalations: esc,
		progress:    prog,
		providers:   providers,
		capability:  reg,
		maxTurns:    maxTurns,
		maxTokens:   maxTokens,
		runs:        make(map[string]*run),
	}
}

// Bus returns the event bus conversations publish on.
func (o *Orchestrator) Bus() *bus.Bus { return o.bus }

// StartTask creates a conversation for the task rooted at the static
// underboss and begins execution. It returns as soon as the
// conversation row exists; execution continues independently and its
// outcome is observable on the event bus or via Wait.
func (o *Orchestrator) StartTask(ctx context.Context, task string, images []provider.Image, workingDirectory string) (*models.Conversation, error) {
	if task == "" {
		return nil, fault.Validation("task", "must not be empty")
	}
	if workingDirectory != "" && !filepath.IsAbs(workingDirectory) {
		return nil, fault.Validation("workingDirectory", "must be an absolute path")
	}

	root, err := o.db.GetStaticRoot()
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fault.NotFound("agent", "static root")
	}

	conv := &models.Conversation{
		ID:               uuid.New().String(),
		Title:            truncateTitle(task),
		Status:           models.ConversationActive,
		WorkingDirectory: workingDirectory,
		CreatedAt:        time.Now(),
	}
	if err := o.db.CreateConversation(conv); err != nil {
		return nil, err
	}
	if err := o.appendMessage(conv.ID, "", models.MessageRoleUser, task, imageMetadata(images)); err != nil {
		return nil, err
	}

	if err := o.launch(ctx, conv, root, task, images); err != nil {
		return nil, err
	}
	return conv, nil
}

// ContinueTask appends a follow-up human message to an existing
// conversation and resumes execution asynchronously. Terminal
// conversations cannot be continued.
func (o *Orchestrator) ContinueTask(ctx context.Context, conversationID, message string, images []provider.Image) error {
	if message == "" {
		return fault.Validation("message", "must not be empty")
	}
	conv, err := o.db.GetConversation(conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return fault.NotFound("conversation", conversationID)
	}
	if conv.Status.Terminal() {
		return &fault.InvalidStateError{ConversationID: conversationID, Status: conv.Status, Op: "continue"}
	}
	if conv.Status == models.ConversationPaused {
		if err := o.db.UpdateConversationStatus(conversationID, models.ConversationActive); err != nil {
			return err
		}
		conv.Status = models.ConversationActive
	}

	root, err := o.rootAgent(conversationID)
	if err != nil {
		return err
	}
	if err := o.appendMessage(conversationID, "", models.MessageRoleUser, message, imageMetadata(images)); err != nil {
		return err
	}
	return o.launch(ctx, conv, root, message, images)
}

// ResumeConversation starts execution of an active conversation from
// its latest human message without appending a new one. Used to launch
// a freshly generated dynamic organization.
func (o *Orchestrator) ResumeConversation(ctx context.Context, conversationID string) error {
	conv, err := o.db.GetConversation(conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return fault.NotFound("conversation", conversationID)
	}
	if conv.Status != models.ConversationActive {
		return &fault.InvalidStateError{ConversationID: conversationID, Status: conv.Status, Op: "resume"}
	}

	root, err := o.rootAgent(conversationID)
	if err != nil {
		return err
	}
	task, err := o.latestUserMessage(conversationID)
	if err != nil {
		return err
	}
	return o.launch(ctx, conv, root, task, nil)
}

// latestUserMessage returns the content of the most recent human
// message, which is the task the root branch works on.
func (o *Orchestrator) latestUserMessage(conversationID string) (string, error) {
	messages, err := o.db.ListMessages(conversationID)
	if err != nil {
		return "", err
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.MessageRoleUser {
			return messages[i].Content, nil
		}
	}
	return "", fault.NotFound("message", "user task for "+conversationID)
}

// ExecuteConversation is the direct single-agent execution path for
// ad-hoc invocation outside the full hierarchy: a fresh conversation is
// created and the named agent runs the task as its root. Returns the
// new conversation id.
func (o *Orchestrator) ExecuteConversation(ctx context.Context, agentID, task string) (string, error) {
	if task == "" {
		return "", fault.Validation("task", "must not be empty")
	}
	agent, err := o.db.GetAgent(agentID)
	if err != nil {
		return "", err
	}
	if agent == nil {
		return "", fault.NotFound("agent", agentID)
	}

	conv := &models.Conversation{
		ID:        uuid.New().String(),
		Title:     truncateTitle(task),
		Status:    models.ConversationActive,
		CreatedAt: time.Now(),
	}
	if err := o.db.CreateConversation(conv); err != nil {
		return "", err
	}
	if err := o.appendMessage(conv.ID, "", models.MessageRoleUser, task, nil); err != nil {
		return "", err
	}
	if err := o.launch(ctx, conv, agent, task, nil); err != nil {
		return "", err
	}
	return conv.ID, nil
}

// launch registers the run handle and starts the tree in the
// background. Registration is synchronous so Wait and
// CancelOrchestration observe the run as soon as launch returns.
func (o *Orchestrator) launch(ctx context.Context, conv *models.Conversation, root *models.Agent, task string, images []provider.Image) error {
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel, done: make(chan struct{})}

	o.mu.Lock()
	if _, exists := o.runs[conv.ID]; exists {
		o.mu.Unlock()
		cancel()
		return &fault.InvalidStateError{ConversationID: conv.ID, Status: conv.Status, Op: "execute (already running)"}
	}
	o.runs[conv.ID] = r
	o.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			close(r.done)
			o.mu.Lock()
			delete(o.runs, conv.ID)
			o.mu.Unlock()
		}()
		o.execute(runCtx, conv, root, task, images)
	}()
	return nil
}

// execute runs the conversation's agent tree until the root submits a
// result, the turn limit trips, or the run is cancelled. Turn limit and
// cancellation are normal terminal outcomes.
func (o *Orchestrator) execute(ctx context.Context, conv *models.Conversation, root *models.Agent, task string, images []provider.Image) {
	o.bus.Publish(conv.ID, bus.EventConversationStarted, map[string]any{
		"title": conv.Title,
		"root":  root.ID,
	})

	rs := &runState{
		orch:           o,
		conversationID: conv.ID,
		workingDir:     conv.WorkingDirectory,
		tracker:        o.progress.ForConversation(conv.ID),
		maxTurns:       o.maxTurns,
	}

	result, err := o.runBranch(ctx, rs, root, task, images)
	switch {
	case err == nil:
		if uerr := o.db.UpdateConversationStatus(conv.ID, models.ConversationCompleted); uerr != nil {
			log.Printf("[orchestrator] mark completed %s: %v", conv.ID, uerr)
			return
		}
		o.appendMessage(conv.ID, root.ID, models.MessageRoleSystem, result, map[string]any{"outcome": "completed"})
		o.bus.Publish(conv.ID, bus.EventConversationCompleted, map[string]any{"result": result})

	case errors.Is(err, context.Canceled):
		o.finalizeStopped(conv.ID, "cancelled")

	case isTurnLimit(err):
		o.finalizeStopped(conv.ID, "turn limit reached")

	default:
		o.db.UpdateConversationStatus(conv.ID, models.ConversationStopped)
		o.appendMessage(conv.ID, "", models.MessageRoleSystem, err.Error(), map[string]any{"outcome": "error"})
		o.bus.Publish(conv.ID, bus.EventError, map[string]any{"error": err.Error()})
	}
}

// Wait blocks until the conversation's current run finishes. Returns
// immediately when the conversation is not running.
func (o *Orchestrator) Wait(conversationID string) {
	o.mu.Lock()
	r, ok := o.runs[conversationID]
	o.mu.Unlock()
	if !ok {
		return
	}
	<-r.done
}

// CancelOrchestration cancels a running conversation. All live branches
// observe the cancellation cooperatively; pending escalations are
// abandoned but their rows are kept. Returns false when the
// conversation is not currently running.
func (o *Orchestrator) CancelOrchestration(conversationID string) bool {
	o.mu.Lock()
	r, ok := o.runs[conversationID]
	o.mu.Unlock()
	if !ok {
		return false
	}

	log.Printf("[orchestrator] cancelling conversation %s", conversationID)
	o.escalations.CancelConversation(conversationID)
	r.cancel()
	<-r.done
	return true
}

// AnswerEscalation resolves a pending escalation with the human's
// answer: the row is marked answered, the suspended branch is woken,
// and the resolution event is published. Exactly one answer is accepted
// per escalation; later attempts return false.
func (o *Orchestrator) AnswerEscalation(escalationID, answer string) (bool, error) {
	esc, err := o.db.GetEscalation(escalationID)
	if err != nil {
		return false, err
	}
	if esc == nil {
		return false, fault.NotFound("escalation", escalationID)
	}

	accepted, err := o.db.AnswerEscalation(escalationID, answer)
	if err != nil {
		return false, err
	}
	if !accepted {
		return false, nil
	}

	o.escalations.Resolve(escalationID, answer)
	o.bus.Publish(esc.ConversationID, bus.EventEscalationAnswered, map[string]any{
		"escalation_id": escalationID,
		"agent_id":      esc.AgentID,
	})
	return true, nil
}

// DeliverAnswer resolves an escalation only when this process hosts its
// suspended branch. Signal-file delivery goes through it so a process
// that merely relays an answer never consumes the row out from under
// the one that can act on it.
func (o *Orchestrator) DeliverAnswer(escalationID, answer string) bool {
	if !o.escalations.Registered(escalationID) {
		return false
	}
	accepted, err := o.AnswerEscalation(escalationID, answer)
	if err != nil {
		log.Printf("[orchestrator] deliver answer %s: %v", escalationID, err)
		return false
	}
	return accepted
}

// ProgressSummary returns the structured progress snapshot for a
// conversation, when this process holds its tracker.
func (o *Orchestrator) ProgressSummary(conversationID string) (progress.Summary, bool) {
	t, ok := o.progress.Peek(conversationID)
	if !ok {
		return progress.Summary{}, false
	}
	return t.GetSummary(), true
}

// CreateAgent persists a new agent after the capability check. No
// partial mutation occurs on violation.
func (o *Orchestrator) CreateAgent(a *models.Agent) error {
	if !a.Role.Valid() {
		return fault.Validation("role", "unknown role "+string(a.Role))
	}
	a.Provider = capability.Normalize(a.Provider)
	if err := o.capability.CheckAgent(*a); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return o.db.CreateAgent(a)
}

// UpdateAgent applies a partial update to an agent. The capability
// check runs against the post-update role/provider pair; concurrent
// updates are last-writer-wins under the store's write lock.
func (o *Orchestrator) UpdateAgent(agentID string, update models.AgentUpdate) (*models.Agent, error) {
	existing, err := o.db.GetAgent(agentID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fault.NotFound("agent", agentID)
	}
	if err := o.capability.CheckUpdate(*existing, update); err != nil {
		return nil, err
	}
	merged := update.Apply(*existing)
	merged.Provider = capability.Normalize(merged.Provider)
	if err := o.db.UpdateAgent(&merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// DeleteConversation removes a conversation and everything it owns:
// messages, escalations, and dynamic agents cascade in the store. A
// running orchestration is cancelled first and the progress tracker is
// dropped.
func (o *Orchestrator) DeleteConversation(conversationID string) error {
	o.CancelOrchestration(conversationID)
	o.progress.Remove(conversationID)
	return o.db.DeleteConversation(conversationID)
}

// rootAgent picks the conversation's execution root: the dynamic root
// scoped to the conversation when one exists, the static root otherwise.
func (o *Orchestrator) rootAgent(conversationID string) (*models.Agent, error) {
	dynamic, err := o.db.ListConversationAgents(conversationID)
	if err != nil {
		return nil, err
	}
	for i := range dynamic {
		if dynamic[i].ParentID == "" {
			return &dynamic[i], nil
		}
	}

	root, err := o.db.GetStaticRoot()
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fault.NotFound("agent", "static root")
	}
	return root, nil
}

func (o *Orchestrator) finalizeStopped(conversationID, reason string) {
	conv, err := o.db.GetConversation(conversationID)
	if err != nil || conv == nil {
		return
	}
	if !conv.Status.Terminal() {
		o.db.UpdateConversationStatus(conversationID, models.ConversationStopped)
	}
	o.appendMessage(conversationID, "", models.MessageRoleSystem, reason, map[string]any{"outcome": "stopped"})
	o.bus.Publish(conversationID, bus.EventConversationStopped, map[string]any{"reason": reason})
}

func (o *Orchestrator) appendMessage(conversationID, agentID string, role models.MessageRole, content string, metadata map[string]any) error {
	return o.db.AppendMessage(&models.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		AgentID:        agentID,
		Role:           role,
		Content:        content,
		Metadata:       metadata,
		CreatedAt:      time.Now(),
	})
}

func imageMetadata(images []provider.Image) map[string]any {
	if len(images) == 0 {
		return nil
	}
	return map[string]any{"images": len(images)}
}

func isTurnLimit(err error) bool {
	var tle *fault.TurnLimitError
	return errors.As(err, &tle)
}

func truncateTitle(task string) string {
	const maxTitle = 80
	if len(task) <= maxTitle {
		return task
	}
	return task[:maxTitle-3] + "..."
}
