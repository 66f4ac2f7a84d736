package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mfontane/borgata/internal/bus"
	"github.com/mfontane/borgata/internal/fault"
	"github.com/mfontane/borgata/internal/progress"
	"github.com/mfontane/borgata/internal/provider"
	"github.com/mfontane/borgata/internal/tools"
	"github.com/mfontane/borgata/pkg/models"
)

// Branch states published with turn events.
const (
	branchRunning            = "running"
	branchAwaitingEscalation = "awaiting_escalation"
	branchAwaitingChildren   = "awaiting_children"
	branchTerminal           = "terminal"
)

// runState is the per-conversation execution state shared by every
// branch of the tree. The turn counter is global: delegated work counts
// against the same ceiling as the root's own turns.
type runState struct {
	orch           *Orchestrator
	conversationID string
	workingDir     string
	tracker        *progress.Tracker
	maxTurns       int
	turns          int64
}

// nextTurn claims the next global turn. The turn that crosses the
// ceiling trips the limit for the whole conversation.
func (rs *runState) nextTurn() (int64, error) {
	n := atomic.AddInt64(&rs.turns, 1)
	if int(n) > rs.maxTurns {
		return n, &fault.TurnLimitError{ConversationID: rs.conversationID, Limit: rs.maxTurns}
	}
	return n, nil
}

// Turns returns the number of turns consumed so far.
func (rs *runState) Turns() int64 {
	return atomic.LoadInt64(&rs.turns)
}

// runBranch executes one agent's turn loop until it submits a result,
// produces a final text answer, or a terminal condition (cancellation,
// turn limit) interrupts it. The returned string is the branch result
// handed to the caller (the human for the root, the delegating parent
// otherwise). Images are only present on the root branch of a human
// message.
func (o *Orchestrator) runBranch(ctx context.Context, rs *runState, agent *models.Agent, task string, images []provider.Image) (string, error) {
	prov, err := o.providers.Resolve(agent.Provider)
	if err != nil {
		return "", err
	}

	children, err := o.db.ListChildren(agent.ID)
	if err != nil {
		return "", err
	}
	edges, err := o.db.ListRelationshipsFrom(agent.ID)
	if err != nil {
		return "", err
	}

	var defs []provider.ToolDefinition
	if prov.ToolCapable() {
		defs = tools.Definitions(len(children) > 0 || hasDelegateEdge(edges))
	}
	executor := tools.NewExecutor(rs.workingDir)

	history := []provider.Message{{Role: provider.RoleUser, Content: task, Images: images}}
	state := branchRunning

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		turn, err := rs.nextTurn()
		if err != nil {
			o.bus.Publish(rs.conversationID, bus.EventTurnLimitReached, map[string]any{
				"agent_id": agent.ID,
				"limit":    rs.maxTurns,
			})
			return "", err
		}
		o.bus.Publish(rs.conversationID, bus.EventTurnStarted, map[string]any{
			"agent_id": agent.ID,
			"turn":     turn,
			"state":    state,
		})

		resp, err := prov.Complete(ctx, &provider.Request{
			System:    o.buildSystemPrompt(rs, agent, children, edges),
			Messages:  history,
			Tools:     defs,
			Model:     agent.Model,
			MaxTokens: o.maxTokens,
		})
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			// Provider failures become turn input, not a branch abort.
			// The turn limit bounds a provider that keeps failing.
			o.appendMessage(rs.conversationID, agent.ID, models.MessageRoleSystem, err.Error(), map[string]any{"outcome": "provider_error"})
			o.bus.Publish(rs.conversationID, bus.EventError, map[string]any{
				"agent_id": agent.ID,
				"error":    err.Error(),
			})
			history = append(history, provider.Message{
				Role:    provider.RoleUser,
				Content: fmt.Sprintf("The previous model call failed: %v. Adjust your approach and continue.", err),
			})
			continue
		}

		if resp.Text != "" {
			o.appendMessage(rs.conversationID, agent.ID, models.MessageRoleAssistant, resp.Text, nil)
			o.bus.Publish(rs.conversationID, bus.EventAgentMessage, map[string]any{
				"agent_id": agent.ID,
				"text":     resp.Text,
			})
		}

		if len(resp.ToolCalls) == 0 {
			// No explicit submit_result: final text is the branch result.
			return resp.Text, nil
		}

		history = append(history, provider.Message{
			Role:      provider.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		outputs, submitted, state2, err := o.handleToolCalls(ctx, rs, agent, children, edges, executor, resp.ToolCalls)
		if err != nil {
			return "", err
		}
		state = state2

		history = append(history, provider.Message{Role: provider.RoleTool, ToolOutputs: outputs})

		if submitted != nil {
			return *submitted, nil
		}
	}
}

// handleToolCalls runs every tool call from one assistant turn.
// Delegations fan out in parallel; everything else runs in call order.
// Returns the tool outputs for the next turn, the submitted result if
// submit_result was among the calls, and the branch state to report.
func (o *Orchestrator) handleToolCalls(ctx context.Context, rs *runState, agent *models.Agent,
	children []models.Agent, edges []models.Relationship, executor *tools.Executor,
	calls []provider.ToolCall) ([]provider.ToolOutput, *string, string, error) {

	var delegations []provider.ToolCall
	var rest []provider.ToolCall
	for _, tc := range calls {
		if tc.Name == tools.ToolDelegateTask {
			delegations = append(delegations, tc)
		} else {
			rest = append(rest, tc)
		}
	}

	state := branchRunning
	outputsByID := make(map[string]provider.ToolOutput, len(calls))

	if len(delegations) > 0 {
		state = branchAwaitingChildren
		delegated, err := o.runDelegations(ctx, rs, agent, children, edges, delegations)
		if err != nil {
			return nil, nil, branchTerminal, err
		}
		for id, out := range delegated {
			outputsByID[id] = out
		}
	}

	var submitted *string
	for _, tc := range rest {
		switch tc.Name {
		case tools.ToolSubmitResult:
			var params struct {
				Result  string `json:"result"`
				Summary string `json:"summary"`
			}
			if err := json.Unmarshal(tc.Input, &params); err != nil {
				outputsByID[tc.ID] = errOutput(tc.ID, fmt.Errorf("invalid parameters: %w", err))
				continue
			}
			result := params.Result
			if params.Summary != "" {
				result = params.Summary + "\n\n" + params.Result
			}
			submitted = &result
			outputsByID[tc.ID] = provider.ToolOutput{CallID: tc.ID, Content: "result recorded"}

		case tools.ToolAskAgent:
			out, err := o.askAgent(ctx, rs, agent, children, edges, tc)
			if err != nil {
				return nil, nil, branchTerminal, err
			}
			outputsByID[tc.ID] = out

		case tools.ToolEscalateToBoss:
			state = branchAwaitingEscalation
			out, err := o.escalate(ctx, rs, agent, tc)
			if err != nil {
				return nil, nil, branchTerminal, err
			}
			outputsByID[tc.ID] = out
			state = branchRunning

		default:
			if tools.IsProgressTool(tc.Name) {
				outputsByID[tc.ID] = o.progressTool(rs, agent, tc)
				continue
			}
			o.bus.Publish(rs.conversationID, bus.EventToolCall, map[string]any{
				"agent_id": agent.ID,
				"tool":     tc.Name,
				"action":   tools.FormatToolAction(tc.Name, tc.Input),
			})
			res := executor.Execute(ctx, tc.Name, tc.Input)
			o.bus.Publish(rs.conversationID, bus.EventToolResult, map[string]any{
				"agent_id": agent.ID,
				"tool":     tc.Name,
				"status":   res.Status,
			})
			o.appendMessage(rs.conversationID, agent.ID, models.MessageRoleTool, res.Content, map[string]any{
				"tool":   tc.Name,
				"status": res.Status,
			})
			outputsByID[tc.ID] = provider.ToolOutput{CallID: tc.ID, Content: res.Content, IsError: res.IsError}
		}
	}

	// Preserve the model's call order in the outputs.
	outputs := make([]provider.ToolOutput, 0, len(calls))
	for _, tc := range calls {
		if out, ok := outputsByID[tc.ID]; ok {
			outputs = append(outputs, out)
		}
	}
	return outputs, submitted, state, nil
}

// runDelegations executes delegated subtasks in parallel child branches
// that share the conversation's global turn counter. A child's domain
// failure is fed back to the parent as an error tool output; terminal
// conditions (cancellation, turn limit) propagate.
func (o *Orchestrator) runDelegations(ctx context.Context, rs *runState, agent *models.Agent,
	children []models.Agent, edges []models.Relationship, delegations []provider.ToolCall) (map[string]provider.ToolOutput, error) {

	type task struct {
		call   provider.ToolCall
		target *models.Agent
		brief  string
	}

	tasks := make([]task, 0, len(delegations))
	out := make(map[string]provider.ToolOutput, len(delegations))
	for _, tc := range delegations {
		var params struct {
			AgentID string `json:"agent_id"`
			Task    string `json:"task"`
			Context string `json:"context"`
		}
		if err := json.Unmarshal(tc.Input, &params); err != nil {
			out[tc.ID] = errOutput(tc.ID, fmt.Errorf("invalid parameters: %w", err))
			continue
		}
		target := o.routeTarget(agent, children, edges, params.AgentID, models.ActionDelegate)
		if target == nil {
			out[tc.ID] = errOutput(tc.ID, fmt.Errorf("agent %q is not a delegation target of %s", params.AgentID, agent.ID))
			continue
		}
		brief := params.Task
		if params.Context != "" {
			brief = params.Task + "\n\nContext from your superior:\n" + params.Context
		}
		tasks = append(tasks, task{call: tc, target: target, brief: brief})
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		terminal error
	)
	for _, t := range tasks {
		t := t
		o.bus.Publish(rs.conversationID, bus.EventDelegation, map[string]any{
			"from": agent.ID,
			"to":   t.target.ID,
			"task": t.brief,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := o.runBranch(ctx, rs, t.target, t.brief, nil)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil || isTurnLimit(err) {
					if terminal == nil {
						terminal = err
					}
					return
				}
				out[t.call.ID] = errOutput(t.call.ID, fmt.Errorf("delegate %s: %w", t.target.ID, err))
				return
			}
			out[t.call.ID] = provider.ToolOutput{CallID: t.call.ID, Content: result}
			o.bus.Publish(rs.conversationID, bus.EventDelegationResult, map[string]any{
				"from":   t.target.ID,
				"to":     agent.ID,
				"result": result,
			})
		}()
	}
	wg.Wait()

	if terminal != nil {
		return nil, terminal
	}
	return out, nil
}

// askAgent runs a one-shot question against another agent: a single
// model call with the target's standing prompt, no tools. It consumes
// one global turn.
func (o *Orchestrator) askAgent(ctx context.Context, rs *runState, agent *models.Agent,
	children []models.Agent, edges []models.Relationship, tc provider.ToolCall) (provider.ToolOutput, error) {

	var params struct {
		AgentID  string `json:"agent_id"`
		Question string `json:"question"`
	}
	if err := json.Unmarshal(tc.Input, &params); err != nil {
		return errOutput(tc.ID, fmt.Errorf("invalid parameters: %w", err)), nil
	}
	target := o.routeTarget(agent, children, edges, params.AgentID, models.ActionAsk)
	if target == nil {
		return errOutput(tc.ID, fmt.Errorf("agent %q is not reachable from %s", params.AgentID, agent.ID)), nil
	}

	if _, err := rs.nextTurn(); err != nil {
		o.bus.Publish(rs.conversationID, bus.EventTurnLimitReached, map[string]any{
			"agent_id": target.ID,
			"limit":    rs.maxTurns,
		})
		return provider.ToolOutput{}, err
	}

	prov, err := o.providers.Resolve(target.Provider)
	if err != nil {
		return errOutput(tc.ID, err), nil
	}

	resp, err := prov.Complete(ctx, &provider.Request{
		System:    target.SystemPrompt,
		Messages:  []provider.Message{{Role: provider.RoleUser, Content: params.Question}},
		Model:     target.Model,
		MaxTokens: o.maxTokens,
	})
	if err != nil {
		if ctx.Err() != nil {
			return provider.ToolOutput{}, ctx.Err()
		}
		return errOutput(tc.ID, err), nil
	}

	o.appendMessage(rs.conversationID, target.ID, models.MessageRoleAssistant, resp.Text, map[string]any{
		"asked_by": agent.ID,
	})
	return provider.ToolOutput{CallID: tc.ID, Content: resp.Text}, nil
}

// escalate persists the escalation, announces it, and suspends the
// branch until a human answers or the conversation is torn down.
func (o *Orchestrator) escalate(ctx context.Context, rs *runState, agent *models.Agent, tc provider.ToolCall) (provider.ToolOutput, error) {
	var params struct {
		Question string `json:"question"`
		Context  string `json:"context"`
	}
	if err := json.Unmarshal(tc.Input, &params); err != nil {
		return errOutput(tc.ID, fmt.Errorf("invalid parameters: %w", err)), nil
	}
	question := params.Question
	if params.Context != "" {
		question = params.Question + "\n\nContext: " + params.Context
	}

	esc := &models.Escalation{
		ID:             uuid.New().String(),
		ConversationID: rs.conversationID,
		AgentID:        agent.ID,
		Question:       question,
		Status:         models.EscalationPending,
		CreatedAt:      time.Now(),
	}
	// The waiter must exist before the escalation becomes visible, or an
	// answer landing right after the announcement finds nobody to wake.
	if err := o.escalations.Register(esc.ID, rs.conversationID); err != nil {
		return provider.ToolOutput{}, err
	}
	if err := o.db.CreateEscalation(esc); err != nil {
		o.escalations.Unregister(esc.ID)
		return provider.ToolOutput{}, err
	}

	o.bus.Publish(rs.conversationID, bus.EventEscalationRaised, map[string]any{
		"escalation_id": esc.ID,
		"agent_id":      agent.ID,
		"question":      question,
	})

	answer, err := o.escalations.Await(ctx, esc.ID)
	if err != nil {
		if ctx.Err() != nil {
			return provider.ToolOutput{}, ctx.Err()
		}
		// Teardown abandoned the waiter; surface it as cancellation.
		return provider.ToolOutput{}, context.Canceled
	}
	return provider.ToolOutput{CallID: tc.ID, Content: "The boss answered: " + answer}, nil
}

// progressTool dispatches a progress tool call to the conversation's
// tracker and publishes the resulting summary state.
func (o *Orchestrator) progressTool(rs *runState, agent *models.Agent, tc provider.ToolCall) provider.ToolOutput {
	t := rs.tracker
	result := "recorded"
	var opErr error

	switch tc.Name {
	case tools.ToolInitProject:
		var p struct {
			Name      string   `json:"name"`
			Objective string   `json:"objective"`
			Phases    []string `json:"phases"`
		}
		if opErr = json.Unmarshal(tc.Input, &p); opErr == nil {
			t.InitializeProject(p.Name, p.Objective, p.Phases)
			result = fmt.Sprintf("project %q initialized with %d phases", p.Name, len(p.Phases))
		}

	case tools.ToolAddPhase:
		var p struct {
			Name string `json:"name"`
		}
		if opErr = json.Unmarshal(tc.Input, &p); opErr == nil {
			t.AddPhase(p.Name)
			result = "phase added: " + p.Name
		}

	case tools.ToolStartPhase:
		var p struct {
			Name     string `json:"name"`
			Assignee string `json:"assignee"`
		}
		if opErr = json.Unmarshal(tc.Input, &p); opErr == nil {
			assignee := p.Assignee
			if assignee == "" {
				assignee = agent.ID
			}
			opErr = t.StartPhase(p.Name, assignee)
			result = "phase started: " + p.Name
		}

	case tools.ToolCompletePhase:
		var p struct {
			Name   string `json:"name"`
			Result string `json:"result"`
		}
		if opErr = json.Unmarshal(tc.Input, &p); opErr == nil {
			opErr = t.CompletePhase(p.Name, p.Result)
			result = "phase completed: " + p.Name
		}

	case tools.ToolBlockPhase:
		var p struct {
			Name      string `json:"name"`
			BlockedBy string `json:"blocked_by"`
		}
		if opErr = json.Unmarshal(tc.Input, &p); opErr == nil {
			opErr = t.BlockPhase(p.Name, p.BlockedBy)
			result = "phase blocked: " + p.Name
		}

	case tools.ToolRecordDecision:
		var p struct {
			Topic     string `json:"topic"`
			Question  string `json:"question"`
			Decision  string `json:"decision"`
			Rationale string `json:"rationale"`
			Phase     string `json:"phase"`
		}
		if opErr = json.Unmarshal(tc.Input, &p); opErr == nil {
			t.RecordDecision(progress.Decision{
				Topic:     p.Topic,
				Question:  p.Question,
				Decision:  p.Decision,
				Rationale: p.Rationale,
				Author:    agent.ID,
				Phase:     p.Phase,
			})
		}

	case tools.ToolRecordFileChange:
		var p struct {
			Path        string `json:"path"`
			Kind        string `json:"kind"`
			Description string `json:"description"`
			Phase       string `json:"phase"`
		}
		if opErr = json.Unmarshal(tc.Input, &p); opErr == nil {
			t.RecordFileChange(progress.FileChange{
				Path:        p.Path,
				Kind:        progress.FileChangeKind(p.Kind),
				Description: p.Description,
				Author:      agent.ID,
				Phase:       p.Phase,
			})
		}

	case tools.ToolCreateCheckpoint:
		var p struct {
			Name         string   `json:"name"`
			Description  string   `json:"description"`
			PendingTasks []string `json:"pending_tasks"`
		}
		if opErr = json.Unmarshal(tc.Input, &p); opErr == nil {
			t.CreateCheckpoint(p.Name, p.Description, p.PendingTasks)
			result = "checkpoint recorded: " + p.Name
		}

	case tools.ToolUpdateStatus:
		var p struct {
			Status       string `json:"status"`
			CurrentPhase string `json:"current_phase"`
		}
		if opErr = json.Unmarshal(tc.Input, &p); opErr == nil {
			t.UpdateStatus(p.Status, p.CurrentPhase)
			result = "status recorded"
		}

	case tools.ToolGetProgress:
		return provider.ToolOutput{CallID: tc.ID, Content: t.BuildContextSummary()}
	}

	if opErr != nil {
		return errOutput(tc.ID, opErr)
	}
	o.bus.Publish(rs.conversationID, bus.EventProgressUpdated, map[string]any{
		"agent_id": agent.ID,
		"tool":     tc.Name,
	})
	return provider.ToolOutput{CallID: tc.ID, Content: result}
}

// routeTarget resolves a routing request against the topology: direct
// children are always reachable; otherwise there must be an edge with a
// compatible action. Delegation requires a delegate edge; questions
// accept any pairwise edge.
func (o *Orchestrator) routeTarget(agent *models.Agent, children []models.Agent,
	edges []models.Relationship, targetID string, action models.RelationshipAction) *models.Agent {

	for i := range children {
		if children[i].ID == targetID {
			return &children[i]
		}
	}
	for _, e := range edges {
		if e.ToAgentID != targetID {
			continue
		}
		if action == models.ActionDelegate && e.Action != models.ActionDelegate {
			continue
		}
		target, err := o.db.GetAgent(targetID)
		if err != nil || target == nil {
			return nil
		}
		return target
	}
	return nil
}

func hasDelegateEdge(edges []models.Relationship) bool {
	for _, e := range edges {
		if e.Action == models.ActionDelegate {
			return true
		}
	}
	return false
}

func errOutput(callID string, err error) provider.ToolOutput {
	return provider.ToolOutput{CallID: callID, Content: err.Error(), IsError: true}
}
