// Package tools defines the tool surface agents see and executes the
// side-effecting subset (filesystem and shell). Hierarchy and progress
// tools are interpreted by the orchestrator; everything else lands in
// the Executor.
package tools

import "github.com/mfontane/borgata/internal/provider"

// Hierarchy tool names, interpreted by the orchestrator's turn loop.
const (
	ToolDelegateTask   = "delegate_task"
	ToolAskAgent       = "ask_agent"
	ToolEscalateToBoss = "escalate_to_boss"
	ToolSubmitResult   = "submit_result"
)

// Progress tool names, dispatched to the conversation's tracker.
const (
	ToolInitProject      = "init_project"
	ToolAddPhase         = "add_phase"
	ToolStartPhase       = "start_phase"
	ToolCompletePhase    = "complete_phase"
	ToolBlockPhase       = "block_phase"
	ToolRecordDecision   = "record_decision"
	ToolRecordFileChange = "record_file_change"
	ToolCreateCheckpoint = "create_checkpoint"
	ToolUpdateStatus     = "update_status"
	ToolGetProgress      = "get_progress"
)

// Side-effecting tool names, executed by the Executor.
const (
	ToolReadFile       = "read_file"
	ToolWriteFile      = "write_file"
	ToolEditFile       = "edit_file"
	ToolExecuteCommand = "execute_command"
)

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

// Definitions returns the full tool schema table for a tool-capable
// agent turn. hasChildren controls whether delegation tools are offered.
func Definitions(hasChildren bool) []provider.ToolDefinition {
	defs := []provider.ToolDefinition{
		{
			Name:        ToolEscalateToBoss,
			Description: "Escalate a decision you cannot make yourself to the human boss. Blocks until the boss answers.",
			Properties: map[string]any{
				"question": prop("string", "The question that needs a human decision"),
				"context":  prop("string", "Background the boss needs to decide"),
			},
			Required: []string{"question"},
		},
		{
			Name:        ToolSubmitResult,
			Description: "Submit your final result for the current assignment. Ends your turn loop.",
			Properties: map[string]any{
				"result":  prop("string", "The final result of your assignment"),
				"summary": prop("string", "One-paragraph summary for your superior"),
			},
			Required: []string{"result"},
		},
		{
			Name:        ToolInitProject,
			Description: "Initialize the project ledger with a name, objective, and initial phases.",
			Properties: map[string]any{
				"name":      prop("string", "Project name"),
				"objective": prop("string", "What the project should achieve"),
				"phases": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Ordered initial phase names",
				},
			},
			Required: []string{"name", "objective"},
		},
		{
			Name:        ToolAddPhase,
			Description: "Append a new pending phase to the project ledger.",
			Properties: map[string]any{
				"name": prop("string", "Phase name"),
			},
			Required: []string{"name"},
		},
		{
			Name:        ToolStartPhase,
			Description: "Mark a phase in progress, optionally recording who is working on it.",
			Properties: map[string]any{
				"name":     prop("string", "Phase name"),
				"assignee": prop("string", "Agent taking the phase"),
			},
			Required: []string{"name"},
		},
		{
			Name:        ToolCompletePhase,
			Description: "Mark a phase completed with its result.",
			Properties: map[string]any{
				"name":   prop("string", "Phase name"),
				"result": prop("string", "What the phase produced"),
			},
			Required: []string{"name", "result"},
		},
		{
			Name:        ToolBlockPhase,
			Description: "Mark a phase blocked, recording what blocks it.",
			Properties: map[string]any{
				"name":       prop("string", "Phase name"),
				"blocked_by": prop("string", "What is blocking the phase"),
			},
			Required: []string{"name", "blocked_by"},
		},
		{
			Name:        ToolRecordDecision,
			Description: "Append a decision to the project decision log.",
			Properties: map[string]any{
				"topic":     prop("string", "Decision topic"),
				"question":  prop("string", "The question that was decided"),
				"decision":  prop("string", "The decision taken"),
				"rationale": prop("string", "Why this decision was taken"),
				"phase":     prop("string", "Related phase name, if any"),
			},
			Required: []string{"topic", "decision"},
		},
		{
			Name:        ToolRecordFileChange,
			Description: "Append an entry to the file change ledger.",
			Properties: map[string]any{
				"path":        prop("string", "Path of the changed file"),
				"kind":        map[string]any{"type": "string", "enum": []string{"created", "modified", "deleted"}, "description": "Kind of change"},
				"description": prop("string", "What changed and why"),
				"phase":       prop("string", "Related phase name, if any"),
			},
			Required: []string{"path", "kind", "description"},
		},
		{
			Name:        ToolCreateCheckpoint,
			Description: "Record a checkpoint compressing progress so far, with the tasks still pending.",
			Properties: map[string]any{
				"name":        prop("string", "Checkpoint name"),
				"description": prop("string", "Compressed description of progress so far"),
				"pending_tasks": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Tasks still outstanding",
				},
			},
			Required: []string{"name", "description"},
		},
		{
			Name:        ToolUpdateStatus,
			Description: "Record the overall project status line and, optionally, the phase currently being worked.",
			Properties: map[string]any{
				"status":        prop("string", "One-line overall status"),
				"current_phase": prop("string", "Phase currently being worked (optional)"),
			},
			Required: []string{"status"},
		},
		{
			Name:        ToolGetProgress,
			Description: "Read the condensed project progress summary.",
			Properties:  map[string]any{},
		},
		{
			Name:        ToolReadFile,
			Description: "Read a file from the working directory. Returns contents with line numbers.",
			Properties: map[string]any{
				"path":   prop("string", "Path to the file to read"),
				"offset": prop("integer", "Line number to start reading from (1-indexed, optional)"),
				"limit":  prop("integer", "Maximum number of lines to read (optional)"),
			},
			Required: []string{"path"},
		},
		{
			Name:        ToolWriteFile,
			Description: "Write content to a file. Creates parent directories if needed.",
			Properties: map[string]any{
				"path":    prop("string", "Path to the file to write"),
				"content": prop("string", "Content to write"),
			},
			Required: []string{"path", "content"},
		},
		{
			Name:        ToolEditFile,
			Description: "Edit a file by replacing text. The old_string must be unique unless replace_all is true.",
			Properties: map[string]any{
				"path":        prop("string", "Path to the file to edit"),
				"old_string":  prop("string", "The exact text to find and replace"),
				"new_string":  prop("string", "The text to replace it with"),
				"replace_all": prop("boolean", "If true, replace all occurrences (default false)"),
			},
			Required: []string{"path", "old_string", "new_string"},
		},
		{
			Name:        ToolExecuteCommand,
			Description: "Execute a shell command in the working directory and return stdout, stderr, and exit code.",
			Properties: map[string]any{
				"command": prop("string", "The shell command to execute"),
				"timeout": prop("integer", "Timeout in milliseconds (optional, default 120000)"),
			},
			Required: []string{"command"},
		},
	}

	if hasChildren {
		defs = append([]provider.ToolDefinition{
			{
				Name:        ToolDelegateTask,
				Description: "Delegate a subtask to one of your subordinate agents. You may delegate to several subordinates; results come back when each finishes.",
				Properties: map[string]any{
					"agent_id": prop("string", "ID of the subordinate agent"),
					"task":     prop("string", "The subtask to hand down"),
					"context":  prop("string", "Context the subordinate needs"),
				},
				Required: []string{"agent_id", "task"},
			},
			{
				Name:        ToolAskAgent,
				Description: "Ask another agent a single question and wait for the answer.",
				Properties: map[string]any{
					"agent_id": prop("string", "ID of the agent to ask"),
					"question": prop("string", "The question"),
				},
				Required: []string{"agent_id", "question"},
			},
		}, defs...)
	}

	return defs
}

// IsHierarchyTool reports whether the orchestrator interprets the tool
// itself rather than dispatching it.
func IsHierarchyTool(name string) bool {
	switch name {
	case ToolDelegateTask, ToolAskAgent, ToolEscalateToBoss, ToolSubmitResult:
		return true
	default:
		return false
	}
}

// IsProgressTool reports whether the tool targets the progress tracker.
func IsProgressTool(name string) bool {
	switch name {
	case ToolInitProject, ToolAddPhase, ToolStartPhase, ToolCompletePhase,
		ToolBlockPhase, ToolRecordDecision, ToolRecordFileChange,
		ToolCreateCheckpoint, ToolUpdateStatus, ToolGetProgress:
		return true
	default:
		return false
	}
}
