package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mfontane/borgata/internal/fault"
)

// Result statuses for side-effecting tool executions.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusRunning = "running"
)

const maxOutputBytes = 30000

// Result is the outcome of one side-effecting tool execution, fed back
// to the model as a tool output block.
type Result struct {
	Status  string `json:"status"`
	Content string `json:"content"`
	IsError bool   `json:"-"`
}

// CommandResult is the structured payload for execute_command results.
type CommandResult struct {
	Status   string `json:"status"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Executor runs the filesystem and shell tools inside a conversation's
// working directory. Relative paths resolve against that directory.
type Executor struct {
	workDir string
}

// NewExecutor creates an executor rooted at workDir.
func NewExecutor(workDir string) *Executor {
	return &Executor{workDir: workDir}
}

// Execute runs a side-effecting tool by name with its JSON input.
func (e *Executor) Execute(ctx context.Context, name string, input json.RawMessage) Result {
	switch name {
	case ToolReadFile:
		return e.readFile(input)
	case ToolWriteFile:
		return e.writeFile(input)
	case ToolEditFile:
		return e.editFile(input)
	case ToolExecuteCommand:
		return e.executeCommand(ctx, input)
	default:
		return errResult(&fault.ToolError{Tool: name, Err: fmt.Errorf("unknown tool")})
	}
}

func (e *Executor) readFile(input json.RawMessage) Result {
	var params struct {
		Path   string `json:"path"`
		Offset int    `json:"offset"`
		Limit  int    `json:"limit"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult(fmt.Errorf("invalid parameters: %w", err))
	}

	path := e.resolvePath(params.Path)
	content, err := os.ReadFile(path)
	if err != nil {
		return errResult(fmt.Errorf("read file: %w", err))
	}

	lines := strings.Split(string(content), "\n")

	start := 0
	if params.Offset > 0 {
		start = params.Offset - 1
		if start >= len(lines) {
			return errResult(fmt.Errorf("offset %d beyond end of file (%d lines)", params.Offset, len(lines)))
		}
	}

	end := len(lines)
	if params.Limit > 0 && start+params.Limit < end {
		end = start + params.Limit
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		fmt.Fprintf(&b, "%6d\t%s\n", i+1, lines[i])
	}
	return Result{Status: StatusSuccess, Content: truncateOutput(b.String())}
}

func (e *Executor) writeFile(input json.RawMessage) Result {
	var params struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult(fmt.Errorf("invalid parameters: %w", err))
	}

	path := e.resolvePath(params.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errResult(fmt.Errorf("create directory: %w", err))
	}
	if err := os.WriteFile(path, []byte(params.Content), 0644); err != nil {
		return errResult(fmt.Errorf("write file: %w", err))
	}
	return Result{Status: StatusSuccess, Content: fmt.Sprintf("wrote %d bytes to %s", len(params.Content), params.Path)}
}

func (e *Executor) editFile(input json.RawMessage) Result {
	var params struct {
		Path       string `json:"path"`
		OldString  string `json:"old_string"`
		NewString  string `json:"new_string"`
		ReplaceAll bool   `json:"replace_all"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult(fmt.Errorf("invalid parameters: %w", err))
	}

	path := e.resolvePath(params.Path)
	content, err := os.ReadFile(path)
	if err != nil {
		return errResult(fmt.Errorf("read file: %w", err))
	}

	contentStr := string(content)
	count := strings.Count(contentStr, params.OldString)
	if count == 0 {
		return errResult(fmt.Errorf("old_string not found in %s", params.Path))
	}
	if !params.ReplaceAll && count > 1 {
		return errResult(fmt.Errorf("old_string found %d times; must be unique or use replace_all", count))
	}

	var newContent string
	if params.ReplaceAll {
		newContent = strings.ReplaceAll(contentStr, params.OldString, params.NewString)
	} else {
		newContent = strings.Replace(contentStr, params.OldString, params.NewString, 1)
	}
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		return errResult(fmt.Errorf("write file: %w", err))
	}

	if params.ReplaceAll {
		return Result{Status: StatusSuccess, Content: fmt.Sprintf("replaced %d occurrences in %s", count, params.Path)}
	}
	return Result{Status: StatusSuccess, Content: "edit applied to " + params.Path}
}

func (e *Executor) executeCommand(ctx context.Context, input json.RawMessage) Result {
	var params struct {
		Command string `json:"command"`
		Timeout int    `json:"timeout"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult(fmt.Errorf("invalid parameters: %w", err))
	}
	if params.Command == "" {
		return errResult(fault.Validation("command", "must not be empty"))
	}

	timeout := 120 * time.Second
	if params.Timeout > 0 {
		timeout = time.Duration(params.Timeout) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "bash", "-c", params.Command)
	cmd.Dir = e.workDir

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	cr := CommandResult{
		Status: StatusSuccess,
		Stdout: truncateOutput(stdout.String()),
		Stderr: truncateOutput(stderr.String()),
	}
	if runErr != nil {
		cr.Status = StatusError
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			cr.ExitCode = exitErr.ExitCode()
		} else {
			cr.ExitCode = -1
			cr.Stderr = truncateOutput(cr.Stderr + "\n" + runErr.Error())
		}
		if ctx.Err() == context.DeadlineExceeded {
			cr.Stderr = truncateOutput(cr.Stderr + fmt.Sprintf("\ncommand timed out after %v", timeout))
		}
	}

	payload, err := json.Marshal(cr)
	if err != nil {
		return errResult(fmt.Errorf("marshal command result: %w", err))
	}
	return Result{Status: cr.Status, Content: string(payload), IsError: cr.Status == StatusError}
}

func (e *Executor) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.workDir, path)
}

func errResult(err error) Result {
	return Result{Status: StatusError, Content: err.Error(), IsError: true}
}

func truncateOutput(s string) string {
	if len(s) > maxOutputBytes {
		return s[:maxOutputBytes] + "\n... (output truncated)"
	}
	return s
}

// FormatToolAction returns a one-line human-readable description of a
// tool call for event payloads and CLI output.
func FormatToolAction(name string, input json.RawMessage) string {
	switch name {
	case ToolReadFile, ToolWriteFile, ToolEditFile:
		var p struct {
			Path string `json:"path"`
		}
		json.Unmarshal(input, &p)
		verb := map[string]string{
			ToolReadFile:  "Reading",
			ToolWriteFile: "Writing",
			ToolEditFile:  "Editing",
		}[name]
		return verb + " " + filepath.Base(p.Path)
	case ToolExecuteCommand:
		var p struct {
			Command string `json:"command"`
		}
		json.Unmarshal(input, &p)
		cmd := p.Command
		if len(cmd) > 40 {
			cmd = cmd[:37] + "..."
		}
		return "Running " + cmd
	case ToolDelegateTask:
		var p struct {
			AgentID string `json:"agent_id"`
		}
		json.Unmarshal(input, &p)
		return "Delegating to " + p.AgentID
	case ToolAskAgent:
		var p struct {
			AgentID string `json:"agent_id"`
		}
		json.Unmarshal(input, &p)
		return "Asking " + p.AgentID
	case ToolEscalateToBoss:
		return "Escalating to boss"
	case ToolSubmitResult:
		return "Submitting result"
	default:
		return name
	}
}
