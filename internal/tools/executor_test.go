package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func params(t *testing.T, v map[string]any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestWriteThenReadFile(t *testing.T) {
	dir := t.TempDir()
	e := NewExecutor(dir)
	ctx := context.Background()

	res := e.Execute(ctx, ToolWriteFile, params(t, map[string]any{
		"path":    "notes/plan.txt",
		"content": "alpha\nbeta\ngamma",
	}))
	if res.IsError {
		t.Fatalf("write: %s", res.Content)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes", "plan.txt")); err != nil {
		t.Fatalf("file not created: %v", err)
	}

	res = e.Execute(ctx, ToolReadFile, params(t, map[string]any{"path": "notes/plan.txt"}))
	if res.IsError {
		t.Fatalf("read: %s", res.Content)
	}
	if !strings.Contains(res.Content, "1\talpha") || !strings.Contains(res.Content, "3\tgamma") {
		t.Errorf("read output missing numbered lines:\n%s", res.Content)
	}
}

func TestReadFileOffsetAndLimit(t *testing.T) {
	dir := t.TempDir()
	e := NewExecutor(dir)
	ctx := context.Background()

	content := "one\ntwo\nthree\nfour"
	if err := os.WriteFile(filepath.Join(dir, "f.txt"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	res := e.Execute(ctx, ToolReadFile, params(t, map[string]any{"path": "f.txt", "offset": 2, "limit": 2}))
	if res.IsError {
		t.Fatalf("read: %s", res.Content)
	}
	if strings.Contains(res.Content, "one") || strings.Contains(res.Content, "four") {
		t.Errorf("window leaked lines:\n%s", res.Content)
	}
	if !strings.Contains(res.Content, "2\ttwo") || !strings.Contains(res.Content, "3\tthree") {
		t.Errorf("window missing lines:\n%s", res.Content)
	}

	res = e.Execute(ctx, ToolReadFile, params(t, map[string]any{"path": "f.txt", "offset": 99}))
	if !res.IsError {
		t.Error("offset beyond end of file should error")
	}
}

func TestReadMissingFileErrors(t *testing.T) {
	e := NewExecutor(t.TempDir())
	res := e.Execute(context.Background(), ToolReadFile, params(t, map[string]any{"path": "ghost.txt"}))
	if !res.IsError || res.Status != StatusError {
		t.Errorf("missing file: %+v", res)
	}
}

func TestEditFileUniquenessAndReplaceAll(t *testing.T) {
	dir := t.TempDir()
	e := NewExecutor(dir)
	ctx := context.Background()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("foo bar foo"), 0644); err != nil {
		t.Fatal(err)
	}

	res := e.Execute(ctx, ToolEditFile, params(t, map[string]any{
		"path": "f.txt", "old_string": "foo", "new_string": "baz",
	}))
	if !res.IsError {
		t.Error("ambiguous old_string should error without replace_all")
	}

	res = e.Execute(ctx, ToolEditFile, params(t, map[string]any{
		"path": "f.txt", "old_string": "foo", "new_string": "baz", "replace_all": true,
	}))
	if res.IsError {
		t.Fatalf("replace_all: %s", res.Content)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "baz bar baz" {
		t.Errorf("content = %q", got)
	}

	res = e.Execute(ctx, ToolEditFile, params(t, map[string]any{
		"path": "f.txt", "old_string": "missing", "new_string": "x",
	}))
	if !res.IsError {
		t.Error("absent old_string should error")
	}
}

func TestExecuteCommandCapturesOutputAndExitCode(t *testing.T) {
	e := NewExecutor(t.TempDir())
	ctx := context.Background()

	res := e.Execute(ctx, ToolExecuteCommand, params(t, map[string]any{
		"command": "echo out; echo err >&2",
	}))
	if res.IsError {
		t.Fatalf("command: %s", res.Content)
	}
	var cr CommandResult
	if err := json.Unmarshal([]byte(res.Content), &cr); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.Contains(cr.Stdout, "out") || !strings.Contains(cr.Stderr, "err") {
		t.Errorf("streams = %+v", cr)
	}
	if cr.ExitCode != 0 || cr.Status != StatusSuccess {
		t.Errorf("result = %+v", cr)
	}

	res = e.Execute(ctx, ToolExecuteCommand, params(t, map[string]any{"command": "exit 3"}))
	if !res.IsError {
		t.Fatal("nonzero exit should be an error result")
	}
	if err := json.Unmarshal([]byte(res.Content), &cr); err != nil {
		t.Fatal(err)
	}
	if cr.ExitCode != 3 || cr.Status != StatusError {
		t.Errorf("result = %+v", cr)
	}
}

func TestExecuteCommandRunsInWorkDir(t *testing.T) {
	dir := t.TempDir()
	e := NewExecutor(dir)

	res := e.Execute(context.Background(), ToolExecuteCommand, params(t, map[string]any{"command": "pwd"}))
	var cr CommandResult
	if err := json.Unmarshal([]byte(res.Content), &cr); err != nil {
		t.Fatal(err)
	}
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(cr.Stdout))
	want, _ := filepath.EvalSymlinks(dir)
	if got != want {
		t.Errorf("pwd = %s, want %s", got, want)
	}
}

func TestExecuteCommandRejectsEmpty(t *testing.T) {
	e := NewExecutor(t.TempDir())
	res := e.Execute(context.Background(), ToolExecuteCommand, params(t, map[string]any{"command": ""}))
	if !res.IsError {
		t.Error("empty command should error")
	}
}

func TestUnknownToolErrors(t *testing.T) {
	e := NewExecutor(t.TempDir())
	res := e.Execute(context.Background(), "summon_lawyer", nil)
	if !res.IsError {
		t.Error("unknown tool should error")
	}
}

func TestDefinitionsGateDelegationTools(t *testing.T) {
	names := func(hasChildren bool) map[string]bool {
		set := make(map[string]bool)
		for _, d := range Definitions(hasChildren) {
			set[d.Name] = true
		}
		return set
	}

	leaf := names(false)
	if leaf[ToolDelegateTask] || leaf[ToolAskAgent] {
		t.Error("leaf agents must not see delegation tools")
	}
	for _, want := range []string{ToolSubmitResult, ToolEscalateToBoss, ToolReadFile, ToolExecuteCommand, ToolGetProgress} {
		if !leaf[want] {
			t.Errorf("leaf definitions missing %s", want)
		}
	}

	parent := names(true)
	if !parent[ToolDelegateTask] || !parent[ToolAskAgent] {
		t.Error("parents should see delegation tools")
	}
}

func TestFormatToolAction(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]any
		want  string
	}{
		{ToolReadFile, map[string]any{"path": "/a/b/main.go"}, "Reading main.go"},
		{ToolWriteFile, map[string]any{"path": "out.txt"}, "Writing out.txt"},
		{ToolExecuteCommand, map[string]any{"command": "ls -la"}, "Running ls -la"},
		{ToolDelegateTask, map[string]any{"agent_id": "capo-build"}, "Delegating to capo-build"},
		{ToolEscalateToBoss, nil, "Escalating to boss"},
		{"mystery_tool", nil, "mystery_tool"},
	}
	for _, tt := range tests {
		if got := FormatToolAction(tt.name, params(t, tt.input)); got != tt.want {
			t.Errorf("FormatToolAction(%s) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
