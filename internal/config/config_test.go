package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
anthropic:
  api_key: test-key
  model: claude-sonnet-4-5
orchestrator:
  max_agent_turns: 50
store:
  path: /tmp/test.db
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("api key = %s", cfg.Anthropic.APIKey)
	}
	if cfg.Anthropic.Model != "claude-sonnet-4-5" {
		t.Errorf("model = %s", cfg.Anthropic.Model)
	}
	if cfg.Orchestrator.MaxAgentTurns != 50 {
		t.Errorf("max turns = %d, want 50", cfg.Orchestrator.MaxAgentTurns)
	}
	if cfg.Store.Path != "/tmp/test.db" {
		t.Errorf("store path = %s", cfg.Store.Path)
	}
}

func TestLoadFromPathAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("anthropic:\n  api_key: k\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Orchestrator.MaxAgentTurns != 200 {
		t.Errorf("default max turns = %d, want 200", cfg.Orchestrator.MaxAgentTurns)
	}
	if cfg.Orchestrator.MaxTokens != 8192 {
		t.Errorf("default max tokens = %d, want 8192", cfg.Orchestrator.MaxTokens)
	}
}

func TestLoadFromPathExpandsEnvInKeys(t *testing.T) {
	t.Setenv("BORGATA_TEST_KEY", "expanded-secret")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("anthropic:\n  api_key: ${BORGATA_TEST_KEY}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Anthropic.APIKey != "expanded-secret" {
		t.Errorf("api key = %s, want expanded-secret", cfg.Anthropic.APIKey)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "ghost.yaml")); err == nil {
		t.Error("missing file should error")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Orchestrator.MaxAgentTurns != 200 || cfg.Orchestrator.MaxTokens != 8192 {
		t.Errorf("defaults = %+v", cfg.Orchestrator)
	}
}
