package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/mfontane/borgata/internal/fault"
)

type stubProvider struct {
	id          string
	toolCapable bool
}

func (s *stubProvider) ID() string        { return s.id }
func (s *stubProvider) ToolCapable() bool { return s.toolCapable }
func (s *stubProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	return &Response{Text: "ok", StopReason: StopEndTurn}, nil
}

func TestResolverFirstRegisteredIsDefault(t *testing.T) {
	r := NewResolver()
	anthropic := &stubProvider{id: "anthropic", toolCapable: true}
	openai := &stubProvider{id: "openai"}
	r.Register(anthropic)
	r.Register(openai)

	def, err := r.Default()
	if err != nil {
		t.Fatal(err)
	}
	if def != anthropic {
		t.Errorf("default = %s, want anthropic", def.ID())
	}

	got, err := r.Resolve("")
	if err != nil || got != anthropic {
		t.Errorf("empty id should resolve to default")
	}
}

func TestResolverNormalizesAliases(t *testing.T) {
	r := NewResolver()
	anthropic := &stubProvider{id: "anthropic", toolCapable: true}
	openai := &stubProvider{id: "openai"}
	r.Register(anthropic)
	r.Register(openai)

	tests := []struct {
		id   string
		want ModelProvider
	}{
		{"anthropic", anthropic},
		{"claude", anthropic},
		{"bedrock", anthropic},
		{"openai", openai},
		{"analysis", openai},
	}
	for _, tt := range tests {
		got, err := r.Resolve(tt.id)
		if err != nil {
			t.Errorf("Resolve(%s): %v", tt.id, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%s) = %s, want %s", tt.id, got.ID(), tt.want.ID())
		}
	}
}

func TestResolverUnknownIsNotFound(t *testing.T) {
	r := NewResolver()
	r.Register(&stubProvider{id: "anthropic"})

	_, err := r.Resolve("mystery")
	var nf *fault.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("got %v, want NotFoundError", err)
	}
}

func TestResolverEmptyHasNoDefault(t *testing.T) {
	r := NewResolver()
	if _, err := r.Default(); err == nil {
		t.Error("empty resolver should have no default")
	}
}

func TestTokenTrackerAccumulates(t *testing.T) {
	tr := NewTokenTracker()
	tr.Add(100, 20)
	tr.Add(50, 10)

	in, out := tr.Total()
	if in != 150 || out != 30 {
		t.Errorf("totals = %d/%d, want 150/30", in, out)
	}
	if tr.Calls() != 2 {
		t.Errorf("calls = %d, want 2", tr.Calls())
	}
}
