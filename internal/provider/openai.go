package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mfontane/borgata/internal/fault"
)

// OpenAIProvider is an analysis-only provider speaking the
// OpenAI-compatible chat completions API. It returns assistant text and
// is never offered tools; the capability registry keeps tool-required
// roles off it.
type OpenAIProvider struct {
	apiKey       string
	apiBase      string
	defaultModel string
	httpClient   *http.Client
}

// NewOpenAIProvider creates an OpenAI-compatible analysis provider.
func NewOpenAIProvider(apiKey, apiBase, defaultModel string) *OpenAIProvider {
	if apiBase == "" {
		apiBase = "https://api.openai.com/v1"
	}
	if defaultModel == "" {
		defaultModel = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		apiKey:       apiKey,
		apiBase:      strings.TrimSuffix(apiBase, "/"),
		defaultModel: defaultModel,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// ID returns the provider identifier.
func (p *OpenAIProvider) ID() string { return "openai" }

// ToolCapable reports that this provider cannot execute tool calls.
func (p *OpenAIProvider) ToolCapable() bool { return false }

// Complete sends a chat completion request. Tool definitions in the
// request are ignored; tool outputs in history are flattened to text so
// analysis work can still see prior results.
func (p *OpenAIProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	body := map[string]any{
		"model":      model,
		"messages":   p.convertMessages(req.System, req.Messages),
		"max_tokens": maxTokens,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.apiBase+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &fault.ProviderError{Provider: p.ID(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &fault.ProviderError{Provider: p.ID(), Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &fault.ProviderError{
			Provider: p.ID(),
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, truncateBody(respBody)),
		}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int64 `json:"prompt_tokens"`
			CompletionTokens int64 `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &fault.ProviderError{Provider: p.ID(), Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return nil, &fault.ProviderError{Provider: p.ID(), Err: fmt.Errorf("no choices in response")}
	}

	choice := parsed.Choices[0]
	reason := StopEndTurn
	if choice.FinishReason == "length" {
		reason = StopMaxTok
	}

	return &Response{
		Text:       choice.Message.Content,
		StopReason: reason,
		Usage: Usage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
		},
	}, nil
}

// convertMessages flattens neutral history into the chat completions
// message format.
func (p *OpenAIProvider) convertMessages(system string, messages []Message) []map[string]any {
	var out []map[string]any
	if system != "" {
		out = append(out, map[string]any{"role": "system", "content": system})
	}
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			out = append(out, map[string]any{"role": "user", "content": m.Content})
		case RoleAssistant:
			out = append(out, map[string]any{"role": "assistant", "content": m.Content})
		case RoleTool:
			var b strings.Builder
			for _, to := range m.ToolOutputs {
				fmt.Fprintf(&b, "[tool result %s] %s\n", to.CallID, to.Content)
			}
			out = append(out, map[string]any{"role": "user", "content": b.String()})
		}
	}
	return out
}

func truncateBody(body []byte) string {
	s := string(body)
	if len(s) > 500 {
		return s[:500]
	}
	return s
}
