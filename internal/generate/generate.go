// Package generate adapts a chat model into the generation client used by the
// quote pipeline, and decodes the model's raw output into quote candidates.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/quoteseek/internal/verify"
)

// Generator is the generation client consumed by the pipeline.
// Implementations must be safe to call from multiple goroutines.
type Generator interface {
	// Generate sends the system instruction and user prompt to the model and
	// returns its raw text response.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ChatGenerator implements Generator on top of an Eino chat model, so any
// backend built by the provider factory can serve as the generation client.
type ChatGenerator struct {
	// model is the underlying Eino chat model.
	model model.BaseChatModel
}

// NewChatGenerator wraps m as a Generator.
func NewChatGenerator(m model.BaseChatModel) (*ChatGenerator, error) {
	if m == nil {
		return nil, fmt.Errorf("generate: chat model must not be nil")
	}
	return &ChatGenerator{model: m}, nil
}

// runInfo names generation calls in callback handlers such as Langfuse.
var runInfo = &callbacks.RunInfo{
	Name:      "quote-generation",
	Type:      "ChatGenerator",
	Component: components.ComponentOfChatModel,
}

// Generate implements Generator. Globally registered callback handlers see
// every call.
func (g *ChatGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx = callbacks.InitCallbacks(ctx, runInfo)
	msgs := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	}

	resp, err := g.model.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("generate: model call failed: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("generate: model returned nil message")
	}
	return resp.Content, nil
}

// DecodeCandidates parses raw model output as a JSON array of quote
// candidates. A markdown code block is unwrapped first, wherever it sits in
// the output; anything else that is not a JSON array of objects is an error.
func DecodeCandidates(raw string) ([]verify.Candidate, error) {
	text := stripFence(raw)
	if text == "" {
		return nil, fmt.Errorf("generate: empty model output")
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, fmt.Errorf("generate: output is not a JSON array: %w", err)
	}

	candidates := make([]verify.Candidate, 0, len(items))
	for i, item := range items {
		var c verify.Candidate
		if err := json.Unmarshal(item, &c); err != nil {
			return nil, fmt.Errorf("generate: element %d is not a quote object: %w", i, err)
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// fence is the markdown code fence delimiter.
const fence = "```"

// stripFence returns the content of the first markdown code block in s, cut
// to its outermost brackets so an info string ("json") or a missing newline
// after the opening fence does not matter. Text without a fence is returned
// trimmed and untouched.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, fence)
	if start < 0 {
		return s
	}
	body := s[start+len(fence):]
	if end := strings.Index(body, fence); end >= 0 {
		body = body[:end]
	}
	if i, j := strings.IndexByte(body, '['), strings.LastIndexByte(body, ']'); i >= 0 && j > i {
		return body[i : j+1]
	}
	return strings.TrimSpace(body)
}
