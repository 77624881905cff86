package a2a

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/tools"

	"github.com/strandlabs/strand/server/llm"
)

// DelegateTool exposes a remote agent as an ordinary tool, so
// delegation is just another tool call inside the reasoning loop.
type DelegateTool struct {
	client      *Client
	name        string
	description string
}

// NewDelegateTool wraps client as a registry tool. description should
// say what the remote agent is good at so the semantic tool index can
// route to it.
func NewDelegateTool(client *Client, name, description string) *DelegateTool {
	return &DelegateTool{client: client, name: name, description: description}
}

// DelegateToolParameters is the JSON schema for the delegate tool.
func DelegateToolParameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The question or task to delegate to the remote agent",
			},
		},
		"required": []string{"query"},
	}
}

func (t *DelegateTool) Name() string        { return t.name }
func (t *DelegateTool) Description() string { return t.description }

// Call delegates the query on a fresh remote thread and returns the
// remote agent's final answer.
func (t *DelegateTool) Call(ctx context.Context, input string) (string, error) {
	var payload struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(input), &payload); err != nil {
		return "Error: input must be a JSON object with a `query` key.", nil
	}
	if strings.TrimSpace(payload.Query) == "" {
		return "Error: query must not be empty.", nil
	}

	messages := []llm.Message{{Role: llm.RoleUser, Content: payload.Query}}
	result, err := t.client.Invoke(ctx, messages, "a2a-"+uuid.New().String()[:8], "a2a")
	if err != nil {
		return "", err
	}
	if len(result) == 0 {
		return "The remote agent returned no answer.", nil
	}
	return result[len(result)-1].Content, nil
}

var _ tools.Tool = (*DelegateTool)(nil)
