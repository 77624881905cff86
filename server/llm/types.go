// Package llm provides the chat-model client used by the agent loop.
package llm

import "context"

// Message roles. Tool-role messages carry the result of a single tool
// call and must reference the originating call via ToolCallID.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a structured request from the model naming a tool and its
// arguments. Argument values arrive stringified from most providers and
// are coerced at the dispatch boundary, not here.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Message is a single chat message. ToolCalls is only present on
// assistant messages that request tool execution; ToolCallID only on
// tool-role messages.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolDef is an OpenAI-compatible tool definition as sent to the model.
type ToolDef map[string]any

// NewToolDef constructs a function-type tool definition.
func NewToolDef(name, description string, properties map[string]any, required []string) ToolDef {
	if properties == nil {
		properties = map[string]any{}
	}
	if required == nil {
		required = []string{}
	}
	return ToolDef{
		"type": "function",
		"function": map[string]any{
			"name":        name,
			"description": description,
			"parameters": map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		},
	}
}

// Client is implemented by chat-model providers.
type Client interface {
	// Chat sends the full message window plus the active tool subset and
	// returns the model's next assistant message.
	Chat(ctx context.Context, messages []Message, tools []ToolDef) (*Message, error)

	// Complete runs a single-turn, tool-free completion. Used for
	// summarization and other auxiliary prompts.
	Complete(ctx context.Context, prompt string) (string, error)
}

// SizeHint approximates the prompt cost of a message in characters
// (4 chars ≈ 1 token). Tool calls count their serialized arguments.
func (m Message) SizeHint() int {
	n := len(m.Content)
	for _, tc := range m.ToolCalls {
		n += len(tc.Name)
		for k, v := range tc.Arguments {
			n += len(k)
			if s, ok := v.(string); ok {
				n += len(s)
			} else {
				n += 8
			}
		}
	}
	return n
}
