package store

// ToolCall is a persisted model tool-call request.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Message is a single persisted conversation message.
type Message struct {
	ID         int64
	ThreadKey  string
	Role       string // "user" | "assistant" | "system" | "tool"
	Content    string
	Name       string
	ToolCallID string // non-empty when Role == "tool"
	ToolCalls  []ToolCall
	CreatedTs  int64
}

// AppendMessages is the payload for Store.AppendMessages. All messages
// share one thread key and are written in a single transaction.
type AppendMessages struct {
	ThreadKey string
	Messages  []Message
}

// FindMessages filters for Store.ListMessages.
type FindMessages struct {
	ThreadKey string
}
