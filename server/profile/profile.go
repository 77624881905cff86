// Package profile holds the validated runtime configuration.
package profile

import (
	"github.com/pkg/errors"
)

// Profile is the server's runtime configuration, bound from flags and
// environment at startup and immutable afterwards.
type Profile struct {
	// Addr is the bind address; empty means all interfaces.
	Addr string
	// Port is the HTTP listen port.
	Port int
	// Data is the directory for local state (sqlite db, vector store).
	Data string
	// Driver is the conversation store backend: sqlite, mysql, postgres.
	Driver string
	// DSN is the database connection string. For sqlite it defaults to
	// Data/strand.db.
	DSN string

	// Model is the chat model identifier.
	Model string
	// ModelBaseURL is an OpenAI-compatible endpoint, e.g.
	// https://openrouter.ai/api/v1 or http://localhost:11434/v1.
	ModelBaseURL string
	// ModelAPIKey authenticates against ModelBaseURL; may be empty for
	// local providers.
	ModelAPIKey string

	// EmbedModel is the embedding model identifier.
	EmbedModel string
	// EmbedBaseURL points at an Ollama API root (…/api). When empty,
	// embeddings use ModelBaseURL's OpenAI-compatible endpoint.
	EmbedBaseURL string

	// ToolSelection toggles semantic tool narrowing; off means every
	// registered tool is offered on every turn.
	ToolSelection bool
	// ToolTopK is the size of the selected tool subset.
	ToolTopK int

	// MemoryEnabled toggles long-term memory retrieval and writes.
	MemoryEnabled bool
	// MemoryLimit is the number of memories retrieved per model call.
	MemoryLimit int

	// ContextBudget is the history window in characters.
	ContextBudget int
	// MaxRounds caps model invocations per turn.
	MaxRounds int

	// MCPServers is a JSON array of stdio MCP server configs.
	MCPServers string

	// PeerURL and PeerAgentID configure the delegate tool; both empty
	// disables delegation.
	PeerURL     string
	PeerAgentID string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// Validate checks invariants that would otherwise fail at first use.
func (p *Profile) Validate() error {
	switch p.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return errors.Errorf("unknown driver %q (valid: sqlite, mysql, postgres)", p.Driver)
	}
	if p.Driver != "sqlite" && p.DSN == "" {
		return errors.Errorf("driver %q requires a dsn", p.Driver)
	}
	if p.Model == "" {
		return errors.New("model must be set")
	}
	if p.ModelBaseURL == "" {
		return errors.New("model-base-url must be set")
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}
	return nil
}
