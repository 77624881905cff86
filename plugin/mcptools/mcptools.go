// Package mcptools loads external tool catalogs from MCP servers and
// adapts each remote tool into a registry callable.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/tools"
)

const protocolVersion = "2025-06-18"

// ServerConfig describes one stdio MCP server to launch.
type ServerConfig struct {
	Name    string            `json:"name"`
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
}

// ParseServers decodes a JSON array of server configs (the value of the
// mcp-servers setting). An empty string yields no servers.
func ParseServers(raw string) ([]ServerConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var configs []ServerConfig
	if err := json.Unmarshal([]byte(raw), &configs); err != nil {
		return nil, errors.Wrap(err, "parse mcp server config")
	}
	return configs, nil
}

// LoadedTool pairs an adapted callable with its parameter schema.
type LoadedTool struct {
	Tool       tools.Tool
	Parameters map[string]any
}

// Manager owns the MCP client connections for the process lifetime.
type Manager struct {
	mu      sync.Mutex
	clients []*client.Client
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// Load starts every configured server, lists its tools, and returns the
// adapted catalog. Process env values override configured ones, the
// same way the server's own secrets are injected.
func (m *Manager) Load(ctx context.Context, configs []ServerConfig) ([]LoadedTool, error) {
	var loaded []LoadedTool
	for _, cfg := range configs {
		toolsFromServer, err := m.loadServer(ctx, cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "mcp server %s", cfg.Name)
		}
		loaded = append(loaded, toolsFromServer...)
	}
	return loaded, nil
}

func (m *Manager) loadServer(ctx context.Context, cfg ServerConfig) ([]LoadedTool, error) {
	env := make([]string, 0, len(cfg.Env))
	for k, v := range cfg.Env {
		if actual := os.Getenv(k); actual != "" {
			v = actual
		}
		env = append(env, k+"="+v)
	}

	cli, err := client.NewStdioMCPClient(cfg.Command, env, cfg.Args...)
	if err != nil {
		return nil, errors.Wrap(err, "start server")
	}

	initReq := mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: protocolVersion,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "strand",
				Version: "1.0.0",
			},
		},
	}
	if _, err := cli.Initialize(ctx, initReq); err != nil {
		cli.Close()
		return nil, errors.Wrap(err, "initialize")
	}

	listResult, err := cli.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		cli.Close()
		return nil, errors.Wrap(err, "list tools")
	}

	m.mu.Lock()
	m.clients = append(m.clients, cli)
	m.mu.Unlock()

	loaded := make([]LoadedTool, 0, len(listResult.Tools))
	for _, t := range listResult.Tools {
		loaded = append(loaded, LoadedTool{
			Tool: &remoteTool{
				client:      cli,
				name:        t.Name,
				description: t.Description,
			},
			Parameters: schemaToParameters(t.InputSchema),
		})
	}
	slog.Info("mcp server loaded", "server", cfg.Name, "tools", len(loaded))
	return loaded, nil
}

// Close shuts down all server connections.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cli := range m.clients {
		if err := cli.Close(); err != nil {
			slog.Warn("mcp client close failed", "err", err)
		}
	}
	m.clients = nil
}

// remoteTool adapts one MCP tool to the registry's callable contract.
type remoteTool struct {
	client      *client.Client
	name        string
	description string
}

func (t *remoteTool) Name() string        { return t.name }
func (t *remoteTool) Description() string { return t.description }

func (t *remoteTool) Call(ctx context.Context, input string) (string, error) {
	var args map[string]any
	if input != "" {
		if err := json.Unmarshal([]byte(input), &args); err != nil {
			return "", errors.Wrap(err, "parse tool input")
		}
	}

	result, err := t.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      t.name,
			Arguments: args,
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "call tool")
	}

	text := flattenContent(result.Content)
	if result.IsError {
		return "", errors.Errorf("tool failed: %s", text)
	}
	return text, nil
}

func flattenContent(content []mcp.Content) string {
	var sb strings.Builder
	for _, c := range content {
		if tc, ok := c.(mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

func schemaToParameters(schema mcp.ToolInputSchema) map[string]any {
	properties := map[string]any{}
	for name, prop := range schema.Properties {
		properties[name] = prop
	}
	schemaType := schema.Type
	if schemaType == "" {
		schemaType = "object"
	}
	return map[string]any{
		"type":       schemaType,
		"properties": properties,
		"required":   schema.Required,
	}
}

var _ tools.Tool = (*remoteTool)(nil)

// String identifies the manager in logs.
func (m *Manager) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("mcptools(%d clients)", len(m.clients))
}
