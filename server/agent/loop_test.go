package agent

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strandlabs/strand/plugin/memobank"
	"github.com/strandlabs/strand/server/llm"
	"github.com/strandlabs/strand/store"
	"github.com/strandlabs/strand/store/db/sqlite"
)

// scriptedModel replays a fixed sequence of assistant messages. Once
// the script is exhausted it keeps returning the final message.
type scriptedModel struct {
	mu        sync.Mutex
	responses []llm.Message
	calls     int
}

func (m *scriptedModel) Chat(_ context.Context, _ []llm.Message, _ []llm.ToolDef) (*llm.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.calls
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	m.calls++
	msg := m.responses[i]
	return &msg, nil
}

func (m *scriptedModel) Complete(_ context.Context, _ string) (string, error) {
	return "summary", nil
}

// allSelector offers the full catalog on every turn.
type allSelector struct{ r *Registry }

func (s allSelector) Select(_ context.Context, _ string) []string { return s.r.IDs() }

// recordingMemory captures memory traffic for assertions.
type recordingMemory struct {
	mu         sync.Mutex
	retrievals int
	written    []string
}

func (m *recordingMemory) Retrieve(_ context.Context, _, _ string, _ int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrievals++
	return []string{"user prefers metric units"}, nil
}

func (m *recordingMemory) Write(ctx context.Context, _, transcript string, summarize memobank.SummarizeFunc) error {
	summary, err := summarize(ctx, transcript)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, summary)
	return nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	driver, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	st, err := store.New(context.Background(), driver)
	require.NoError(t, err)
	return st
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))
	return r
}

func TestLoopMultiplyScenario(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	registry := newTestRegistry(t)

	model := &scriptedModel{responses: []llm.Message{
		{
			Role: llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{
				{ID: "call_1", Name: "multiply", Arguments: map[string]any{"a": "2", "b": "3"}},
			},
		},
		{Role: llm.RoleAssistant, Content: "2 times 3 is 6."},
	}}

	loop := NewLoop(model, registry, allSelector{registry}, nil, st, LoopConfig{})
	result, err := loop.Run(ctx, "alice_t1", "alice", []llm.Message{{Content: "what is 2 * 3?"}}, nil)
	require.NoError(t, err)
	require.Equal(t, StopComplete, result.StopReason)
	require.Equal(t, 2, result.Rounds)

	// user input is persisted but not part of the turn's generated messages
	require.Len(t, result.Messages, 3)
	require.Equal(t, llm.RoleAssistant, result.Messages[0].Role)
	require.Equal(t, llm.RoleTool, result.Messages[1].Role)
	require.Equal(t, "6", result.Messages[1].Content)
	require.Equal(t, "call_1", result.Messages[1].ToolCallID)
	require.Contains(t, result.Messages[2].Content, "6")

	stored, err := st.ListMessages(ctx, &store.FindMessages{ThreadKey: "alice_t1"})
	require.NoError(t, err)
	require.Len(t, stored, 4)
	require.Equal(t, llm.RoleUser, stored[0].Role)
	require.Equal(t, llm.RoleAssistant, stored[1].Role)
	require.Equal(t, llm.RoleTool, stored[2].Role)
	require.Equal(t, llm.RoleAssistant, stored[3].Role)
}

func TestLoopUnknownToolBecomesErrorResult(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	registry := newTestRegistry(t)

	model := &scriptedModel{responses: []llm.Message{
		{
			Role: llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{
				{ID: "call_1", Name: "teleport", Arguments: map[string]any{"dest": "mars"}},
			},
		},
		{Role: llm.RoleAssistant, Content: "I cannot do that."},
	}}

	loop := NewLoop(model, registry, allSelector{registry}, nil, st, LoopConfig{})
	result, err := loop.Run(ctx, "alice_t1", "alice", []llm.Message{{Content: "teleport me"}}, nil)
	require.NoError(t, err)
	require.Equal(t, StopComplete, result.StopReason)

	require.Equal(t, llm.RoleTool, result.Messages[1].Role)
	require.Contains(t, result.Messages[1].Content, `tool "teleport" is not available`)
}

func TestLoopToolFailureBecomesErrorResult(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	registry := newTestRegistry(t)

	model := &scriptedModel{responses: []llm.Message{
		{
			Role: llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{
				{ID: "call_1", Name: "multiply", Arguments: map[string]any{"a": "two", "b": "3"}},
			},
		},
		{Role: llm.RoleAssistant, Content: "that did not work"},
	}}

	loop := NewLoop(model, registry, allSelector{registry}, nil, st, LoopConfig{})
	result, err := loop.Run(ctx, "alice_t1", "alice", []llm.Message{{Content: "multiply two by 3"}}, nil)
	require.NoError(t, err)

	require.Equal(t, llm.RoleTool, result.Messages[1].Role)
	require.Contains(t, result.Messages[1].Content, "Error:")
}

func TestLoopMaxRoundsForcesStop(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	registry := newTestRegistry(t)

	// The model never stops asking for tools.
	model := &scriptedModel{responses: []llm.Message{
		{
			Role: llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{
				{ID: "call_x", Name: "multiply", Arguments: map[string]any{"a": "1", "b": "1"}},
			},
		},
	}}

	loop := NewLoop(model, registry, allSelector{registry}, nil, st, LoopConfig{MaxRounds: 2})
	result, err := loop.Run(ctx, "alice_t1", "alice", []llm.Message{{Content: "loop forever"}}, nil)
	require.NoError(t, err)
	require.Equal(t, StopMaxRounds, result.StopReason)
	require.Equal(t, 2, result.Rounds)
}

// A forced stop must not leave the thread ending on an assistant message
// whose tool calls have no answers: such a history is rejected by strict
// providers on the next turn, wedging the thread for good.
func TestLoopMaxRoundsAnswersPendingToolCalls(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	registry := newTestRegistry(t)

	model := &scriptedModel{responses: []llm.Message{
		{
			Role: llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{
				{ID: "call_x", Name: "multiply", Arguments: map[string]any{"a": "1", "b": "1"}},
			},
		},
	}}

	loop := NewLoop(model, registry, allSelector{registry}, nil, st, LoopConfig{MaxRounds: 1})
	result, err := loop.Run(ctx, "alice_t1", "alice", []llm.Message{{Content: "loop forever"}}, nil)
	require.NoError(t, err)
	require.Equal(t, StopMaxRounds, result.StopReason)

	stored, err := st.ListMessages(ctx, &store.FindMessages{ThreadKey: "alice_t1"})
	require.NoError(t, err)
	require.NotEmpty(t, stored)

	// Every requested tool call has a matching tool-role answer.
	answered := map[string]bool{}
	for _, m := range stored {
		if m.Role == llm.RoleTool {
			answered[m.ToolCallID] = true
		}
	}
	for _, m := range stored {
		for _, call := range m.ToolCalls {
			require.True(t, answered[call.ID], "tool call %s has no result", call.ID)
		}
	}

	last := stored[len(stored)-1]
	require.Equal(t, llm.RoleTool, last.Role)
	require.Equal(t, "call_x", last.ToolCallID)
	require.Equal(t, "Error: turn terminated: max rounds reached", last.Content)
}

func TestLoopWritesMemoryAfterTurn(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	registry := newTestRegistry(t)
	memory := &recordingMemory{}

	model := &scriptedModel{responses: []llm.Message{
		{Role: llm.RoleAssistant, Content: "hello there"},
	}}

	loop := NewLoop(model, registry, allSelector{registry}, memory, st, LoopConfig{MemoryEnabled: true})
	_, err := loop.Run(ctx, "alice_t1", "alice", []llm.Message{{Content: "hi"}}, nil)
	require.NoError(t, err)

	require.Equal(t, 1, memory.retrievals)
	require.Equal(t, []string{"summary"}, memory.written)
}

func TestLoopEmitsEachStep(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	registry := newTestRegistry(t)

	model := &scriptedModel{responses: []llm.Message{
		{
			Role: llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{
				{ID: "call_1", Name: "multiply", Arguments: map[string]any{"a": "4", "b": "5"}},
			},
		},
		{Role: llm.RoleAssistant, Content: "20"},
	}}

	var steps [][]llm.Message
	loop := NewLoop(model, registry, allSelector{registry}, nil, st, LoopConfig{})
	_, err := loop.Run(ctx, "alice_t1", "alice", []llm.Message{{Content: "4*5?"}}, func(step []llm.Message) {
		steps = append(steps, step)
	})
	require.NoError(t, err)

	// assistant tool request, tool results, final assistant
	require.Len(t, steps, 3)
	require.Equal(t, llm.RoleAssistant, steps[0][0].Role)
	require.Equal(t, llm.RoleTool, steps[1][0].Role)
	require.Equal(t, "20", steps[1][0].Content)
	require.Equal(t, llm.RoleAssistant, steps[2][0].Role)
}

func TestLoopRejectsEmptyInput(t *testing.T) {
	st := newTestStore(t)
	registry := newTestRegistry(t)
	loop := NewLoop(&scriptedModel{responses: []llm.Message{{Role: llm.RoleAssistant}}}, registry, allSelector{registry}, nil, st, LoopConfig{})

	_, err := loop.Run(context.Background(), "alice_t1", "alice", nil, nil)
	require.Error(t, err)
}
