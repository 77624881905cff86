// Package agent implements the tool-augmented reasoning loop and the
// conversation service around it.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/strandlabs/strand/plugin/memobank"
	"github.com/strandlabs/strand/server/llm"
	"github.com/strandlabs/strand/store"
)

// ToolSelector narrows the tool catalog to a query-relevant subset of
// tool IDs. A fail-open implementation returns the full catalog.
type ToolSelector interface {
	Select(ctx context.Context, query string) []string
}

// MemoryStore is the long-term, per-user memory collaborator.
type MemoryStore interface {
	Retrieve(ctx context.Context, userID, query string, limit int) ([]string, error)
	Write(ctx context.Context, userID, transcript string, summarize memobank.SummarizeFunc) error
}

// StopReason reports how a turn ended.
type StopReason string

const (
	// StopComplete means the model stopped requesting tools.
	StopComplete StopReason = "complete"
	// StopMaxRounds means the round ceiling forced termination while the
	// model was still requesting tools.
	StopMaxRounds StopReason = "max_rounds"
)

// LoopConfig holds the reasoning-loop knobs.
type LoopConfig struct {
	// ContextBudget is the history window size in characters
	// (4 chars ≈ 1 token).
	ContextBudget int
	// MaxRounds caps model invocations per turn.
	MaxRounds int
	// MemoryEnabled toggles memory retrieval and the end-of-turn write.
	MemoryEnabled bool
	// MemoryLimit is the number of memories retrieved per model call.
	MemoryLimit int
}

func (c LoopConfig) withDefaults() LoopConfig {
	if c.ContextBudget <= 0 {
		c.ContextBudget = 64000 * 4
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = 8
	}
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = 3
	}
	return c
}

// TurnResult is the outcome of one pass through the reasoning loop.
type TurnResult struct {
	// Messages are all messages generated this turn, oldest first.
	Messages []llm.Message
	// StopReason reports how the loop terminated.
	StopReason StopReason
	// Rounds is the number of model invocations.
	Rounds int
}

// Loop drives one conversation turn: select tools, call the model,
// execute requested tool calls, repeat until the model stops asking for
// tools, then summarize the turn into memory. The loop owns no
// persistent state; every completed step is appended to the
// conversation store before the next model call.
type Loop struct {
	model    llm.Client
	registry *Registry
	selector ToolSelector
	memory   MemoryStore
	store    *store.Store
	cfg      LoopConfig
}

// NewLoop wires the reasoning loop. selector must not be nil; memory
// may be nil when long-term memory is disabled.
func NewLoop(model llm.Client, registry *Registry, selector ToolSelector, memory MemoryStore, st *store.Store, cfg LoopConfig) *Loop {
	return &Loop{
		model:    model,
		registry: registry,
		selector: selector,
		memory:   memory,
		store:    st,
		cfg:      cfg.withDefaults(),
	}
}

// Run executes one turn against threadKey. input messages are treated
// as user messages and persisted before the first model call. When emit
// is non-nil it receives the new messages of each completed step.
func (l *Loop) Run(ctx context.Context, threadKey, userID string, input []llm.Message, emit func(step []llm.Message)) (*TurnResult, error) {
	if len(input) == 0 {
		return nil, errors.New("turn requires at least one input message")
	}

	userMsgs := make([]llm.Message, 0, len(input))
	for _, m := range input {
		m.Role = llm.RoleUser
		userMsgs = append(userMsgs, m)
	}
	query := userMsgs[len(userMsgs)-1].Content

	if err := l.append(ctx, threadKey, userMsgs); err != nil {
		return nil, err
	}

	// SELECT_TOOLS: once per turn, narrowing the active set for the
	// remainder of the turn.
	activeIDs := l.selector.Select(ctx, query)
	subset := l.registry.Subset(activeIDs)
	defs := l.registry.Defs(activeIDs)

	slog.Info("[AGENT INIT]", "thread", threadKey, "tools", len(defs), "input", query)

	history, err := l.load(ctx, threadKey)
	if err != nil {
		return nil, err
	}

	var turnNew []llm.Message
	rounds := 0
	stop := StopComplete

	for {
		window := l.buildWindow(ctx, userID, query, history)

		assistant, err := l.model.Chat(ctx, window, defs)
		if err != nil {
			return nil, errors.Wrap(err, "model call failed")
		}
		rounds++

		step := []llm.Message{*assistant}
		if err := l.append(ctx, threadKey, step); err != nil {
			return nil, err
		}
		history = append(history, *assistant)
		turnNew = append(turnNew, *assistant)
		if emit != nil {
			emit(step)
		}

		// Sole branching condition: did the model request tools?
		if len(assistant.ToolCalls) == 0 {
			slog.Info("[AGENT FINISH]", "thread", threadKey, "rounds", rounds)
			break
		}
		if rounds >= l.cfg.MaxRounds {
			stop = StopMaxRounds
			slog.Warn("[AGENT FORCED STOP]", "thread", threadKey, "rounds", rounds)

			// The pending calls must still be answered: a history ending
			// on an unanswered tool_calls message cannot be replayed to
			// the model on the next turn.
			toolMsgs := abortToolCalls(assistant.ToolCalls)
			if err := l.append(ctx, threadKey, toolMsgs); err != nil {
				return nil, err
			}
			history = append(history, toolMsgs...)
			turnNew = append(turnNew, toolMsgs...)
			if emit != nil {
				emit(toolMsgs)
			}
			break
		}

		toolMsgs := l.executeTools(ctx, assistant.ToolCalls, subset)
		if err := l.append(ctx, threadKey, toolMsgs); err != nil {
			return nil, err
		}
		history = append(history, toolMsgs...)
		turnNew = append(turnNew, toolMsgs...)
		if emit != nil {
			emit(toolMsgs)
		}
	}

	l.writeMemory(ctx, userID, turnNew)

	return &TurnResult{Messages: turnNew, StopReason: stop, Rounds: rounds}, nil
}

// buildWindow assembles the model input: fixed system instruction,
// retrieved memories as a synthetic contextual message, then the
// trimmed running history.
func (l *Loop) buildWindow(ctx context.Context, userID, query string, history []llm.Message) []llm.Message {
	window := []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt(time.Now())}}

	if l.cfg.MemoryEnabled && l.memory != nil {
		memories, err := l.memory.Retrieve(ctx, userID, query, l.cfg.MemoryLimit)
		if err != nil {
			slog.Warn("memory retrieval failed", "user", userID, "err", err)
		} else if len(memories) > 0 {
			window = append(window, memoriesContext(memories))
		}
	}

	return append(window, trimMessages(history, l.cfg.ContextBudget)...)
}

// executeTools runs every tool call of one assistant message, in the
// order the model listed them, resolving names against the turn's
// active subset only. Failures become error tool-results for the model
// to recover from, never server errors.
func (l *Loop) executeTools(ctx context.Context, calls []llm.ToolCall, subset map[string]*Descriptor) []llm.Message {
	results := make([]llm.Message, 0, len(calls))
	for _, call := range calls {
		content := l.executeTool(ctx, call, subset)
		results = append(results, llm.Message{
			Role:       llm.RoleTool,
			Content:    content,
			Name:       call.Name,
			ToolCallID: call.ID,
		})
	}
	return results
}

// abortToolCalls answers every pending call with an error result instead of
// executing it, so a forced stop leaves the history well formed.
func abortToolCalls(calls []llm.ToolCall) []llm.Message {
	results := make([]llm.Message, 0, len(calls))
	for _, call := range calls {
		results = append(results, llm.Message{
			Role:       llm.RoleTool,
			Content:    "Error: turn terminated: max rounds reached",
			Name:       call.Name,
			ToolCallID: call.ID,
		})
	}
	return results
}

func (l *Loop) executeTool(ctx context.Context, call llm.ToolCall, subset map[string]*Descriptor) string {
	d, ok := subset[call.Name]
	if !ok {
		slog.Warn("[AGENT TOOL CALL]", "tool", call.Name, "err", "not in active subset")
		return fmt.Sprintf("Error: tool %q is not available", call.Name)
	}

	args := coerceArguments(call.Arguments)
	input, err := json.Marshal(args)
	if err != nil {
		return "Error: failed to encode tool arguments"
	}

	slog.Info("[AGENT TOOL CALL]", "tool", call.Name, "input", string(input))
	result, err := d.Tool.Call(ctx, string(input))
	if err != nil {
		result = "Error: " + err.Error()
	}
	slog.Info("[AGENT TOOL RESULT]", "tool", call.Name, "result", result)
	return result
}

// writeMemory summarizes the turn's new messages into a durable memory.
// A failed write degrades the next turn's context but must not destroy
// this one, so it only logs.
func (l *Loop) writeMemory(ctx context.Context, userID string, turnNew []llm.Message) {
	if !l.cfg.MemoryEnabled || l.memory == nil || len(turnNew) == 0 {
		return
	}

	transcript := renderTranscript(turnNew)
	summarize := func(ctx context.Context, transcript string) (string, error) {
		return l.model.Complete(ctx, fmt.Sprintf(memoryCreatePrompt, transcript))
	}
	if err := l.memory.Write(ctx, userID, transcript, summarize); err != nil {
		slog.Warn("memory write failed", "user", userID, "err", err)
	}
}

// renderTranscript flattens messages into "role: content" lines, with
// tool calls rendered inline.
func renderTranscript(messages []llm.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		sb.WriteString(m.Role + ": " + m.Content)
		for _, tc := range m.ToolCalls {
			sb.WriteString(fmt.Sprintf(" [tool call: %s with args: %v]", tc.Name, tc.Arguments))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
